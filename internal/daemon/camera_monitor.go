package daemon

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"mirror/internal/config"
	"mirror/internal/logging"
)

// cameraMonitor listens for udev netlink events on the video4linux subsystem
// and reports camera attach/detach. The frame pipeline notices a dead stream
// on its own; the monitor exists so unplugging the camera is reported the
// moment it happens instead of after the next failed read.
type cameraMonitor struct {
	logger   *slog.Logger
	device   string
	onChange func(ctx context.Context, device string, attached bool)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// newCameraMonitor builds a monitor for the configured camera device node.
// Returns nil when no device is configured; hotplug reporting is optional.
func newCameraMonitor(
	cfg *config.Config,
	logger *slog.Logger,
	onChange func(ctx context.Context, device string, attached bool),
) *cameraMonitor {
	if cfg == nil {
		return nil
	}
	device := strings.TrimSpace(cfg.Camera.Device)
	if device == "" {
		return nil
	}
	return &cameraMonitor{
		logger:   logging.NewComponentLogger(logger, "camera-monitor"),
		device:   device,
		onChange: onChange,
	}
}

// Start begins listening for udev netlink events.
func (m *cameraMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; camera hotplug reporting disabled",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the daemon has permission to access netlink sockets"),
			logging.String(logging.FieldImpact, "camera unplug is only noticed on the next failed frame read"),
		)
		return nil // Non-fatal - the pipeline still detects a dead stream.
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("camera monitor started",
		logging.String(logging.FieldEventType, "camera_monitor_started"),
		logging.String("device", m.device),
	)
	return nil
}

// Stop shuts down the monitor.
func (m *cameraMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Info("camera monitor stopped",
		logging.String(logging.FieldEventType, "camera_monitor_stopped"),
	)
}

// Running reports whether the monitor is active.
func (m *cameraMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *cameraMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	matcher := m.buildMatcher()

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, matcher)

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "camera hotplug reporting may be affected"),
			)
		}
	}
}

// buildMatcher matches camera device events:
// SUBSYSTEM=video4linux, ACTION=add|remove
func (m *cameraMonitor) buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "video4linux",
		},
	})
	return rules
}

func (m *cameraMonitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	devname := extractDeviceName(uevent)
	if devname == "" {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}
	if devname != m.device {
		m.logger.Debug("ignoring event for non-configured device",
			logging.String("device", devname),
			logging.String("configured_device", m.device),
		)
		return
	}

	attached := uevent.Action == netlink.ADD
	m.logger.Info("camera hotplug event",
		logging.String(logging.FieldEventType, "camera_hotplug"),
		logging.String("device", devname),
		logging.String("action", string(uevent.Action)),
	)

	if m.onChange != nil {
		m.onChange(ctx, devname, attached)
	}
}

// extractDeviceName gets the device path from a uevent.
func extractDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if strings.HasPrefix(devname, "/dev/") {
			return devname
		}
		return "/dev/" + devname
	}

	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	if len(parts) == 0 {
		return ""
	}
	return "/dev/" + parts[len(parts)-1]
}
