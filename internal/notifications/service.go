package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"mirror/internal/config"
)

const userAgent = "Mirror-Go/0.1.0"

// Service defines the caregiver alert surface exposed to daemon components.
type Service interface {
	NotifyCameraError(ctx context.Context, err error) error
	NotifyCameraRecovered(ctx context.Context) error
	NotifyUnknownLinger(ctx context.Context, duration time.Duration) error
	NotifyDaemonStarted(ctx context.Context, source string) error
	NotifyDaemonStopped(ctx context.Context) error
	TestNotification(ctx context.Context) error
}

// NewService builds an alert service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dedup := time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second
	if dedup <= 0 {
		dedup = 5 * time.Minute
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		cameraErrors: cfg.Notifications.CameraErrors,
		linger:       cfg.Notifications.UnknownLinger,
		dedupWindow:  dedup,
		lastSent:     make(map[string]time.Time),
		now:          time.Now,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	cameraErrors bool
	linger       bool

	dedupWindow time.Duration
	mu          sync.Mutex
	lastSent    map[string]time.Time
	now         func() time.Time
}

func (n *ntfyService) NotifyCameraError(ctx context.Context, err error) error {
	if !n.cameraErrors {
		return nil
	}
	if n.suppressed("camera_error") {
		return nil
	}
	detail := "unknown"
	if err != nil {
		detail = strings.TrimSpace(err.Error())
	}
	data := payload{
		title:    "Mirror - Camera Error",
		message:  fmt.Sprintf("Camera unavailable: %s\nThe mirror shows an error screen until it recovers.", detail),
		tags:     []string{"mirror", "camera", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCameraRecovered(ctx context.Context) error {
	if !n.cameraErrors {
		return nil
	}
	if n.suppressed("camera_recovered") {
		return nil
	}
	data := payload{
		title:   "Mirror - Camera Recovered",
		message: "Camera feed is back. Normal display resumed.",
		tags:    []string{"mirror", "camera", "recovered"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyUnknownLinger(ctx context.Context, duration time.Duration) error {
	if !n.linger {
		return nil
	}
	if n.suppressed("unknown_linger") {
		return nil
	}
	data := payload{
		title:   "Mirror - Unrecognized Visitor",
		message: fmt.Sprintf("An unrecognized person has been in front of the mirror for %s.", duration.Round(time.Second)),
		tags:    []string{"mirror", "visitor", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDaemonStarted(ctx context.Context, source string) error {
	data := payload{
		title:   "Mirror - Started",
		message: fmt.Sprintf("Mirror daemon started (camera source: %s)", source),
		tags:    []string{"mirror", "daemon", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDaemonStopped(ctx context.Context) error {
	data := payload{
		title:   "Mirror - Stopped",
		message: "Mirror daemon stopped.",
		tags:    []string{"mirror", "daemon", "stopped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Mirror - Test",
		message:  "Notification system test",
		tags:     []string{"mirror", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

// suppressed reports whether an alert with the given key fired inside the
// dedup window, and records the attempt otherwise.
func (n *ntfyService) suppressed(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.now()
	if last, ok := n.lastSent[key]; ok && now.Sub(last) < n.dedupWindow {
		return true
	}
	n.lastSent[key] = now
	return false
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyCameraError(context.Context, error) error           { return nil }
func (noopService) NotifyCameraRecovered(context.Context) error              { return nil }
func (noopService) NotifyUnknownLinger(context.Context, time.Duration) error { return nil }
func (noopService) NotifyDaemonStarted(context.Context, string) error        { return nil }
func (noopService) NotifyDaemonStopped(context.Context) error                { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
