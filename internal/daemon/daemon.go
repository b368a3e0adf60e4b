// Package daemon wires the capture pipeline, recognition dispatch, identity
// resolution, and presentation state machine into a single-instance
// background process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mirror/internal/config"
	"mirror/internal/deps"
	"mirror/internal/dispatch"
	"mirror/internal/logging"
	"mirror/internal/notifications"
	"mirror/internal/pipeline"
	"mirror/internal/presence"
	"mirror/internal/profiles"
	"mirror/internal/recognize"
	"mirror/internal/resolve"
	"mirror/internal/services"
	"mirror/internal/speech"
	"mirror/internal/vision"
	"mirror/internal/web"
)

// sourceRetryDelay paces reconnect attempts after the camera goes away.
const sourceRetryDelay = 3 * time.Second

// Daemon owns the full recognition-to-presentation data flow and enforces
// single-instance execution via a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service

	store  *profiles.Store
	people map[string]*profiles.Person
	index  *recognize.EnrollmentIndex

	source     vision.Source
	detector   vision.Detector
	dispatcher *dispatch.Dispatcher
	resolver   *resolve.Resolver
	machine    *presence.Machine
	pipe       *pipeline.Pipeline
	speaker    *speech.Speaker
	webServer  *web.Server
	monitor    *cameraMonitor

	sessionID string
	startedAt time.Time
	lockPath  string
	lock      *flock.Flock

	running    atomic.Bool
	cameraDown atomic.Bool
	done       chan struct{}
	pipelineWG sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	unknownMu      sync.Mutex
	unknownSince   time.Time
	lingerNotified bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	SessionID    string         `json:"session_id"`
	StartedAt    time.Time      `json:"started_at"`
	State        presence.State `json:"state"`
	People       int            `json:"people"`
	Encodings    int            `json:"encodings"`
	CameraSource string         `json:"camera_source"`
	Pipeline     pipeline.Stats `json:"pipeline"`
	Dispatch     dispatch.Stats `json:"dispatch"`
	DatabasePath string         `json:"database_path"`
	LockPath     string         `json:"lock_path"`
	Dependencies []deps.Status  `json:"dependencies,omitempty"`
}

// New constructs a daemon with initialized collaborators. A corrupt or
// unreadable profile store degrades to an empty profile set: the mirror still
// runs, every face just resolves unknown.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		notifier:  notifications.NewService(cfg),
		people:    make(map[string]*profiles.Person),
		index:     recognize.NewEnrollmentIndex(),
		sessionID: uuid.NewString(),
		lockPath:  cfg.LockPath(),
		lock:      flock.New(cfg.LockPath()),
		done:      make(chan struct{}),
	}

	d.loadProfiles()

	if cfg.Speech.Enabled {
		speaker, err := speech.New(logger, speech.Options{
			Command:   cfg.Speech.Command,
			ExtraArgs: cfg.Speech.ExtraArgs,
			Ceiling:   time.Duration(cfg.Speech.PlaybackCeilingSeconds) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		d.speaker = speaker
	}

	if cfg.Web.Enabled {
		d.webServer = web.NewServer(cfg.Web.Bind, logger, func() any {
			return d.Status(context.Background())
		}, cfg.Workflow.EventQueueSize)
	}

	embedder := recognize.NewEmbeddingClient(cfg.Recognition.EmbedServiceURL, cfg.Recognition.EmbedDim)
	adapter := recognize.NewLocalAdapter(embedder, d.index)
	d.dispatcher = dispatch.New(adapter, logger, dispatch.Options{
		Timeout:       time.Duration(cfg.Recognition.TimeoutSeconds) * time.Second,
		MaxInFlight:   cfg.Recognition.MaxInFlight,
		MaxDistancePx: cfg.Presence.TrackerMaxDistancePx,
		QueueSize:     cfg.Workflow.ResultQueueSize,
	})

	d.resolver = resolve.New(logger, resolve.Options{
		Threshold: cfg.Recognition.ConfidenceThreshold,
		Cooldown:  time.Duration(cfg.Presence.CooldownSeconds) * time.Second,
	})

	d.machine = presence.New(&compositeSink{daemon: d}, logger, presence.Options{
		NeutralDebounce: time.Duration(cfg.Presence.NeutralDebounceSeconds) * time.Second,
	})

	source, err := buildSource(cfg)
	if err != nil {
		return nil, err
	}
	d.source = source
	d.detector = vision.NewHTTPDetector(cfg.Detection.ServiceURL,
		time.Duration(cfg.Detection.TimeoutSeconds)*time.Second, cfg.Detection.MinRegionPx)
	d.pipe = pipeline.New(d.source, d.detector, d.dispatcher, logger)
	d.monitor = newCameraMonitor(cfg, logger, d.onCameraHotplug)

	return d, nil
}

// buildSource constructs the configured frame source.
func buildSource(cfg *config.Config) (vision.Source, error) {
	switch cfg.Camera.Source {
	case "mjpeg":
		return vision.NewMJPEGSource(cfg.Camera.StreamURL), nil
	case "playback":
		interval := time.Duration(cfg.Camera.PlaybackIntervalMs) * time.Millisecond
		return vision.NewPlaybackSource(cfg.Camera.PlaybackDir, interval, cfg.Camera.PlaybackLoop)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "source",
			fmt.Sprintf("unsupported camera source %q", cfg.Camera.Source), nil)
	}
}

// loadProfiles opens the store and builds the enrollment index. Failures are
// logged and leave the daemon with an empty profile set.
func (d *Daemon) loadProfiles() {
	store, err := profiles.Open(d.cfg)
	if err != nil {
		d.logger.Warn("profile store unavailable, continuing with empty profile set",
			logging.Error(err),
			logging.String(logging.FieldEventType, "profile_store_degraded"),
			logging.String(logging.FieldErrorHint, "check the database file and run mirror profile import again"),
			logging.String(logging.FieldImpact, "every face will resolve as unknown"))
		return
	}

	ctx := context.Background()
	people, err := store.LoadAll(ctx)
	if err != nil {
		d.logger.Warn("profile load failed, continuing with empty profile set",
			logging.Error(err),
			logging.String(logging.FieldEventType, "profile_store_degraded"),
			logging.String(logging.FieldImpact, "every face will resolve as unknown"))
		_ = store.Close()
		return
	}

	encodings, err := store.Encodings(ctx)
	if err != nil {
		d.logger.Warn("encoding load failed, continuing with empty enrollment index",
			logging.Error(err),
			logging.String(logging.FieldEventType, "profile_store_degraded"),
			logging.String(logging.FieldImpact, "every face will resolve as unknown"))
		encodings = nil
	}

	d.store = store
	d.people = people
	for _, enc := range encodings {
		d.index.Add(enc.PersonID, enc.Vector)
	}
	d.logger.Info("profiles loaded",
		logging.Int("people", len(people)),
		logging.Int("encodings", len(encodings)))
}

// Start acquires the daemon lock and launches the processing loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mirror daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.startedAt = time.Now()

	if d.webServer != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.webServer.Start(); err != nil {
				d.logger.Warn("web server stopped",
					logging.Error(err),
					logging.String(logging.FieldEventType, "web_server_failed"),
					logging.String(logging.FieldImpact, "mirror display unavailable"))
			}
		}()
	}

	if err := d.monitor.Start(d.ctx); err != nil {
		d.logger.Warn("camera monitor failed to start", logging.Error(err))
	}

	d.wg.Add(1)
	go d.resultLoop()

	d.pipelineWG.Add(1)
	go d.pipelineLoop()

	d.running.Store(true)
	d.logger.Info("mirror daemon started",
		logging.String(logging.FieldSession, d.sessionID),
		logging.String("lock", d.lockPath),
		logging.String("camera_source", d.cfg.Camera.Source))
	if err := d.notifier.NotifyDaemonStarted(d.ctx, d.cfg.Camera.Source); err != nil {
		d.logger.Debug("start notification failed", logging.Error(err))
	}
	return nil
}

// pipelineLoop runs the capture loop and keeps retrying after camera loss so
// an unplugged-then-replugged camera recovers without a daemon restart.
func (d *Daemon) pipelineLoop() {
	defer d.pipelineWG.Done()
	for {
		err := d.pipe.Run(d.ctx)
		if err == nil {
			// Clean exit: stream exhausted or context canceled.
			return
		}
		if !services.Fatal(err) {
			d.logger.Error("pipeline failed", logging.Error(err))
			return
		}

		d.machine.SetCameraError()
		if d.cameraDown.CompareAndSwap(false, true) {
			d.logger.Error("camera unavailable",
				logging.Error(err),
				logging.String(logging.FieldEventType, "camera_error"),
				logging.String(logging.FieldErrorHint, "check the camera connection and stream URL"),
				logging.String(logging.FieldImpact, "mirror shows the camera error screen"))
			if notifyErr := d.notifier.NotifyCameraError(d.ctx, err); notifyErr != nil {
				d.logger.Debug("camera error notification failed", logging.Error(notifyErr))
			}
		}

		select {
		case <-d.ctx.Done():
			return
		case <-time.After(sourceRetryDelay):
		}
	}
}

// resultLoop drains recognition results through the resolver into the state
// machine. It exits when the dispatcher's result channel closes.
func (d *Daemon) resultLoop() {
	defer d.wg.Done()
	for result := range d.dispatcher.Results() {
		if d.cameraDown.CompareAndSwap(true, false) {
			d.logger.Info("camera recovered",
				logging.String(logging.FieldEventType, "camera_recovered"))
			if err := d.notifier.NotifyCameraRecovered(d.ctx); err != nil {
				d.logger.Debug("camera recovery notification failed", logging.Error(err))
			}
		}

		event := d.resolver.Resolve(result)
		d.machine.Apply(event)
		d.trackUnknownLinger(event)
		d.recordHistory(event)
	}
}

// recordHistory appends known-face resolutions to the recognition history.
func (d *Daemon) recordHistory(event resolve.Event) {
	if event.Kind != resolve.KnownFace || d.store == nil {
		return
	}
	if err := d.store.RecordRecognition(d.ctx, event.PersonID, event.Distance, event.FrameSeq, event.ShouldAnnounce); err != nil {
		d.logger.Warn("history record failed",
			logging.String(logging.FieldPerson, event.PersonID),
			logging.Error(err))
	}
}

// trackUnknownLinger alerts the caregiver when an unrecognized person stays
// in front of the mirror past the configured threshold.
func (d *Daemon) trackUnknownLinger(event resolve.Event) {
	threshold := time.Duration(d.cfg.Notifications.UnknownLingerSeconds) * time.Second
	if threshold <= 0 {
		return
	}

	d.unknownMu.Lock()
	defer d.unknownMu.Unlock()

	if event.Kind != resolve.UnknownFace {
		d.unknownSince = time.Time{}
		d.lingerNotified = false
		return
	}

	now := time.Now()
	if d.unknownSince.IsZero() {
		d.unknownSince = now
		return
	}
	if d.lingerNotified || now.Sub(d.unknownSince) < threshold {
		return
	}
	d.lingerNotified = true
	if err := d.notifier.NotifyUnknownLinger(d.ctx, now.Sub(d.unknownSince)); err != nil {
		d.logger.Debug("linger notification failed", logging.Error(err))
	}
}

// onCameraHotplug reacts to udev attach/detach events for the camera node.
func (d *Daemon) onCameraHotplug(ctx context.Context, device string, attached bool) {
	if attached {
		d.logger.Info("camera attached", logging.String("device", device))
		return
	}
	d.machine.SetCameraError()
	if d.cameraDown.CompareAndSwap(false, true) {
		if err := d.notifier.NotifyCameraError(ctx, fmt.Errorf("camera %s detached", device)); err != nil {
			d.logger.Debug("camera error notification failed", logging.Error(err))
		}
	}
}

// Stop halts processing, waiting up to the configured grace period for
// in-flight work before returning.
func (d *Daemon) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}

	if d.cancel != nil {
		d.cancel()
	}
	d.monitor.Stop()
	if err := d.source.Close(); err != nil {
		d.logger.Debug("source close failed", logging.Error(err))
	}

	grace := time.Duration(d.cfg.Workflow.ShutdownGraceSeconds) * time.Second
	if grace <= 0 {
		grace = 10 * time.Second
	}

	// The pipeline goroutine must be gone before the dispatcher closes its
	// result channel: a capture loop mid-frame at cancellation could still
	// submit, and a submission into a closed dispatcher panics. Then the
	// dispatcher waits for in-flight recognitions and closes the result
	// channel, which lets the result loop drain and exit.
	done := make(chan struct{})
	go func() {
		d.pipelineWG.Wait()
		d.dispatcher.Close()
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		d.logger.Warn("shutdown grace period elapsed with work still pending",
			logging.Duration("grace", grace))
	}

	if d.webServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.webServer.Shutdown(shutdownCtx); err != nil {
			d.logger.Warn("web server shutdown failed", logging.Error(err))
		}
		cancel()
	}

	if err := d.notifier.NotifyDaemonStopped(context.Background()); err != nil {
		d.logger.Debug("stop notification failed", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.logger.Info("mirror daemon stopped", logging.String(logging.FieldSession, d.sessionID))
	close(d.done)
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon loops are active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Done returns a channel that closes once Stop has completed.
func (d *Daemon) Done() <-chan struct{} {
	return d.done
}

// Status reports runtime information for IPC and the web status API.
func (d *Daemon) Status(_ context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		SessionID:    d.sessionID,
		StartedAt:    d.startedAt,
		State:        d.machine.Current(),
		People:       len(d.people),
		Encodings:    d.index.Len(),
		CameraSource: d.cfg.Camera.Source,
		Pipeline:     d.pipe.Stats(),
		Dispatch:     d.dispatcher.Stats(),
		DatabasePath: d.cfg.DatabasePath(),
		LockPath:     d.lockPath,
		Dependencies: deps.Check(d.cfg),
	}
}

// People returns the loaded profiles sorted by ID.
func (d *Daemon) People() []*profiles.Person {
	ids := make([]string, 0, len(d.people))
	for id := range d.people {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	people := make([]*profiles.Person, 0, len(ids))
	for _, id := range ids {
		people = append(people, d.people[id])
	}
	return people
}

// PersonByID looks up one loaded profile.
func (d *Daemon) PersonByID(personID string) (*profiles.Person, bool) {
	person, ok := d.people[personID]
	return person, ok
}

// History returns recent recognition events, newest first.
func (d *Daemon) History(ctx context.Context, limit int) ([]profiles.Event, error) {
	if d.store == nil {
		return nil, errors.New("profile store unavailable")
	}
	return d.store.History(ctx, limit)
}

// Announce manually triggers a greeting for a person, for demos and testing.
func (d *Daemon) Announce(_ context.Context, personID string) error {
	person, ok := d.people[personID]
	if !ok {
		return fmt.Errorf("person %q not found", personID)
	}
	d.announce(person)
	return nil
}

// TestNotification sends a test alert through the configured notifier.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, err.Error(), err
	}
	return true, "notification sent", nil
}

// LogPath returns the daemon log file path.
func (d *Daemon) LogPath() string {
	return d.cfg.LogFilePath()
}

// announce speaks and captions a greeting for a person.
func (d *Daemon) announce(person *profiles.Person) {
	message, tag := speech.SelectMessage(person, d.cfg.Speech.DefaultLanguage)
	if d.speaker != nil {
		ctx := d.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		d.speaker.Say(ctx, message, tag)
	}
	if d.webServer != nil {
		d.webServer.PushAnnouncement(web.Announcement{
			PersonID:    person.ID,
			DisplayName: person.DisplayName,
			Message:     message,
			Language:    tag,
		})
	}
}

