package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Camera describes the frame source.
type Camera struct {
	// Source selects the frame source implementation: "mjpeg" or "playback".
	Source string `toml:"source"`
	// StreamURL is the MJPEG stream endpoint for IP cameras.
	StreamURL string `toml:"stream_url"`
	// Device is the local device node used for hotplug monitoring (e.g. /dev/video0).
	Device string `toml:"device"`
	// PlaybackDir holds image files replayed as frames by the playback source.
	PlaybackDir string `toml:"playback_dir"`
	// PlaybackIntervalMs is the simulated frame interval for the playback source.
	PlaybackIntervalMs int `toml:"playback_interval_ms"`
	// PlaybackLoop restarts the playback source at the end of the directory.
	PlaybackLoop bool `toml:"playback_loop"`
}

// Detection configures the face detection sidecar.
type Detection struct {
	ServiceURL     string `toml:"service_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// MinRegionPx drops detections smaller than this edge length.
	MinRegionPx int `toml:"min_region_px"`
}

// Recognition configures the embedding service and matching.
type Recognition struct {
	EmbedServiceURL string `toml:"embed_service_url"`
	EmbedDim        int    `toml:"embed_dim"`
	// TimeoutSeconds bounds a single recognition job; expiry degrades to "no match".
	TimeoutSeconds int `toml:"timeout_seconds"`
	// MaxInFlight caps concurrently tracked faces with pending recognition jobs.
	MaxInFlight int `toml:"max_in_flight"`
	// ConfidenceThreshold is the maximum cosine distance accepted as a known match.
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
}

// Presence configures the cooldown and state machine behavior.
type Presence struct {
	CooldownSeconds        int `toml:"cooldown_seconds"`
	NeutralDebounceSeconds int `toml:"neutral_debounce_seconds"`
	// TrackerMaxDistancePx is the spatial threshold for treating a region in a
	// new frame as the same tracked face.
	TrackerMaxDistancePx int `toml:"tracker_max_distance_px"`
}

// Speech configures the external text-to-speech runner.
type Speech struct {
	Enabled bool   `toml:"enabled"`
	Command string `toml:"command"`
	// ExtraArgs are inserted before the message text.
	ExtraArgs       []string `toml:"extra_args"`
	DefaultLanguage string   `toml:"default_language"`
	// PlaybackCeilingSeconds force-frees the announcer when the TTS command hangs.
	PlaybackCeilingSeconds int `toml:"playback_ceiling_seconds"`
}

// Web configures the browser-facing mirror display.
type Web struct {
	Enabled bool   `toml:"enabled"`
	Bind    string `toml:"bind"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic            string `toml:"ntfy_topic"`
	RequestTimeout       int    `toml:"request_timeout"`
	CameraErrors         bool   `toml:"camera_errors"`
	UnknownLinger        bool   `toml:"unknown_linger"`
	UnknownLingerSeconds int    `toml:"unknown_linger_seconds"`
	DedupWindowSeconds   int    `toml:"dedup_window_seconds"`
}

// Workflow contains daemon channel sizing and shutdown behavior.
type Workflow struct {
	ResultQueueSize      int `toml:"result_queue_size"`
	EventQueueSize       int `toml:"event_queue_size"`
	ShutdownGraceSeconds int `toml:"shutdown_grace_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mirror.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Camera: frame source selection and hotplug device
//   - Detection: face detection sidecar endpoint
//   - Recognition: embedding service, thresholds, in-flight caps
//   - Presence: cooldown, debounce, and tracker tunables
//   - Speech: external TTS command settings
//   - Web: mirror display server
//   - Notifications: ntfy push notification settings
//   - Workflow: channel sizing and shutdown grace
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Camera        Camera        `toml:"camera"`
	Detection     Detection     `toml:"detection"`
	Recognition   Recognition   `toml:"recognition"`
	Presence      Presence      `toml:"presence"`
	Speech        Speech        `toml:"speech"`
	Web           Web           `toml:"web"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mirror/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mirror.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database path for the profile store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "profiles.db")
}

// SocketPath returns the IPC socket path for daemon control.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "mirror.sock")
}

// LockPath returns the single-instance daemon lock path.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "mirrord.lock")
}

// LogFilePath returns the daemon log file path.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "mirror.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
