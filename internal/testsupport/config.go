package testsupport

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"mirror/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults to the playback frame source so tests never touch a camera,
// and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Camera.Source = "playback"
	cfgVal.Camera.Device = ""
	cfgVal.Camera.PlaybackDir = filepath.Join(base, "frames")
	cfgVal.Camera.PlaybackIntervalMs = 1
	cfgVal.Web.Enabled = false
	cfgVal.Speech.Enabled = false
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDetectionService points the config at a stub detection endpoint.
func WithDetectionService(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Detection.ServiceURL = url
	}
}

// WithEmbedService points the config at a stub embedding endpoint.
func WithEmbedService(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Recognition.EmbedServiceURL = url
	}
}

// WithPlaybackFrames writes n synthetic JPEG frames into the playback
// directory so the pipeline has something to read.
func WithPlaybackFrames(n int) ConfigOption {
	return func(b *configBuilder) {
		dir := b.cfg.Camera.PlaybackDir
		if err := os.MkdirAll(dir, 0o755); err != nil {
			b.t.Fatalf("mkdir playback dir: %v", err)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 160, 120)), nil); err != nil {
			b.t.Fatalf("encode frame: %v", err)
		}
		for i := 0; i < n; i++ {
			name := filepath.Join(dir, fmt.Sprintf("frame%03d.jpg", i))
			if err := os.WriteFile(name, buf.Bytes(), 0o644); err != nil {
				b.t.Fatalf("write frame: %v", err)
			}
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
