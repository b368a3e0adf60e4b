package vision

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mirror/internal/services"
)

// PlaybackSource replays a directory of JPEG stills as a frame stream,
// pacing them at a fixed interval. Used for demos and deterministic tests.
type PlaybackSource struct {
	files    []string
	interval time.Duration
	loop     bool

	index int
	seq   uint64
}

// NewPlaybackSource scans dir for image files. Fails with
// services.ErrSourceUnavailable when the directory is missing or empty.
func NewPlaybackSource(dir string, interval time.Duration, loop bool) (*PlaybackSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "playback", "open", "cannot read playback directory", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, services.Wrap(services.ErrSourceUnavailable, "playback", "open", "no frames in playback directory", nil)
	}

	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &PlaybackSource{files: files, interval: interval, loop: loop}, nil
}

// Read returns the next still as a frame, pacing at the configured interval.
func (s *PlaybackSource) Read(ctx context.Context) (*Frame, error) {
	if s.index >= len(s.files) {
		if !s.loop {
			return nil, ErrEndOfStream
		}
		s.index = 0
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.interval):
	}

	path := s.files[s.index]
	s.index++

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "playback", "read", path, err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "playback", "decode", path, err)
	}

	s.seq++
	return &Frame{
		Seq:        s.seq,
		CapturedAt: time.Now(),
		Data:       data,
		Width:      cfg.Width,
		Height:     cfg.Height,
	}, nil
}

// Close releases nothing; playback holds no open handles between reads.
func (s *PlaybackSource) Close() error { return nil }
