package vision

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mirror/internal/services"
)

func writeStill(t *testing.T, dir, name string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode still: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write still: %v", err)
	}
}

func TestPlaybackSourceSequencesFrames(t *testing.T) {
	dir := t.TempDir()
	writeStill(t, dir, "b.jpg")
	writeStill(t, dir, "a.jpg")
	writeStill(t, dir, "notes.txt")

	source, err := NewPlaybackSource(dir, time.Millisecond, false)
	if err != nil {
		t.Fatalf("NewPlaybackSource: %v", err)
	}
	defer source.Close()

	ctx := context.Background()
	first, err := source.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	second, err := source.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("sequence numbers not monotonic: %d, %d", first.Seq, second.Seq)
	}
	if first.Width != 32 || first.Height != 24 {
		t.Fatalf("unexpected dimensions: %dx%d", first.Width, first.Height)
	}

	if _, err := source.Read(ctx); !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("expected end of stream, got %v", err)
	}
}

func TestPlaybackSourceLoops(t *testing.T) {
	dir := t.TempDir()
	writeStill(t, dir, "only.jpg")

	source, err := NewPlaybackSource(dir, time.Millisecond, true)
	if err != nil {
		t.Fatalf("NewPlaybackSource: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		frame, err := source.Read(ctx)
		if err != nil {
			t.Fatalf("Read %d: %v", i, err)
		}
		if frame.Seq != uint64(i+1) {
			t.Fatalf("expected seq %d, got %d", i+1, frame.Seq)
		}
	}
}

func TestPlaybackSourceEmptyDirUnavailable(t *testing.T) {
	if _, err := NewPlaybackSource(t.TempDir(), time.Millisecond, false); !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("expected source unavailable, got %v", err)
	}
}

func TestCropRegionProducesJPEG(t *testing.T) {
	frame := testFrame(t, 320, 240)
	data, err := CropRegion(frame, Region{FrameSeq: 1, X: 100, Y: 60, Width: 80, Height: 80}, 160)
	if err != nil {
		t.Fatalf("CropRegion: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode crop: %v", err)
	}
	if cfg.Width != 160 || cfg.Height != 160 {
		t.Fatalf("unexpected crop size %dx%d", cfg.Width, cfg.Height)
	}
}

func TestCropRegionOutsideBounds(t *testing.T) {
	frame := testFrame(t, 64, 64)
	if _, err := CropRegion(frame, Region{X: 500, Y: 500, Width: 50, Height: 50}, 160); err == nil {
		t.Fatal("expected error for out-of-bounds region")
	}
}
