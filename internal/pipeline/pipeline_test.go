package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"testing"
	"time"

	"mirror/internal/dispatch"
	"mirror/internal/logging"
	"mirror/internal/pipeline"
	"mirror/internal/recognize"
	"mirror/internal/services"
	"mirror/internal/vision"
)

func encodedFrame(t *testing.T, seq uint64) *vision.Frame {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 160, 120)), nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return &vision.Frame{Seq: seq, CapturedAt: time.Now(), Data: buf.Bytes(), Width: 160, Height: 120}
}

type scriptedSource struct {
	frames []*vision.Frame
	next   int
	err    error
}

func (s *scriptedSource) Read(_ context.Context) (*vision.Frame, error) {
	if s.next < len(s.frames) {
		frame := s.frames[s.next]
		s.next++
		return frame, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, vision.ErrEndOfStream
}

func (s *scriptedSource) Close() error { return nil }

type scriptedDetector struct {
	regions map[uint64][]vision.Region
	errSeq  uint64
}

func (d *scriptedDetector) DetectFaces(_ context.Context, frame *vision.Frame) ([]vision.Region, error) {
	if d.errSeq != 0 && frame.Seq == d.errSeq {
		return nil, errors.New("model choked")
	}
	return d.regions[frame.Seq], nil
}

type matchAdapter struct{}

func (matchAdapter) Match(_ context.Context, _ []byte) (recognize.Match, error) {
	return recognize.Match{PersonID: "ana", Distance: 0.2}, nil
}

func drainResults(t *testing.T, d *dispatch.Dispatcher, want int) []dispatch.Result {
	t.Helper()
	var results []dispatch.Result
	timeout := time.After(5 * time.Second)
	for len(results) < want {
		select {
		case result := <-d.Results():
			results = append(results, result)
		case <-timeout:
			t.Fatalf("got %d of %d results before timeout", len(results), want)
		}
	}
	return results
}

func TestRunSubmitsDetectionsAndNoFace(t *testing.T) {
	source := &scriptedSource{frames: []*vision.Frame{encodedFrame(t, 1), encodedFrame(t, 2)}}
	detector := &scriptedDetector{regions: map[uint64][]vision.Region{
		1: {{FrameSeq: 1, X: 40, Y: 30, Width: 50, Height: 50}},
	}}
	d := dispatch.New(matchAdapter{}, logging.NewNop(), dispatch.Options{})
	p := pipeline.New(source, detector, d, logging.NewNop())

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	results := drainResults(t, d, 2)
	var known, noFace int
	for _, result := range results {
		switch {
		case result.NoFace:
			noFace++
		case result.PersonID == "ana":
			known++
		}
	}
	if known != 1 || noFace != 1 {
		t.Errorf("expected 1 match and 1 no-face, got %+v", results)
	}

	stats := p.Stats()
	if stats.Frames != 2 || stats.Detections != 1 || stats.EmptyFrames != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestRunEndsCleanlyOnStreamEnd(t *testing.T) {
	source := &scriptedSource{}
	d := dispatch.New(matchAdapter{}, logging.NewNop(), dispatch.Options{})
	p := pipeline.New(source, &scriptedDetector{}, d, logging.NewNop())

	if err := p.Run(context.Background()); err != nil {
		t.Errorf("expected clean end of stream, got %v", err)
	}
}

func TestRunSourceFailureIsFatal(t *testing.T) {
	source := &scriptedSource{err: errors.New("device unplugged")}
	d := dispatch.New(matchAdapter{}, logging.NewNop(), dispatch.Options{})
	p := pipeline.New(source, &scriptedDetector{}, d, logging.NewNop())

	err := p.Run(context.Background())
	if !errors.Is(err, services.ErrSourceUnavailable) {
		t.Errorf("expected source-unavailable error, got %v", err)
	}
}

func TestRunAbsorbsDetectorErrors(t *testing.T) {
	source := &scriptedSource{frames: []*vision.Frame{encodedFrame(t, 1), encodedFrame(t, 2)}}
	detector := &scriptedDetector{
		errSeq: 1,
		regions: map[uint64][]vision.Region{
			2: {{FrameSeq: 2, X: 40, Y: 30, Width: 50, Height: 50}},
		},
	}
	d := dispatch.New(matchAdapter{}, logging.NewNop(), dispatch.Options{})
	p := pipeline.New(source, detector, d, logging.NewNop())

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	results := drainResults(t, d, 1)
	if results[0].PersonID != "ana" {
		t.Errorf("expected detection to continue after error, got %+v", results[0])
	}
	if stats := p.Stats(); stats.DetectErrors != 1 {
		t.Errorf("expected 1 detect error, got %+v", stats)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &scriptedSource{err: context.Canceled}
	d := dispatch.New(matchAdapter{}, logging.NewNop(), dispatch.Options{})
	p := pipeline.New(source, &scriptedDetector{}, d, logging.NewNop())

	if err := p.Run(ctx); err != nil {
		t.Errorf("expected nil on cancellation, got %v", err)
	}
}
