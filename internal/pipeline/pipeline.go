// Package pipeline runs the capture-and-detect loop: it pulls frames from
// the source on its own schedule and hands detected regions to the
// dispatcher, never waiting on recognition latency.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"mirror/internal/dispatch"
	"mirror/internal/logging"
	"mirror/internal/services"
	"mirror/internal/vision"
)

// Stats is a point-in-time snapshot of pipeline counters.
type Stats struct {
	Frames       uint64 `json:"frames"`
	Detections   uint64 `json:"detections"`
	DetectErrors uint64 `json:"detect_errors"`
	EmptyFrames  uint64 `json:"empty_frames"`
}

// Pipeline couples one frame source to one face detector.
type Pipeline struct {
	source     vision.Source
	detector   vision.Detector
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger

	frames       atomic.Uint64
	detections   atomic.Uint64
	detectErrors atomic.Uint64
	emptyFrames  atomic.Uint64
}

// New builds a Pipeline.
func New(source vision.Source, detector vision.Detector, dispatcher *dispatch.Dispatcher, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		source:     source,
		detector:   detector,
		dispatcher: dispatcher,
		logger:     logger.With(logging.String(logging.FieldComponent, "pipeline")),
	}
}

// Run loops until the context is canceled, the source is exhausted, or the
// source becomes unavailable. Source unavailability is the only error that
// escapes; detector failures are absorbed so a single bad frame cannot take
// the loop down.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		frame, err := p.source.Read(ctx)
		if err != nil {
			if errors.Is(err, vision.ErrEndOfStream) {
				p.logger.Info("frame source exhausted",
					logging.Uint64("frames", p.frames.Load()))
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return services.Wrap(services.ErrSourceUnavailable, "pipeline", "read",
				"frame source failed", err)
		}
		p.frames.Add(1)

		regions, err := p.detector.DetectFaces(ctx, frame)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// Detection failed for this frame only. Skip it; the prior
			// display state is retained rather than flickering to neutral.
			p.detectErrors.Add(1)
			p.logger.Warn("face detection failed, skipping frame",
				logging.Uint64(logging.FieldFrameSeq, frame.Seq),
				logging.Error(err))
			continue
		}

		if len(regions) == 0 {
			p.emptyFrames.Add(1)
		} else {
			p.detections.Add(uint64(len(regions)))
		}
		p.dispatcher.Submit(ctx, frame, regions)
	}
}

// Stats reports pipeline counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Frames:       p.frames.Load(),
		Detections:   p.detections.Load(),
		DetectErrors: p.detectErrors.Load(),
		EmptyFrames:  p.emptyFrames.Load(),
	}
}
