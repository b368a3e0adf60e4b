package vision

import (
	"context"
	"errors"
)

// ErrEndOfStream signals that a finite frame source has been exhausted.
var ErrEndOfStream = errors.New("end of frame stream")

// Source supplies sequential frames from a camera or recording.
//
// Read blocks until a frame is available, the stream ends (ErrEndOfStream),
// or the source fails. Source failures are wrapped with
// services.ErrSourceUnavailable by the implementations in this package.
type Source interface {
	Read(ctx context.Context) (*Frame, error)
	Close() error
}

// Detector locates face regions in a frame.
//
// Implementations return regions sorted left to right; an empty slice means
// no face was found and is not an error.
type Detector interface {
	DetectFaces(ctx context.Context, frame *Frame) ([]Region, error)
}
