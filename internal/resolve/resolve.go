// Package resolve maps raw recognition results to presentation events,
// applying confidence thresholding and the per-person announce cooldown.
package resolve

import (
	"log/slog"
	"time"

	"mirror/internal/dispatch"
	"mirror/internal/logging"
)

// Kind tags a presentation event.
type Kind int

const (
	// NoFace means the frame contained no detected face at all.
	NoFace Kind = iota
	// UnknownFace means a face was present but no identity cleared the
	// confidence threshold.
	UnknownFace
	// KnownFace carries a resolved person identity.
	KnownFace
)

func (k Kind) String() string {
	switch k {
	case NoFace:
		return "no_face"
	case UnknownFace:
		return "unknown_face"
	case KnownFace:
		return "known_face"
	default:
		return "invalid"
	}
}

// Event is one resolved presentation event, consumed by the state machine.
type Event struct {
	Kind           Kind
	PersonID       string
	Distance       float64
	FrameSeq       uint64
	TrackID        int64
	ShouldAnnounce bool
}

// Options configures a Resolver.
type Options struct {
	// Threshold is the maximum match distance accepted as a known identity.
	Threshold float64
	// Cooldown is the minimum interval between two announcements for the
	// same person.
	Cooldown time.Duration
	// Clock overrides time.Now, for deterministic tests.
	Clock func() time.Time
}

// Resolver owns the cooldown table. Announce decisions are made here, at
// resolve time, never at announce time: a timed-out or unknown result never
// touches the table, so a slow adapter cannot suppress a later legitimate
// announcement. Not safe for concurrent use; the daemon runs one resolver
// on its event loop.
type Resolver struct {
	threshold float64
	cooldown  time.Duration
	now       func() time.Time
	logger    *slog.Logger

	lastAnnounced map[string]time.Time
}

// New builds a Resolver with an empty cooldown table.
func New(logger *slog.Logger, opts Options) *Resolver {
	if opts.Threshold <= 0 {
		opts.Threshold = 0.6
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 30 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Resolver{
		threshold:     opts.Threshold,
		cooldown:      opts.Cooldown,
		now:           opts.Clock,
		logger:        logger.With(logging.String(logging.FieldComponent, "resolve")),
		lastAnnounced: make(map[string]time.Time),
	}
}

// Resolve turns one recognition result into a presentation event.
func (r *Resolver) Resolve(result dispatch.Result) Event {
	if result.NoFace {
		return Event{Kind: NoFace, FrameSeq: result.FrameSeq}
	}

	if result.PersonID == "" || result.Distance > r.threshold {
		return Event{
			Kind:     UnknownFace,
			Distance: result.Distance,
			FrameSeq: result.FrameSeq,
			TrackID:  result.TrackID,
		}
	}

	event := Event{
		Kind:     KnownFace,
		PersonID: result.PersonID,
		Distance: result.Distance,
		FrameSeq: result.FrameSeq,
		TrackID:  result.TrackID,
	}

	now := r.now()
	last, seen := r.lastAnnounced[result.PersonID]
	if !seen || now.Sub(last) >= r.cooldown {
		event.ShouldAnnounce = true
		if now.After(last) {
			r.lastAnnounced[result.PersonID] = now
		}
		r.logger.Info("announce window open",
			logging.String(logging.FieldPerson, result.PersonID),
			logging.Float64("distance", result.Distance),
			logging.Uint64(logging.FieldFrameSeq, result.FrameSeq))
	}

	return event
}

// LastAnnounced reports when a person was last announced.
func (r *Resolver) LastAnnounced(personID string) (time.Time, bool) {
	last, ok := r.lastAnnounced[personID]
	return last, ok
}
