// Package presence holds the authoritative presentation state and its
// transition rules: what the mirror shows right now, and when a person is
// greeted versus merely shown.
package presence

import (
	"log/slog"
	"sync"
	"time"

	"mirror/internal/logging"
	"mirror/internal/resolve"
)

// StateKind enumerates the display states.
type StateKind int

const (
	// Neutral is the idle mirror with nobody in frame.
	Neutral StateKind = iota
	// Unknown shows the generic "visitor" treatment.
	Unknown
	// Known shows a resolved person's profile.
	Known
	// CameraError is the explicit camera-failure treatment.
	CameraError
)

func (k StateKind) String() string {
	switch k {
	case Neutral:
		return "neutral"
	case Unknown:
		return "unknown"
	case Known:
		return "known"
	case CameraError:
		return "camera_error"
	default:
		return "invalid"
	}
}

// State is the single shared value crossing from the recognition side to the
// presentation side. PersonID is set only for Known.
type State struct {
	Kind     StateKind `json:"kind"`
	PersonID string    `json:"person_id,omitempty"`
	Since    time.Time `json:"since"`
}

// Sink receives display updates and announce side effects. Render is called
// on every state change; Announce at most once per cooldown window per
// person, with audio failure never allowed to disturb the visual state.
// Callbacks run on the machine's event path and must not call back into the
// Machine.
type Sink interface {
	Render(state State)
	Announce(personID string, frameSeq uint64)
}

// Options configures a Machine.
type Options struct {
	// NeutralDebounce is how long NoFace must persist before the display
	// returns to Neutral. Prevents flicker when a face briefly leaves frame.
	NeutralDebounce time.Duration
	// Clock overrides time.Now, for deterministic tests.
	Clock func() time.Time
}

// Machine is the presentation state machine. It alone mutates the state;
// everyone else reads snapshots via Current.
type Machine struct {
	sink     Sink
	logger   *slog.Logger
	debounce time.Duration
	now      func() time.Time

	mu          sync.Mutex
	state       State
	noFaceSince time.Time
}

// New builds a Machine in the Neutral state and renders it once so the sink
// starts from a defined display.
func New(sink Sink, logger *slog.Logger, opts Options) *Machine {
	if opts.NeutralDebounce <= 0 {
		opts.NeutralDebounce = 2 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	m := &Machine{
		sink:     sink,
		logger:   logger.With(logging.String(logging.FieldComponent, "presence")),
		debounce: opts.NeutralDebounce,
		now:      opts.Clock,
	}
	m.state = State{Kind: Neutral, Since: m.now()}
	sink.Render(m.state)
	return m
}

// Current returns a snapshot of the present state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Apply feeds one resolved event through the transition table.
func (m *Machine) Apply(event resolve.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch event.Kind {
	case resolve.NoFace:
		m.applyNoFace(event)
	case resolve.UnknownFace:
		m.noFaceSince = time.Time{}
		// Retained: a stream of unknown-face results is one continued
		// presence, not a re-entry per frame.
		if m.state.Kind != Unknown {
			m.enter(State{Kind: Unknown}, event)
		}
	case resolve.KnownFace:
		m.noFaceSince = time.Time{}
		m.applyKnown(event)
	}
}

// applyNoFace returns to Neutral only once NoFace has persisted for the
// debounce interval; until then the prior state is retained.
func (m *Machine) applyNoFace(event resolve.Event) {
	if m.state.Kind == Neutral {
		m.noFaceSince = time.Time{}
		return
	}
	now := m.now()
	if m.noFaceSince.IsZero() {
		m.noFaceSince = now
		return
	}
	if now.Sub(m.noFaceSince) >= m.debounce {
		m.noFaceSince = time.Time{}
		m.enter(State{Kind: Neutral}, event)
	}
}

func (m *Machine) applyKnown(event resolve.Event) {
	retained := m.state.Kind == Known && m.state.PersonID == event.PersonID
	if !retained {
		m.enter(State{Kind: Known, PersonID: event.PersonID}, event)
	}
	// The resolver's cooldown table already guarantees at most one announce
	// per window, so a ShouldAnnounce on a retained state (cooldown expired
	// while the person stayed in frame) still greets exactly once.
	if event.ShouldAnnounce {
		m.logger.Info("announcing person",
			logging.String(logging.FieldPerson, event.PersonID),
			logging.Uint64(logging.FieldFrameSeq, event.FrameSeq))
		m.sink.Announce(event.PersonID, event.FrameSeq)
	}
}

// SetCameraError forces the explicit camera-failure display. Recovery happens
// naturally when events start flowing again.
func (m *Machine) SetCameraError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Kind == CameraError {
		return
	}
	m.noFaceSince = time.Time{}
	m.enter(State{Kind: CameraError}, resolve.Event{})
}

// enter is the single state mutation point. Called with mu held.
func (m *Machine) enter(next State, event resolve.Event) {
	prev := m.state
	next.Since = m.now()
	m.state = next
	m.logger.Debug("state transition",
		logging.String("from", prev.Kind.String()),
		logging.String("to", next.Kind.String()),
		logging.String(logging.FieldPerson, next.PersonID),
		logging.Uint64(logging.FieldFrameSeq, event.FrameSeq))
	m.sink.Render(next)
}
