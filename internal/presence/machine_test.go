package presence_test

import (
	"testing"
	"time"

	"mirror/internal/logging"
	"mirror/internal/presence"
	"mirror/internal/resolve"
)

type recordingSink struct {
	renders   []presence.State
	announced []string
}

func (s *recordingSink) Render(state presence.State) {
	s.renders = append(s.renders, state)
}

func (s *recordingSink) Announce(personID string, _ uint64) {
	s.announced = append(s.announced, personID)
}

func (s *recordingSink) lastState(t *testing.T) presence.State {
	t.Helper()
	if len(s.renders) == 0 {
		t.Fatal("no renders recorded")
	}
	return s.renders[len(s.renders)-1]
}

type machineClock struct {
	now time.Time
}

func (c *machineClock) Now() time.Time { return c.now }

func (c *machineClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestMachine(sink *recordingSink, clock *machineClock) *presence.Machine {
	return presence.New(sink, logging.NewNop(), presence.Options{
		NeutralDebounce: 2 * time.Second,
		Clock:           clock.Now,
	})
}

func TestInitialStateIsNeutral(t *testing.T) {
	sink := &recordingSink{}
	m := newTestMachine(sink, &machineClock{now: time.Unix(1000, 0)})

	if m.Current().Kind != presence.Neutral {
		t.Errorf("expected Neutral start, got %v", m.Current().Kind)
	}
	if len(sink.renders) != 1 {
		t.Errorf("expected initial render, got %d", len(sink.renders))
	}
}

func TestKnownFaceAnnouncesOnEntry(t *testing.T) {
	sink := &recordingSink{}
	m := newTestMachine(sink, &machineClock{now: time.Unix(1000, 0)})

	m.Apply(resolve.Event{Kind: resolve.KnownFace, PersonID: "ana", ShouldAnnounce: true, FrameSeq: 1})

	state := m.Current()
	if state.Kind != presence.Known || state.PersonID != "ana" {
		t.Errorf("expected Known(ana), got %+v", state)
	}
	if len(sink.announced) != 1 || sink.announced[0] != "ana" {
		t.Errorf("expected exactly one announce for ana, got %v", sink.announced)
	}
}

func TestKnownRetentionDoesNotReRender(t *testing.T) {
	sink := &recordingSink{}
	m := newTestMachine(sink, &machineClock{now: time.Unix(1000, 0)})

	m.Apply(resolve.Event{Kind: resolve.KnownFace, PersonID: "ana", ShouldAnnounce: true, FrameSeq: 1})
	renders := len(sink.renders)

	m.Apply(resolve.Event{Kind: resolve.KnownFace, PersonID: "ana", FrameSeq: 2})
	m.Apply(resolve.Event{Kind: resolve.KnownFace, PersonID: "ana", FrameSeq: 3})

	if len(sink.renders) != renders {
		t.Errorf("re-confirmation must not re-render: %d → %d", renders, len(sink.renders))
	}
	if len(sink.announced) != 1 {
		t.Errorf("re-confirmation must not re-announce, got %v", sink.announced)
	}
}

func TestAnnounceAfterCooldownWhileRetained(t *testing.T) {
	sink := &recordingSink{}
	m := newTestMachine(sink, &machineClock{now: time.Unix(1000, 0)})

	m.Apply(resolve.Event{Kind: resolve.KnownFace, PersonID: "ana", ShouldAnnounce: true, FrameSeq: 1})
	// Cooldown expired while ana stayed in frame; the resolver re-opens the
	// window without a state change.
	m.Apply(resolve.Event{Kind: resolve.KnownFace, PersonID: "ana", ShouldAnnounce: true, FrameSeq: 200})

	if len(sink.announced) != 2 {
		t.Errorf("expected re-announce after cooldown expiry, got %v", sink.announced)
	}
}

func TestDirectKnownToKnownSwitch(t *testing.T) {
	sink := &recordingSink{}
	m := newTestMachine(sink, &machineClock{now: time.Unix(1000, 0)})

	m.Apply(resolve.Event{Kind: resolve.KnownFace, PersonID: "ana", ShouldAnnounce: true, FrameSeq: 1})
	m.Apply(resolve.Event{Kind: resolve.KnownFace, PersonID: "ben", ShouldAnnounce: true, FrameSeq: 2})

	state := sink.lastState(t)
	if state.Kind != presence.Known || state.PersonID != "ben" {
		t.Errorf("expected direct switch to Known(ben), got %+v", state)
	}
	for _, s := range sink.renders {
		if s.Kind == presence.Unknown {
			t.Error("person switch must not hop through Unknown")
		}
	}
	if len(sink.announced) != 2 {
		t.Errorf("expected both people announced, got %v", sink.announced)
	}
}

func TestUnknownIsImmediate(t *testing.T) {
	sink := &recordingSink{}
	m := newTestMachine(sink, &machineClock{now: time.Unix(1000, 0)})

	m.Apply(resolve.Event{Kind: resolve.KnownFace, PersonID: "ana", FrameSeq: 1})
	m.Apply(resolve.Event{Kind: resolve.UnknownFace, FrameSeq: 2})

	if m.Current().Kind != presence.Unknown {
		t.Errorf("expected immediate Unknown, got %v", m.Current().Kind)
	}
}

func TestUnknownRetentionDoesNotReRender(t *testing.T) {
	sink := &recordingSink{}
	clock := &machineClock{now: time.Unix(1000, 0)}
	m := newTestMachine(sink, clock)

	m.Apply(resolve.Event{Kind: resolve.UnknownFace, FrameSeq: 1})
	renders := len(sink.renders)
	entered := m.Current().Since

	clock.Advance(500 * time.Millisecond)
	m.Apply(resolve.Event{Kind: resolve.UnknownFace, FrameSeq: 2})
	clock.Advance(500 * time.Millisecond)
	m.Apply(resolve.Event{Kind: resolve.UnknownFace, FrameSeq: 3})

	if len(sink.renders) != renders {
		t.Errorf("continued unknown presence must not re-render: %d → %d", renders, len(sink.renders))
	}
	if got := m.Current().Since; !got.Equal(entered) {
		t.Errorf("continued unknown presence must keep Since at %v, got %v", entered, got)
	}
}

func TestNeutralDebounce(t *testing.T) {
	sink := &recordingSink{}
	clock := &machineClock{now: time.Unix(1000, 0)}
	m := newTestMachine(sink, clock)

	m.Apply(resolve.Event{Kind: resolve.KnownFace, PersonID: "ana", FrameSeq: 1})

	// First NoFace starts the debounce window; state is retained.
	m.Apply(resolve.Event{Kind: resolve.NoFace, FrameSeq: 2})
	if m.Current().Kind != presence.Known {
		t.Fatalf("expected Known retained during debounce, got %v", m.Current().Kind)
	}

	// Still inside the window.
	clock.Advance(time.Second)
	m.Apply(resolve.Event{Kind: resolve.NoFace, FrameSeq: 3})
	if m.Current().Kind != presence.Known {
		t.Fatalf("expected Known retained at 1s, got %v", m.Current().Kind)
	}

	// Window elapsed with continued NoFace.
	clock.Advance(time.Second + 100*time.Millisecond)
	m.Apply(resolve.Event{Kind: resolve.NoFace, FrameSeq: 4})
	if m.Current().Kind != presence.Neutral {
		t.Errorf("expected Neutral after debounce, got %v", m.Current().Kind)
	}
}

func TestFaceReturnResetsDebounce(t *testing.T) {
	sink := &recordingSink{}
	clock := &machineClock{now: time.Unix(1000, 0)}
	m := newTestMachine(sink, clock)

	m.Apply(resolve.Event{Kind: resolve.KnownFace, PersonID: "ana", FrameSeq: 1})
	m.Apply(resolve.Event{Kind: resolve.NoFace, FrameSeq: 2})
	clock.Advance(1500 * time.Millisecond)

	// Face came back before the window elapsed; the timer must restart.
	m.Apply(resolve.Event{Kind: resolve.KnownFace, PersonID: "ana", FrameSeq: 3})
	m.Apply(resolve.Event{Kind: resolve.NoFace, FrameSeq: 4})
	clock.Advance(1500 * time.Millisecond)
	m.Apply(resolve.Event{Kind: resolve.NoFace, FrameSeq: 5})

	if m.Current().Kind != presence.Known {
		t.Errorf("expected debounce restarted after face return, got %v", m.Current().Kind)
	}
}

func TestCameraErrorState(t *testing.T) {
	sink := &recordingSink{}
	m := newTestMachine(sink, &machineClock{now: time.Unix(1000, 0)})

	m.SetCameraError()
	if m.Current().Kind != presence.CameraError {
		t.Fatalf("expected CameraError, got %v", m.Current().Kind)
	}
	m.SetCameraError()
	if got := len(sink.renders); got != 2 {
		t.Errorf("repeated camera error must not re-render, got %d renders", got)
	}

	// Recovery: events flowing again resume normal transitions.
	m.Apply(resolve.Event{Kind: resolve.UnknownFace, FrameSeq: 1})
	if m.Current().Kind != presence.Unknown {
		t.Errorf("expected recovery to Unknown, got %v", m.Current().Kind)
	}
}
