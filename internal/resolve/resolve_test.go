package resolve_test

import (
	"math"
	"testing"
	"time"

	"mirror/internal/dispatch"
	"mirror/internal/logging"
	"mirror/internal/resolve"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestResolver(clock *fakeClock) *resolve.Resolver {
	return resolve.New(logging.NewNop(), resolve.Options{
		Threshold: 0.6,
		Cooldown:  30 * time.Second,
		Clock:     clock.Now,
	})
}

func TestResolveNoFace(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	r := newTestResolver(clock)

	event := r.Resolve(dispatch.Result{NoFace: true, FrameSeq: 12})
	if event.Kind != resolve.NoFace {
		t.Errorf("expected NoFace, got %v", event.Kind)
	}
	if event.FrameSeq != 12 {
		t.Errorf("expected frame seq preserved, got %d", event.FrameSeq)
	}
}

func TestResolveAboveThresholdIsUnknown(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	r := newTestResolver(clock)

	event := r.Resolve(dispatch.Result{PersonID: "p2", Distance: 0.8, FrameSeq: 3})
	if event.Kind != resolve.UnknownFace {
		t.Errorf("expected UnknownFace above threshold, got %v", event.Kind)
	}
	if event.ShouldAnnounce {
		t.Error("unknown events must never announce")
	}
	if _, touched := r.LastAnnounced("p2"); touched {
		t.Error("unknown result must not touch the cooldown table")
	}
}

func TestResolveMissingPersonIsUnknown(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	r := newTestResolver(clock)

	event := r.Resolve(dispatch.Result{Distance: math.Inf(1), FrameSeq: 4})
	if event.Kind != resolve.UnknownFace {
		t.Errorf("expected timed-out result to resolve unknown, got %v", event.Kind)
	}
}

func TestCooldownWindow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	r := newTestResolver(clock)

	// t=0: first match announces.
	event := r.Resolve(dispatch.Result{PersonID: "p1", Distance: 0.3, FrameSeq: 1})
	if event.Kind != resolve.KnownFace || !event.ShouldAnnounce {
		t.Fatalf("expected first known match to announce, got %+v", event)
	}

	// t=10: still inside the window, shown but not re-greeted.
	clock.Advance(10 * time.Second)
	event = r.Resolve(dispatch.Result{PersonID: "p1", Distance: 0.4, FrameSeq: 2})
	if event.Kind != resolve.KnownFace || event.ShouldAnnounce {
		t.Fatalf("expected suppressed announce inside cooldown, got %+v", event)
	}

	// t=31: window elapsed, announce again.
	clock.Advance(21 * time.Second)
	event = r.Resolve(dispatch.Result{PersonID: "p1", Distance: 0.4, FrameSeq: 3})
	if event.Kind != resolve.KnownFace || !event.ShouldAnnounce {
		t.Fatalf("expected announce after cooldown expiry, got %+v", event)
	}
}

func TestCooldownPerPersonIndependent(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	r := newTestResolver(clock)

	first := r.Resolve(dispatch.Result{PersonID: "p1", Distance: 0.3, FrameSeq: 1, TrackID: 1})
	second := r.Resolve(dispatch.Result{PersonID: "p2", Distance: 0.3, FrameSeq: 1, TrackID: 2})
	if !first.ShouldAnnounce || !second.ShouldAnnounce {
		t.Errorf("expected both first matches to announce: %+v %+v", first, second)
	}

	clock.Advance(10 * time.Second)
	repeat := r.Resolve(dispatch.Result{PersonID: "p1", Distance: 0.3, FrameSeq: 2, TrackID: 1})
	if repeat.ShouldAnnounce {
		t.Errorf("expected p1 suppressed while p2's state is untouched, got %+v", repeat)
	}
}

func TestLastAnnouncedMonotonic(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	r := newTestResolver(clock)

	r.Resolve(dispatch.Result{PersonID: "p1", Distance: 0.3, FrameSeq: 1})
	first, ok := r.LastAnnounced("p1")
	if !ok {
		t.Fatal("expected cooldown entry after announce")
	}

	clock.Advance(45 * time.Second)
	r.Resolve(dispatch.Result{PersonID: "p1", Distance: 0.3, FrameSeq: 2})
	second, _ := r.LastAnnounced("p1")
	if !second.After(first) {
		t.Errorf("expected last_announced to advance: %v then %v", first, second)
	}
}

func TestBoundaryDistanceEqualThresholdIsKnown(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	r := newTestResolver(clock)

	event := r.Resolve(dispatch.Result{PersonID: "p1", Distance: 0.6, FrameSeq: 1})
	if event.Kind != resolve.KnownFace {
		t.Errorf("distance equal to threshold should match, got %v", event.Kind)
	}
}
