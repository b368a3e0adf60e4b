package web

import (
	"sync"
)

// event is one server-sent event.
type event struct {
	Name string
	Data any
}

// hub fans state updates out to connected browsers. Slow subscribers are
// skipped rather than blocking the broadcaster; the next update supersedes
// anything they missed.
type hub struct {
	buffer int

	mu   sync.Mutex
	subs map[chan event]struct{}
}

func newHub(buffer int) *hub {
	if buffer <= 0 {
		buffer = 8
	}
	return &hub{buffer: buffer, subs: make(map[chan event]struct{})}
}

func (h *hub) subscribe() (chan event, func()) {
	ch := make(chan event, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	cancel := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *hub) broadcast(ev event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *hub) subscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
