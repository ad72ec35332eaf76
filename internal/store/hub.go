package store

import (
	"context"
	"sync"

	"github.com/hpungsan/cornell/internal/note"
)

// hub fans note snapshots out to subscribers. Each subscriber channel has
// capacity 1; publishing replaces an undelivered snapshot instead of blocking.
type hub struct {
	mu     sync.Mutex
	subs   map[chan []note.Note]struct{}
	closed bool
	done   chan struct{}
}

func newHub() *hub {
	return &hub{
		subs: make(map[chan []note.Note]struct{}),
		done: make(chan struct{}),
	}
}

// subscribe registers a channel primed with initial. The channel is closed
// and removed once ctx is done.
func (h *hub) subscribe(ctx context.Context, initial []note.Note) (<-chan []note.Note, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}

	ch := make(chan []note.Note, 1)
	ch <- cloneAll(initial)
	h.subs[ch] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-h.done:
			return
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}()

	return ch, true
}

// active reports whether anyone is listening, so backends can skip building
// snapshots nobody will read.
func (h *hub) active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs) > 0
}

func (h *hub) publish(snapshot []note.Note) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		// Drop the stale snapshot if the reader has not taken it yet.
		select {
		case <-ch:
		default:
		}
		ch <- cloneAll(snapshot)
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.done)
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
