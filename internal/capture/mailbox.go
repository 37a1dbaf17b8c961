package capture

import (
	"sync"

	"github.com/smazurov/magnifier/internal/frame"
)

// mailbox holds at most one pending frame. Offer never blocks.
type mailbox struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending *frame.RawFrame
	closed  bool
}

func newMailbox() *mailbox {
	m := &mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Offer stores f as the pending frame. It returns the frame the caller must
// release: the displaced pending frame, or f itself once the mailbox is
// closed. replaced reports whether a pending frame was overwritten.
func (m *mailbox) Offer(f *frame.RawFrame) (release *frame.RawFrame, replaced bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return f, false
	}
	old := m.pending
	m.pending = f
	m.cond.Signal()
	return old, old != nil
}

// Take waits for a pending frame. It returns false once the mailbox is closed.
func (m *mailbox) Take() (*frame.RawFrame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.pending == nil && !m.closed {
		m.cond.Wait()
	}
	if m.closed {
		return nil, false
	}
	f := m.pending
	m.pending = nil
	return f, true
}

// Close wakes the taker and releases any pending frame.
func (m *mailbox) Close() {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.closed = true
	m.cond.Broadcast()
	m.mu.Unlock()

	if pending != nil {
		pending.Release()
	}
}
