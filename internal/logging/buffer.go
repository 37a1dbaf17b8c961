package logging

import (
	"sync"
	"time"
)

// LogEntry is one log record kept for the log stream.
type LogEntry struct {
	Seq        uint64         `json:"seq"`
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer keeps the most recent entries. Entry n (1-based sequence) lives
// in slot (n-1) % capacity, so the sequence alone locates the oldest entry.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	seq     uint64
}

// NewRingBuffer creates a buffer holding up to size entries.
func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{entries: make([]LogEntry, size)}
}

// Write stores entry, evicting the oldest when full, and returns it with its
// sequence number assigned.
func (rb *RingBuffer) Write(entry LogEntry) LogEntry {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.seq++
	entry.Seq = rb.seq
	rb.entries[rb.slot(rb.seq)] = entry
	return entry
}

// ReadAll returns every retained entry, oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	return rb.Since(0)
}

// Since returns the retained entries with a sequence number above after,
// oldest first.
func (rb *RingBuffer) Since(after uint64) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	first := rb.oldest()
	if after >= first {
		first = after + 1
	}
	if first > rb.seq {
		return nil
	}

	out := make([]LogEntry, 0, rb.seq-first+1)
	for n := first; n <= rb.seq; n++ {
		out = append(out, rb.entries[rb.slot(n)])
	}
	return out
}

// Count returns the number of retained entries.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if rb.seq == 0 {
		return 0
	}
	return int(rb.seq - rb.oldest() + 1)
}

func (rb *RingBuffer) slot(seq uint64) int {
	return int((seq - 1) % uint64(len(rb.entries)))
}

// oldest returns the sequence of the oldest retained entry, 1 when empty.
func (rb *RingBuffer) oldest() uint64 {
	capacity := uint64(len(rb.entries))
	if rb.seq <= capacity {
		return 1
	}
	return rb.seq - capacity + 1
}
