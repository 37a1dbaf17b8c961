package analyzer

import (
	"sync/atomic"

	"github.com/smazurov/magnifier/internal/frame"
)

// LastFrame holds the most recent decoded and oriented frame. It has exactly
// one writer (the analyzer worker); readers on any goroutine see either the
// previous or the new buffer, never a partially built one.
type LastFrame struct {
	ptr     atomic.Pointer[frame.PixelBuffer]
	updates atomic.Uint64
}

// Load returns the current frame, or nil before the first Store.
// The returned buffer must not be modified.
func (l *LastFrame) Load() *frame.PixelBuffer {
	return l.ptr.Load()
}

// Store publishes buf as the current frame.
func (l *LastFrame) Store(buf *frame.PixelBuffer) {
	l.ptr.Store(buf)
	l.updates.Add(1)
}

// Updates returns how many frames have been stored.
func (l *LastFrame) Updates() uint64 {
	return l.updates.Load()
}
