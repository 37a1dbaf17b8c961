package session

import (
	"sync/atomic"

	"github.com/smazurov/magnifier/internal/capture"
	"github.com/smazurov/magnifier/internal/frame"
)

// Phase names a top-level session state.
type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseLive   Phase = "live"
	PhaseFrozen Phase = "frozen"
	PhaseEnded  Phase = "ended"
)

// Controls are the user-adjustable capture settings.
type Controls struct {
	Zoom     float64
	Torch    bool
	Inverted bool
}

// DefaultControls is the state every session starts with.
var DefaultControls = Controls{Zoom: capture.MinZoomRatio}

// State is one of Idle, Live, Frozen or Ended.
type State interface {
	Phase() Phase
	isState()
}

// Idle waits for the camera permission result. Controls are disabled.
type Idle struct {
	Controls Controls
}

// Live is a running capture session. A nil Handle means the last bind
// failed and the session is degraded until the next explicit user action.
type Live struct {
	Controls Controls
	Handle   capture.Handle
}

// Frozen shows Snapshot on the processed surface. Prior holds the controls
// to restore on unfreeze; they cannot change while frozen.
type Frozen struct {
	Snapshot *frame.PixelBuffer
	Prior    Controls
}

// Ended is terminal.
type Ended struct {
	Reason error
	Last   Controls
}

func (Idle) Phase() Phase   { return PhaseIdle }
func (Live) Phase() Phase   { return PhaseLive }
func (Frozen) Phase() Phase { return PhaseFrozen }
func (Ended) Phase() Phase  { return PhaseEnded }

func (Idle) isState()   {}
func (Live) isState()   {}
func (Frozen) isState() {}
func (Ended) isState()  {}

// Degraded reports whether the capture source is not bound.
func (l Live) Degraded() bool {
	return l.Handle == nil
}

func controlsOf(st State) Controls {
	switch st := st.(type) {
	case Idle:
		return st.Controls
	case Live:
		return st.Controls
	case Frozen:
		return st.Prior
	case Ended:
		return st.Last
	}
	return DefaultControls
}

// BindMode selects the entry action of a capture bind.
type BindMode int

const (
	// ColdStart is the first bind of a session; it resets the zoom ratio.
	ColdStart BindMode = iota
	// Reconfigure rewires use cases and pushes the current zoom and torch.
	Reconfigure
)

func (m BindMode) String() string {
	if m == ColdStart {
		return capture.ModeColdStart
	}
	return capture.ModeReconfigure
}

// Flags are the two session bits read by the analyzer worker. Only the
// session writes them.
type Flags struct {
	inverted atomic.Bool
	frozen   atomic.Bool
}

// Inverted reports whether color inversion is on.
func (f *Flags) Inverted() bool {
	return f.inverted.Load()
}

// Frozen reports whether a snapshot is shown.
func (f *Flags) Frozen() bool {
	return f.frozen.Load()
}
