// Package session implements the capture state machine. A Session is owned
// by the UI context: every method must be called from the same goroutine
// (the ui.Loop). Inputs that do not apply to the current state are ignored
// and reported as not applied, never as errors.
package session

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/smazurov/magnifier/internal/capture"
	"github.com/smazurov/magnifier/internal/display"
	"github.com/smazurov/magnifier/internal/events"
	"github.com/smazurov/magnifier/internal/frame"
	"github.com/smazurov/magnifier/internal/logging"
	"github.com/smazurov/magnifier/internal/metrics"
)

const defaultBindTimeout = 3 * time.Second

// Display is the part of the display the session drives.
type Display interface {
	RenderProcessed(buf *frame.PixelBuffer)
	SetVisible(s display.Surface)
	SetSlider(progress int)
	SetZoomLabel(label string)
	SetControlsEnabled(enabled bool)
	SetToggles(inverted, torch bool)
	ShowNotice(level, message string)
}

// FrameSource returns the last live frame, or nil before the first one.
type FrameSource interface {
	Load() *frame.PixelBuffer
}

// Deps are the collaborators of a Session.
type Deps struct {
	Source    capture.Binder
	Display   Display
	LastFrame FrameSource
	Analyzer  capture.Analyzer
	Preview   capture.PreviewSink
	Flags     *Flags
	Bus       *events.Bus
	// BindTimeout bounds the wait for the first frame of a bind.
	BindTimeout time.Duration
}

// Status is a flat copy of the session state for readers outside the UI
// context.
type Status struct {
	Phase               Phase   `json:"phase" example:"live" doc:"Session phase: idle, live, frozen, ended"`
	ZoomRatio           float64 `json:"zoom_ratio" example:"2.0" doc:"Current zoom ratio"`
	SliderProgress      int     `json:"slider_progress" example:"10" doc:"Slider position reflecting the zoom ratio"`
	TorchOn             bool    `json:"torch_on" doc:"Torch requested on"`
	Inverted            bool    `json:"inverted" doc:"Color inversion enabled"`
	Frozen              bool    `json:"frozen" doc:"Snapshot frozen on screen"`
	Degraded            bool    `json:"degraded" doc:"Capture source failed to bind"`
	ControlsEnabled     bool    `json:"controls_enabled" doc:"Zoom, torch and invert input accepted"`
	ResetZoomOnNextBind bool    `json:"reset_zoom_on_next_bind" doc:"Next bind is a cold start"`
	Handle              string  `json:"handle,omitempty" doc:"Capture handle ID while bound"`
	Reason              string  `json:"reason,omitempty" doc:"Why the session ended"`
}

// Session is the capture state machine.
type Session struct {
	deps   Deps
	logger *slog.Logger

	state     State
	coldStart bool
}

// New creates an idle session. Nothing is bound until permission is granted.
func New(deps Deps) *Session {
	if deps.Flags == nil {
		deps.Flags = &Flags{}
	}
	if deps.BindTimeout <= 0 {
		deps.BindTimeout = defaultBindTimeout
	}
	s := &Session{
		deps:      deps,
		logger:    logging.GetLogger("session"),
		state:     Idle{Controls: DefaultControls},
		coldStart: true,
	}
	s.render()
	return s
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Status returns the current state flattened.
func (s *Session) Status() Status {
	c := controlsOf(s.state)
	st := Status{
		Phase:               s.state.Phase(),
		ZoomRatio:           c.Zoom,
		SliderProgress:      SliderFromRatio(c.Zoom),
		TorchOn:             c.Torch,
		Inverted:            c.Inverted,
		ResetZoomOnNextBind: s.resetsZoom(c),
	}
	switch cur := s.state.(type) {
	case Live:
		st.ControlsEnabled = true
		st.Degraded = cur.Degraded()
		if cur.Handle != nil {
			st.Handle = cur.Handle.ID()
		}
	case Frozen:
		st.Frozen = true
	case Ended:
		if cur.Reason != nil {
			st.Reason = cur.Reason.Error()
		}
	}
	return st
}

// PermissionResult handles the camera permission outcome. A grant binds an
// idle session or retries a degraded one; a denial ends the session.
func (s *Session) PermissionResult(granted bool) bool {
	if _, ended := s.state.(Ended); ended {
		return false
	}
	if !granted {
		s.end(ErrPermissionDenied, true)
		return true
	}

	switch cur := s.state.(type) {
	case Idle:
		s.transition(s.bind(cur.Controls))
		return true
	case Live:
		if !cur.Degraded() {
			return false
		}
		s.transition(s.bind(cur.Controls))
		return true
	}
	return false
}

// SetSlider applies a slider position. Changes that are not user driven are
// echoes of SetSlider on the display and are ignored.
func (s *Session) SetSlider(position int, userDriven bool) bool {
	if !userDriven {
		return false
	}
	return s.setZoom(RatioFromSlider(position))
}

// Pinch multiplies the zoom ratio by factor.
func (s *Session) Pinch(factor float64) bool {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return false
	}
	live, ok := s.state.(Live)
	if !ok {
		return false
	}
	return s.setZoom(live.Controls.Zoom * factor)
}

func (s *Session) setZoom(ratio float64) bool {
	live, ok := s.state.(Live)
	if !ok {
		return false
	}
	ratio = ClampRatio(ratio)
	if ratio == live.Controls.Zoom {
		return false
	}

	live.Controls.Zoom = ratio
	if live.Handle != nil {
		if err := live.Handle.SetZoomRatio(ratio); err != nil {
			s.logger.Warn("Failed to push zoom ratio", "ratio", ratio, "error", err)
		}
	}
	s.transition(live)

	s.publish(events.ZoomChangedEvent{
		Ratio:     ratio,
		Progress:  SliderFromRatio(ratio),
		Label:     Label(ratio),
		Timestamp: now(),
	})
	return true
}

// ToggleFreeze freezes the last live frame or resumes live capture.
// Freezing before any frame was processed is a no-op.
func (s *Session) ToggleFreeze() bool {
	switch cur := s.state.(type) {
	case Live:
		snapshot := s.deps.LastFrame.Load()
		if snapshot == nil {
			s.logger.Debug("Freeze ignored, no frame processed yet")
			return false
		}
		if cur.Controls.Inverted {
			snapshot = frame.Invert(snapshot)
		}

		s.deps.Flags.frozen.Store(true)
		s.deps.Source.Unbind()
		s.transition(Frozen{Snapshot: snapshot, Prior: cur.Controls})
		s.logger.Info("Frozen", "width", snapshot.Width, "height", snapshot.Height)
		return true

	case Frozen:
		s.deps.Flags.frozen.Store(false)
		s.transition(s.bind(cur.Prior))
		s.logger.Info("Unfrozen")
		return true
	}
	return false
}

// SetInverted toggles color inversion. The capture source is rebound so
// frames reach the surface that is now visible.
func (s *Session) SetInverted(on bool) bool {
	live, ok := s.state.(Live)
	if !ok || live.Controls.Inverted == on {
		return false
	}
	live.Controls.Inverted = on
	s.deps.Flags.inverted.Store(on)
	s.transition(s.bind(live.Controls))
	return true
}

// SetTorch switches the torch. While bound it is actuated directly; while
// degraded the setting is stored and a rebind is attempted.
func (s *Session) SetTorch(on bool) bool {
	live, ok := s.state.(Live)
	if !ok || live.Controls.Torch == on {
		return false
	}

	if live.Degraded() {
		live.Controls.Torch = on
		s.transition(s.bind(live.Controls))
		return true
	}

	if err := live.Handle.SetTorch(on); err != nil {
		s.logger.Warn("Failed to switch torch", "on", on, "error", err)
		s.deps.Display.ShowNotice("warning", NoticeTorchFailed)
		return false
	}
	live.Controls.Torch = on
	s.transition(live)
	return true
}

// ShowProcessed renders an analyzer frame if it still belongs on screen.
// Frames posted before a freeze or an invert toggle are discarded.
func (s *Session) ShowProcessed(buf *frame.PixelBuffer) bool {
	live, ok := s.state.(Live)
	if !ok || !live.Controls.Inverted || live.Degraded() {
		return false
	}
	s.deps.Display.RenderProcessed(buf)
	return true
}

// Close releases the capture source and ends the session.
func (s *Session) Close() {
	if _, ended := s.state.(Ended); ended {
		return
	}
	s.end(ErrSessionEnded, false)
}

func (s *Session) end(reason error, notify bool) {
	s.deps.Source.Unbind()
	s.deps.Flags.frozen.Store(false)
	s.transition(Ended{Reason: reason, Last: controlsOf(s.state)})

	if errors.Is(reason, ErrPermissionDenied) {
		s.deps.Display.ShowNotice("error", NoticePermissionDenied)
	}
	s.logger.Info("Session ended", "reason", reason)

	if notify {
		s.publish(events.SessionEndedEvent{Reason: reason.Error(), Timestamp: now()})
	}
}

// bind binds the capture source for c and returns the resulting Live state.
// A cold start resets the zoom ratio unless one was set while the source was
// down; every other bind pushes c.Zoom to the new handle. On failure the
// returned state is degraded.
func (s *Session) bind(c Controls) Live {
	mode := Reconfigure
	if s.coldStart {
		mode = ColdStart
	}
	reset := s.resetsZoom(c)

	ctx, cancel := context.WithTimeout(context.Background(), s.deps.BindTimeout)
	defer cancel()

	h, err := s.deps.Source.Bind(ctx, s.useCases(c.Inverted), reset)
	if err != nil {
		metrics.IncrementBind(mode.String(), "error")
		s.logger.Error("Capture bind failed", "mode", mode, "error", err)
		s.deps.Display.ShowNotice("error", NoticeBindFailed)
		return Live{Controls: c}
	}
	metrics.IncrementBind(mode.String(), "ok")
	s.coldStart = false

	if reset {
		c.Zoom = capture.MinZoomRatio
	} else if err := h.SetZoomRatio(c.Zoom); err != nil {
		s.logger.Warn("Failed to restore zoom ratio", "ratio", c.Zoom, "error", err)
	}
	if c.Torch {
		if err := h.SetTorch(true); err != nil {
			s.logger.Warn("Failed to restore torch", "error", err)
		}
	}

	s.logger.Info("Capture session bound", "mode", mode, "handle", h.ID(), "inverted", c.Inverted)
	return Live{Controls: c, Handle: h}
}

// resetsZoom reports whether the next bind starts from 1.0x. Zoom entered
// while a cold start is still pending is kept.
func (s *Session) resetsZoom(c Controls) bool {
	return s.coldStart && c.Zoom == capture.MinZoomRatio
}

// useCases wires the analyzer always, so the last live frame stays current,
// and the preview only while it is the visible surface.
func (s *Session) useCases(inverted bool) capture.UseCases {
	uc := capture.UseCases{Analyzer: s.deps.Analyzer}
	if !inverted {
		uc.Preview = s.deps.Preview
	}
	return uc
}

func (s *Session) transition(next State) {
	prev := s.state.Phase()
	s.state = next
	if prev != next.Phase() {
		s.logger.Debug("Session transition", "from", prev, "to", next.Phase())
	}
	s.render()

	st := s.Status()
	metrics.SetSessionState(st.ZoomRatio, st.TorchOn, st.Frozen, st.Inverted)
	s.publish(events.SessionStateChangedEvent{
		Phase:           string(st.Phase),
		ZoomRatio:       st.ZoomRatio,
		SliderProgress:  st.SliderProgress,
		TorchOn:         st.TorchOn,
		Inverted:        st.Inverted,
		Frozen:          st.Frozen,
		Degraded:        st.Degraded,
		ControlsEnabled: st.ControlsEnabled,
		Timestamp:       now(),
	})
}

// render makes the display reflect the current state.
func (s *Session) render() {
	d := s.deps.Display
	c := controlsOf(s.state)

	switch cur := s.state.(type) {
	case Idle:
		d.SetControlsEnabled(false)
		d.SetVisible(display.Preview)
	case Live:
		d.SetControlsEnabled(true)
		if c.Inverted {
			d.SetVisible(display.Processed)
		} else {
			d.SetVisible(display.Preview)
		}
	case Frozen:
		d.RenderProcessed(cur.Snapshot)
		d.SetVisible(display.Processed)
		d.SetControlsEnabled(false)
	case Ended:
		d.SetControlsEnabled(false)
	}

	d.SetToggles(c.Inverted, c.Torch)
	d.SetZoomLabel(Label(c.Zoom))
	d.SetSlider(SliderFromRatio(c.Zoom))
}

func (s *Session) publish(ev events.Event) {
	if s.deps.Bus != nil {
		s.deps.Bus.Publish(ev)
	}
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
