// Package display models the two magnifier surfaces and the control widgets
// shown around them. Only one surface is visible at a time.
package display

import (
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/magnifier/internal/events"
	"github.com/smazurov/magnifier/internal/frame"
	"github.com/smazurov/magnifier/internal/logging"
)

// Surface names a display surface.
type Surface string

const (
	// Preview is fed directly by the capture source.
	Preview Surface = "preview"
	// Processed shows analyzer output or the frozen snapshot.
	Processed Surface = "processed"
)

// SliderListener receives slider changes. userDriven is false when the
// change was made programmatically to reflect the zoom ratio.
type SliderListener func(progress int, userDriven bool)

// View is a consistent copy of everything the display shows.
type View struct {
	Visible         Surface `json:"visible" example:"preview" doc:"Visible surface"`
	SliderProgress  int     `json:"slider_progress" example:"10" doc:"Zoom slider position (0-90)"`
	ZoomLabel       string  `json:"zoom_label" example:"2.0x" doc:"Zoom label text"`
	ControlsEnabled bool    `json:"controls_enabled" doc:"Whether zoom, torch and invert widgets accept input"`
	InvertChecked   bool    `json:"invert_checked" doc:"Invert toggle position"`
	TorchChecked    bool    `json:"torch_checked" doc:"Torch toggle position"`
	Notice          string  `json:"notice,omitempty" example:"Camera initialization failed" doc:"Last user-visible notice"`
	PreviewFrames   uint64  `json:"preview_frames" doc:"Frames rendered on the preview surface"`
	ProcessedFrames uint64  `json:"processed_frames" doc:"Frames rendered on the processed surface"`
}

// Hub holds the display state. Widget setters are called from the UI
// context; RenderPreview may be called from the capture source; readers
// use View and Visible from any goroutine.
type Hub struct {
	bus    *events.Bus
	logger *slog.Logger

	mu        sync.RWMutex
	view      View
	images    map[Surface]*frame.PixelBuffer
	listeners []SliderListener
}

// NewHub creates a hub showing the preview surface with a 1.0x zoom label.
// bus may be nil.
func NewHub(bus *events.Bus) *Hub {
	return &Hub{
		bus:    bus,
		logger: logging.GetLogger("display"),
		view: View{
			Visible:   Preview,
			ZoomLabel: "1.0x",
		},
		images: make(map[Surface]*frame.PixelBuffer, 2),
	}
}

// OnSliderChanged registers a slider listener.
func (h *Hub) OnSliderChanged(l SliderListener) {
	h.mu.Lock()
	h.listeners = append(h.listeners, l)
	h.mu.Unlock()
}

// RenderPreview draws buf on the preview surface.
func (h *Hub) RenderPreview(buf *frame.PixelBuffer) {
	h.render(Preview, buf)
}

// RenderProcessed draws buf on the processed surface.
func (h *Hub) RenderProcessed(buf *frame.PixelBuffer) {
	h.render(Processed, buf)
}

func (h *Hub) render(s Surface, buf *frame.PixelBuffer) {
	h.mu.Lock()
	h.images[s] = buf
	if s == Preview {
		h.view.PreviewFrames++
	} else {
		h.view.ProcessedFrames++
	}
	h.mu.Unlock()
}

// SetVisible shows s and hides the other surface.
func (h *Hub) SetVisible(s Surface) {
	h.mu.Lock()
	changed := h.view.Visible != s
	h.view.Visible = s
	h.mu.Unlock()

	if !changed {
		return
	}
	h.logger.Debug("Visible surface changed", "visible", s)
	h.publish(events.DisplayChangedEvent{Visible: string(s), Timestamp: now()})
}

// SetSlider moves the slider programmatically. Listeners see the change as
// not user driven.
func (h *Hub) SetSlider(progress int) {
	h.mu.Lock()
	changed := h.view.SliderProgress != progress
	h.view.SliderProgress = progress
	listeners := append([]SliderListener(nil), h.listeners...)
	h.mu.Unlock()

	if !changed {
		return
	}
	for _, l := range listeners {
		l(progress, false)
	}
}

// SetZoomLabel updates the zoom label text.
func (h *Hub) SetZoomLabel(label string) {
	h.mu.Lock()
	h.view.ZoomLabel = label
	h.mu.Unlock()
}

// SetControlsEnabled enables or disables the zoom, torch and invert widgets.
func (h *Hub) SetControlsEnabled(enabled bool) {
	h.mu.Lock()
	h.view.ControlsEnabled = enabled
	h.mu.Unlock()
}

// SetToggles sets the invert and torch toggle positions.
func (h *Hub) SetToggles(inverted, torch bool) {
	h.mu.Lock()
	h.view.InvertChecked = inverted
	h.view.TorchChecked = torch
	h.mu.Unlock()
}

// ShowNotice displays a user-visible message and publishes it.
func (h *Hub) ShowNotice(level, message string) {
	h.mu.Lock()
	h.view.Notice = message
	h.mu.Unlock()

	h.publish(events.NoticeEvent{Level: level, Message: message, Timestamp: now()})
}

// View returns a copy of the display state.
func (h *Hub) View() View {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.view
}

// Visible returns the image on the visible surface, or nil if nothing has
// been rendered there yet. The buffer must not be modified.
func (h *Hub) Visible() *frame.PixelBuffer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.images[h.view.Visible]
}

// Image returns the last image rendered on s.
func (h *Hub) Image(s Surface) *frame.PixelBuffer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.images[s]
}

func (h *Hub) publish(ev events.Event) {
	if h.bus != nil {
		h.bus.Publish(ev)
	}
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
