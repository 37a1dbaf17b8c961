package events

// Event type constants for kelindar/event.
const (
	TypeSessionStateChanged uint32 = iota + 1
	TypeZoomChanged
	TypeNotice
	TypeFrameDropped
	TypeDisplayChanged
	TypeSessionEnded
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SessionStateChangedEvent is published after every capture session transition.
// Used by the status LED and the state SSE stream.
type SessionStateChangedEvent struct {
	Phase           string  `json:"phase" example:"live" doc:"Session phase: idle, live, frozen, ended"`
	ZoomRatio       float64 `json:"zoom_ratio" example:"2.0" doc:"Current zoom ratio"`
	SliderProgress  int     `json:"slider_progress" example:"10" doc:"Slider position reflecting the zoom ratio"`
	TorchOn         bool    `json:"torch_on" doc:"Whether the torch is requested on"`
	Inverted        bool    `json:"inverted" doc:"Whether color inversion is enabled"`
	Frozen          bool    `json:"frozen" doc:"Whether a snapshot is frozen on screen"`
	Degraded        bool    `json:"degraded" doc:"Whether the capture source failed to bind"`
	ControlsEnabled bool    `json:"controls_enabled" doc:"Whether zoom, torch and invert input is accepted"`
	Timestamp       string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionStateChangedEvent.
func (e SessionStateChangedEvent) Type() uint32 { return TypeSessionStateChanged }

// GetPhase implements the SessionPhaseEvent interface for LED manager.
func (e SessionStateChangedEvent) GetPhase() string { return e.Phase }

// IsDegraded implements the SessionPhaseEvent interface for LED manager.
func (e SessionStateChangedEvent) IsDegraded() bool { return e.Degraded }

// ZoomChangedEvent is published when an accepted zoom input changes the ratio.
type ZoomChangedEvent struct {
	Ratio     float64 `json:"ratio" example:"2.0" doc:"New zoom ratio"`
	Progress  int     `json:"progress" example:"10" doc:"Reflected slider position"`
	Label     string  `json:"label" example:"2.0x" doc:"Zoom label text"`
	Timestamp string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ZoomChangedEvent.
func (e ZoomChangedEvent) Type() uint32 { return TypeZoomChanged }

// NoticeEvent is a user-visible message, e.g. a capture bind failure.
type NoticeEvent struct {
	Level     string `json:"level" example:"error" doc:"Notice severity"`
	Message   string `json:"message" example:"Camera initialization failed" doc:"Notice text"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for NoticeEvent.
func (e NoticeEvent) Type() uint32 { return TypeNotice }

// FrameDroppedEvent is published when the analyzer drops a frame.
type FrameDroppedEvent struct {
	Seq       uint64 `json:"seq" example:"1042" doc:"Capture sequence number of the dropped frame"`
	Stage     string `json:"stage" example:"decode" doc:"Pipeline stage that failed"`
	Error     string `json:"error" doc:"Failure description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for FrameDroppedEvent.
func (e FrameDroppedEvent) Type() uint32 { return TypeFrameDropped }

// DisplayChangedEvent is published when the visible display surface changes.
type DisplayChangedEvent struct {
	Visible   string `json:"visible" example:"processed" doc:"Visible surface: preview or processed"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DisplayChangedEvent.
func (e DisplayChangedEvent) Type() uint32 { return TypeDisplayChanged }

// SessionEndedEvent is published once when the session terminates.
type SessionEndedEvent struct {
	Reason    string `json:"reason" example:"camera permission denied" doc:"Why the session ended"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionEndedEvent.
func (e SessionEndedEvent) Type() uint32 { return TypeSessionEnded }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"api" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
	Line       string         `json:"line" doc:"Preformatted display line"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
