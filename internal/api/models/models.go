package models

import (
	"github.com/smazurov/magnifier/internal/display"
	"github.com/smazurov/magnifier/internal/session"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.21.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// StateData is the session state together with what the display shows.
type StateData struct {
	Session session.Status `json:"session" doc:"Capture session state"`
	Display display.View   `json:"display" doc:"Display surfaces and control widgets"`
}

type StateResponse struct {
	Body StateData
}

// ControlData reports whether an input was applied. Inputs that do not fit
// the current state are ignored, not rejected.
type ControlData struct {
	Applied bool      `json:"applied" doc:"Whether the input changed the session"`
	State   StateData `json:"state" doc:"State after the input was handled"`
}

type ControlResponse struct {
	Body ControlData
}

// Control input models
type SliderRequest struct {
	Body struct {
		Position   int  `json:"position" minimum:"0" maximum:"90" example:"10" doc:"Slider position (ratio = 1 + position/10)"`
		UserDriven bool `json:"user_driven" example:"true" doc:"False for programmatic slider updates, which are ignored"`
	}
}

type PinchRequest struct {
	Body struct {
		Scale float64 `json:"scale" exclusiveMinimum:"0" example:"2.0" doc:"Multiplicative pinch scale factor"`
	}
}

type ToggleRequest struct {
	Body struct {
		Enabled bool `json:"enabled" example:"true" doc:"New toggle position"`
	}
}

type PermissionRequest struct {
	Body struct {
		Granted bool `json:"granted" example:"true" doc:"Camera permission result"`
	}
}

// FrameResponse is a JPEG of the visible surface.
type FrameResponse struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}
