package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/magnifier/internal/api/models"
	"github.com/smazurov/magnifier/internal/session"
	"github.com/smazurov/magnifier/internal/ui"
)

// registerControlRoutes maps the magnifier input events and the state read.
func (s *Server) registerControlRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-state",
		Method:      http.MethodGet,
		Path:        "/api/state",
		Summary:     "Get State",
		Description: "Current session phase, controls and display state",
		Tags:        []string{"session"},
		Errors:      []int{401, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.StateResponse, error) {
		var status session.Status
		if err := s.do(ctx, func() { status = s.options.Session.Status() }); err != nil {
			return nil, err
		}
		return &models.StateResponse{Body: s.state(status)}, nil
	})

	registerControl(s, "set-slider", "/api/controls/slider", "Set Slider",
		"Slider position changed. Programmatic changes (user_driven=false) are ignored.",
		func(sess Session, in *models.SliderRequest) bool {
			return sess.SetSlider(in.Body.Position, in.Body.UserDriven)
		})

	registerControl(s, "pinch", "/api/controls/pinch", "Pinch",
		"Multiply the zoom ratio by a pinch scale factor. The result is clamped to 1.0-10.0.",
		func(sess Session, in *models.PinchRequest) bool {
			return sess.Pinch(in.Body.Scale)
		})

	registerControl(s, "toggle-freeze", "/api/controls/freeze", "Toggle Freeze",
		"Double tap: freeze the last live frame, or resume live capture when frozen.",
		func(sess Session, _ *struct{}) bool {
			return sess.ToggleFreeze()
		})

	registerControl(s, "set-invert", "/api/controls/invert", "Set Invert",
		"Toggle color inversion. Rebinds the capture source to the processed surface.",
		func(sess Session, in *models.ToggleRequest) bool {
			return sess.SetInverted(in.Body.Enabled)
		})

	registerControl(s, "set-torch", "/api/controls/torch", "Set Torch",
		"Switch the torch. Ignored while frozen.",
		func(sess Session, in *models.ToggleRequest) bool {
			return sess.SetTorch(in.Body.Enabled)
		})

	registerControl(s, "permission-result", "/api/permission", "Permission Result",
		"Report the camera permission result. A denial ends the session.",
		func(sess Session, in *models.PermissionRequest) bool {
			return sess.PermissionResult(in.Body.Granted)
		})
}

// registerControl registers a POST operation that runs apply on the UI
// context and returns whether it was applied plus the resulting state.
func registerControl[I any](s *Server, id, path, summary, description string, apply func(Session, *I) bool) {
	huma.Register(s.api, huma.Operation{
		OperationID: id,
		Method:      http.MethodPost,
		Path:        path,
		Summary:     summary,
		Description: description,
		Tags:        []string{"controls"},
		Errors:      []int{400, 401, 422, 503},
		Security:    withAuth(),
	}, func(ctx context.Context, input *I) (*models.ControlResponse, error) {
		var applied bool
		var status session.Status
		err := s.do(ctx, func() {
			applied = apply(s.options.Session, input)
			status = s.options.Session.Status()
		})
		if err != nil {
			return nil, err
		}
		return &models.ControlResponse{
			Body: models.ControlData{Applied: applied, State: s.state(status)},
		}, nil
	})
}

// do runs fn on the UI context.
func (s *Server) do(ctx context.Context, fn func()) error {
	err := s.options.Executor.Do(ctx, fn)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ui.ErrLoopStopped):
		return huma.Error503ServiceUnavailable("Session is shutting down")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return huma.Error503ServiceUnavailable("UI context busy", err)
	default:
		return huma.Error500InternalServerError("Failed to run on UI context", err)
	}
}

func (s *Server) state(status session.Status) models.StateData {
	return models.StateData{Session: status, Display: s.options.Display.View()}
}
