package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/magnifier/internal/api/models"
	"github.com/smazurov/magnifier/internal/display"
)

// registerDisplayRoutes serves the visible surface as JPEG.
func (s *Server) registerDisplayRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-display-frame",
		Method:      http.MethodGet,
		Path:        "/api/display/frame",
		Summary:     "Display Frame",
		Description: "JPEG of the currently visible surface: the live preview, the inverted feed or the frozen snapshot",
		Tags:        []string{"display"},
		Errors:      []int{401, 404, 500},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.FrameResponse, error) {
		buf := s.options.Display.Visible()
		if buf == nil {
			return nil, huma.Error404NotFound("Nothing rendered yet")
		}

		data, err := display.EncodeJPEG(buf, s.options.JPEGQuality)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to encode frame", err)
		}

		return &models.FrameResponse{
			ContentType:  "image/jpeg",
			CacheControl: "no-store",
			Body:         data,
		}, nil
	})
}
