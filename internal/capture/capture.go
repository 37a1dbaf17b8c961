// Package capture binds a frame producer to the preview and analysis use
// cases. Frames for analysis go through a single-slot mailbox: when the
// analyzer is busy the pending frame is replaced by the newest one.
package capture

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/smazurov/magnifier/internal/frame"
)

// Bind modes, used in errors and metrics.
const (
	ModeColdStart   = "cold_start"
	ModeReconfigure = "reconfigure"
)

// Zoom ratio bounds accepted by Handle.SetZoomRatio.
const (
	MinZoomRatio = 1.0
	MaxZoomRatio = 10.0
)

var (
	// ErrNoUseCases is returned when Bind is called with neither preview nor analyzer.
	ErrNoUseCases = errors.New("at least one use case is required")
	// ErrNotBound is returned by a handle whose binding was released.
	ErrNotBound = errors.New("capture session is not bound")
	// ErrNoTorch is returned by SetTorch when no torch LED is configured.
	ErrNoTorch = errors.New("no torch configured")
)

// BindError reports a failed bind attempt.
type BindError struct {
	Mode string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind capture (%s): %v", e.Mode, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// PreviewSink receives upright frames for direct display. It is called on
// the producer goroutine and must not block.
type PreviewSink interface {
	RenderPreview(buf *frame.PixelBuffer)
}

// Analyzer receives raw frames on the capture worker and must release them.
type Analyzer interface {
	Analyze(raw *frame.RawFrame)
}

// UseCases selects what a binding feeds. Nil fields are not bound.
type UseCases struct {
	Preview  PreviewSink
	Analyzer Analyzer
}

// Handle controls an active binding.
type Handle interface {
	ID() string
	SetZoomRatio(ratio float64) error
	SetTorch(on bool) error
}

// Producer generates upright, packed RGBA frames of a fixed size. Run emits
// frames until ctx is done; the slice passed to emit is only valid for the
// duration of the call.
type Producer interface {
	Name() string
	Size() (width, height int)
	Run(ctx context.Context, emit func(pix []byte)) error
}

// Binder is the capture surface used by the session.
type Binder interface {
	Bind(ctx context.Context, uc UseCases, resetZoom bool) (Handle, error)
	Unbind()
}

func bindMode(resetZoom bool) string {
	if resetZoom {
		return ModeColdStart
	}
	return ModeReconfigure
}

func clampZoom(ratio float64) float64 {
	if ratio < MinZoomRatio || math.IsNaN(ratio) {
		return MinZoomRatio
	}
	if ratio > MaxZoomRatio {
		return MaxZoomRatio
	}
	return ratio
}
