// Package analyzer runs the per-frame pipeline on the capture worker:
// decode, orient, publish the last live frame and, when inversion is on,
// hand an inverted copy to the UI context.
package analyzer

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/smazurov/magnifier/internal/events"
	"github.com/smazurov/magnifier/internal/frame"
	"github.com/smazurov/magnifier/internal/logging"
	"github.com/smazurov/magnifier/internal/metrics"
)

// Pipeline stages, used as the drop reason.
const (
	StageDecode = "decode"
	StageOrient = "orient"
	StageInvert = "invert"
	StagePanic  = "panic"
)

// Flags exposes the two session flags the worker reads. Reads may be
// momentarily stale.
type Flags interface {
	Inverted() bool
	Frozen() bool
}

// Poster hands a processed frame to the UI context. It must not block and
// reports whether the frame was accepted.
type Poster func(buf *frame.PixelBuffer) bool

// Stats is a point-in-time copy of the pipeline counters.
type Stats struct {
	Published uint64
	Dropped   uint64
	Skipped   uint64
	Posted    uint64
	// MeanAnalysis is the mean time spent on published frames.
	MeanAnalysis time.Duration
}

// Pipeline is invoked by the capture source once per delivered frame.
// It is not safe for concurrent Analyze calls; the capture source runs a
// single worker.
type Pipeline struct {
	flags  Flags
	last   *LastFrame
	post   Poster
	bus    *events.Bus
	logger *slog.Logger

	published atomic.Uint64
	dropped   atomic.Uint64
	skipped   atomic.Uint64
	posted    atomic.Uint64
	busyNanos atomic.Int64
}

// New creates a pipeline. post and bus may be nil.
func New(flags Flags, last *LastFrame, post Poster, bus *events.Bus) *Pipeline {
	return &Pipeline{
		flags:  flags,
		last:   last,
		post:   post,
		bus:    bus,
		logger: logging.GetLogger("analyzer"),
	}
}

// Analyze processes one raw frame. It always releases raw exactly once and
// never panics; any failure becomes a single dropped frame.
func (p *Pipeline) Analyze(raw *frame.RawFrame) {
	if raw == nil {
		return
	}
	defer raw.Release()

	seq := raw.Seq
	stage := StageDecode
	defer func() {
		if r := recover(); r != nil {
			p.drop(seq, StagePanic, fmt.Errorf("panic during %s: %v", stage, r))
		}
	}()

	if p.flags.Frozen() {
		p.skipped.Add(1)
		metrics.ObserveFrame(metrics.ResultSkipped, 0)
		return
	}

	start := time.Now()

	decoded, err := frame.Decode(raw)
	// The decoded copy owns its pixels; give the source buffer back early
	raw.Release()
	if err != nil {
		p.drop(seq, StageDecode, err)
		return
	}

	stage = StageOrient
	oriented, err := frame.Rotate(decoded, raw.Rotation)
	if err != nil {
		p.drop(seq, StageOrient, err)
		return
	}

	p.last.Store(oriented)

	if p.flags.Inverted() {
		stage = StageInvert
		inverted := frame.Invert(oriented)
		if p.post != nil {
			if p.post(inverted) {
				p.posted.Add(1)
			} else {
				metrics.IncrementDisplayPostDropped()
			}
		}
	}

	elapsed := time.Since(start)
	p.published.Add(1)
	p.busyNanos.Add(int64(elapsed))
	metrics.ObserveFrame(metrics.ResultPublished, elapsed.Seconds())
	p.logger.Debug("Frame published", "seq", seq, "width", oriented.Width, "height", oriented.Height, "elapsed", elapsed)
}

func (p *Pipeline) drop(seq uint64, stage string, err error) {
	p.dropped.Add(1)
	metrics.ObserveFrame(metrics.ResultDropped, 0)
	metrics.IncrementDrop(stage)
	p.logger.Warn("Frame dropped", "seq", seq, "stage", stage, "error", err)

	if p.bus != nil {
		p.bus.Publish(events.FrameDroppedEvent{
			Seq:       seq,
			Stage:     stage,
			Error:     err.Error(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
}

// Stats returns the pipeline counters.
func (p *Pipeline) Stats() Stats {
	s := Stats{
		Published: p.published.Load(),
		Dropped:   p.dropped.Load(),
		Skipped:   p.skipped.Load(),
		Posted:    p.posted.Load(),
	}
	if s.Published > 0 {
		s.MeanAnalysis = time.Duration(p.busyNanos.Load() / int64(s.Published))
	}
	return s
}
