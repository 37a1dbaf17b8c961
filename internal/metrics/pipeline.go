// Package metrics provides Prometheus metrics for the capture, analysis and session components.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analyzer frame results.
const (
	ResultPublished = "published"
	ResultDropped   = "dropped"
	ResultSkipped   = "skipped"
)

var (
	analyzerFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "magnifier",
		Subsystem: "analyzer",
		Name:      "frames_total",
		Help:      "Frames handled by the analyzer, by result",
	}, []string{"result"})

	analyzerDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "magnifier",
		Subsystem: "analyzer",
		Name:      "drops_total",
		Help:      "Frames dropped by the analyzer, by failing stage",
	}, []string{"stage"})

	analyzerFrameSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "magnifier",
		Subsystem: "analyzer",
		Name:      "frame_seconds",
		Help:      "Time spent decoding, orienting and publishing one frame",
		Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.25},
	})

	displayPostsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "magnifier",
		Subsystem: "display",
		Name:      "posts_dropped_total",
		Help:      "Frames not handed to the UI context because its queue was full",
	})
)

// ObserveFrame records the outcome of one analyzer invocation.
func ObserveFrame(result string, seconds float64) {
	analyzerFrames.WithLabelValues(result).Inc()
	if result == ResultPublished {
		analyzerFrameSeconds.Observe(seconds)
	}
}

// IncrementDrop records a frame dropped at the given pipeline stage.
func IncrementDrop(stage string) {
	analyzerDrops.WithLabelValues(stage).Inc()
}

// IncrementDisplayPostDropped records a processed frame the UI context could not accept.
func IncrementDisplayPostDropped() {
	displayPostsDropped.Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
// It serves every promauto-registered metric.
func Handler() http.Handler {
	return promhttp.Handler()
}
