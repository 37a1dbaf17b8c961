package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	captureFramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "magnifier",
		Subsystem: "capture",
		Name:      "frames_dropped_total",
		Help:      "Pending frames replaced by a newer frame before the analyzer took them",
	})

	capturePoolStarved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "magnifier",
		Subsystem: "capture",
		Name:      "pool_starved_total",
		Help:      "Produced frames skipped because no pooled buffer was free",
	})

	captureBinds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "magnifier",
		Subsystem: "capture",
		Name:      "binds_total",
		Help:      "Capture session binds by mode and result",
	}, []string{"mode", "result"})
)

// IncrementSourceDrop records a latest-frame-wins overwrite.
func IncrementSourceDrop() {
	captureFramesDropped.Inc()
}

// IncrementPoolStarved records a frame skipped for lack of a free buffer.
func IncrementPoolStarved() {
	capturePoolStarved.Inc()
}

// IncrementBind records a bind attempt. result is "ok" or "error".
func IncrementBind(mode, result string) {
	captureBinds.WithLabelValues(mode, result).Inc()
}
