package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionZoomRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "magnifier",
		Subsystem: "session",
		Name:      "zoom_ratio",
		Help:      "Current zoom ratio",
	})

	sessionTorchOn = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "magnifier",
		Subsystem: "session",
		Name:      "torch_on",
		Help:      "1 when the torch is requested on",
	})

	sessionFrozen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "magnifier",
		Subsystem: "session",
		Name:      "frozen",
		Help:      "1 while a snapshot is frozen on screen",
	})

	sessionInverted = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "magnifier",
		Subsystem: "session",
		Name:      "inverted",
		Help:      "1 while color inversion is enabled",
	})
)

// SetSessionState mirrors the session controls into gauges.
func SetSessionState(zoom float64, torch, frozen, inverted bool) {
	sessionZoomRatio.Set(zoom)
	sessionTorchOn.Set(boolToFloat(torch))
	sessionFrozen.Set(boolToFloat(frozen))
	sessionInverted.Set(boolToFloat(inverted))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
