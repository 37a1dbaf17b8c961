package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ffmpegFPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "magnifier",
		Subsystem: "ffmpeg",
		Name:      "fps",
		Help:      "Frame rate reported by the ffmpeg capture process",
	}, []string{"source"})

	ffmpegDroppedFrames = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "magnifier",
		Subsystem: "ffmpeg",
		Name:      "dropped_frames",
		Help:      "Frames dropped by ffmpeg since the process started",
	}, []string{"source"})

	ffmpegDuplicateFrames = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "magnifier",
		Subsystem: "ffmpeg",
		Name:      "duplicate_frames",
		Help:      "Frames duplicated by ffmpeg since the process started",
	}, []string{"source"})

	ffmpegSpeed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "magnifier",
		Subsystem: "ffmpeg",
		Name:      "processing_speed",
		Help:      "ffmpeg processing speed relative to real time",
	}, []string{"source"})
)

// SetFFmpegProgress records one ffmpeg progress report for a capture source.
func SetFFmpegProgress(source string, fps, dropped, duplicated, speed float64) {
	ffmpegFPS.WithLabelValues(source).Set(fps)
	ffmpegDroppedFrames.WithLabelValues(source).Set(dropped)
	ffmpegDuplicateFrames.WithLabelValues(source).Set(duplicated)
	ffmpegSpeed.WithLabelValues(source).Set(speed)
}

// DeleteFFmpegMetrics removes the series of a source whose process exited.
func DeleteFFmpegMetrics(source string) {
	ffmpegFPS.DeleteLabelValues(source)
	ffmpegDroppedFrames.DeleteLabelValues(source)
	ffmpegDuplicateFrames.DeleteLabelValues(source)
	ffmpegSpeed.DeleteLabelValues(source)
}
