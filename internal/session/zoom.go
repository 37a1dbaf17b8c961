package session

import (
	"fmt"
	"math"

	"github.com/smazurov/magnifier/internal/capture"
)

// Slider range.
const (
	SliderMin = 0
	SliderMax = 90
)

// RatioFromSlider maps a slider position to a zoom ratio.
func RatioFromSlider(position int) float64 {
	position = max(SliderMin, min(SliderMax, position))
	return 1.0 + float64(position)/10.0
}

// SliderFromRatio maps a zoom ratio back to the nearest slider position.
func SliderFromRatio(ratio float64) int {
	p := int(math.Round((ratio - 1.0) * 10))
	return max(SliderMin, min(SliderMax, p))
}

// ClampRatio limits ratio to the supported zoom range.
func ClampRatio(ratio float64) float64 {
	return math.Max(capture.MinZoomRatio, math.Min(capture.MaxZoomRatio, ratio))
}

// Label formats a ratio for the zoom label.
func Label(ratio float64) string {
	return fmt.Sprintf("%.1fx", ratio)
}
