package capture

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/smazurov/magnifier/internal/frame"
)

// digitalZoom crops the center 1/ratio of src and scales it back to the
// full size. The result is always a new buffer.
func digitalZoom(src *frame.PixelBuffer, ratio float64) *frame.PixelBuffer {
	if ratio <= MinZoomRatio {
		return src.Clone()
	}

	cw := max(1, int(math.Round(float64(src.Width)/ratio)))
	ch := max(1, int(math.Round(float64(src.Height)/ratio)))
	x0 := (src.Width - cw) / 2
	y0 := (src.Height - ch) / 2
	crop := image.Rect(x0, y0, x0+cw, y0+ch)

	dst := frame.NewPixelBuffer(src.Width, src.Height)
	dstImg := dst.Image()
	draw.ApproxBiLinear.Scale(dstImg, dstImg.Bounds(), src.Image(), crop, draw.Src, nil)
	return dst
}
