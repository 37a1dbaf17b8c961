package frame

import (
	"errors"
	"fmt"
)

// ErrInvalidRotation is returned for rotations that are not a multiple of 90 in [0, 270].
var ErrInvalidRotation = errors.New("rotation must be 0, 90, 180 or 270")

// Rotate turns a buffer clockwise by degrees. Width and height are swapped for
// 90 and 270. A rotation of 0 returns the input buffer itself.
func Rotate(src *PixelBuffer, degrees int) (*PixelBuffer, error) {
	switch degrees {
	case 0:
		return src, nil
	case 90, 270:
		dst := NewPixelBuffer(src.Height, src.Width)
		for dy := 0; dy < dst.Height; dy++ {
			for dx := 0; dx < dst.Width; dx++ {
				var sx, sy int
				if degrees == 90 {
					sx, sy = dy, src.Height-1-dx
				} else {
					sx, sy = src.Width-1-dy, dx
				}
				copyPixel(dst, dx, dy, src, sx, sy)
			}
		}
		return dst, nil
	case 180:
		dst := NewPixelBuffer(src.Width, src.Height)
		for dy := 0; dy < dst.Height; dy++ {
			for dx := 0; dx < dst.Width; dx++ {
				copyPixel(dst, dx, dy, src, src.Width-1-dx, src.Height-1-dy)
			}
		}
		return dst, nil
	default:
		return nil, fmt.Errorf("rotate by %d: %w", degrees, ErrInvalidRotation)
	}
}

// NormalizeRotation maps any multiple of 90 (including negatives) into [0, 270].
func NormalizeRotation(degrees int) (int, error) {
	if degrees%90 != 0 {
		return 0, fmt.Errorf("rotate by %d: %w", degrees, ErrInvalidRotation)
	}
	return ((degrees % 360) + 360) % 360, nil
}

func copyPixel(dst *PixelBuffer, dx, dy int, src *PixelBuffer, sx, sy int) {
	d := dst.Offset(dx, dy)
	s := src.Offset(sx, sy)
	copy(dst.Pix[d:d+BytesPerPixel], src.Pix[s:s+BytesPerPixel])
}
