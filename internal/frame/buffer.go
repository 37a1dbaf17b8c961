package frame

import (
	"bytes"
	"image"
)

// BytesPerPixel is the packed RGBA pixel size of a PixelBuffer.
const BytesPerPixel = 4

// PixelBuffer is an owned, packed RGBA bitmap. Once handed to another component
// a PixelBuffer is treated as immutable; transforms always return a new buffer.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []byte // len = Width*Height*4, rows are tightly packed
}

// NewPixelBuffer allocates a zeroed buffer of the given size.
func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*BytesPerPixel),
	}
}

// Stride returns the number of bytes per row.
func (b *PixelBuffer) Stride() int {
	return b.Width * BytesPerPixel
}

// Offset returns the index of the first byte of pixel (x, y).
func (b *PixelBuffer) Offset(x, y int) int {
	return y*b.Stride() + x*BytesPerPixel
}

// Clone returns a deep copy.
func (b *PixelBuffer) Clone() *PixelBuffer {
	out := &PixelBuffer{Width: b.Width, Height: b.Height, Pix: make([]byte, len(b.Pix))}
	copy(out.Pix, b.Pix)
	return out
}

// Equal reports whether both buffers have the same dimensions and pixels.
func (b *PixelBuffer) Equal(other *PixelBuffer) bool {
	if b == nil || other == nil {
		return b == other
	}
	return b.Width == other.Width && b.Height == other.Height && bytes.Equal(b.Pix, other.Pix)
}

// Image returns a read-only image.RGBA view sharing the buffer's pixels.
func (b *PixelBuffer) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    b.Pix,
		Stride: b.Stride(),
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}
