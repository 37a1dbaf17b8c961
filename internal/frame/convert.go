package frame

import "fmt"

// DecodeError reports a raw frame that cannot be turned into a PixelBuffer.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "decode frame: " + e.Reason
}

func decodeErrorf(format string, args ...any) *DecodeError {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

// Decode copies the first plane of a raw frame into a packed RGBA PixelBuffer.
//
// Row padding is kept as extra columns: the logical width of the result is
// Width + rowPadding/PixelStride where rowPadding = RowStride - PixelStride*Width.
// Planes with 3 bytes per pixel are expanded with an opaque alpha channel.
// The result never aliases the raw frame storage.
func Decode(raw *RawFrame) (*PixelBuffer, error) {
	if raw == nil {
		return nil, decodeErrorf("nil frame")
	}
	if len(raw.Planes) == 0 {
		return nil, decodeErrorf("frame has no planes")
	}
	if raw.Width <= 0 || raw.Height <= 0 {
		return nil, decodeErrorf("invalid dimensions %dx%d", raw.Width, raw.Height)
	}

	plane := raw.Planes[0]
	pixelStride := plane.PixelStride
	if pixelStride != 3 && pixelStride != BytesPerPixel {
		return nil, decodeErrorf("unsupported pixel stride %d", pixelStride)
	}

	rowPadding := plane.RowStride - pixelStride*raw.Width
	if rowPadding < 0 {
		return nil, decodeErrorf("row stride %d smaller than row of %d pixels", plane.RowStride, raw.Width)
	}

	need := plane.RowStride * raw.Height
	if len(plane.Data) < need {
		return nil, decodeErrorf("buffer has %d bytes, need %d (%d rows of %d)",
			len(plane.Data), need, raw.Height, plane.RowStride)
	}

	width := raw.Width + rowPadding/pixelStride
	out := NewPixelBuffer(width, raw.Height)
	rowBytes := width * pixelStride

	for y := 0; y < raw.Height; y++ {
		src := plane.Data[y*plane.RowStride : y*plane.RowStride+rowBytes]
		dst := out.Pix[y*out.Stride() : (y+1)*out.Stride()]

		if pixelStride == BytesPerPixel {
			copy(dst, src)
			continue
		}

		for x := 0; x < width; x++ {
			s := x * pixelStride
			d := x * BytesPerPixel
			dst[d] = src[s]
			dst[d+1] = src[s+1]
			dst[d+2] = src[s+2]
			dst[d+3] = 0xFF
		}
	}

	return out, nil
}
