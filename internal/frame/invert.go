package frame

// Invert returns the photometric negative of a buffer. R, G and B become
// 255-channel and alpha is copied unchanged. Invert(Invert(b)) equals b.
func Invert(src *PixelBuffer) *PixelBuffer {
	dst := &PixelBuffer{Width: src.Width, Height: src.Height, Pix: make([]byte, len(src.Pix))}
	for i := 0; i+3 < len(src.Pix); i += BytesPerPixel {
		dst.Pix[i] = 255 - src.Pix[i]
		dst.Pix[i+1] = 255 - src.Pix[i+1]
		dst.Pix[i+2] = 255 - src.Pix[i+2]
		dst.Pix[i+3] = src.Pix[i+3]
	}
	return dst
}
