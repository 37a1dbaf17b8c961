package display

import (
	"bytes"
	"image/jpeg"

	"github.com/smazurov/magnifier/internal/frame"
)

// DefaultJPEGQuality is used when EncodeJPEG is given a quality outside 1-100.
const DefaultJPEGQuality = 80

// EncodeJPEG encodes buf for clients that render the display remotely.
func EncodeJPEG(buf *frame.PixelBuffer, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var out bytes.Buffer
	if err := jpeg.Encode(&out, buf.Image(), &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
