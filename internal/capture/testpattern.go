package capture

import (
	"context"
	"errors"
	"time"
)

// TestPattern produces a moving pattern without any camera: diagonal color
// bands scrolling right plus a white square bouncing vertically. It is the
// default producer and the one used by tests.
type TestPattern struct {
	width, height int
	interval      time.Duration
}

// NewTestPattern returns a pattern producer paced at fps.
func NewTestPattern(width, height, fps int) *TestPattern {
	if fps <= 0 {
		fps = 30
	}
	return &TestPattern{
		width:    width,
		height:   height,
		interval: time.Second / time.Duration(fps),
	}
}

func (p *TestPattern) Name() string {
	return "testsrc"
}

func (p *TestPattern) Size() (int, int) {
	return p.width, p.height
}

// Run emits one frame immediately and then one per frame interval.
func (p *TestPattern) Run(ctx context.Context, emit func(pix []byte)) error {
	if p.width <= 0 || p.height <= 0 {
		return errors.New("test pattern size must be positive")
	}

	pix := make([]byte, p.width*p.height*4)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for n := 0; ; n++ {
		p.draw(pix, n)
		emit(pix)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *TestPattern) draw(pix []byte, n int) {
	side := max(1, min(p.width, p.height)/6)
	span := max(1, p.height-side)
	top := n % (2 * span)
	if top >= span {
		top = 2*span - top
	}
	left := (p.width - side) / 2

	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			i := (y*p.width + x) * 4
			if x >= left && x < left+side && y >= top && y < top+side {
				pix[i], pix[i+1], pix[i+2] = 0xFF, 0xFF, 0xFF
			} else {
				band := byte((x + y + 4*n) * 4)
				pix[i] = band
				pix[i+1] = byte(y * 255 / p.height)
				pix[i+2] = 0xFF - band
			}
			pix[i+3] = 0xFF
		}
	}
}
