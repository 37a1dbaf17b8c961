package frame

import "time"

// Plane is one memory plane of a raw sensor frame.
type Plane struct {
	Data        []byte
	PixelStride int // bytes between horizontally adjacent pixels
	RowStride   int // bytes between the starts of consecutive rows
}

// RawFrame is a frame handle owned by the capture source for the duration of one
// analysis callback. Plane data is only valid until Release is called.
type RawFrame struct {
	Width     int
	Height    int
	Planes    []Plane
	Rotation  int // clockwise degrees needed to display the frame upright
	Seq       uint64
	Timestamp time.Time

	release func()
}

// NewRawFrame wraps source-owned planes. release returns the backing storage to the
// source and is invoked at most once.
func NewRawFrame(width, height, rotation int, planes []Plane, release func()) *RawFrame {
	return &RawFrame{
		Width:     width,
		Height:    height,
		Planes:    planes,
		Rotation:  rotation,
		Timestamp: time.Now(),
		release:   release,
	}
}

// Release hands the frame back to the capture source. Further calls are no-ops.
func (f *RawFrame) Release() {
	if f.release != nil {
		f.release()
		f.release = nil
	}
	f.Planes = nil
}
