package ffmpeg

// CaptureParams describes a raw RGBA capture pipe: frames from a V4L2 device
// (or the lavfi test source) written unencoded to stdout.
type CaptureParams struct {
	DevicePath   string
	InputFormat  string // yuyv422, mjpeg, etc.
	Width        int
	Height       int
	FPS          int
	IsTestSource bool   // lavfi testsrc2 instead of a device
	LogLevel     string // ffmpeg -loglevel value, "level+" is prepended
	ProgressFD   int    // when > 0, -progress key=value blocks go to this fd

	Options []OptionType // input behavior flags
}

// FrameSize is the byte length of one packed RGBA frame on the pipe.
func (p *CaptureParams) FrameSize() int {
	return p.Width * p.Height * 4
}
