package ffmpeg

import (
	"errors"
	"fmt"
	"strconv"
)

// Binary is the ffmpeg executable looked up on PATH.
const Binary = "ffmpeg"

// BuildCaptureArgs builds the ffmpeg argument list for a raw RGBA capture pipe.
// Every log line carries a [level] prefix so stderr can be fed to ParseLogLevel.
func BuildCaptureArgs(p *CaptureParams) ([]string, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("invalid capture size %dx%d", p.Width, p.Height)
	}
	if p.FPS <= 0 {
		return nil, fmt.Errorf("invalid frame rate %d", p.FPS)
	}
	if !p.IsTestSource && p.DevicePath == "" {
		return nil, errors.New("device path is required")
	}
	if err := ValidateOptions(p.Options); err != nil {
		return nil, err
	}

	logLevel := p.LogLevel
	if logLevel == "" {
		logLevel = "warning"
	}

	args := []string{"-hide_banner", "-nostdin", "-loglevel", "level+" + logLevel}
	if p.ProgressFD > 0 {
		args = append(args, "-nostats", "-progress", "pipe:"+strconv.Itoa(p.ProgressFD))
	}
	size := fmt.Sprintf("%dx%d", p.Width, p.Height)
	rate := strconv.Itoa(p.FPS)

	if p.IsTestSource {
		// -re paces the generator at its nominal rate
		args = append(args, "-re", "-f", "lavfi", "-i", "testsrc2=size="+size+":rate="+rate)
	} else {
		args = append(args, "-f", "v4l2")
		args = append(args, ApplyOptions(p.Options)...)
		if p.InputFormat != "" {
			args = append(args, "-input_format", p.InputFormat)
		}
		args = append(args, "-video_size", size, "-framerate", rate, "-i", p.DevicePath)
	}

	// Scale guards against drivers that round the requested size
	args = append(args,
		"-an",
		"-vf", "scale="+strconv.Itoa(p.Width)+":"+strconv.Itoa(p.Height),
		"-pix_fmt", "rgba",
		"-f", "rawvideo",
		"pipe:1",
	)
	return args, nil
}
