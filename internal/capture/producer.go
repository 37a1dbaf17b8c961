package capture

import (
	"fmt"

	"github.com/smazurov/magnifier/internal/ffmpeg"
)

// Producer kinds accepted by NewProducer.
const (
	KindTestPattern  = "testsrc"
	KindFFmpeg       = "ffmpeg"
	KindFFmpegLavfi  = "ffmpeg-testsrc"
	defaultFrameRate = 30
)

// ProducerConfig selects and sizes a Producer.
type ProducerConfig struct {
	Kind        string
	Device      string
	InputFormat string
	Width       int
	Height      int
	FPS         int
	LogLevel    string
	// FFmpegOptions names ffmpeg input flags (see ffmpeg.AllOptions);
	// empty selects ffmpeg.GetDefaultOptions.
	FFmpegOptions []string
}

// NewProducer builds the producer named by cfg.Kind. An empty kind selects
// the built-in test pattern.
func NewProducer(cfg ProducerConfig) (Producer, error) {
	if cfg.FPS <= 0 {
		cfg.FPS = defaultFrameRate
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid capture size %dx%d", cfg.Width, cfg.Height)
	}

	switch cfg.Kind {
	case "", KindTestPattern:
		return NewTestPattern(cfg.Width, cfg.Height, cfg.FPS), nil
	case KindFFmpeg, KindFFmpegLavfi:
		options := ffmpeg.GetDefaultOptions()
		if len(cfg.FFmpegOptions) > 0 {
			parsed, err := ffmpeg.ParseOptions(cfg.FFmpegOptions)
			if err != nil {
				return nil, err
			}
			options = parsed
		}
		f, err := NewFFmpeg(ffmpeg.CaptureParams{
			DevicePath:   cfg.Device,
			InputFormat:  cfg.InputFormat,
			Width:        cfg.Width,
			Height:       cfg.Height,
			FPS:          cfg.FPS,
			IsTestSource: cfg.Kind == KindFFmpegLavfi,
			LogLevel:     cfg.LogLevel,
			Options:      options,
		})
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown capture source %q (want %s, %s or %s)",
			cfg.Kind, KindTestPattern, KindFFmpeg, KindFFmpegLavfi)
	}
}
