package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/magnifier/internal/analyzer"
	"github.com/smazurov/magnifier/internal/capture"
	"github.com/smazurov/magnifier/internal/frame"
	"github.com/smazurov/magnifier/internal/logging"
)

// ProbeOptions configures a headless capture run.
type ProbeOptions struct {
	Source      capture.ProducerConfig
	Capture     capture.Config
	Duration    time.Duration
	Zoom        float64
	Inverted    bool
	BindTimeout time.Duration
}

// ProbeReport is what a probe run measured.
type ProbeReport struct {
	Source         string  `json:"source"`
	Duration       string  `json:"duration"`
	Produced       uint64  `json:"produced"`
	SourceDropped  uint64  `json:"source_dropped"`
	PoolStarved    uint64  `json:"pool_starved"`
	Published      uint64  `json:"published"`
	Dropped        uint64  `json:"dropped"`
	Posted         uint64  `json:"posted"`
	MeanAnalysisMs float64 `json:"mean_analysis_ms"`
	LastWidth      int     `json:"last_width"`
	LastHeight     int     `json:"last_height"`
}

// probeFlags holds the inversion setting for a run; a probe never freezes.
type probeFlags struct{ inverted bool }

func (f probeFlags) Inverted() bool { return f.inverted }
func (f probeFlags) Frozen() bool   { return false }

// RunProbe binds the source with an analyzer pipeline and no preview, waits
// for opts.Duration or ctx, and reports the counters.
func RunProbe(ctx context.Context, opts ProbeOptions) (*ProbeReport, error) {
	producer, err := capture.NewProducer(opts.Source)
	if err != nil {
		return nil, err
	}
	source, err := capture.NewSource(producer, opts.Capture, nil)
	if err != nil {
		return nil, err
	}

	var posted atomic.Uint64
	last := &analyzer.LastFrame{}
	pipeline := analyzer.New(probeFlags{inverted: opts.Inverted}, last, func(*frame.PixelBuffer) bool {
		posted.Add(1)
		return true
	}, nil)

	bindCtx := ctx
	if opts.BindTimeout > 0 {
		var cancel context.CancelFunc
		bindCtx, cancel = context.WithTimeout(ctx, opts.BindTimeout)
		defer cancel()
	}

	start := time.Now()
	handle, err := source.Bind(bindCtx, capture.UseCases{Analyzer: pipeline}, true)
	if err != nil {
		return nil, err
	}
	if opts.Zoom > capture.MinZoomRatio {
		if zoomErr := handle.SetZoomRatio(opts.Zoom); zoomErr != nil {
			source.Unbind()
			return nil, zoomErr
		}
	}

	timer := time.NewTimer(opts.Duration)
	select {
	case <-ctx.Done():
		timer.Stop()
	case <-timer.C:
	}
	source.Unbind()

	cs := source.Stats()
	ps := pipeline.Stats()
	report := &ProbeReport{
		Source:         producer.Name(),
		Duration:       time.Since(start).Round(time.Millisecond).String(),
		Produced:       cs.Produced,
		SourceDropped:  cs.Dropped,
		PoolStarved:    cs.PoolStarved,
		Published:      ps.Published,
		Dropped:        ps.Dropped,
		Posted:         posted.Load(),
		MeanAnalysisMs: float64(ps.MeanAnalysis.Microseconds()) / 1000,
	}
	if buf := last.Load(); buf != nil {
		report.LastWidth, report.LastHeight = buf.Width, buf.Height
	}
	return report, nil
}

func printReport(w io.Writer, r *ProbeReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	_, err := fmt.Fprintf(w, `Source:          %s
Duration:        %s
Frames produced: %d
Source drops:    %d (pool starved %d)
Published:       %d
Dropped:         %d
Posted:          %d
Mean analysis:   %.2f ms
Last frame:      %dx%d
`, r.Source, r.Duration, r.Produced, r.SourceDropped, r.PoolStarved,
		r.Published, r.Dropped, r.Posted, r.MeanAnalysisMs, r.LastWidth, r.LastHeight)
	return err
}

// CreateProbeCmd creates the probe command.
func CreateProbeCmd() *cobra.Command {
	var opts ProbeOptions
	var logLevel string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Run the capture source and analyzer headless",
		Long: `Binds the capture source with the analyzer pipeline and no display for a fixed duration, ` +
			`then prints produced, dropped and published frame counts and the mean analysis time.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			logging.Initialize(logging.Config{Level: logLevel, Format: "text"})
			logger := logging.GetLogger("probe")

			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("Probing capture source", "source", opts.Source.Kind, "duration", opts.Duration)
			report, err := RunProbe(ctx, opts)
			if err != nil {
				return fmt.Errorf("probe failed: %w", err)
			}
			return printReport(c.OutOrStdout(), report, asJSON)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Source.Kind, "source", capture.KindTestPattern, "Frame source (testsrc, ffmpeg, ffmpeg-testsrc)")
	f.StringVar(&opts.Source.Device, "device", "/dev/video0", "V4L2 device for the ffmpeg source")
	f.StringVar(&opts.Source.InputFormat, "input-format", "", "V4L2 input format")
	f.IntVar(&opts.Source.Width, "width", 640, "Capture width")
	f.IntVar(&opts.Source.Height, "height", 480, "Capture height")
	f.IntVar(&opts.Source.FPS, "fps", 30, "Capture frame rate")
	f.StringSliceVar(&opts.Source.FFmpegOptions, "ffmpeg-options", nil, "ffmpeg input flags; empty uses the defaults")
	f.IntVar(&opts.Capture.Rotation, "rotation", 0, "Sensor mounting rotation in degrees")
	f.IntVar(&opts.Capture.RowPadding, "row-padding", 0, "Extra bytes per analysis row")
	f.IntVar(&opts.Capture.PoolSize, "pool-size", 3, "Analysis buffer count")
	f.DurationVar(&opts.Duration, "duration", 5*time.Second, "How long to capture")
	f.DurationVar(&opts.BindTimeout, "bind-timeout", 3*time.Second, "Wait for the first frame")
	f.Float64Var(&opts.Zoom, "zoom", 1, "Digital zoom ratio (1.0-10.0)")
	f.BoolVar(&opts.Inverted, "invert", false, "Run the inversion stage")
	f.StringVar(&logLevel, "log-level", "warn", "Logging level")
	f.BoolVar(&asJSON, "json", false, "Print the report as JSON")

	return cmd
}
