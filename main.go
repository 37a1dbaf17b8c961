package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/smazurov/magnifier/cmd"
	"github.com/smazurov/magnifier/internal/analyzer"
	"github.com/smazurov/magnifier/internal/api"
	"github.com/smazurov/magnifier/internal/capture"
	"github.com/smazurov/magnifier/internal/config"
	"github.com/smazurov/magnifier/internal/display"
	"github.com/smazurov/magnifier/internal/events"
	"github.com/smazurov/magnifier/internal/frame"
	"github.com/smazurov/magnifier/internal/led"
	"github.com/smazurov/magnifier/internal/logging"
	"github.com/smazurov/magnifier/internal/metrics"
	"github.com/smazurov/magnifier/internal/session"
	"github.com/smazurov/magnifier/internal/ui"
	"github.com/smazurov/magnifier/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port        string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	CORSOrigins string `help:"Comma-separated origins allowed to call the API; empty allows any" default:"" toml:"server.cors_origins" env:"SERVER_CORS_ORIGINS"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Capture settings
	CaptureSource           string `help:"Frame source (testsrc, ffmpeg, ffmpeg-testsrc)" default:"testsrc" toml:"capture.source" env:"CAPTURE_SOURCE"`
	CaptureDevice           string `help:"V4L2 device for the ffmpeg source" default:"/dev/video0" toml:"capture.device" env:"CAPTURE_DEVICE"`
	CaptureInputFormat      string `help:"V4L2 input format (yuyv422, mjpeg)" default:"" toml:"capture.input_format" env:"CAPTURE_INPUT_FORMAT"`
	CaptureWidth            int    `help:"Capture width" default:"640" toml:"capture.width" env:"CAPTURE_WIDTH"`
	CaptureHeight           int    `help:"Capture height" default:"480" toml:"capture.height" env:"CAPTURE_HEIGHT"`
	CaptureFPS              int    `help:"Capture frame rate" default:"30" toml:"capture.fps" env:"CAPTURE_FPS"`
	CaptureFfmpegOptions    string `help:"Comma-separated ffmpeg input flags (ignore_err, wallclock_ts, thread_queue_1024, thread_queue_4096, low_latency); empty uses the defaults" default:"" toml:"capture.ffmpeg_options" env:"CAPTURE_FFMPEG_OPTIONS"`
	CaptureRotation         int    `help:"Sensor mounting rotation in degrees (0, 90, 180, 270)" default:"0" toml:"capture.rotation" env:"CAPTURE_ROTATION"`
	CaptureRowPadding       int    `help:"Extra bytes per analysis row" default:"0" toml:"capture.row_padding" env:"CAPTURE_ROW_PADDING"`
	CapturePoolSize         int    `help:"Analysis buffer count" default:"3" toml:"capture.pool_size" env:"CAPTURE_POOL_SIZE"`
	CaptureBindTimeoutMs    int    `help:"Wait for the first frame of a bind in milliseconds" default:"3000" toml:"capture.bind_timeout_ms" env:"CAPTURE_BIND_TIMEOUT_MS"`
	CaptureAssumePermission bool   `help:"Grant camera permission at startup" default:"false" toml:"capture.assume_permission" env:"CAPTURE_ASSUME_PERMISSION"`

	// Torch settings
	TorchLED string `help:"LED type used as torch; empty disables the torch" default:"" toml:"torch.led" env:"TORCH_LED"`

	// Features settings
	FeaturesStatusLED bool   `help:"Mirror the session state on the status LED" default:"false" toml:"features.status_led" env:"FEATURES_STATUS_LED"`
	StatusLEDType     string `help:"LED type used as status LED" default:"system" toml:"features.status_led_type" env:"FEATURES_STATUS_LED_TYPE"`

	// UI and display settings
	UIQueueSize        int `help:"UI task queue size" default:"64" toml:"ui.queue_size" env:"UI_QUEUE_SIZE"`
	DisplayJPEGQuality int `help:"JPEG quality of /api/display/frame" default:"80" toml:"display.jpeg_quality" env:"DISPLAY_JPEG_QUALITY"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSession  string `help:"Session logging level" default:"info" toml:"logging.session" env:"LOGGING_SESSION"`
	LoggingAnalyzer string `help:"Analyzer logging level" default:"info" toml:"logging.analyzer" env:"LOGGING_ANALYZER"`
	LoggingCapture  string `help:"Capture logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingFfmpeg   string `help:"FFmpeg output logging level" default:"info" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingDisplay  string `help:"Display logging level" default:"info" toml:"logging.display" env:"LOGGING_DISPLAY"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP     string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingLED      string `help:"LED logging level" default:"info" toml:"logging.led" env:"LOGGING_LED"`
}

func (o *Options) loggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"session":  o.LoggingSession,
			"analyzer": o.LoggingAnalyzer,
			"capture":  o.LoggingCapture,
			"ffmpeg":   o.LoggingFfmpeg,
			"display":  o.LoggingDisplay,
			"api":      o.LoggingAPI,
			"http":     o.LoggingHTTP,
			"led":      o.LoggingLED,
		},
	}
}

// cliLoggingOverrides keeps logging flags given on the command line in force
// across config file reloads.
func cliLoggingOverrides(root *cobra.Command, o *Options) logging.Config {
	full := o.loggingConfig()
	out := logging.Config{Modules: make(map[string]string)}
	flags := root.Flags()
	if flags.Changed("logging-level") {
		out.Level = full.Level
	}
	if flags.Changed("logging-format") {
		out.Format = full.Format
	}
	for module, level := range full.Modules {
		if flags.Changed("logging-" + module) {
			out.Modules[module] = level
		}
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loopPreview renders preview frames on the UI loop.
type loopPreview struct {
	loop *ui.Loop
	hub  *display.Hub
}

func (p loopPreview) RenderPreview(buf *frame.PixelBuffer) {
	if !p.loop.Post(func() { p.hub.RenderPreview(buf) }) {
		metrics.IncrementDisplayPostDropped()
	}
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")
		logger.Info("Magnifier starting", "version", version.Get().Short())

		// Create event bus for in-process event handling
		eventBus := events.New()
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(api.NewLogEvent(entry))
		})

		loop := ui.NewLoop(opts.UIQueueSize)
		hub := display.NewHub(eventBus)
		flags := &session.Flags{}
		last := &analyzer.LastFrame{}

		// Processed frames reach the session on the UI loop, where stale ones are discarded
		var sess *session.Session
		pipeline := analyzer.New(flags, last, func(buf *frame.PixelBuffer) bool {
			return loop.Post(func() { sess.ShowProcessed(buf) })
		}, eventBus)

		var ledController led.Controller
		if opts.TorchLED != "" || opts.FeaturesStatusLED {
			ledController = led.New(logging.GetLogger("led"))
		}
		var torch *led.Torch
		if opts.TorchLED != "" {
			torch = led.NewTorch(ledController, opts.TorchLED)
		}

		producer, err := capture.NewProducer(capture.ProducerConfig{
			Kind:          opts.CaptureSource,
			Device:        opts.CaptureDevice,
			InputFormat:   opts.CaptureInputFormat,
			Width:         opts.CaptureWidth,
			Height:        opts.CaptureHeight,
			FPS:           opts.CaptureFPS,
			FFmpegOptions: splitList(opts.CaptureFfmpegOptions),
		})
		if err != nil {
			logger.Error("Invalid capture source", "error", err)
			os.Exit(1)
		}
		source, err := capture.NewSource(producer, capture.Config{
			Rotation:   opts.CaptureRotation,
			RowPadding: opts.CaptureRowPadding,
			PoolSize:   opts.CapturePoolSize,
		}, torch)
		if err != nil {
			logger.Error("Invalid capture configuration", "error", err)
			os.Exit(1)
		}

		sess = session.New(session.Deps{
			Source:      source,
			Display:     hub,
			LastFrame:   last,
			Analyzer:    pipeline,
			Preview:     loopPreview{loop: loop, hub: hub},
			Flags:       flags,
			Bus:         eventBus,
			BindTimeout: time.Duration(opts.CaptureBindTimeoutMs) * time.Millisecond,
		})
		// Every slider change is forwarded. The session drops the ones with
		// userDriven false, which echo its own SetSlider reflection.
		hub.OnSliderChanged(func(progress int, userDriven bool) {
			loop.Post(func() { sess.SetSlider(progress, userDriven) })
		})

		// Status LED mirrors the session phase
		var ledManager *led.Manager
		if opts.FeaturesStatusLED {
			logger.Info("Status LED enabled", "led", opts.StatusLEDType)
			ledManager = led.NewManager(ledController, opts.StatusLEDType, eventBus, logging.GetLogger("led"))
		}

		apiOpts := &api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Session:           sess,
			Executor:          loop,
			Display:           hub,
			EventBus:          eventBus,
			JPEGQuality:       opts.DisplayJPEGQuality,
			CORSOrigins:       splitList(opts.CORSOrigins),
			PrometheusHandler: metrics.Handler(),
		}
		if ledManager != nil {
			apiOpts.LEDController = ledManager.GetController()
		}
		server := api.NewServer(apiOpts)

		var watcher *config.Watcher[logging.Config]
		var unsubEnded func()

		var shutdownOnce sync.Once
		shutdown := func() {
			shutdownOnce.Do(func() {
				if unsubEnded != nil {
					unsubEnded()
				}
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if doErr := loop.Do(ctx, sess.Close); doErr != nil {
					logger.Warn("Failed to close session", "error", doErr)
				}
				loop.Stop()

				if ledManager != nil {
					ledManager.Stop()
				}
				if watcher != nil {
					if stopErr := watcher.Stop(); stopErr != nil {
						logger.Warn("Error stopping config watcher", "error", stopErr)
					}
				}
				logger.Info("Magnifier stopped", "capture", source.Stats(), "analyzer", pipeline.Stats())
			})
		}

		hooks.OnStart(func() {
			loop.Start()

			if opts.Config != "" {
				if _, statErr := os.Stat(opts.Config); statErr == nil {
					overrides := cliLoggingOverrides(cli.Root(), opts)
					if w, watchErr := config.WatchLogging(opts.Config, overrides, logging.GetLogger("config")); watchErr != nil {
						logger.Warn("Failed to start config watcher, hot-reload disabled", "error", watchErr)
					} else {
						watcher = w
					}
				}
			}

			if ledManager != nil {
				ledManager.Start()
			}

			// A denied permission ends the session and with it the process
			ended := make(chan any, 1)
			unsubEnded = events.SubscribeToChannel[events.SessionEndedEvent](eventBus, ended)
			go func() {
				ev, ok := (<-ended).(events.SessionEndedEvent)
				if !ok {
					return
				}
				logger.Info("Session ended, shutting down", "reason", ev.Reason)
				if stopErr := server.Stop(); stopErr != nil {
					logger.Error("Error stopping HTTP server", "error", stopErr)
				}
			}()

			if opts.CaptureAssumePermission {
				loop.Post(func() { sess.PermissionResult(true) })
			}

			logger.Info("Starting HTTP server", "port", opts.Port, "source", producer.Name())
			if startErr := server.Start(opts.Port); startErr != nil {
				logger.Error("Failed to start HTTP server", "error", startErr)
				shutdown()
				os.Exit(1)
			}
			shutdown()
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			shutdown()
		})
	})

	cli.Root().Version = version.Get().Short()
	cli.Root().AddCommand(cmd.CreateProbeCmd())

	// Run the CLI
	cli.Run()
}
