package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/smazurov/magnifier/internal/ffmpeg"
	"github.com/smazurov/magnifier/internal/logging"
	"github.com/smazurov/magnifier/internal/metrics"
)

const defaultStopTimeout = 5 * time.Second

// progressFD is the child fd of the progress pipe: ExtraFiles[0].
const progressFD = 3

// FFmpeg reads raw RGBA frames from an ffmpeg subprocess. Every Run starts a
// new process, so a rebind reopens the device.
type FFmpeg struct {
	params      ffmpeg.CaptureParams
	binary      string
	stopTimeout time.Duration
	logger      *slog.Logger
	output      *slog.Logger
}

// NewFFmpeg returns a producer for params. The arguments are validated here
// so a bad configuration is reported at startup.
func NewFFmpeg(params ffmpeg.CaptureParams) (*FFmpeg, error) {
	if _, err := ffmpeg.BuildCaptureArgs(&params); err != nil {
		return nil, err
	}
	return &FFmpeg{
		params:      params,
		binary:      ffmpeg.Binary,
		stopTimeout: defaultStopTimeout,
		logger:      logging.GetLogger("capture"),
		output:      logging.GetLogger("ffmpeg"),
	}, nil
}

func (f *FFmpeg) Name() string {
	if f.params.IsTestSource {
		return "ffmpeg:testsrc"
	}
	return "ffmpeg:" + f.params.DevicePath
}

func (f *FFmpeg) Size() (int, int) {
	return f.params.Width, f.params.Height
}

// Run starts ffmpeg and emits every complete frame read from its stdout. On
// cancellation ffmpeg gets SIGINT, then SIGKILL after the stop timeout.
func (f *FFmpeg) Run(ctx context.Context, emit func(pix []byte)) error {
	params := f.params
	params.ProgressFD = progressFD
	args, err := ffmpeg.BuildCaptureArgs(&params)
	if err != nil {
		return err
	}

	progressR, progressW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("progress pipe: %w", err)
	}
	defer progressR.Close()

	cmd := exec.Command(f.binary, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.ExtraFiles = []*os.File{progressW}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		progressW.Close()
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		progressW.Close()
		return fmt.Errorf("stderr pipe: %w", err)
	}
	startErr := cmd.Start()
	// The child holds its own copy; ours must close for EOF on exit
	progressW.Close()
	if startErr != nil {
		return fmt.Errorf("start %s: %w", f.binary, startErr)
	}
	f.logger.Info("FFmpeg started", "pid", cmd.Process.Pid, "command", f.binary+" "+strings.Join(args, " "))

	frames := make(chan error, 1)
	go func() {
		frames <- readFrames(stdout, f.params.FrameSize(), emit)
	}()
	logs := make(chan struct{})
	go func() {
		f.streamOutput(stderr)
		close(logs)
	}()
	progress := make(chan struct{})
	go func() {
		f.recordProgress(progressR)
		close(progress)
	}()
	defer metrics.DeleteFFmpegMetrics(f.Name())

	stopped := false
	var readErr error
	select {
	case readErr = <-frames:
	case <-ctx.Done():
		stopped = true
		readErr = f.stop(cmd, frames)
	}

	// Pipes must be drained before Wait closes them
	<-logs
	waitErr := cmd.Wait()
	<-progress

	if stopped {
		f.logger.Info("FFmpeg stopped", "pid", cmd.Process.Pid)
		return nil
	}
	if readErr != nil {
		return fmt.Errorf("read frames: %w", readErr)
	}
	if waitErr != nil {
		return fmt.Errorf("ffmpeg exited: %w", waitErr)
	}
	return errors.New("ffmpeg exited")
}

// recordProgress exports ffmpeg's -progress reports until the pipe closes.
func (f *FFmpeg) recordProgress(r io.Reader) {
	name := f.Name()
	err := ffmpeg.ReadProgress(r, func(p ffmpeg.Progress) {
		metrics.SetFFmpegProgress(name, p.FPS, float64(p.DroppedFrames), float64(p.DuplicateFrames), p.Speed)
		if p.DroppedFrames > 0 {
			f.logger.Debug("FFmpeg dropping frames", "frame", p.Frame, "dropped", p.DroppedFrames)
		}
	})
	if err != nil {
		f.logger.Warn("Error reading ffmpeg progress", "error", err)
	}
}

// stop sends SIGINT to the process group and waits for stdout to close,
// killing the group if it does not exit within the stop timeout.
func (f *FFmpeg) stop(cmd *exec.Cmd, frames <-chan error) error {
	f.logger.Debug("Sending SIGINT to ffmpeg", "pid", cmd.Process.Pid)
	if err := signalGroup(cmd.Process.Pid, syscall.SIGINT); err != nil {
		f.logger.Warn("Failed to send SIGINT", "error", err)
	}

	select {
	case err := <-frames:
		return err
	case <-time.After(f.stopTimeout):
		f.logger.Warn("Graceful shutdown timeout, forcing kill", "timeout", f.stopTimeout)
		if err := signalGroup(cmd.Process.Pid, syscall.SIGKILL); err != nil {
			f.logger.Error("Failed to kill ffmpeg", "error", err)
		}
		return <-frames
	}
}

// signalGroup signals every process in the group led by pid. A group that
// has already exited is not an error.
func signalGroup(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(-pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		return err
	}
	return nil
}

// readFrames reads fixed-size frames until EOF. A clean EOF on a frame
// boundary returns nil.
func readFrames(r io.Reader, size int, emit func(pix []byte)) error {
	buf := make([]byte, size)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		emit(buf)
	}
}

func (f *FFmpeg) streamOutput(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		level, msg := ffmpeg.ParseLogLevel(scanner.Text())
		f.output.Log(context.Background(), level, msg)
	}
	if err := scanner.Err(); err != nil {
		f.logger.Warn("Error reading ffmpeg output", "error", err)
	}
}
