package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/smazurov/magnifier/internal/frame"
	"github.com/smazurov/magnifier/internal/led"
	"github.com/smazurov/magnifier/internal/logging"
	"github.com/smazurov/magnifier/internal/metrics"
)

const defaultPoolSize = 3

// Config describes how produced frames are laid out for the analyzer.
type Config struct {
	// Rotation is the clockwise rotation, in degrees, that turns a sensor
	// frame upright. Frames handed to the analyzer carry it as their hint.
	Rotation int
	// RowPadding is the number of extra bytes appended to each sensor row.
	RowPadding int
	// PoolSize is the number of analysis buffers.
	PoolSize int
}

// Stats is a point-in-time copy of the source counters.
type Stats struct {
	Produced    uint64
	Dropped     uint64
	PoolStarved uint64
	Binds       uint64
	ZoomRatio   float64
	BoundHandle string
}

// Source binds a Producer to preview and analysis use cases. At most one
// binding is active; binding again replaces it.
type Source struct {
	producer Producer
	cfg      Config
	torch    *led.Torch
	logger   *slog.Logger

	sensorW, sensorH int
	rowStride        int
	pool             *bufferPool

	mu     sync.Mutex
	active *binding
	zoom   float64

	produced atomic.Uint64
	dropped  atomic.Uint64
	starved  atomic.Uint64
	binds    atomic.Uint64
	seq      atomic.Uint64
}

// NewSource creates a source. torch may be nil when the device has none.
func NewSource(producer Producer, cfg Config, torch *led.Torch) (*Source, error) {
	rotation, err := frame.NormalizeRotation(cfg.Rotation)
	if err != nil {
		return nil, err
	}
	cfg.Rotation = rotation
	if cfg.RowPadding < 0 {
		return nil, fmt.Errorf("row padding must not be negative, got %d", cfg.RowPadding)
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}

	w, h := producer.Size()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("producer %s has invalid size %dx%d", producer.Name(), w, h)
	}
	sensorW, sensorH := w, h
	if rotation == 90 || rotation == 270 {
		sensorW, sensorH = h, w
	}
	rowStride := sensorW*frame.BytesPerPixel + cfg.RowPadding

	return &Source{
		producer:  producer,
		cfg:       cfg,
		torch:     torch,
		logger:    logging.GetLogger("capture"),
		sensorW:   sensorW,
		sensorH:   sensorH,
		rowStride: rowStride,
		pool:      newBufferPool(cfg.PoolSize, rowStride*sensorH),
		zoom:      MinZoomRatio,
	}, nil
}

// Bind releases any current binding and binds uc. It returns once the
// producer delivered its first frame, or fails with a *BindError when the
// producer errors or ctx ends first. resetZoom restores a 1.0 zoom ratio;
// otherwise the ratio of the previous binding is kept.
func (s *Source) Bind(ctx context.Context, uc UseCases, resetZoom bool) (Handle, error) {
	mode := bindMode(resetZoom)
	s.Unbind()

	if uc.Preview == nil && uc.Analyzer == nil {
		return nil, &BindError{Mode: mode, Err: ErrNoUseCases}
	}

	s.mu.Lock()
	if resetZoom {
		s.zoom = MinZoomRatio
	}
	s.mu.Unlock()

	b := s.newBinding(uc)
	b.start()

	select {
	case <-b.first:
	case err := <-b.failed:
		b.stop()
		if err == nil {
			err = fmt.Errorf("producer %s stopped before the first frame", s.producer.Name())
		}
		return nil, &BindError{Mode: mode, Err: err}
	case <-ctx.Done():
		b.stop()
		return nil, &BindError{Mode: mode, Err: ctx.Err()}
	}

	s.mu.Lock()
	s.active = b
	s.mu.Unlock()
	s.binds.Add(1)

	s.logger.Info("Capture bound",
		"handle", b.id,
		"mode", mode,
		"producer", s.producer.Name(),
		"preview", uc.Preview != nil,
		"analyzer", uc.Analyzer != nil)
	return &handle{id: b.id, src: s}, nil
}

// Unbind stops the current binding, if any. A frame being analyzed is
// allowed to finish. The torch is switched off.
func (s *Source) Unbind() {
	s.mu.Lock()
	b := s.active
	s.active = nil
	s.mu.Unlock()

	if b == nil {
		return
	}
	b.stop()

	if s.torch != nil && s.torch.On() {
		if err := s.torch.Set(false); err != nil {
			s.logger.Warn("Failed to switch torch off", "error", err)
		}
	}
	s.logger.Info("Capture unbound", "handle", b.id)
}

// ZoomRatio returns the ratio applied to produced frames.
func (s *Source) ZoomRatio() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom
}

// Stats returns the source counters.
func (s *Source) Stats() Stats {
	s.mu.Lock()
	zoom := s.zoom
	var id string
	if s.active != nil {
		id = s.active.id
	}
	s.mu.Unlock()

	return Stats{
		Produced:    s.produced.Load(),
		Dropped:     s.dropped.Load(),
		PoolStarved: s.starved.Load(),
		Binds:       s.binds.Load(),
		ZoomRatio:   zoom,
		BoundHandle: id,
	}
}

func (s *Source) isActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil && s.active.id == id
}

func (s *Source) setZoom(id string, ratio float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.id != id {
		return ErrNotBound
	}
	s.zoom = clampZoom(ratio)
	return nil
}

func (s *Source) setTorch(id string, on bool) error {
	if !s.isActive(id) {
		return ErrNotBound
	}
	if s.torch == nil {
		return ErrNoTorch
	}
	return s.torch.Set(on)
}

// handleFrame runs on the producer goroutine.
func (s *Source) handleFrame(b *binding, pix []byte) {
	b.firstOnce.Do(func() { close(b.first) })
	s.produced.Add(1)

	w, h := s.producer.Size()
	if len(pix) < w*h*frame.BytesPerPixel {
		s.logger.Warn("Short frame from producer", "bytes", len(pix), "want", w*h*frame.BytesPerPixel)
		return
	}
	upright := digitalZoom(&frame.PixelBuffer{Width: w, Height: h, Pix: pix}, s.ZoomRatio())

	if b.uc.Preview != nil {
		b.uc.Preview.RenderPreview(upright)
	}
	if b.uc.Analyzer == nil {
		return
	}

	buf := s.pool.Get()
	if buf == nil {
		s.starved.Add(1)
		metrics.IncrementPoolStarved()
		return
	}

	raw, err := s.sensorFrame(upright, buf)
	if err != nil {
		s.pool.Put(buf)
		s.logger.Warn("Failed to lay out sensor frame", "error", err)
		return
	}

	release, replaced := b.mailbox.Offer(raw)
	if release != nil {
		release.Release()
	}
	if replaced {
		s.dropped.Add(1)
		metrics.IncrementSourceDrop()
	}
}

// sensorFrame turns an upright frame back into sensor orientation, with row
// padding, inside a pooled buffer.
func (s *Source) sensorFrame(upright *frame.PixelBuffer, buf []byte) (*frame.RawFrame, error) {
	sensor, err := frame.Rotate(upright, (360-s.cfg.Rotation)%360)
	if err != nil {
		return nil, err
	}

	rowBytes := sensor.Stride()
	for y := 0; y < sensor.Height; y++ {
		row := buf[y*s.rowStride : (y+1)*s.rowStride]
		copy(row, sensor.Pix[y*rowBytes:(y+1)*rowBytes])
		clear(row[rowBytes:])
	}

	planes := []frame.Plane{{
		Data:        buf[:s.rowStride*sensor.Height],
		PixelStride: frame.BytesPerPixel,
		RowStride:   s.rowStride,
	}}
	raw := frame.NewRawFrame(sensor.Width, sensor.Height, s.cfg.Rotation, planes, func() { s.pool.Put(buf) })
	raw.Seq = s.seq.Add(1)
	return raw, nil
}

// binding is one producer run plus its analysis worker.
type binding struct {
	id      string
	src     *Source
	uc      UseCases
	mailbox *mailbox

	ctx    context.Context
	cancel context.CancelFunc

	first     chan struct{}
	firstOnce sync.Once
	failed    chan error
	producing chan struct{}
	working   chan struct{}
	stopOnce  sync.Once
}

func (s *Source) newBinding(uc UseCases) *binding {
	ctx, cancel := context.WithCancel(context.Background())
	return &binding{
		id:        uuid.NewString(),
		src:       s,
		uc:        uc,
		mailbox:   newMailbox(),
		ctx:       ctx,
		cancel:    cancel,
		first:     make(chan struct{}),
		failed:    make(chan error, 1),
		producing: make(chan struct{}),
		working:   make(chan struct{}),
	}
}

func (b *binding) start() {
	go b.produce()
	go b.work()
}

func (b *binding) produce() {
	defer close(b.producing)

	err := b.src.producer.Run(b.ctx, func(pix []byte) {
		b.src.handleFrame(b, pix)
	})
	if b.ctx.Err() != nil {
		return
	}
	if err != nil {
		b.src.logger.Error("Producer failed", "handle", b.id, "producer", b.src.producer.Name(), "error", err)
	} else {
		b.src.logger.Warn("Producer stopped", "handle", b.id, "producer", b.src.producer.Name())
	}
	b.failed <- err
}

func (b *binding) work() {
	defer close(b.working)

	for {
		raw, ok := b.mailbox.Take()
		if !ok {
			return
		}
		b.uc.Analyzer.Analyze(raw)
	}
}

// stop cancels the producer, then closes the mailbox so the worker exits
// after its current frame.
func (b *binding) stop() {
	b.stopOnce.Do(func() {
		b.cancel()
		<-b.producing
		b.mailbox.Close()
		<-b.working
	})
}

type handle struct {
	id  string
	src *Source
}

func (h *handle) ID() string {
	return h.id
}

func (h *handle) SetZoomRatio(ratio float64) error {
	return h.src.setZoom(h.id, ratio)
}

func (h *handle) SetTorch(on bool) error {
	return h.src.setTorch(h.id, on)
}
