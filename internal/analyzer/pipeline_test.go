package analyzer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/smazurov/magnifier/internal/events"
	"github.com/smazurov/magnifier/internal/frame"
)

type testFlags struct {
	inverted atomic.Bool
	frozen   atomic.Bool
}

func (f *testFlags) Inverted() bool { return f.inverted.Load() }
func (f *testFlags) Frozen() bool   { return f.frozen.Load() }

// recorder collects posted buffers.
type recorder struct {
	posts  []*frame.PixelBuffer
	accept bool
}

func (r *recorder) post(buf *frame.PixelBuffer) bool {
	r.posts = append(r.posts, buf)
	return r.accept
}

// rawFrame builds a tightly packed RGBA frame and counts releases.
func rawFrame(width, height, rotation int, releases *int) *frame.RawFrame {
	data := make([]byte, width*height*frame.BytesPerPixel)
	for i := range data {
		data[i] = byte(i)
	}
	planes := []frame.Plane{{Data: data, PixelStride: 4, RowStride: width * 4}}
	return frame.NewRawFrame(width, height, rotation, planes, func() { *releases++ })
}

func newTestPipeline(flags *testFlags, rec *recorder, bus *events.Bus) (*Pipeline, *LastFrame) {
	last := &LastFrame{}
	return New(flags, last, rec.post, bus), last
}

func TestAnalyzeNotInvertedUpdatesLastFrameOnly(t *testing.T) {
	flags := &testFlags{}
	rec := &recorder{accept: true}
	p, last := newTestPipeline(flags, rec, nil)

	releases := 0
	for i := range 5 {
		raw := rawFrame(4, 3, 0, &releases)
		raw.Seq = uint64(i + 1)
		p.Analyze(raw)
	}

	if got := last.Updates(); got != 5 {
		t.Errorf("LastFrame updates = %d, want 5", got)
	}
	if len(rec.posts) != 0 {
		t.Errorf("posts = %d, want 0 while not inverted", len(rec.posts))
	}
	if releases != 5 {
		t.Errorf("releases = %d, want 5", releases)
	}
	if s := p.Stats(); s.Published != 5 || s.Dropped != 0 {
		t.Errorf("Stats() = %+v, want 5 published", s)
	}
}

func TestAnalyzeInvertedPostsInvertedFrame(t *testing.T) {
	flags := &testFlags{}
	flags.inverted.Store(true)
	rec := &recorder{accept: true}
	p, last := newTestPipeline(flags, rec, nil)

	releases := 0
	p.Analyze(rawFrame(3, 2, 0, &releases))

	if len(rec.posts) != 1 {
		t.Fatalf("posts = %d, want 1", len(rec.posts))
	}
	stored := last.Load()
	if stored == nil {
		t.Fatal("LastFrame not updated")
	}
	if !rec.posts[0].Equal(frame.Invert(stored)) {
		t.Error("posted buffer is not the inverse of the stored frame")
	}
	if rec.posts[0] == stored {
		t.Error("posted buffer aliases the stored frame")
	}
	if p.Stats().Posted != 1 {
		t.Errorf("Posted = %d, want 1", p.Stats().Posted)
	}
}

func TestAnalyzeRejectedPost(t *testing.T) {
	flags := &testFlags{}
	flags.inverted.Store(true)
	rec := &recorder{accept: false}
	p, last := newTestPipeline(flags, rec, nil)

	releases := 0
	p.Analyze(rawFrame(2, 2, 0, &releases))

	if last.Updates() != 1 {
		t.Errorf("LastFrame updates = %d, want 1", last.Updates())
	}
	if s := p.Stats(); s.Posted != 0 || s.Published != 1 {
		t.Errorf("Stats() = %+v, want published without post", s)
	}
}

func TestAnalyzeOrientsByRotationHint(t *testing.T) {
	p, last := newTestPipeline(&testFlags{}, &recorder{}, nil)

	releases := 0
	p.Analyze(rawFrame(4, 2, 90, &releases))

	got := last.Load()
	if got.Width != 2 || got.Height != 4 {
		t.Errorf("stored size = %dx%d, want 2x4", got.Width, got.Height)
	}
}

func TestAnalyzeUndersizedFrameIsDropped(t *testing.T) {
	bus := events.New()
	dropped := make(chan events.FrameDroppedEvent, 1)
	unsub := bus.Subscribe(func(e events.FrameDroppedEvent) { dropped <- e })
	defer unsub()

	p, last := newTestPipeline(&testFlags{}, &recorder{}, bus)

	releases := 0
	raw := frame.NewRawFrame(4, 4, 0, []frame.Plane{{Data: make([]byte, 63), PixelStride: 4, RowStride: 16}},
		func() { releases++ })
	raw.Seq = 42
	p.Analyze(raw)

	if last.Load() != nil || last.Updates() != 0 {
		t.Error("LastFrame updated by a dropped frame")
	}
	if releases != 1 {
		t.Errorf("releases = %d, want 1", releases)
	}

	select {
	case e := <-dropped:
		if e.Seq != 42 || e.Stage != StageDecode {
			t.Errorf("FrameDroppedEvent = %+v, want seq 42 stage decode", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no FrameDroppedEvent published")
	}

	// The next good frame is processed normally
	p.Analyze(rawFrame(4, 4, 0, &releases))
	if last.Updates() != 1 {
		t.Errorf("LastFrame updates after recovery = %d, want 1", last.Updates())
	}
	if s := p.Stats(); s.Dropped != 1 || s.Published != 1 {
		t.Errorf("Stats() = %+v, want 1 dropped 1 published", s)
	}
}

func TestAnalyzeInvalidRotationIsDropped(t *testing.T) {
	p, last := newTestPipeline(&testFlags{}, &recorder{}, nil)

	releases := 0
	p.Analyze(rawFrame(2, 2, 45, &releases))

	if last.Updates() != 0 {
		t.Error("LastFrame updated despite invalid rotation")
	}
	if releases != 1 {
		t.Errorf("releases = %d, want 1", releases)
	}
	if p.Stats().Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", p.Stats().Dropped)
	}
}

func TestAnalyzeFrozenSkipsFrame(t *testing.T) {
	flags := &testFlags{}
	flags.frozen.Store(true)
	p, last := newTestPipeline(flags, &recorder{}, nil)

	releases := 0
	p.Analyze(rawFrame(2, 2, 0, &releases))

	if last.Updates() != 0 {
		t.Error("LastFrame updated while frozen")
	}
	if releases != 1 {
		t.Errorf("releases = %d, want 1", releases)
	}
	if p.Stats().Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", p.Stats().Skipped)
	}
}

func TestAnalyzeRecoversPanic(t *testing.T) {
	flags := &testFlags{}
	flags.inverted.Store(true)
	p := New(flags, &LastFrame{}, func(*frame.PixelBuffer) bool { panic("display gone") }, nil)

	releases := 0
	p.Analyze(rawFrame(2, 2, 0, &releases))

	if releases != 1 {
		t.Errorf("releases = %d, want 1", releases)
	}
	if p.Stats().Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", p.Stats().Dropped)
	}
}

func TestAnalyzeNilFrame(_ *testing.T) {
	p, _ := newTestPipeline(&testFlags{}, &recorder{}, nil)
	p.Analyze(nil)
}

func TestLastFrameConcurrentReaders(t *testing.T) {
	last := &LastFrame{}
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := range 1000 {
			buf := frame.NewPixelBuffer(2, 2)
			for j := range buf.Pix {
				buf.Pix[j] = byte(i)
			}
			last.Store(buf)
		}
	}()

	for {
		select {
		case <-done:
			if last.Updates() != 1000 {
				t.Errorf("Updates() = %d, want 1000", last.Updates())
			}
			return
		default:
			if buf := last.Load(); buf != nil {
				// A published buffer is never partially written
				for _, v := range buf.Pix {
					if v != buf.Pix[0] {
						t.Fatal("observed a partially written buffer")
					}
				}
			}
		}
	}
}
