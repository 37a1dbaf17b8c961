package led

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/magnifier/internal/events"
)

type mockController struct {
	mu       sync.Mutex
	setCalls []setCall
	err      error
}

type setCall struct {
	ledType string
	enabled bool
	pattern string
}

func (m *mockController) Set(ledType string, enabled bool, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls = append(m.setCalls, setCall{ledType, enabled, pattern})
	return m.err
}

func (m *mockController) Available() []string {
	return []string{"system", "user"}
}

func (m *mockController) Patterns() []string {
	return []string{PatternSolid, PatternBlink}
}

func (m *mockController) calls() []setCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]setCall(nil), m.setCalls...)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPatternFor(t *testing.T) {
	tests := []struct {
		phase       string
		degraded    bool
		wantEnabled bool
		wantPattern string
	}{
		{"live", false, true, PatternSolid},
		{"live", true, true, PatternHeartbeat},
		{"frozen", false, true, PatternBlink},
		{"idle", false, true, PatternBlink},
		{"ended", false, false, PatternSolid},
	}

	for _, tt := range tests {
		enabled, pattern := patternFor(tt.phase, tt.degraded)
		if enabled != tt.wantEnabled || pattern != tt.wantPattern {
			t.Errorf("patternFor(%q, %v) = %v, %q, want %v, %q",
				tt.phase, tt.degraded, enabled, pattern, tt.wantEnabled, tt.wantPattern)
		}
	}
}

func TestManager_FollowsSessionPhase(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()

	mgr := NewManager(ctrl, "system", eventBus, newTestLogger())
	mgr.Start()
	defer mgr.Stop()

	eventBus.Publish(events.SessionStateChangedEvent{Phase: "live", Timestamp: time.Now().Format(time.RFC3339)})
	eventBus.Publish(events.SessionStateChangedEvent{Phase: "frozen", Frozen: true})

	time.Sleep(50 * time.Millisecond)

	calls := ctrl.calls()
	if len(calls) != 2 {
		t.Fatalf("Set calls = %d, want 2", len(calls))
	}
	if calls[0].pattern != PatternSolid || calls[1].pattern != PatternBlink {
		t.Errorf("patterns = %q, %q, want solid, blink", calls[0].pattern, calls[1].pattern)
	}
	if calls[1].ledType != "system" {
		t.Errorf("led type = %q, want system", calls[1].ledType)
	}
}

func TestManager_SkipsRepeatedState(t *testing.T) {
	ctrl := &mockController{}
	eventBus := events.New()

	mgr := NewManager(ctrl, "system", eventBus, newTestLogger())
	mgr.Start()
	defer mgr.Stop()

	for range 3 {
		eventBus.Publish(events.SessionStateChangedEvent{Phase: "live", ZoomRatio: 2})
	}
	time.Sleep(50 * time.Millisecond)

	if got := len(ctrl.calls()); got != 1 {
		t.Errorf("Set calls = %d, want 1", got)
	}
}

func TestManager_RetriesAfterFailure(t *testing.T) {
	ctrl := &mockController{err: errors.New("no such LED")}

	mgr := NewManager(ctrl, "system", events.New(), newTestLogger())
	mgr.apply(true, PatternSolid)
	mgr.apply(true, PatternSolid)

	if got := len(ctrl.calls()); got != 2 {
		t.Errorf("Set calls = %d, want 2 (failed writes are not cached)", got)
	}
}

func TestManager_StopSwitchesOff(t *testing.T) {
	ctrl := &mockController{}

	mgr := NewManager(ctrl, "system", events.New(), newTestLogger())
	mgr.Start()
	mgr.apply(true, PatternSolid)
	mgr.Stop()

	calls := ctrl.calls()
	last := calls[len(calls)-1]
	if last.enabled {
		t.Error("status LED still enabled after Stop")
	}
}

func TestManager_GetController(t *testing.T) {
	ctrl := &mockController{}
	mgr := NewManager(ctrl, "system", events.New(), newTestLogger())

	if got := mgr.GetController(); got != ctrl {
		t.Error("GetController() did not return the original controller")
	}
}
