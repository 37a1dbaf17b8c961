package led

import (
	"sync"

	"github.com/smazurov/magnifier/internal/logging"
)

// State is the last request made for one LED.
type State struct {
	Enabled bool
	Pattern string
}

// noop stands in on boards without controllable LEDs. It accepts every
// request, remembers it, and logs only changes so the status LED does not
// flood the debug log.
type noop struct {
	logger logging.Logger
	mu     sync.Mutex
	last   map[string]State
}

func newNoop(logger logging.Logger) *noop {
	return &noop{logger: logger, last: make(map[string]State)}
}

func (n *noop) Set(ledType string, enabled bool, pattern string) error {
	next := State{Enabled: enabled, Pattern: pattern}

	n.mu.Lock()
	prev, seen := n.last[ledType]
	n.last[ledType] = next
	n.mu.Unlock()

	if n.logger != nil && (!seen || prev != next) {
		n.logger.Debug("LED request ignored, no LED hardware",
			"led_type", ledType, "enabled", enabled, "pattern", pattern)
	}
	return nil
}

// Last returns the most recent request for ledType.
func (n *noop) Last(ledType string) (State, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	s, ok := n.last[ledType]
	return s, ok
}

func (n *noop) Available() []string { return []string{} }

func (n *noop) Patterns() []string { return []string{} }
