package led

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs drives LEDs through /sys/class/leds/<name>/{trigger,brightness}.
type sysfs struct {
	root string
	leds map[string]string // LED type -> sysfs name

	mu       sync.Mutex
	triggers map[string]string // last trigger written per sysfs name
}

func newSysfs(leds map[string]string) *sysfs {
	return &sysfs{root: sysfsLEDPath, leds: leds, triggers: make(map[string]string)}
}

func (s *sysfs) Set(ledType string, enabled bool, pattern string) error {
	name, ok := s.leds[ledType]
	if !ok {
		return fmt.Errorf("LED type %q not supported on this board", ledType)
	}
	dir := filepath.Join(s.root, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("LED %q not found at %s", ledType, dir)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	trigger := s.triggers[name]
	if pattern != "" {
		trigger = triggerFor(pattern)
		// Rewriting a timer or heartbeat trigger restarts its cycle
		if s.triggers[name] != trigger {
			if err := writeAttr(dir, "trigger", trigger); err != nil {
				return err
			}
			s.triggers[name] = trigger
		}
	}
	// Kernel triggers own the brightness; only manual mode takes a value
	if trigger != "" && trigger != PatternManual {
		return nil
	}

	value := "0"
	if enabled {
		value = "1"
	}
	return writeAttr(dir, "brightness", value)
}

func writeAttr(dir, attr, value string) error {
	if err := os.WriteFile(filepath.Join(dir, attr), []byte(value), 0o644); err != nil {
		return fmt.Errorf("failed to set LED %s: %w", attr, err)
	}
	return nil
}

// triggerFor maps a pattern name onto a kernel LED trigger.
func triggerFor(pattern string) string {
	switch pattern {
	case PatternSolid:
		return PatternManual
	case PatternBlink:
		return "timer"
	default:
		// heartbeat, none and raw trigger names pass through
		return pattern
	}
}

func (s *sysfs) Available() []string {
	return slices.Sorted(maps.Keys(s.leds))
}

func (s *sysfs) Patterns() []string {
	return []string{PatternSolid, PatternBlink, PatternHeartbeat}
}
