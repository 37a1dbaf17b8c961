package led

import (
	"fmt"
	"sync"
)

// Torch drives one LED as an on/off illumination source.
type Torch struct {
	controller Controller
	ledType    string

	mu sync.Mutex
	on bool
}

// NewTorch returns a torch on the given LED type of controller.
func NewTorch(controller Controller, ledType string) *Torch {
	return &Torch{controller: controller, ledType: ledType}
}

// Set switches the torch. The stored state only changes when the LED accepted it.
func (t *Torch) Set(on bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.controller.Set(t.ledType, on, PatternManual); err != nil {
		return fmt.Errorf("torch %s: %w", t.ledType, err)
	}
	t.on = on
	return nil
}

// On reports the last state successfully applied.
func (t *Torch) On() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.on
}
