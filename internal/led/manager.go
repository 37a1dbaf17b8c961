package led

import (
	"log/slog"
	"sync"

	"github.com/smazurov/magnifier/internal/events"
)

// Manager mirrors the capture session phase on a status LED.
type Manager struct {
	controller  Controller
	ledType     string
	eventBus    *events.Bus
	unsubscribe func()
	logger      *slog.Logger

	mu      sync.Mutex
	pattern string
	enabled bool
}

// NewManager creates a manager driving ledType on controller.
func NewManager(controller Controller, ledType string, eventBus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		controller: controller,
		ledType:    ledType,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Start begins listening for session state events
func (m *Manager) Start() {
	m.unsubscribe = m.eventBus.Subscribe(func(e events.SessionStateChangedEvent) {
		m.handleEvent(e)
	})
	m.logger.Info("LED manager started", "led", m.ledType)
}

// Stop unsubscribes and switches the status LED off
func (m *Manager) Stop() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.apply(false, PatternSolid)
	m.logger.Info("LED manager stopped")
}

func (m *Manager) handleEvent(event events.SessionStateChangedEvent) {
	enabled, pattern := patternFor(event.GetPhase(), event.IsDegraded())
	m.logger.Debug("Session state changed", "phase", event.GetPhase(), "degraded", event.IsDegraded(), "pattern", pattern)
	m.apply(enabled, pattern)
}

// apply skips writes that would not change the LED.
func (m *Manager) apply(enabled bool, pattern string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pattern == pattern && m.enabled == enabled {
		return
	}
	if err := m.controller.Set(m.ledType, enabled, pattern); err != nil {
		m.logger.Warn("Failed to set status LED", "pattern", pattern, "error", err)
		return
	}
	m.pattern, m.enabled = pattern, enabled
}

// patternFor maps a session phase onto the status LED.
func patternFor(phase string, degraded bool) (bool, string) {
	switch {
	case phase == "ended":
		return false, PatternSolid
	case degraded:
		return true, PatternHeartbeat
	case phase == "frozen", phase == "idle":
		return true, PatternBlink
	default:
		return true, PatternSolid
	}
}

// GetController returns the underlying LED controller
func (m *Manager) GetController() Controller {
	return m.controller
}
