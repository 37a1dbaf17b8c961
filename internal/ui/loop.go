// Package ui provides the single goroutine that owns all session state and
// display writes. Other goroutines hand work to it with Post or Do.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/smazurov/magnifier/internal/logging"
)

// ErrLoopStopped is returned by Do when the loop exits before running the task.
var ErrLoopStopped = errors.New("ui loop stopped")

// DefaultQueueSize is used when NewLoop is given a non-positive size.
const DefaultQueueSize = 64

// Loop executes posted tasks one at a time, in order, on one goroutine.
type Loop struct {
	tasks  chan func()
	quit   chan struct{}
	exited chan struct{}
	logger *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewLoop creates a loop whose queue holds up to queueSize pending tasks.
func NewLoop(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Loop{
		tasks:  make(chan func(), queueSize),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
		logger: logging.GetLogger("ui"),
	}
}

// Start launches the loop goroutine. Further calls are no-ops.
func (l *Loop) Start() {
	l.startOnce.Do(func() {
		go l.run()
	})
}

// Stop ends the loop and waits for the running task, if any, to finish.
// Tasks still queued are discarded.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.quit)
	})
	l.Start() // a never-started loop must still close exited
	<-l.exited
}

func (l *Loop) run() {
	defer close(l.exited)
	for {
		select {
		case <-l.quit:
			return
		case fn := <-l.tasks:
			l.execute(fn)
		}
	}
}

// execute keeps the loop alive when a task panics.
func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("UI task panicked", "panic", fmt.Sprint(r))
		}
	}()
	fn()
}

// Post queues fn without blocking. It returns false when the queue is full
// or the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}

	select {
	case l.tasks <- fn:
		return true
	default:
		return false
	}
}

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}

	select {
	case l.tasks <- task:
	case <-l.quit:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-l.exited:
		// The loop may have run the task just before exiting
		select {
		case <-done:
			return nil
		default:
			return ErrLoopStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}
