package enforcer

import (
	"context"
	"sync"

	"github.com/osa911/datacap/internal/logging"
)

// Runner is a long-running task stopped through its context
type Runner interface {
	Run(ctx context.Context) error
}

// Supervisor owns the lifecycle of the engine: start with the process,
// stop on shutdown and restart on boot signals.
type Supervisor struct {
	mu     sync.Mutex
	runner Runner
	parent context.Context
	cancel context.CancelFunc
	done   chan struct{}
	logger *logging.Logger
}

// NewSupervisor creates a stopped supervisor
func NewSupervisor(runner Runner) *Supervisor {
	return &Supervisor{
		runner: runner,
		logger: logging.GetGlobalLogger(),
	}
}

// Start runs the task under ctx. Restarts reuse ctx as their parent.
// Starting a running supervisor does nothing.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.parent = ctx
	s.startLocked()
}

func (s *Supervisor) startLocked() {
	if s.done != nil {
		return
	}

	runCtx, cancel := context.WithCancel(s.parent)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		if err := s.runner.Run(runCtx); err != nil {
			s.logger.Error("Engine exited with error: %v", err)
		}
	}()
}

// Stop cancels the task and waits for it to finish
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Supervisor) stopLocked() {
	if s.done == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

// Restart stops the task if it runs and starts it again.
// Before the first Start it uses a background context.
func (s *Supervisor) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("Restarting enforcement engine")
	s.stopLocked()
	if s.parent == nil {
		s.parent = context.Background()
	}
	s.startLocked()
}

// Running reports whether the task is running
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}
