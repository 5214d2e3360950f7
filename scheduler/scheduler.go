// Package scheduler runs the periodic background sweep that retires stale
// status sessions. Grounded on engine/schedules.go's SessionScheduler:
// same ticker-driven Start/Stop shape and DisableLogs-gated logging, but
// repurposed from message-count-threshold conversation summarization (not
// named anywhere in this system's components) to the Status Session
// Manager's own cleanup-sweep requirement (§4.6).
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/ghiac/chatforge/log"
	"github.com/ghiac/chatforge/status"
)

// Config mirrors config.SchedulerConfig's fields relevant to a sweep loop.
type Config struct {
	Enabled       bool
	CheckInterval time.Duration
	DisableLogs   bool
}

// Scheduler periodically forces a sweep of expired status sessions.
type Scheduler struct {
	status *status.Manager
	config Config

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
}

// New wires a Scheduler against a session manager.
func New(statusMgr *status.Manager, cfg Config) *Scheduler {
	return &Scheduler{status: statusMgr, config: cfg}
}

// Start launches the ticker loop in a goroutine. A no-op if disabled or
// already running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.Enabled || s.running {
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})

	if !s.config.DisableLogs {
		log.Log.Infof("scheduler: starting session sweep every %v", s.config.CheckInterval)
	}

	go s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.status.ForceSweep()
		case <-s.stopChan:
			if !s.config.DisableLogs {
				log.Log.Infof("scheduler: session sweep stopped")
			}
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop halts the ticker loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopChan)
	s.running = false
}
