package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/ghiac/chatforge/status"
)

func TestScheduler_PeriodicSweepKeepsUnexpiredSessions(t *testing.T) {
	mgr := status.NewManager()
	id := mgr.CreateSession("user-1")

	s := New(mgr, Config{Enabled: true, CheckInterval: 5 * time.Millisecond, DisableLogs: true})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	time.Sleep(20 * time.Millisecond)

	if _, ok := mgr.State(id); !ok {
		t.Fatal("expected the session to still be tracked (sweep only expires sessions past TTL)")
	}
}

func TestScheduler_DisabledIsNoop(t *testing.T) {
	mgr := status.NewManager()
	s := New(mgr, Config{Enabled: false, CheckInterval: time.Millisecond})
	s.Start(context.Background())
	if s.running {
		t.Fatal("expected a disabled scheduler to never start")
	}
}
