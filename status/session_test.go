package status

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	mu       sync.Mutex
	writes   []map[string]any
	failNext bool
	closed   bool
}

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		return errors.New("write failed")
	}
	f.writes = append(f.writes, v.(map[string]any))
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestCreateSession_FormatAndCreatedState(t *testing.T) {
	m := NewManager()
	id := m.CreateSession("u1")
	if len(id) <= len("u1-") || id[:3] != "u1-" {
		t.Fatalf("expected session id prefixed with user_id-, got %q", id)
	}
	state, ok := m.State(id)
	if !ok || state != StateCreated {
		t.Fatalf("expected fresh session in Created state, got %v (ok=%v)", state, ok)
	}
}

func TestRegisterConnection_SendsConnectedFrameAndTransitionsActive(t *testing.T) {
	m := NewManager()
	id := m.CreateSession("u1")
	conn := &fakeConn{}

	if !m.RegisterConnection(id, conn) {
		t.Fatal("expected registration to succeed")
	}
	if len(conn.writes) != 1 || conn.writes[0]["status"] != "connected" {
		t.Fatalf("expected one connected frame, got %v", conn.writes)
	}
	state, _ := m.State(id)
	if state != StateActive {
		t.Fatalf("expected Active state after register, got %v", state)
	}
	if m.ConnectionCount() != 1 {
		t.Fatalf("expected connection count 1, got %d", m.ConnectionCount())
	}
}

func TestRegisterConnection_DoubleRegisterDoesNotDoubleIncrement(t *testing.T) {
	m := NewManager()
	id := m.CreateSession("u1")
	m.RegisterConnection(id, &fakeConn{})
	m.RegisterConnection(id, &fakeConn{})
	if m.ConnectionCount() != 1 {
		t.Fatalf("expected connection count to stay 1 after double register, got %d", m.ConnectionCount())
	}
}

func TestRegisterConnection_UnknownSessionFails(t *testing.T) {
	m := NewManager()
	if m.RegisterConnection("bogus", &fakeConn{}) {
		t.Fatal("expected registration against an unknown session to fail")
	}
}

func TestSendStatusUpdate_TearsDownConnectionOnWriteFailure(t *testing.T) {
	m := NewManager()
	id := m.CreateSession("u1")
	conn := &fakeConn{}
	m.RegisterConnection(id, conn)

	conn.failNext = true
	if m.SendStatusUpdate(id, "retrieving context", "") {
		t.Fatal("expected SendStatusUpdate to report failure on write error")
	}
	state, _ := m.State(id)
	if state != StateInactive {
		t.Fatalf("expected Inactive after a failed write, got %v", state)
	}
	if m.ConnectionCount() != 0 {
		t.Fatalf("expected connection count to drop to 0, got %d", m.ConnectionCount())
	}
}

func TestSendStatusUpdate_CarriesErrorStatus(t *testing.T) {
	m := NewManager()
	id := m.CreateSession("u1")
	conn := &fakeConn{}
	m.RegisterConnection(id, conn)

	m.SendStatusUpdate(id, "retrieval failed", "error")
	last := conn.writes[len(conn.writes)-1]
	if last["status"] != "error" || last["message"] != "retrieval failed" {
		t.Fatalf("expected error-status frame, got %v", last)
	}
}

func TestRemoveConnection_RespectsCallerOwnedCloseFlag(t *testing.T) {
	m := NewManager()
	id := m.CreateSession("u1")
	conn := &fakeConn{}
	m.RegisterConnection(id, conn)

	m.RemoveConnection(id, false)
	if conn.closed {
		t.Fatal("expected socket to stay open when the websocket handler owns the close path")
	}

	conn2 := &fakeConn{}
	m.RegisterConnection(id, conn2)
	m.RemoveConnection(id, true)
	if !conn2.closed {
		t.Fatal("expected socket to be closed when the caller does not own the close path")
	}
}

func TestConnectionCount_NeverGoesNegative(t *testing.T) {
	m := NewManager()
	id := m.CreateSession("u1")
	m.RemoveConnection(id, false)
	m.RemoveConnection(id, false)
	if m.ConnectionCount() != 0 {
		t.Fatalf("expected connection count to stay at 0, got %d", m.ConnectionCount())
	}
}

func TestForceSweep_DropsExpiredSessions(t *testing.T) {
	m := NewManager()
	id := m.CreateSession("u1")

	m.mu.Lock()
	m.sessions[id].expiresAt = time.Now().Add(-time.Minute)
	m.mu.Unlock()

	m.ForceSweep()
	if _, ok := m.State(id); ok {
		t.Fatal("expected expired session to be swept")
	}
}
