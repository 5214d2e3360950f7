// Package status implements the Status Session Manager (C8): a session
// registry with websocket fan-out that streams staged progress updates for
// an in-flight chat turn, with ping/keepalive, TTL and graceful cleanup.
package status

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PingInterval is how often the websocket handler should send keepalive
// pings on a registered connection.
const PingInterval = 30 * time.Second

// SessionTimeout is the TTL from last update; a session past this age is
// swept.
const SessionTimeout = time.Hour

// CleanupInterval throttles the opportunistic sweep to at most once per
// this duration.
const CleanupInterval = 5 * time.Minute

// State is one of the four lifecycle states a session passes through.
type State int

const (
	StateCreated State = iota
	StateActive
	StateInactive
	StateExpired
)

// Conn is the subset of *websocket.Conn the manager needs, narrow enough
// that tests can fake it without opening a real socket.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// session is the manager's private record for one session_id. Fields are
// guarded by Manager.mu except writeMu, which serializes frame writes for
// this session independently of the registry lock (mirrors model/session.go's
// per-entity mutex alongside the flattened-struct style).
type session struct {
	userID      string
	sessionID   string
	lastMessage string
	lastUpdated time.Time
	expiresAt   time.Time
	conn        Conn
	active      bool

	writeMu sync.Mutex
}

func (s *session) state() State {
	switch {
	case time.Now().After(s.expiresAt):
		return StateExpired
	case s.active:
		return StateActive
	case s.conn == nil && s.lastMessage == "Session initialized":
		return StateCreated
	default:
		return StateInactive
	}
}

// Manager is the process-wide session registry. A single lock serializes
// connection-count bookkeeping and the cleanup sweep; each session carries
// its own write lock so frame writes never interleave.
type Manager struct {
	mu            sync.Mutex
	sessions      map[string]*session
	connectionCnt int
	lastCleanup   time.Time
}

// NewManager creates an empty session registry.
func NewManager() *Manager {
	return &Manager{
		sessions:    make(map[string]*session),
		lastCleanup: time.Now(),
	}
}

// CreateSession registers a new session for userID and returns its ID,
// formatted "{user_id}-{uuid}" per §3.
func (m *Manager) CreateSession(userID string) string {
	sessionID := fmt.Sprintf("%s-%s", userID, uuid.New().String())
	now := time.Now()

	m.mu.Lock()
	m.sessions[sessionID] = &session{
		userID:      userID,
		sessionID:   sessionID,
		lastMessage: "Session initialized",
		lastUpdated: now,
		expiresAt:   now.Add(SessionTimeout),
	}
	m.sweepLocked()
	m.mu.Unlock()

	return sessionID
}

// RegisterConnection attaches ws to a pre-created session, sending the
// initial "connected" frame. Returns false if the session does not exist
// or the initial frame could not be sent. Registering a session that is
// already active does not double-increment the connection count.
func (m *Manager) RegisterConnection(sessionID string, ws Conn) bool {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	if !s.active {
		m.connectionCnt++
	}
	s.conn = ws
	s.active = true
	s.lastMessage = "Connected to status updates"
	s.lastUpdated = time.Now()
	s.expiresAt = s.lastUpdated.Add(SessionTimeout)
	m.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := ws.WriteJSON(map[string]any{
		"type":       "status",
		"status":     "connected",
		"session_id": sessionID,
	}); err != nil {
		return false
	}
	return true
}

// SendStatusUpdate pushes a staged progress frame to session_id. If the
// write fails the connection is torn down and false is returned; the
// websocket itself otherwise stays open on stage-local failures (§7).
func (m *Manager) SendStatusUpdate(sessionID, message string, errStatus string) bool {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok || !s.active {
		m.mu.Unlock()
		return false
	}
	s.lastMessage = message
	s.lastUpdated = time.Now()
	s.expiresAt = s.lastUpdated.Add(SessionTimeout)
	conn := s.conn
	m.mu.Unlock()

	if conn == nil {
		return false
	}

	frame := map[string]any{
		"type":      "status",
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"id":        uuid.New().String(),
	}
	if errStatus != "" {
		frame["status"] = errStatus
	}

	s.writeMu.Lock()
	err := conn.WriteJSON(frame)
	s.writeMu.Unlock()
	if err != nil {
		m.RemoveConnection(sessionID, false)
		return false
	}
	return true
}

// SendPing sends a keepalive ping frame, tearing the connection down on
// failure the same way SendStatusUpdate does.
func (m *Manager) SendPing(sessionID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok || !s.active {
		m.mu.Unlock()
		return false
	}
	conn := s.conn
	m.mu.Unlock()

	if conn == nil {
		return false
	}

	s.writeMu.Lock()
	err := conn.WriteJSON(map[string]any{
		"type":      "ping",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
	s.writeMu.Unlock()
	if err != nil {
		m.RemoveConnection(sessionID, false)
		return false
	}
	return true
}

// RemoveConnection marks a session inactive, drops its connection reference
// (the per-session write lock is left as is), and decrements the connection
// counter at most once. closeConn
// controls whether the underlying socket is closed here: pass false when
// the caller is the websocket handler itself, since it owns its own close
// path (mirrors the original's inspect.currentframe caller check, expressed
// as an explicit parameter instead of stack introspection).
func (m *Manager) RemoveConnection(sessionID string, closeConn bool) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return
	}
	wasActive := s.active
	conn := s.conn
	if wasActive {
		m.connectionCnt--
		if m.connectionCnt < 0 {
			m.connectionCnt = 0
		}
	}
	s.active = false
	s.conn = nil
	m.mu.Unlock()

	if closeConn && conn != nil {
		_ = conn.Close()
	}
}

// ConnectionCount reports the number of sessions with an active connection.
func (m *Manager) ConnectionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectionCnt
}

// State reports the lifecycle state of a session, or StateExpired with ok
// false if it is not known to the registry.
func (m *Manager) State(sessionID string) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return StateExpired, false
	}
	return s.state(), true
}

// Sweep drops any session past its expiry, throttled to at most once per
// CleanupInterval, the same throttled sweep CreateSession runs implicitly.
// ForceSweep is the unthrottled variant.
func (m *Manager) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
}

// ForceSweep bypasses the CleanupInterval throttle. The scheduler package
// calls it on every tick, and tests call it directly.
func (m *Manager) ForceSweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, s := range m.sessions {
		if now.After(s.expiresAt) {
			if s.active {
				m.connectionCnt--
				if m.connectionCnt < 0 {
					m.connectionCnt = 0
				}
			}
			delete(m.sessions, id)
		}
	}
	m.lastCleanup = now
}

func (m *Manager) sweepLocked() {
	now := time.Now()
	if now.Sub(m.lastCleanup) < CleanupInterval {
		return
	}
	for id, s := range m.sessions {
		if now.After(s.expiresAt) {
			if s.active {
				m.connectionCnt--
				if m.connectionCnt < 0 {
					m.connectionCnt = 0
				}
			}
			delete(m.sessions, id)
		}
	}
	m.lastCleanup = now
}
