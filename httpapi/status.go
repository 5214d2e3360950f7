package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ghiac/chatforge/apperr"
	"github.com/ghiac/chatforge/status"
)

// handleStatusPoll implements the supplement endpoint GET
// /api/v1/status/{session_id}: a polling fallback for callers that cannot
// hold a websocket open, reporting the session's last known lifecycle
// state.
func (s *Server) handleStatusPoll(c *gin.Context) {
	sessionID := c.Param("session_id")
	state, ok := s.Status.State(sessionID)
	if !ok {
		writeError(c, apperr.NotFound("session %s not found", sessionID))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"state":      stateName(state),
	})
}

func stateName(st status.State) string {
	switch st {
	case status.StateCreated:
		return "created"
	case status.StateActive:
		return "active"
	case status.StateInactive:
		return "inactive"
	default:
		return "expired"
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStatusSocket implements WS /ws/chat/status: the caller connects
// with ?session_id=... (a session created beforehand with
// status.Manager.CreateSession) and receives staged progress frames until the turn
// completes or the connection drops. Grounded on the gorilla/websocket
// upgrader + registry pattern used for the channel-fan-out handler in the
// examples pack.
func (s *Server) handleStatusSocket(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id query parameter is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	if !s.Status.RegisterConnection(sessionID, conn) {
		_ = conn.WriteJSON(map[string]any{"type": "status", "status": "error", "message": "unknown session"})
		_ = conn.Close()
		return
	}
	defer conn.Close()
	defer s.Status.RemoveConnection(sessionID, false)

	done := make(chan struct{})
	go pingLoop(s.Status, sessionID, done)
	defer close(done)

	// The connection is otherwise write-only from this handler's point of
	// view (status frames are pushed by the orchestrator's goroutine); block
	// here reading frames only to detect client-initiated close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func pingLoop(mgr *status.Manager, sessionID string, done <-chan struct{}) {
	ticker := time.NewTicker(status.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if !mgr.SendPing(sessionID) {
				return
			}
		case <-done:
			return
		}
	}
}
