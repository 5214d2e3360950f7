package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ghiac/chatforge/apperr"
	"github.com/ghiac/chatforge/orchestrator"
	"github.com/ghiac/chatforge/providers"
)

const sessionIDHeader = "X-Session-ID"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages         []chatMessage `json:"messages"`
	Model            string        `json:"model"`
	Temperature      float32       `json:"temperature"`
	SystemMessageID  string        `json:"systemMessageId"`
	ConversationID   string        `json:"conversationId"`
	EnableWebSearch  bool          `json:"enableWebSearch"`
	EnableDeepSearch bool          `json:"enableDeepSearch"`
	UserTimezone     string        `json:"userTimezone"`
	ExtendedThinking bool          `json:"extendedThinking"`
	ThinkingBudget   int           `json:"thinkingBudget"`
	AttachmentIDs    []string      `json:"attachmentIds"`
	ReasoningEffort  string        `json:"reasoningEffort"`
}

// handleChat implements POST /api/v1/chat: one turn through the
// orchestrator. X-Session-ID is optional; an empty value starts a fresh
// status session (§6).
func (s *Server) handleChat(c *gin.Context) {
	user := currentUser(c)
	var body chatRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, apperr.Validation("invalid request body: %v", err))
		return
	}
	if body.Model == "" || len(body.Messages) == 0 {
		writeError(c, apperr.Validation("model and messages are required"))
		return
	}

	messages := make([]providers.Message, len(body.Messages))
	for i, m := range body.Messages {
		messages[i] = providers.Message{Role: m.Role, Content: m.Content}
	}

	req := orchestrator.Request{
		Messages:         messages,
		Model:            body.Model,
		Temperature:      body.Temperature,
		SystemMessageID:  body.SystemMessageID,
		EnableWebSearch:  body.EnableWebSearch,
		EnableDeepSearch: body.EnableDeepSearch,
		ConversationID:   body.ConversationID,
		UserTimezone:     body.UserTimezone,
		ExtendedThinking: body.ExtendedThinking,
		ThinkingBudget:   body.ThinkingBudget,
		AttachmentIDs:    body.AttachmentIDs,
		ReasoningEffort:  body.ReasoningEffort,
	}

	resp, err := s.Orchestrator.Run(c.Request.Context(), req, user, c.GetHeader(sessionIDHeader))
	if err != nil {
		if apperr.Is(err, apperr.KindValidation) || apperr.Is(err, apperr.KindNotFound) || apperr.Is(err, apperr.KindAuthZ) {
			writeError(c, err)
			return
		}
		// Provider/store failures mid-turn are turn-fatal: the pipeline has
		// already rolled back any partial write, so the caller gets a fixed
		// message rather than internal error text (§7).
		writeInternalError(c)
		return
	}
	c.JSON(http.StatusOK, resp)
}
