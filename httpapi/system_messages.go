package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ghiac/chatforge/apperr"
	"github.com/ghiac/chatforge/convstore"
)

type createSystemMessageRequest struct {
	Name             string `json:"name"`
	Content          string `json:"content"`
	EnableTimeSense  bool   `json:"enableTimeSense"`
	EnableWebSearch  bool   `json:"enableWebSearch"`
	EnableDeepSearch bool   `json:"enableDeepSearch"`
}

// handleCreateSystemMessage implements POST /system_messages: the caller is
// always the owner (§6).
func (s *Server) handleCreateSystemMessage(c *gin.Context) {
	user := currentUser(c)
	var req createSystemMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("invalid request body: %v", err))
		return
	}
	if req.Name == "" {
		writeError(c, apperr.Validation("system message name is required"))
		return
	}

	now := time.Now().UTC()
	sm := &convstore.SystemMessage{
		OwnerID:          user.ID,
		Name:             req.Name,
		Content:          req.Content,
		EnableTimeSense:  req.EnableTimeSense,
		EnableWebSearch:  req.EnableWebSearch,
		EnableDeepSearch: req.EnableDeepSearch,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Store.CreateSystemMessage(c.Request.Context(), sm); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, sm)
}

// handleListSystemMessages implements GET /system_messages[?show_all=true]:
// an admin may request every tenant's system messages, otherwise the list is
// scoped to the caller.
func (s *Server) handleListSystemMessages(c *gin.Context) {
	user := currentUser(c)
	showAll := c.Query("show_all") == "true" && user.IsAdmin

	messages, err := s.Store.ListSystemMessages(c.Request.Context(), user.ID, showAll)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"system_messages": messages})
}

func (s *Server) ownedSystemMessage(c *gin.Context, id string) (*convstore.SystemMessage, error) {
	user := currentUser(c)
	sm, err := s.Store.GetSystemMessage(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if sm.OwnerID != user.ID && !user.IsAdmin {
		return nil, apperr.AuthZ("user %s may not access system message %s", user.ID, sm.ID)
	}
	return sm, nil
}

// handleGetSystemMessage implements GET /system_messages/{id}.
func (s *Server) handleGetSystemMessage(c *gin.Context) {
	sm, err := s.ownedSystemMessage(c, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, sm)
}

type updateSystemMessageRequest struct {
	Name             string `json:"name"`
	Content          string `json:"content"`
	EnableTimeSense  bool   `json:"enableTimeSense"`
	EnableWebSearch  bool   `json:"enableWebSearch"`
	EnableDeepSearch bool   `json:"enableDeepSearch"`
}

// handleUpdateSystemMessage implements PUT /system_messages/{id}.
func (s *Server) handleUpdateSystemMessage(c *gin.Context) {
	sm, err := s.ownedSystemMessage(c, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	var req updateSystemMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	sm.Name = req.Name
	sm.Content = req.Content
	sm.EnableTimeSense = req.EnableTimeSense
	sm.EnableWebSearch = req.EnableWebSearch
	sm.EnableDeepSearch = req.EnableDeepSearch
	sm.UpdatedAt = time.Now().UTC()
	if err := s.Store.UpdateSystemMessage(c.Request.Context(), sm); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, sm)
}

// handleDeleteSystemMessage implements DELETE /system_messages/{id}: delete
// is blocked on the always-present default (§3's invariant).
func (s *Server) handleDeleteSystemMessage(c *gin.Context) {
	sm, err := s.ownedSystemMessage(c, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if sm.IsDefault {
		writeError(c, apperr.Validation("the default system message cannot be deleted"))
		return
	}
	if err := s.Store.DeleteWebsitesBySystemMessage(c.Request.Context(), sm.ID); err != nil {
		writeError(c, err)
		return
	}
	if err := s.Store.DeleteSystemMessage(c.Request.Context(), sm.ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"deleted": true})
}

type toggleSearchRequest struct {
	EnableWebSearch  bool `json:"enableWebSearch"`
	EnableDeepSearch bool `json:"enableDeepSearch"`
}

// handleToggleSearch implements POST /system_messages/{id}/toggle-search.
func (s *Server) handleToggleSearch(c *gin.Context) {
	sm, err := s.ownedSystemMessage(c, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	var req toggleSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	sm.EnableWebSearch = req.EnableWebSearch
	sm.EnableDeepSearch = req.EnableDeepSearch
	sm.UpdatedAt = time.Now().UTC()
	if err := s.Store.UpdateSystemMessage(c.Request.Context(), sm); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, sm)
}
