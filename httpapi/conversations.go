package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ghiac/chatforge/apperr"
	"github.com/ghiac/chatforge/convstore"
)

// handleListConversations implements GET /conversations: a paginated list
// scoped to the caller.
func (s *Server) handleListConversations(c *gin.Context) {
	user := currentUser(c)
	page, perPage := paginationParams(c)

	conversations, total, err := s.Store.ListConversations(c.Request.Context(), user.ID, page, perPage)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{
		"conversations": conversations,
		"page":          page,
		"per_page":      perPage,
		"total":         total,
	})
}

// handleGetConversation implements GET /conversations/{id}: the full
// conversation plus the per-turn side data already carried on the record.
func (s *Server) handleGetConversation(c *gin.Context) {
	user := currentUser(c)
	conv, err := s.Store.GetConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if conv.UserID != user.ID && !user.IsAdmin {
		writeError(c, apperr.AuthZ("user %s may not access conversation %s", user.ID, conv.ID))
		return
	}
	c.JSON(200, conv)
}

type updateTitleRequest struct {
	Title string `json:"title"`
}

// handleUpdateTitle implements POST /conversations/{id}/update_title.
func (s *Server) handleUpdateTitle(c *gin.Context) {
	user := currentUser(c)
	var req updateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("invalid request body: %v", err))
		return
	}

	conv, err := s.Store.GetConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if conv.UserID != user.ID && !user.IsAdmin {
		writeError(c, apperr.AuthZ("user %s may not access conversation %s", user.ID, conv.ID))
		return
	}

	conv.Title = req.Title
	conv.UpdatedAt = time.Now().UTC()
	if err := s.Store.UpdateConversation(c.Request.Context(), conv); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, conv)
}

// handleDeleteConversation implements DELETE /conversations/{id}.
func (s *Server) handleDeleteConversation(c *gin.Context) {
	user := currentUser(c)
	conv, err := s.Store.GetConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if conv.UserID != user.ID && !user.IsAdmin {
		writeError(c, apperr.AuthZ("user %s may not access conversation %s", user.ID, conv.ID))
		return
	}
	if err := s.Store.DeleteConversation(c.Request.Context(), conv.ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"deleted": true})
}

type createFolderRequest struct {
	Name string `json:"name"`
}

// handleCreateFolder implements POST /conversations/folders.
func (s *Server) handleCreateFolder(c *gin.Context) {
	user := currentUser(c)
	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation("invalid request body: %v", err))
		return
	}
	if req.Name == "" {
		writeError(c, apperr.Validation("folder name is required"))
		return
	}

	now := time.Now().UTC()
	folder := &convstore.Folder{UserID: user.ID, Name: req.Name, CreatedAt: now, UpdatedAt: now}
	if err := s.Store.CreateFolder(c.Request.Context(), folder); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, folder)
}

// handleListFolders implements GET /conversations/folders.
func (s *Server) handleListFolders(c *gin.Context) {
	user := currentUser(c)
	folders, err := s.Store.ListFolders(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"folders": folders})
}

// handleDeleteFolder implements DELETE /conversations/folders/{id}.
func (s *Server) handleDeleteFolder(c *gin.Context) {
	if err := s.Store.DeleteFolder(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"deleted": true})
}
