package httpapi

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ghiac/chatforge/apperr"
	"github.com/ghiac/chatforge/llmrouter"
	"github.com/ghiac/chatforge/providers"
)

// handleUploadAttachment implements POST /session-attachments/upload: save
// the file, extract it immediately, and hand back the extracted text so the
// caller can inline it on the next chat turn (§4.5).
func (s *Server) handleUploadAttachment(c *gin.Context) {
	user := currentUser(c)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		writeError(c, apperr.Validation("file is required: %v", err))
		return
	}
	opened, err := fileHeader.Open()
	if err != nil {
		writeError(c, apperr.Validation("could not open uploaded file: %v", err))
		return
	}
	defer opened.Close()

	data, err := io.ReadAll(opened)
	if err != nil {
		writeError(c, apperr.Validation("could not read uploaded file: %v", err))
		return
	}

	start := time.Now()
	saved, err := s.Attachments.Save(user.ID, fileHeader.Filename, data)
	if err != nil {
		writeError(c, err)
		return
	}

	text, _, _, err := s.Attachments.GetContent(c.Request.Context(), user.ID, saved.AttachmentID)
	if err != nil {
		writeError(c, err)
		return
	}
	tokenCount := llmrouter.CountTokens("gpt-", []providers.Message{{Content: text}})

	c.JSON(http.StatusOK, gin.H{
		"attachmentId":   saved.AttachmentID,
		"extractedText":  text,
		"tokenCount":     tokenCount,
		"processingTime": time.Since(start).Seconds(),
	})
}

// handleRemoveAttachment implements DELETE /session-attachments/{id}/remove.
func (s *Server) handleRemoveAttachment(c *gin.Context) {
	user := currentUser(c)
	removed, err := s.Attachments.Remove(user.ID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
