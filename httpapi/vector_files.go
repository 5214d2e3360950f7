package httpapi

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ghiac/chatforge/apperr"
)

// handleUploadVectorFile implements POST /vector-files/upload: a multipart
// form carrying the file and its owning system_message_id.
func (s *Server) handleUploadVectorFile(c *gin.Context) {
	user := currentUser(c)
	systemMessageID := c.PostForm("system_message_id")
	if systemMessageID == "" {
		writeError(c, apperr.Validation("system_message_id is required"))
		return
	}

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

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	uploaded, err := s.Files.Upload(c.Request.Context(), user.ID, systemMessageID, fileHeader.Filename, mimeType, data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, uploaded)
}

// handleVectorFileOriginal implements GET /vector-files/{id}/original: an
// embed-HTML viewer wrapping the raw bytes served at /serve.
func (s *Server) handleVectorFileOriginal(c *gin.Context) {
	user := currentUser(c)
	fileID := c.Param("id")
	_, mimeType, err := s.Files.GetOriginal(c.Request.Context(), fileID, user.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	html := fmt.Sprintf(`<!DOCTYPE html><html><head><meta charset="utf-8"></head><body style="margin:0">`+
		`<embed src="/api/v1/vector-files/%s/serve" type="%s" style="width:100%%;height:100vh"></body></html>`,
		fileID, mimeType)
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, html)
}

// handleVectorFileServe implements GET /vector-files/{id}/serve: the raw
// bytes with the stored mime type.
func (s *Server) handleVectorFileServe(c *gin.Context) {
	user := currentUser(c)
	data, mimeType, err := s.Files.GetOriginal(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, mimeType, data)
}

// handleVectorFileProcessed implements GET /vector-files/{id}/processed.
func (s *Server) handleVectorFileProcessed(c *gin.Context) {
	user := currentUser(c)
	text, err := s.Files.GetProcessedText(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

// handleDeleteVectorFile implements DELETE /vector-files/{id}: file +
// vectors, reporting each step independently (§8.8).
func (s *Server) handleDeleteVectorFile(c *gin.Context) {
	user := currentUser(c)
	details, err := s.Files.Delete(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// handleListVectorFiles implements GET /vector-files/list/{system_message_id}.
func (s *Server) handleListVectorFiles(c *gin.Context) {
	files, err := s.Store.ListUploadedFiles(c.Request.Context(), c.Param("system_message_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}
