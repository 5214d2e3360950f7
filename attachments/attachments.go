// Package attachments implements the Session-Attachment Handler (C7):
// ephemeral per-user files used to inline extra context into one chat
// turn. Grounded on
// original_source/orchestration/session_attachment_handler.py.
package attachments

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ghiac/chatforge/apperr"
	"github.com/ghiac/chatforge/extractor"
	"github.com/ghiac/chatforge/fsutil"
)

// Saved describes a freshly stored attachment.
type Saved struct {
	AttachmentID string
	Filename     string
	SizeBytes    int64
	MimeType     string
}

// Handler saves, removes and extracts content from session attachments.
// These files are never embedded or persisted as processed artifacts — the
// extractor is the only thing shared with the vector-ingestion path (C5).
type Handler struct {
	Resolver  *fsutil.Resolver
	Extractor *extractor.Client
}

// New wires a Handler.
func New(resolver *fsutil.Resolver, ext *extractor.Client) *Handler {
	return &Handler{Resolver: resolver, Extractor: ext}
}

// Save persists an uploaded attachment at
// {base}/{userID}/session_attachments/{attachmentID}_{safeFilename}.
func (h *Handler) Save(userID, filename string, data []byte) (*Saved, error) {
	attachmentID := uuid.New().String()
	dir, err := h.Resolver.SessionAttachmentsDir(userID)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, fsutil.JoinUnique(attachmentID, filename))
	if err := fsutil.WriteAll(path, data); err != nil {
		return nil, err
	}

	mimeType := mime.TypeByExtension(filepath.Ext(filename))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return &Saved{
		AttachmentID: attachmentID,
		Filename:     filename,
		SizeBytes:    int64(len(data)),
		MimeType:     mimeType,
	}, nil
}

// Remove deletes an attachment's stored file. Returns false (not an error)
// when no file matches attachmentID, mirroring the original's "glob finds
// nothing" not-found path.
func (h *Handler) Remove(userID, attachmentID string) (bool, error) {
	dir, err := h.Resolver.SessionAttachmentsDir(userID)
	if err != nil {
		return false, err
	}
	path, found, err := findAttachment(dir, attachmentID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	if err := fsutil.Remove(path); err != nil {
		return false, err
	}
	return true, nil
}

// GetContent runs the same extractor as C5 against the stored attachment
// but neither embeds it nor writes a processed-text artifact — these files
// stay invisible to semantic retrieval per §4.5.
func (h *Handler) GetContent(ctx context.Context, userID, attachmentID string) (text, filename, mimeType string, err error) {
	dir, err := h.Resolver.SessionAttachmentsDir(userID)
	if err != nil {
		return "", "", "", err
	}
	path, found, err := findAttachment(dir, attachmentID)
	if err != nil {
		return "", "", "", err
	}
	if !found {
		return "", "", "", apperr.NotFound("attachment %s not found for user %s", attachmentID, userID)
	}

	filename = strings.TrimPrefix(filepath.Base(path), attachmentID+"_")
	mimeType = mime.TypeByExtension(filepath.Ext(filename))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	text, _, err = h.Extractor.Extract(ctx, path)
	if err != nil {
		return "", filename, mimeType, err
	}
	return text, filename, mimeType, nil
}

// findAttachment locates the single file in dir named "{attachmentID}_*",
// the Go equivalent of the original's folder.glob(f"{attachment_id}_*").
func findAttachment(dir, attachmentID string) (path string, found bool, err error) {
	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		return "", false, apperr.WrapStoreError(readErr, "list session attachments in %s", dir)
	}
	prefix := attachmentID + "_"
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), prefix) {
			return filepath.Join(dir, entry.Name()), true, nil
		}
	}
	return "", false, nil
}
