// Package fsutil resolves the on-disk layout described in the external
// interfaces section: per-user, per-system-message folders for indexed
// artifacts, and a per-user folder for ephemeral session attachments.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ghiac/chatforge/apperr"
)

// Kind names one of the per-system-message subfolders under a user's root.
type Kind string

const (
	Uploads           Kind = "uploads"
	ProcessedTexts    Kind = "processed_texts"
	LLMWhispererOut   Kind = "llmwhisperer_output"
	WebSearchResults  Kind = "web_search_results"
	dirPerm                = 0o755
)

// Resolver resolves and creates paths under BASE_UPLOAD_FOLDER.
type Resolver struct {
	base string
}

func NewResolver(base string) *Resolver {
	return &Resolver{base: base}
}

// SystemMessageDir returns {base}/{userID}/{systemMessageID}/{kind}, creating
// it on demand with 0755 permissions.
func (r *Resolver) SystemMessageDir(userID, systemMessageID string, kind Kind) (string, error) {
	dir := filepath.Join(r.base, userID, systemMessageID, string(kind))
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", apperr.WrapStoreError(err, "create directory %s", dir)
	}
	return dir, nil
}

// SessionAttachmentsDir returns {base}/{userID}/session_attachments,
// creating it on demand.
func (r *Resolver) SessionAttachmentsDir(userID string) (string, error) {
	dir := filepath.Join(r.base, userID, "session_attachments")
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", apperr.WrapStoreError(err, "create directory %s", dir)
	}
	return dir, nil
}

// Exists reports whether path exists on disk.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Remove removes path (file or directory tree); missing paths are not an
// error, matching the "remove if present" semantics used by the deletion
// flows in vectorstore and attachments.
func Remove(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return apperr.WrapStoreError(err, "remove %s", path)
	}
	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeFilename strips path separators and collapses anything that isn't
// alphanumeric, dot, underscore or hyphen into a single hyphen, guarding
// against path traversal when a filename is embedded into a storage path.
func SafeFilename(name string) string {
	name = filepath.Base(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	if name == "" {
		name = "file"
	}
	return name
}

// ReadAll reads the full contents of path, wrapping errors as StoreError.
func ReadAll(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.WrapStoreError(err, "read %s", path)
	}
	return data, nil
}

// WriteAll writes data to path, creating parent directories as needed.
func WriteAll(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return apperr.WrapStoreError(err, "create directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperr.WrapStoreError(err, "write %s", path)
	}
	return nil
}

// JoinUnique builds "{id}_{safeFilename}" the way session attachments and
// uploaded vector files both name their stored artifacts.
func JoinUnique(id, filename string) string {
	return fmt.Sprintf("%s_%s", id, SafeFilename(filename))
}
