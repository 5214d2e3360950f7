package vectorstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ghiac/chatforge/convstore"
	"github.com/ghiac/chatforge/extractor"
	"github.com/ghiac/chatforge/fsutil"
)

func newTestFileManager(t *testing.T) (*FileManager, *FileProcessor) {
	t.Helper()
	store := newTestStore(t, keywordEmbeddingFunc)
	proc := NewFileProcessor(store)
	resolver := fsutil.NewResolver(t.TempDir())
	ext := extractor.New("", "")
	mgr := NewFileManager(convstore.NewMemoryStore(), resolver, ext, proc)
	return mgr, proc
}

func TestFileManager_UploadThenQueryThenDelete(t *testing.T) {
	ctx := context.Background()
	mgr, proc := newTestFileManager(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(src, []byte("alpha beta gamma"), 0o644); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(src)

	file, err := mgr.Upload(ctx, "user-1", "sm-1", "notes.txt", "text/plain", data)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	_, ok, err := proc.Query(ctx, "sm-1", "beta")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !ok {
		t.Fatal("expected the uploaded content to be retrievable above the cutoff")
	}

	text, err := mgr.GetProcessedText(ctx, file.ID, "user-1")
	if err != nil {
		t.Fatalf("GetProcessedText: %v", err)
	}
	if text != "alpha beta gamma" {
		t.Fatalf("expected processed text round-trip, got %q", text)
	}

	details, err := mgr.Delete(ctx, file.ID, "user-1")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !details.OriginalFileDeleted || !details.ProcessedFileDeleted || !details.DatabaseEntryDeleted {
		t.Fatalf("expected every deletion step to report success, got %+v", details)
	}

	if _, err := mgr.Store.GetUploadedFile(ctx, file.ID); err == nil {
		t.Fatal("expected the database row to be gone after Delete")
	}
}

func TestFileManager_GetOriginalRejectsOtherUsers(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestFileManager(t)

	file, err := mgr.Upload(ctx, "user-1", "sm-1", "notes.txt", "text/plain", []byte("alpha beta"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if _, _, err := mgr.GetOriginal(ctx, file.ID, "user-2"); err == nil {
		t.Fatal("expected cross-user access to fail")
	}
}
