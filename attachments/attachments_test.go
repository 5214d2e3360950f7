package attachments

import (
	"context"
	"testing"

	"github.com/ghiac/chatforge/extractor"
	"github.com/ghiac/chatforge/fsutil"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	resolver := fsutil.NewResolver(t.TempDir())
	return New(resolver, extractor.New("", ""))
}

func TestSaveThenGetContent(t *testing.T) {
	h := newTestHandler(t)
	saved, err := h.Save("user-1", "notes.txt", []byte("foo\nbar\nbaz"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	text, filename, _, err := h.GetContent(context.Background(), "user-1", saved.AttachmentID)
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if text != "foo\nbar\nbaz" {
		t.Fatalf("expected round-tripped content, got %q", text)
	}
	if filename != "notes.txt" {
		t.Fatalf("expected original filename preserved, got %q", filename)
	}
}

func TestGetContent_MissingAttachmentIsNotFound(t *testing.T) {
	h := newTestHandler(t)
	if _, _, _, err := h.GetContent(context.Background(), "user-1", "bogus"); err == nil {
		t.Fatal("expected an error for a missing attachment")
	}
}

func TestRemove_ReturnsFalseWhenAbsent(t *testing.T) {
	h := newTestHandler(t)
	removed, err := h.Remove("user-1", "bogus")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed {
		t.Fatal("expected Remove to report false for an unknown attachment")
	}
}

func TestSaveThenRemove(t *testing.T) {
	h := newTestHandler(t)
	saved, err := h.Save("user-1", "a.txt", []byte("x"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	removed, err := h.Remove("user-1", saved.AttachmentID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Fatal("expected Remove to report true")
	}
	if _, _, _, err := h.GetContent(context.Background(), "user-1", saved.AttachmentID); err == nil {
		t.Fatal("expected GetContent to fail after removal")
	}
}
