package vectorstore

import (
	"context"
	"strings"
	"testing"

	"github.com/philippgille/chromem-go"
)

// keywordEmbeddingFunc is a deterministic two-axis embedding: one axis for
// "beta"-bearing text, one for everything else, so cosine similarity scores
// are exactly 1.0 for a match and 0.0 for a miss regardless of chromem-go's
// internal math — good enough to exercise the threshold/ordering logic
// without depending on a live OpenAI embeddings call.
func keywordEmbeddingFunc(_ context.Context, text string) ([]float32, error) {
	if strings.Contains(text, "beta") {
		return []float32{1, 0}, nil
	}
	return []float32{0, 1}, nil
}

func newTestStore(t *testing.T, embeddingFunc chromem.EmbeddingFunc) *EmbeddingStore {
	t.Helper()
	store, err := NewEmbeddingStore(t.TempDir(), "postgres://host/db", embeddingFunc)
	if err != nil {
		t.Fatalf("NewEmbeddingStore: %v", err)
	}
	return store
}

func TestFileProcessor_QueryReturnsNullBelowCutoff(t *testing.T) {
	store := newTestStore(t, keywordEmbeddingFunc)
	proc := NewFileProcessor(store)
	ctx := context.Background()

	if _, err := proc.Ingest(ctx, "sm-1", "file-1", "alpha gamma delta"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	_, ok, err := proc.Query(ctx, "sm-1", "beta")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if ok {
		t.Fatal("expected no hit to clear the 0.70 cutoff")
	}
}

func TestFileProcessor_QueryReturnsFormattedHitAboveCutoff(t *testing.T) {
	store := newTestStore(t, keywordEmbeddingFunc)
	proc := NewFileProcessor(store)
	ctx := context.Background()

	if _, err := proc.Ingest(ctx, "sm-1", "file-1", "alpha beta gamma"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	text, ok, err := proc.Query(ctx, "sm-1", "beta")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit above the cutoff")
	}
	if !strings.Contains(text, "[Source: Document file-1, Relevance: 1.00]") {
		t.Fatalf("expected formatted source marker, got %q", text)
	}
}

func TestFileProcessor_IsolationAcrossSystemMessages(t *testing.T) {
	store := newTestStore(t, keywordEmbeddingFunc)
	proc := NewFileProcessor(store)
	ctx := context.Background()

	proc.Ingest(ctx, "sm-1", "file-1", "beta content for system one")
	proc.Ingest(ctx, "sm-2", "file-2", "unrelated delta content")

	text, ok, err := proc.Query(ctx, "sm-2", "beta")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if ok {
		t.Fatalf("expected sm-2's namespace to never surface sm-1's chunks, got %q", text)
	}
}

func TestChunkText_OverlapsAndCoversInput(t *testing.T) {
	long := strings.Repeat("word ", 2000)
	chunks := ChunkText(long)
	if len(chunks) < 2 {
		t.Fatalf("expected a long input to be split into multiple chunks, got %d", len(chunks))
	}
}
