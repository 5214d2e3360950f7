// file_processor.go implements the File Processor (C5): ingest a file's
// extracted text into its system message's namespace, and answer
// similarity-gated semantic queries against it. Grounded on
// original_source/file_processing.py's FileProcessor/perform_semantic_search.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"

	"github.com/ghiac/chatforge/apperr"
	"github.com/ghiac/chatforge/log"
)

// DefaultTopK and DefaultScoreCutoff are the retriever parameters named in
// §4.4 — kept as package constants per Open Question (b) rather than
// per-SystemMessage settings.
const (
	DefaultTopK        = 5
	DefaultScoreCutoff = 0.70
)

// FileProcessor ingests uploaded documents into an EmbeddingStore and
// answers retrieval queries against them.
type FileProcessor struct {
	Store *EmbeddingStore
}

// NewFileProcessor wires a FileProcessor to store.
func NewFileProcessor(store *EmbeddingStore) *FileProcessor {
	return &FileProcessor{Store: store}
}

// Ingest chunks text (fixed-size splitter, ChunkSize/ChunkOverlap) and
// upserts every chunk into systemMessageID's namespace, carrying fileID as
// string metadata on each chunk as required by §3's VectorChunk invariant.
func (p *FileProcessor) Ingest(ctx context.Context, systemMessageID, fileID, text string) (chunkCount int, err error) {
	chunks := ChunkText(text)
	if len(chunks) == 0 {
		return 0, nil
	}

	collection, err := p.Store.Collection(systemMessageID)
	if err != nil {
		return 0, err
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:      fmt.Sprintf("%s_%d", fileID, i),
			Content: chunk,
			Metadata: map[string]string{
				"file_id": fileID,
			},
		}
	}

	const ingestConcurrency = 4
	if err := collection.AddDocuments(ctx, docs, ingestConcurrency); err != nil {
		return 0, apperr.WrapStoreError(err, "upsert %d chunks for file %s", len(docs), fileID)
	}
	log.Log.Infof("vectorstore: ingested %d chunks for file %s into namespace %s", len(docs), fileID, p.Store.NamespaceFor(systemMessageID))
	return len(docs), nil
}

// Query runs the similarity-gated retrieval of §4.4: top_k=5, cutoff 0.70,
// each surviving hit formatted as
//
//	[Source: Document {file_id}, Relevance: {score:.2f}]
//	{chunk_text}
//
// joined by "\n\n---\n\n". Returns ok=false ("null") when nothing clears
// the cutoff. A store-level failure is reported as (_, false, err); callers
// in the orchestrator treat that as "no relevant context" per §7.
func (p *FileProcessor) Query(ctx context.Context, systemMessageID, queryText string) (string, bool, error) {
	collection, err := p.Store.Collection(systemMessageID)
	if err != nil {
		return "", false, err
	}
	if collection.Count() == 0 {
		return "", false, nil
	}

	topK := DefaultTopK
	if topK > collection.Count() {
		topK = collection.Count()
	}

	results, err := collection.Query(ctx, queryText, topK, nil, nil)
	if err != nil {
		return "", false, apperr.WrapStoreError(err, "query namespace for system message %s", systemMessageID)
	}

	var formatted []string
	for _, r := range results {
		if r.Similarity < DefaultScoreCutoff {
			continue
		}
		fileID := r.Metadata["file_id"]
		if fileID == "" {
			fileID = "unknown"
		}
		formatted = append(formatted, fmt.Sprintf("[Source: Document %s, Relevance: %.2f]\n%s", fileID, r.Similarity, r.Content))
	}

	if len(formatted) == 0 {
		return "", false, nil
	}
	return joinWithSeparator(formatted), true, nil
}

func joinWithSeparator(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "\n\n---\n\n" + p
	}
	return out
}
