// file_manager.go implements the VectorDB File Manager (C6): upload
// ingestion, serving original/processed bytes, and file + vector deletion.
// Grounded on original_source/orchestration/vectordb_file_manager.py.
package vectorstore

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ghiac/chatforge/apperr"
	"github.com/ghiac/chatforge/convstore"
	"github.com/ghiac/chatforge/extractor"
	"github.com/ghiac/chatforge/fsutil"
	"github.com/ghiac/chatforge/log"
)

// EmbeddingDimensions is text-embedding-3-small's native vector width, used
// to build the zero-vector deletion query.
const EmbeddingDimensions = 1536

// DeletionScanTopK is the large top_k used for the zero-vector
// query-then-filter deletion scan (§4.4): the underlying store may not
// support metadata-filter deletes, so every chunk in the namespace is
// fetched and filtered client-side by file_id.
const DeletionScanTopK = 10000

// FileManager handles upload ingestion and lifecycle for UploadedFiles:
// persisting bytes, extracting, chunking/embedding via FileProcessor, and
// deleting a file plus every chunk it contributed to the namespace.
type FileManager struct {
	Store     convstore.Store
	Resolver  *fsutil.Resolver
	Extractor *extractor.Client
	Processor *FileProcessor
}

// NewFileManager wires the collaborators the upload/delete flows need.
func NewFileManager(store convstore.Store, resolver *fsutil.Resolver, ext *extractor.Client, processor *FileProcessor) *FileManager {
	return &FileManager{Store: store, Resolver: resolver, Extractor: ext, Processor: processor}
}

// Upload persists data under {base}/{userID}/{systemMessageID}/uploads/,
// extracts its text (PDF via the document extractor, else a plain read),
// chunks and embeds it into the system message's namespace, saves the
// processed text artifact, and inserts the UploadedFile row — the ingest
// pipeline of §4.4 step by step.
func (m *FileManager) Upload(ctx context.Context, userID, systemMessageID, originalFilename, mimeType string, data []byte) (*convstore.UploadedFile, error) {
	fileID := uuid.New().String()

	uploadsDir, err := m.Resolver.SystemMessageDir(userID, systemMessageID, fsutil.Uploads)
	if err != nil {
		return nil, err
	}
	storedPath := filepath.Join(uploadsDir, fsutil.JoinUnique(fileID, originalFilename))
	if err := fsutil.WriteAll(storedPath, data); err != nil {
		return nil, err
	}

	text, _, err := m.Extractor.Extract(ctx, storedPath)
	if err != nil {
		return nil, err
	}

	if _, err := m.Processor.Ingest(ctx, systemMessageID, fileID, text); err != nil {
		return nil, err
	}

	processedDir, err := m.Resolver.SystemMessageDir(userID, systemMessageID, fsutil.ProcessedTexts)
	if err != nil {
		return nil, err
	}
	processedPath := filepath.Join(processedDir, fmt.Sprintf("%s_processed.txt", fileID))
	if err := fsutil.WriteAll(processedPath, []byte(text)); err != nil {
		return nil, err
	}

	file := &convstore.UploadedFile{
		ID:                fileID,
		SystemMessageID:   systemMessageID,
		OwnerID:           userID,
		Filename:          originalFilename,
		StoredPath:        storedPath,
		ProcessedTextPath: processedPath,
		MimeType:          mimeType,
		SizeBytes:         int64(len(data)),
		CreatedAt:         time.Now(),
	}
	if err := m.Store.CreateUploadedFile(ctx, file); err != nil {
		return nil, err
	}
	return file, nil
}

// GetOriginal returns the raw stored bytes and mime type for a file the
// caller owns.
func (m *FileManager) GetOriginal(ctx context.Context, fileID, userID string) ([]byte, string, error) {
	file, err := m.authorizedFile(ctx, fileID, userID)
	if err != nil {
		return nil, "", err
	}
	data, err := fsutil.ReadAll(file.StoredPath)
	if err != nil {
		return nil, "", apperr.WrapNotFound(err, "file %s not found on disk", fileID)
	}
	return data, file.MimeType, nil
}

// GetProcessedText returns the saved extracted text for a file the caller
// owns.
func (m *FileManager) GetProcessedText(ctx context.Context, fileID, userID string) (string, error) {
	file, err := m.authorizedFile(ctx, fileID, userID)
	if err != nil {
		return "", err
	}
	if file.ProcessedTextPath == "" || !fsutil.Exists(file.ProcessedTextPath) {
		return "", apperr.NotFound("processed text not available for file %s", fileID)
	}
	data, err := fsutil.ReadAll(file.ProcessedTextPath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (m *FileManager) authorizedFile(ctx context.Context, fileID, userID string) (*convstore.UploadedFile, error) {
	file, err := m.Store.GetUploadedFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != userID {
		return nil, apperr.AuthZ("user %s may not access file %s", userID, fileID)
	}
	return file, nil
}

// DeletionDetails reports the outcome of each step of Delete, per the
// testable-property requirement (§8.8) that (a) vector, (b) on-disk, and
// (c) database-row deletion are each reported independently.
type DeletionDetails struct {
	VectorsDeleted       bool
	OriginalFileDeleted  bool
	ProcessedFileDeleted bool
	DatabaseEntryDeleted bool
}

// Delete removes an UploadedFile's chunks from its namespace, its original
// and processed-text files on disk, and finally its database row — in that
// order, so a partial failure can be reported per step and the DB row is
// only dropped once everything else that could fail has been attempted.
func (m *FileManager) Delete(ctx context.Context, fileID, userID string) (DeletionDetails, error) {
	var details DeletionDetails

	file, err := m.authorizedFile(ctx, fileID, userID)
	if err != nil {
		return details, err
	}

	deleted, err := m.Processor.DeleteVectorsForFile(ctx, file.SystemMessageID, fileID)
	if err != nil {
		log.Log.Errorf("vectorstore: error deleting vectors for file %s: %v", fileID, err)
	} else {
		details.VectorsDeleted = deleted
	}

	if fsutil.Exists(file.StoredPath) {
		if err := fsutil.Remove(file.StoredPath); err != nil {
			log.Log.Errorf("vectorstore: error deleting original file %s: %v", fileID, err)
		} else {
			details.OriginalFileDeleted = true
		}
	}

	if file.ProcessedTextPath != "" && fsutil.Exists(file.ProcessedTextPath) {
		if err := fsutil.Remove(file.ProcessedTextPath); err != nil {
			log.Log.Errorf("vectorstore: error deleting processed text for file %s: %v", fileID, err)
		} else {
			details.ProcessedFileDeleted = true
		}
	}

	if err := m.Store.DeleteUploadedFile(ctx, fileID); err != nil {
		return details, apperr.WrapStoreError(err, "delete database entry for file %s", fileID)
	}
	details.DatabaseEntryDeleted = true

	return details, nil
}

// DeleteVectorsForFile implements the zero-vector-query-then-filter-then-
// batch-delete sequence of §4.4: query the namespace with a zero vector and
// a large top_k, include metadata, client-side filter by file_id, then
// delete by the resulting id list. Preserved bit-for-bit rather than
// swapped for a direct metadata-filtered delete, per spec.md §4.4 naming
// this exact sequence as a testable property.
func (p *FileProcessor) DeleteVectorsForFile(ctx context.Context, systemMessageID, fileID string) (bool, error) {
	collection, err := p.Store.Collection(systemMessageID)
	if err != nil {
		return false, err
	}
	if collection.Count() == 0 {
		return false, nil
	}

	zeroVector := make([]float32, EmbeddingDimensions)
	topK := DeletionScanTopK
	if topK > collection.Count() {
		topK = collection.Count()
	}

	results, err := collection.QueryEmbedding(ctx, zeroVector, topK, nil, nil)
	if err != nil {
		return false, apperr.WrapStoreError(err, "scan namespace for file %s", fileID)
	}

	var ids []string
	for _, r := range results {
		if r.Metadata["file_id"] == fileID {
			ids = append(ids, r.ID)
		}
	}
	if len(ids) == 0 {
		return false, nil
	}

	if err := collection.Delete(ctx, nil, nil, ids...); err != nil {
		return false, apperr.WrapStoreError(err, "delete %d vectors for file %s", len(ids), fileID)
	}
	return true, nil
}
