package vectorstore

import (
	"sync"

	"github.com/ghiac/chatforge/apperr"
	"github.com/philippgille/chromem-go"
)

// EmbeddingStore opens one chromem-go collection per system message,
// keyed by the namespace formula, mirroring the original's
// Pinecone-index-plus-namespace split with a single embedded database file
// in place of a managed index.
type EmbeddingStore struct {
	db                 *chromem.DB
	embeddingFunc      chromem.EmbeddingFunc
	databaseIdentifier string

	mu          sync.Mutex
	collections map[string]*chromem.Collection
}

// NewEmbeddingStore opens (creating if absent) a persistent chromem-go
// database at path, deriving the deployment-wide database identifier from
// databaseURL.
func NewEmbeddingStore(path, databaseURL string, embeddingFunc chromem.EmbeddingFunc) (*EmbeddingStore, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, apperr.WrapStoreError(err, "open vector database at %s", path)
	}
	return &EmbeddingStore{
		db:                 db,
		embeddingFunc:      embeddingFunc,
		databaseIdentifier: DatabaseIdentifier(databaseURL),
		collections:        make(map[string]*chromem.Collection),
	}, nil
}

// NamespaceFor returns the stable namespace/collection name for a system
// message.
func (s *EmbeddingStore) NamespaceFor(systemMessageID string) string {
	return Namespace(systemMessageID, s.databaseIdentifier)
}

// Collection returns (creating if absent) the collection for a system
// message.
func (s *EmbeddingStore) Collection(systemMessageID string) (*chromem.Collection, error) {
	namespace := s.NamespaceFor(systemMessageID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[namespace]; ok {
		return c, nil
	}

	c, err := s.db.GetOrCreateCollection(namespace, nil, s.embeddingFunc)
	if err != nil {
		return nil, apperr.WrapStoreError(err, "get or create collection %s", namespace)
	}
	s.collections[namespace] = c
	return c, nil
}

// Count reports how many chunks are indexed for a system message, without
// creating the collection if it doesn't exist yet.
func (s *EmbeddingStore) Count(systemMessageID string) int {
	namespace := s.NamespaceFor(systemMessageID)
	s.mu.Lock()
	c, ok := s.collections[namespace]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	return c.Count()
}
