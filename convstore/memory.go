package convstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ghiac/chatforge/apperr"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store implementation, used by the test
// suites. cmd/chatforge does not select it for any DATABASE_URL.
type MemoryStore struct {
	mu             sync.RWMutex
	conversations  map[string]*Conversation
	systemMessages map[string]*SystemMessage
	folders        map[string]*Folder
	files          map[string]*UploadedFile
	websites       map[string]*Website
	users          map[string]*User
}

// NewMemoryStore creates an empty MemoryStore seeded with the mandatory
// default SystemMessage (§3 invariant).
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		conversations:  make(map[string]*Conversation),
		systemMessages: make(map[string]*SystemMessage),
		folders:        make(map[string]*Folder),
		files:          make(map[string]*UploadedFile),
		websites:       make(map[string]*Website),
		users:          make(map[string]*User),
	}
	def := newDefaultSystemMessage()
	s.systemMessages[def.ID] = def
	return s
}

func (s *MemoryStore) Close() error { return nil }

// PutUser registers a user for tests; not part of the Store interface
// because user provisioning is out of scope (§1).
func (s *MemoryStore) PutUser(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user %s not found", id)
	}
	return u, nil
}

func (s *MemoryStore) CreateConversation(_ context.Context, c *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	s.conversations[c.ID] = &cp
	return nil
}

func (s *MemoryStore) GetConversation(_ context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, apperr.NotFound("conversation %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) UpdateConversation(_ context.Context, c *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[c.ID]; !ok {
		return apperr.NotFound("conversation %s not found", c.ID)
	}
	c.UpdatedAt = time.Now()
	cp := *c
	s.conversations[c.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; !ok {
		return apperr.NotFound("conversation %s not found", id)
	}
	delete(s.conversations, id)
	return nil
}

func (s *MemoryStore) ListConversations(_ context.Context, userID string, page, perPage int) ([]*Conversation, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []*Conversation
	for _, c := range s.conversations {
		if c.UserID == userID {
			cp := *c
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })
	total := len(all)
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	start := (page - 1) * perPage
	if start >= total {
		return []*Conversation{}, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *MemoryStore) CreateSystemMessage(_ context.Context, sm *SystemMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sm.ID == "" {
		sm.ID = uuid.NewString()
	}
	now := time.Now()
	sm.CreatedAt, sm.UpdatedAt = now, now
	cp := *sm
	s.systemMessages[sm.ID] = &cp
	return nil
}

func (s *MemoryStore) GetSystemMessage(_ context.Context, id string) (*SystemMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sm, ok := s.systemMessages[id]
	if !ok {
		return nil, apperr.NotFound("system message %s not found", id)
	}
	cp := *sm
	return &cp, nil
}

func (s *MemoryStore) UpdateSystemMessage(_ context.Context, sm *SystemMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.systemMessages[sm.ID]
	if !ok {
		return apperr.NotFound("system message %s not found", sm.ID)
	}
	sm.IsDefault = existing.IsDefault
	sm.UpdatedAt = time.Now()
	cp := *sm
	s.systemMessages[sm.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteSystemMessage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sm, ok := s.systemMessages[id]
	if !ok {
		return apperr.NotFound("system message %s not found", id)
	}
	if sm.IsDefault {
		return apperr.Validation("the default system message cannot be deleted")
	}
	delete(s.systemMessages, id)
	for fid, f := range s.files {
		if f.SystemMessageID == id {
			delete(s.files, fid)
		}
	}
	for wid, w := range s.websites {
		if w.SystemMessageID == id {
			delete(s.websites, wid)
		}
	}
	return nil
}

func (s *MemoryStore) ListSystemMessages(_ context.Context, ownerID string, showAll bool) ([]*SystemMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*SystemMessage
	for _, sm := range s.systemMessages {
		if showAll || sm.OwnerID == "" || sm.OwnerID == ownerID {
			cp := *sm
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) EnsureDefaultSystemMessage(_ context.Context) (*SystemMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sm := range s.systemMessages {
		if sm.IsDefault {
			cp := *sm
			return &cp, nil
		}
	}
	def := newDefaultSystemMessage()
	s.systemMessages[def.ID] = def
	cp := *def
	return &cp, nil
}

func (s *MemoryStore) CreateFolder(_ context.Context, f *Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := time.Now()
	f.CreatedAt, f.UpdatedAt = now, now
	cp := *f
	s.folders[f.ID] = &cp
	return nil
}

func (s *MemoryStore) ListFolders(_ context.Context, userID string) ([]*Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Folder
	for _, f := range s.folders {
		if f.UserID == userID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteFolder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.folders[id]; !ok {
		return apperr.NotFound("folder %s not found", id)
	}
	delete(s.folders, id)
	return nil
}

func (s *MemoryStore) CreateUploadedFile(_ context.Context, f *UploadedFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.CreatedAt = time.Now()
	cp := *f
	s.files[f.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUploadedFile(_ context.Context, id string) (*UploadedFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[id]
	if !ok {
		return nil, apperr.NotFound("file %s not found", id)
	}
	cp := *f
	return &cp, nil
}

func (s *MemoryStore) UpdateUploadedFile(_ context.Context, f *UploadedFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[f.ID]; !ok {
		return apperr.NotFound("file %s not found", f.ID)
	}
	cp := *f
	s.files[f.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteUploadedFile(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[id]; !ok {
		return apperr.NotFound("file %s not found", id)
	}
	delete(s.files, id)
	return nil
}

func (s *MemoryStore) ListUploadedFiles(_ context.Context, systemMessageID string) ([]*UploadedFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*UploadedFile
	for _, f := range s.files {
		if f.SystemMessageID == systemMessageID {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CreateWebsite(_ context.Context, w *Website) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	w.CreatedAt = time.Now()
	cp := *w
	s.websites[w.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteWebsitesBySystemMessage(_ context.Context, systemMessageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range s.websites {
		if w.SystemMessageID == systemMessageID {
			delete(s.websites, id)
		}
	}
	return nil
}
