package convstore

import (
	"context"
	"time"
)

// Store is the Conversation Store contract (C13): CRUD over conversations,
// system messages, folders, uploaded files and websites. Every method takes
// a context because the backing implementation may suspend on network I/O
// (Mongo) or disk I/O (SQLite) — no method blocks the caller's goroutine
// forever and no lock is held across the suspension.
type Store interface {
	// Conversations
	CreateConversation(ctx context.Context, c *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	UpdateConversation(ctx context.Context, c *Conversation) error
	DeleteConversation(ctx context.Context, id string) error
	ListConversations(ctx context.Context, userID string, page, perPage int) ([]*Conversation, int, error)

	// SystemMessages
	CreateSystemMessage(ctx context.Context, sm *SystemMessage) error
	GetSystemMessage(ctx context.Context, id string) (*SystemMessage, error)
	UpdateSystemMessage(ctx context.Context, sm *SystemMessage) error
	DeleteSystemMessage(ctx context.Context, id string) error
	ListSystemMessages(ctx context.Context, ownerID string, showAll bool) ([]*SystemMessage, error)
	EnsureDefaultSystemMessage(ctx context.Context) (*SystemMessage, error)

	// Folders
	CreateFolder(ctx context.Context, f *Folder) error
	ListFolders(ctx context.Context, userID string) ([]*Folder, error)
	DeleteFolder(ctx context.Context, id string) error

	// UploadedFiles
	CreateUploadedFile(ctx context.Context, f *UploadedFile) error
	GetUploadedFile(ctx context.Context, id string) (*UploadedFile, error)
	UpdateUploadedFile(ctx context.Context, f *UploadedFile) error
	DeleteUploadedFile(ctx context.Context, id string) error
	ListUploadedFiles(ctx context.Context, systemMessageID string) ([]*UploadedFile, error)

	// Websites
	CreateWebsite(ctx context.Context, w *Website) error
	DeleteWebsitesBySystemMessage(ctx context.Context, systemMessageID string) error

	// Users
	GetUser(ctx context.Context, id string) (*User, error)

	Close() error
}

// DefaultSystemMessageName is the name of the always-present, undeletable
// NULL-owner SystemMessage named in §3's invariant.
const DefaultSystemMessageName = "Default System Message"

func newDefaultSystemMessage() *SystemMessage {
	now := time.Now()
	return &SystemMessage{
		ID:        "default",
		OwnerID:   "",
		Name:      DefaultSystemMessageName,
		Content:   "You are a helpful assistant.",
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
