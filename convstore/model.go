// Package convstore implements the Conversation Store (C13): CRUD over
// conversations, system messages and folders, backed by either an
// in-memory map (tests), SQLite, or MongoDB.
package convstore

import "time"

// User mirrors the subset of account state the orchestrator needs to check
// ownership and admin bypass. Authentication itself is out of scope (§1).
type User struct {
	ID      string
	IsAdmin bool
}

// SystemMessage is a reusable system prompt plus the per-tenant settings
// that gate web search and time-context injection.
type SystemMessage struct {
	ID               string
	OwnerID          string
	Name             string
	Content          string
	EnableTimeSense  bool
	EnableWebSearch  bool
	EnableDeepSearch bool
	IsDefault        bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Folder organizes conversations for a user (supplement — named by the
// /conversations/folders endpoint in §6 but not otherwise specified).
type Folder struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Conversation is a persisted chat thread. History is append-only from the
// orchestrator's point of view (§3); the side-data fields hold the most
// recent turn's retrieval/search artifacts for display and debugging.
type Conversation struct {
	ID              string
	UserID          string
	FolderID        string
	SystemMessageID string
	Title           string
	Messages        []Message
	ModelName       string
	Temperature     float32
	TokenCount      int

	// Per-turn side data (§3): last vector-search hit, last generated search
	// queries, last web-search summary.
	LastVectorSearchResult string
	LastSearchQueries      []string
	LastWebSearchSummary   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one turn of a Conversation.
type Message struct {
	ID               string
	Role             string
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	ThinkingTrace    string
	CreatedAt        time.Time
}

// UploadedFile is a vector-indexed document owned by a SystemMessage.
type UploadedFile struct {
	ID                string
	SystemMessageID   string
	OwnerID           string
	Filename          string
	StoredPath        string
	ProcessedTextPath string
	MimeType          string
	SizeBytes         int64
	CreatedAt         time.Time
}

// Website is a crawled-site registration owned by a SystemMessage (supplement
// from original_source/models.py: §3 names it as a cascade-delete sibling of
// UploadedFile but does not otherwise specify it). The legacy scraper that
// would populate it is an intentionally-disabled stub (see websearch package),
// so this type exists only to give the cascade-delete ownership a home.
type Website struct {
	ID              string
	SystemMessageID string
	OwnerID         string
	URL             string
	CreatedAt       time.Time
}
