package convstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/ghiac/chatforge/apperr"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists each entity as a JSON blob in a keyed table, the same
// layout the teacher's session store uses: one narrow indexable column set
// plus an opaque "data" column holding the full marshaled struct.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if absent) a SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, apperr.WrapStoreError(err, "create directory for %s", dbPath)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperr.WrapStoreError(err, "open sqlite database %s", dbPath)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.ensureDefaultSystemMessage(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		system_message_id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_user_id ON conversations(user_id);
	CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at);

	CREATE TABLE IF NOT EXISTS system_messages (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		is_default INTEGER NOT NULL DEFAULT 0,
		data TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_system_messages_owner_id ON system_messages(owner_id);

	CREATE TABLE IF NOT EXISTS folders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_folders_user_id ON folders(user_id);

	CREATE TABLE IF NOT EXISTS uploaded_files (
		id TEXT PRIMARY KEY,
		system_message_id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_uploaded_files_system_message_id ON uploaded_files(system_message_id);

	CREATE TABLE IF NOT EXISTS websites (
		id TEXT PRIMARY KEY,
		system_message_id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_websites_system_message_id ON websites(system_message_id);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return apperr.WrapStoreError(err, "initialize schema")
	}
	return nil
}

func (s *SQLiteStore) ensureDefaultSystemMessage() error {
	row := s.db.QueryRow(`SELECT id FROM system_messages WHERE is_default = 1 LIMIT 1`)
	var id string
	if err := row.Scan(&id); err == nil {
		return nil
	} else if err != sql.ErrNoRows {
		return apperr.WrapStoreError(err, "check default system message")
	}
	def := newDefaultSystemMessage()
	return s.putSystemMessage(def)
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) GetUser(_ context.Context, id string) (*User, error) {
	row := s.db.QueryRow(`SELECT data FROM users WHERE id = ?`, id)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("user %s not found", id)
		}
		return nil, apperr.WrapStoreError(err, "get user %s", id)
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, apperr.WrapStoreError(err, "decode user %s", id)
	}
	return &u, nil
}

func (s *SQLiteStore) CreateConversation(_ context.Context, c *Conversation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	return s.putConversation(c)
}

func (s *SQLiteStore) putConversation(c *Conversation) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return apperr.WrapStoreError(err, "encode conversation %s", c.ID)
	}
	_, err = s.db.Exec(`
		INSERT INTO conversations (id, user_id, system_message_id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id, system_message_id=excluded.system_message_id,
			data=excluded.data, updated_at=excluded.updated_at`,
		c.ID, c.UserID, c.SystemMessageID, raw, c.CreatedAt.Unix(), c.UpdatedAt.Unix())
	if err != nil {
		return apperr.WrapStoreError(err, "store conversation %s", c.ID)
	}
	return nil
}

func (s *SQLiteStore) GetConversation(_ context.Context, id string) (*Conversation, error) {
	row := s.db.QueryRow(`SELECT data FROM conversations WHERE id = ?`, id)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("conversation %s not found", id)
		}
		return nil, apperr.WrapStoreError(err, "get conversation %s", id)
	}
	var c Conversation
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, apperr.WrapStoreError(err, "decode conversation %s", id)
	}
	return &c, nil
}

func (s *SQLiteStore) UpdateConversation(ctx context.Context, c *Conversation) error {
	if _, err := s.GetConversation(ctx, c.ID); err != nil {
		return err
	}
	c.UpdatedAt = time.Now()
	return s.putConversation(c)
}

func (s *SQLiteStore) DeleteConversation(_ context.Context, id string) error {
	res, err := s.db.Exec(`DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return apperr.WrapStoreError(err, "delete conversation %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("conversation %s not found", id)
	}
	return nil
}

func (s *SQLiteStore) ListConversations(_ context.Context, userID string, page, perPage int) ([]*Conversation, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM conversations WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, apperr.WrapStoreError(err, "count conversations for %s", userID)
	}

	rows, err := s.db.Query(`SELECT data FROM conversations WHERE user_id = ? ORDER BY updated_at DESC LIMIT ? OFFSET ?`,
		userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, apperr.WrapStoreError(err, "list conversations for %s", userID)
	}
	defer rows.Close()

	out := []*Conversation{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, 0, apperr.WrapStoreError(err, "scan conversation row")
		}
		var c Conversation
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, 0, apperr.WrapStoreError(err, "decode conversation row")
		}
		out = append(out, &c)
	}
	return out, total, nil
}

func (s *SQLiteStore) CreateSystemMessage(_ context.Context, sm *SystemMessage) error {
	if sm.ID == "" {
		sm.ID = uuid.NewString()
	}
	now := time.Now()
	sm.CreatedAt, sm.UpdatedAt = now, now
	return s.putSystemMessage(sm)
}

func (s *SQLiteStore) putSystemMessage(sm *SystemMessage) error {
	raw, err := json.Marshal(sm)
	if err != nil {
		return apperr.WrapStoreError(err, "encode system message %s", sm.ID)
	}
	isDefault := 0
	if sm.IsDefault {
		isDefault = 1
	}
	_, err = s.db.Exec(`
		INSERT INTO system_messages (id, owner_id, is_default, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET owner_id=excluded.owner_id, is_default=excluded.is_default,
			data=excluded.data, updated_at=excluded.updated_at`,
		sm.ID, sm.OwnerID, isDefault, raw, sm.CreatedAt.Unix(), sm.UpdatedAt.Unix())
	if err != nil {
		return apperr.WrapStoreError(err, "store system message %s", sm.ID)
	}
	return nil
}

func (s *SQLiteStore) GetSystemMessage(_ context.Context, id string) (*SystemMessage, error) {
	row := s.db.QueryRow(`SELECT data FROM system_messages WHERE id = ?`, id)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("system message %s not found", id)
		}
		return nil, apperr.WrapStoreError(err, "get system message %s", id)
	}
	var sm SystemMessage
	if err := json.Unmarshal([]byte(raw), &sm); err != nil {
		return nil, apperr.WrapStoreError(err, "decode system message %s", id)
	}
	return &sm, nil
}

func (s *SQLiteStore) UpdateSystemMessage(ctx context.Context, sm *SystemMessage) error {
	existing, err := s.GetSystemMessage(ctx, sm.ID)
	if err != nil {
		return err
	}
	sm.IsDefault = existing.IsDefault
	sm.UpdatedAt = time.Now()
	return s.putSystemMessage(sm)
}

func (s *SQLiteStore) DeleteSystemMessage(ctx context.Context, id string) error {
	sm, err := s.GetSystemMessage(ctx, id)
	if err != nil {
		return err
	}
	if sm.IsDefault {
		return apperr.Validation("the default system message cannot be deleted")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return apperr.WrapStoreError(err, "begin delete transaction")
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM system_messages WHERE id = ?`, id); err != nil {
		return apperr.WrapStoreError(err, "delete system message %s", id)
	}
	if _, err := tx.Exec(`DELETE FROM uploaded_files WHERE system_message_id = ?`, id); err != nil {
		return apperr.WrapStoreError(err, "cascade delete uploaded files for %s", id)
	}
	if _, err := tx.Exec(`DELETE FROM websites WHERE system_message_id = ?`, id); err != nil {
		return apperr.WrapStoreError(err, "cascade delete websites for %s", id)
	}
	if err := tx.Commit(); err != nil {
		return apperr.WrapStoreError(err, "commit delete transaction")
	}
	return nil
}

func (s *SQLiteStore) ListSystemMessages(_ context.Context, ownerID string, showAll bool) ([]*SystemMessage, error) {
	var rows *sql.Rows
	var err error
	if showAll {
		rows, err = s.db.Query(`SELECT data FROM system_messages ORDER BY id`)
	} else {
		rows, err = s.db.Query(`SELECT data FROM system_messages WHERE owner_id = '' OR owner_id = ? ORDER BY id`, ownerID)
	}
	if err != nil {
		return nil, apperr.WrapStoreError(err, "list system messages")
	}
	defer rows.Close()

	out := []*SystemMessage{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, apperr.WrapStoreError(err, "scan system message row")
		}
		var sm SystemMessage
		if err := json.Unmarshal([]byte(raw), &sm); err != nil {
			return nil, apperr.WrapStoreError(err, "decode system message row")
		}
		out = append(out, &sm)
	}
	return out, nil
}

func (s *SQLiteStore) EnsureDefaultSystemMessage(_ context.Context) (*SystemMessage, error) {
	row := s.db.QueryRow(`SELECT data FROM system_messages WHERE is_default = 1 LIMIT 1`)
	var raw string
	if err := row.Scan(&raw); err == nil {
		var sm SystemMessage
		if err := json.Unmarshal([]byte(raw), &sm); err != nil {
			return nil, apperr.WrapStoreError(err, "decode default system message")
		}
		return &sm, nil
	} else if err != sql.ErrNoRows {
		return nil, apperr.WrapStoreError(err, "query default system message")
	}
	def := newDefaultSystemMessage()
	if err := s.putSystemMessage(def); err != nil {
		return nil, err
	}
	return def, nil
}

func (s *SQLiteStore) CreateFolder(_ context.Context, f *Folder) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := time.Now()
	f.CreatedAt, f.UpdatedAt = now, now
	raw, err := json.Marshal(f)
	if err != nil {
		return apperr.WrapStoreError(err, "encode folder %s", f.ID)
	}
	_, err = s.db.Exec(`INSERT INTO folders (id, user_id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.UserID, raw, f.CreatedAt.Unix(), f.UpdatedAt.Unix())
	if err != nil {
		return apperr.WrapStoreError(err, "store folder %s", f.ID)
	}
	return nil
}

func (s *SQLiteStore) ListFolders(_ context.Context, userID string) ([]*Folder, error) {
	rows, err := s.db.Query(`SELECT data FROM folders WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, apperr.WrapStoreError(err, "list folders for %s", userID)
	}
	defer rows.Close()

	out := []*Folder{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, apperr.WrapStoreError(err, "scan folder row")
		}
		var f Folder
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			return nil, apperr.WrapStoreError(err, "decode folder row")
		}
		out = append(out, &f)
	}
	return out, nil
}

func (s *SQLiteStore) DeleteFolder(_ context.Context, id string) error {
	res, err := s.db.Exec(`DELETE FROM folders WHERE id = ?`, id)
	if err != nil {
		return apperr.WrapStoreError(err, "delete folder %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("folder %s not found", id)
	}
	return nil
}

func (s *SQLiteStore) CreateUploadedFile(_ context.Context, f *UploadedFile) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.CreatedAt = time.Now()
	return s.putUploadedFile(f)
}

func (s *SQLiteStore) putUploadedFile(f *UploadedFile) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return apperr.WrapStoreError(err, "encode uploaded file %s", f.ID)
	}
	_, err = s.db.Exec(`
		INSERT INTO uploaded_files (id, system_message_id, data, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET system_message_id=excluded.system_message_id, data=excluded.data`,
		f.ID, f.SystemMessageID, raw, f.CreatedAt.Unix())
	if err != nil {
		return apperr.WrapStoreError(err, "store uploaded file %s", f.ID)
	}
	return nil
}

func (s *SQLiteStore) GetUploadedFile(_ context.Context, id string) (*UploadedFile, error) {
	row := s.db.QueryRow(`SELECT data FROM uploaded_files WHERE id = ?`, id)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("file %s not found", id)
		}
		return nil, apperr.WrapStoreError(err, "get uploaded file %s", id)
	}
	var f UploadedFile
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil, apperr.WrapStoreError(err, "decode uploaded file %s", id)
	}
	return &f, nil
}

func (s *SQLiteStore) UpdateUploadedFile(ctx context.Context, f *UploadedFile) error {
	if _, err := s.GetUploadedFile(ctx, f.ID); err != nil {
		return err
	}
	return s.putUploadedFile(f)
}

func (s *SQLiteStore) DeleteUploadedFile(_ context.Context, id string) error {
	res, err := s.db.Exec(`DELETE FROM uploaded_files WHERE id = ?`, id)
	if err != nil {
		return apperr.WrapStoreError(err, "delete uploaded file %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("file %s not found", id)
	}
	return nil
}

func (s *SQLiteStore) ListUploadedFiles(_ context.Context, systemMessageID string) ([]*UploadedFile, error) {
	rows, err := s.db.Query(`SELECT data FROM uploaded_files WHERE system_message_id = ? ORDER BY created_at`, systemMessageID)
	if err != nil {
		return nil, apperr.WrapStoreError(err, "list uploaded files for %s", systemMessageID)
	}
	defer rows.Close()

	out := []*UploadedFile{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, apperr.WrapStoreError(err, "scan uploaded file row")
		}
		var f UploadedFile
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			return nil, apperr.WrapStoreError(err, "decode uploaded file row")
		}
		out = append(out, &f)
	}
	return out, nil
}

func (s *SQLiteStore) CreateWebsite(_ context.Context, w *Website) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	w.CreatedAt = time.Now()
	raw, err := json.Marshal(w)
	if err != nil {
		return apperr.WrapStoreError(err, "encode website %s", w.ID)
	}
	_, err = s.db.Exec(`INSERT INTO websites (id, system_message_id, data, created_at) VALUES (?, ?, ?, ?)`,
		w.ID, w.SystemMessageID, raw, w.CreatedAt.Unix())
	if err != nil {
		return apperr.WrapStoreError(err, "store website %s", w.ID)
	}
	return nil
}

func (s *SQLiteStore) DeleteWebsitesBySystemMessage(_ context.Context, systemMessageID string) error {
	_, err := s.db.Exec(`DELETE FROM websites WHERE system_message_id = ?`, systemMessageID)
	if err != nil {
		return apperr.WrapStoreError(err, "delete websites for %s", systemMessageID)
	}
	return nil
}
