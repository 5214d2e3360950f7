package convstore

import (
	"context"
	"time"

	"github.com/ghiac/chatforge/apperr"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is a MongoDB implementation of Store: one named collection per
// entity, BSON-tagged structs, with a handful of supporting indexes.
type MongoStore struct {
	client         *mongo.Client
	conversations  *mongo.Collection
	systemMessages *mongo.Collection
	folders        *mongo.Collection
	files          *mongo.Collection
	websites       *mongo.Collection
	users          *mongo.Collection
}

// MongoStoreConfig configures the MongoDB connection.
type MongoStoreConfig struct {
	URI      string
	Database string
}

// NewMongoStore connects to MongoDB and ensures the required indexes exist.
func NewMongoStore(cfg MongoStoreConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "chatforge"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(100).
		SetMinPoolSize(10).
		SetMaxConnIdleTime(30 * time.Minute).
		SetRetryWrites(true).
		SetRetryReads(true).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, apperr.WrapStoreError(err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, apperr.WrapStoreError(err, "ping mongodb")
	}

	db := client.Database(cfg.Database)
	s := &MongoStore{
		client:         client,
		conversations:  db.Collection("conversations"),
		systemMessages: db.Collection("system_messages"),
		folders:        db.Collection("folders"),
		files:          db.Collection("uploaded_files"),
		websites:       db.Collection("websites"),
		users:          db.Collection("users"),
	}

	if err := s.initIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	if _, err := s.EnsureDefaultSystemMessage(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) initIndexes(ctx context.Context) error {
	if _, err := s.conversations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "updated_at", Value: -1}}},
	}); err != nil {
		return apperr.WrapStoreError(err, "create conversation indexes")
	}
	if _, err := s.systemMessages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}},
	}); err != nil {
		return apperr.WrapStoreError(err, "create system message index")
	}
	if _, err := s.files.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "system_message_id", Value: 1}},
	}); err != nil {
		return apperr.WrapStoreError(err, "create uploaded file index")
	}
	if _, err := s.websites.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "system_message_id", Value: 1}},
	}); err != nil {
		return apperr.WrapStoreError(err, "create website index")
	}
	if _, err := s.folders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
	}); err != nil {
		return apperr.WrapStoreError(err, "create folder index")
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("user %s not found", id)
		}
		return nil, apperr.WrapStoreError(err, "get user %s", id)
	}
	return &u, nil
}

type mongoConversation struct {
	ID string `bson:"_id"`
	Conversation `bson:",inline"`
}

func (s *MongoStore) CreateConversation(ctx context.Context, c *Conversation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := s.conversations.InsertOne(ctx, mongoConversation{ID: c.ID, Conversation: *c})
	if err != nil {
		return apperr.WrapStoreError(err, "insert conversation %s", c.ID)
	}
	return nil
}

func (s *MongoStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var doc mongoConversation
	if err := s.conversations.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("conversation %s not found", id)
		}
		return nil, apperr.WrapStoreError(err, "get conversation %s", id)
	}
	c := doc.Conversation
	c.ID = doc.ID
	return &c, nil
}

func (s *MongoStore) UpdateConversation(ctx context.Context, c *Conversation) error {
	c.UpdatedAt = time.Now()
	res, err := s.conversations.ReplaceOne(ctx, bson.M{"_id": c.ID}, mongoConversation{ID: c.ID, Conversation: *c})
	if err != nil {
		return apperr.WrapStoreError(err, "update conversation %s", c.ID)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("conversation %s not found", c.ID)
	}
	return nil
}

func (s *MongoStore) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.conversations.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.WrapStoreError(err, "delete conversation %s", id)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("conversation %s not found", id)
	}
	return nil
}

func (s *MongoStore) ListConversations(ctx context.Context, userID string, page, perPage int) ([]*Conversation, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	total, err := s.conversations.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, 0, apperr.WrapStoreError(err, "count conversations for %s", userID)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetSkip(int64((page - 1) * perPage)).
		SetLimit(int64(perPage))
	cur, err := s.conversations.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, 0, apperr.WrapStoreError(err, "list conversations for %s", userID)
	}
	defer cur.Close(ctx)

	out := []*Conversation{}
	for cur.Next(ctx) {
		var doc mongoConversation
		if err := cur.Decode(&doc); err != nil {
			return nil, 0, apperr.WrapStoreError(err, "decode conversation row")
		}
		c := doc.Conversation
		c.ID = doc.ID
		out = append(out, &c)
	}
	return out, int(total), nil
}

type mongoSystemMessage struct {
	ID string `bson:"_id"`
	SystemMessage `bson:",inline"`
}

func (s *MongoStore) CreateSystemMessage(ctx context.Context, sm *SystemMessage) error {
	if sm.ID == "" {
		sm.ID = uuid.NewString()
	}
	now := time.Now()
	sm.CreatedAt, sm.UpdatedAt = now, now
	_, err := s.systemMessages.InsertOne(ctx, mongoSystemMessage{ID: sm.ID, SystemMessage: *sm})
	if err != nil {
		return apperr.WrapStoreError(err, "insert system message %s", sm.ID)
	}
	return nil
}

func (s *MongoStore) GetSystemMessage(ctx context.Context, id string) (*SystemMessage, error) {
	var doc mongoSystemMessage
	if err := s.systemMessages.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("system message %s not found", id)
		}
		return nil, apperr.WrapStoreError(err, "get system message %s", id)
	}
	sm := doc.SystemMessage
	sm.ID = doc.ID
	return &sm, nil
}

func (s *MongoStore) UpdateSystemMessage(ctx context.Context, sm *SystemMessage) error {
	existing, err := s.GetSystemMessage(ctx, sm.ID)
	if err != nil {
		return err
	}
	sm.IsDefault = existing.IsDefault
	sm.UpdatedAt = time.Now()
	res, err := s.systemMessages.ReplaceOne(ctx, bson.M{"_id": sm.ID}, mongoSystemMessage{ID: sm.ID, SystemMessage: *sm})
	if err != nil {
		return apperr.WrapStoreError(err, "update system message %s", sm.ID)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("system message %s not found", sm.ID)
	}
	return nil
}

func (s *MongoStore) DeleteSystemMessage(ctx context.Context, id string) error {
	sm, err := s.GetSystemMessage(ctx, id)
	if err != nil {
		return err
	}
	if sm.IsDefault {
		return apperr.Validation("the default system message cannot be deleted")
	}
	if _, err := s.systemMessages.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return apperr.WrapStoreError(err, "delete system message %s", id)
	}
	if _, err := s.files.DeleteMany(ctx, bson.M{"system_message_id": id}); err != nil {
		return apperr.WrapStoreError(err, "cascade delete uploaded files for %s", id)
	}
	if _, err := s.websites.DeleteMany(ctx, bson.M{"system_message_id": id}); err != nil {
		return apperr.WrapStoreError(err, "cascade delete websites for %s", id)
	}
	return nil
}

func (s *MongoStore) ListSystemMessages(ctx context.Context, ownerID string, showAll bool) ([]*SystemMessage, error) {
	filter := bson.M{}
	if !showAll {
		filter = bson.M{"$or": []bson.M{{"owner_id": ""}, {"owner_id": ownerID}}}
	}
	cur, err := s.systemMessages.Find(ctx, filter)
	if err != nil {
		return nil, apperr.WrapStoreError(err, "list system messages")
	}
	defer cur.Close(ctx)

	out := []*SystemMessage{}
	for cur.Next(ctx) {
		var doc mongoSystemMessage
		if err := cur.Decode(&doc); err != nil {
			return nil, apperr.WrapStoreError(err, "decode system message row")
		}
		sm := doc.SystemMessage
		sm.ID = doc.ID
		out = append(out, &sm)
	}
	return out, nil
}

func (s *MongoStore) EnsureDefaultSystemMessage(ctx context.Context) (*SystemMessage, error) {
	var doc mongoSystemMessage
	err := s.systemMessages.FindOne(ctx, bson.M{"is_default": true}).Decode(&doc)
	if err == nil {
		sm := doc.SystemMessage
		sm.ID = doc.ID
		return &sm, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, apperr.WrapStoreError(err, "query default system message")
	}
	def := newDefaultSystemMessage()
	if _, err := s.systemMessages.InsertOne(ctx, mongoSystemMessage{ID: def.ID, SystemMessage: *def}); err != nil {
		return nil, apperr.WrapStoreError(err, "insert default system message")
	}
	return def, nil
}

type mongoFolder struct {
	ID string `bson:"_id"`
	Folder `bson:",inline"`
}

func (s *MongoStore) CreateFolder(ctx context.Context, f *Folder) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := time.Now()
	f.CreatedAt, f.UpdatedAt = now, now
	_, err := s.folders.InsertOne(ctx, mongoFolder{ID: f.ID, Folder: *f})
	if err != nil {
		return apperr.WrapStoreError(err, "insert folder %s", f.ID)
	}
	return nil
}

func (s *MongoStore) ListFolders(ctx context.Context, userID string) ([]*Folder, error) {
	cur, err := s.folders.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, apperr.WrapStoreError(err, "list folders for %s", userID)
	}
	defer cur.Close(ctx)

	out := []*Folder{}
	for cur.Next(ctx) {
		var doc mongoFolder
		if err := cur.Decode(&doc); err != nil {
			return nil, apperr.WrapStoreError(err, "decode folder row")
		}
		f := doc.Folder
		f.ID = doc.ID
		out = append(out, &f)
	}
	return out, nil
}

func (s *MongoStore) DeleteFolder(ctx context.Context, id string) error {
	res, err := s.folders.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.WrapStoreError(err, "delete folder %s", id)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("folder %s not found", id)
	}
	return nil
}

type mongoUploadedFile struct {
	ID string `bson:"_id"`
	UploadedFile `bson:",inline"`
}

func (s *MongoStore) CreateUploadedFile(ctx context.Context, f *UploadedFile) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.CreatedAt = time.Now()
	_, err := s.files.InsertOne(ctx, mongoUploadedFile{ID: f.ID, UploadedFile: *f})
	if err != nil {
		return apperr.WrapStoreError(err, "insert uploaded file %s", f.ID)
	}
	return nil
}

func (s *MongoStore) GetUploadedFile(ctx context.Context, id string) (*UploadedFile, error) {
	var doc mongoUploadedFile
	if err := s.files.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("file %s not found", id)
		}
		return nil, apperr.WrapStoreError(err, "get uploaded file %s", id)
	}
	f := doc.UploadedFile
	f.ID = doc.ID
	return &f, nil
}

func (s *MongoStore) UpdateUploadedFile(ctx context.Context, f *UploadedFile) error {
	res, err := s.files.ReplaceOne(ctx, bson.M{"_id": f.ID}, mongoUploadedFile{ID: f.ID, UploadedFile: *f})
	if err != nil {
		return apperr.WrapStoreError(err, "update uploaded file %s", f.ID)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("file %s not found", f.ID)
	}
	return nil
}

func (s *MongoStore) DeleteUploadedFile(ctx context.Context, id string) error {
	res, err := s.files.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.WrapStoreError(err, "delete uploaded file %s", id)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("file %s not found", id)
	}
	return nil
}

func (s *MongoStore) ListUploadedFiles(ctx context.Context, systemMessageID string) ([]*UploadedFile, error) {
	cur, err := s.files.Find(ctx, bson.M{"system_message_id": systemMessageID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, apperr.WrapStoreError(err, "list uploaded files for %s", systemMessageID)
	}
	defer cur.Close(ctx)

	out := []*UploadedFile{}
	for cur.Next(ctx) {
		var doc mongoUploadedFile
		if err := cur.Decode(&doc); err != nil {
			return nil, apperr.WrapStoreError(err, "decode uploaded file row")
		}
		f := doc.UploadedFile
		f.ID = doc.ID
		out = append(out, &f)
	}
	return out, nil
}

type mongoWebsite struct {
	ID string `bson:"_id"`
	Website `bson:",inline"`
}

func (s *MongoStore) CreateWebsite(ctx context.Context, w *Website) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	w.CreatedAt = time.Now()
	_, err := s.websites.InsertOne(ctx, mongoWebsite{ID: w.ID, Website: *w})
	if err != nil {
		return apperr.WrapStoreError(err, "insert website %s", w.ID)
	}
	return nil
}

func (s *MongoStore) DeleteWebsitesBySystemMessage(ctx context.Context, systemMessageID string) error {
	if _, err := s.websites.DeleteMany(ctx, bson.M{"system_message_id": systemMessageID}); err != nil {
		return apperr.WrapStoreError(err, "delete websites for %s", systemMessageID)
	}
	return nil
}
