package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/ghiac/chatforge/attachments"
	"github.com/ghiac/chatforge/convstore"
	"github.com/ghiac/chatforge/fsutil"
	"github.com/ghiac/chatforge/llmrouter"
	"github.com/ghiac/chatforge/providers"
	"github.com/ghiac/chatforge/status"
	"github.com/ghiac/chatforge/vectorstore"
	"github.com/ghiac/chatforge/websearch"
)

// fakeClient returns a fixed reply for every call, recording the messages
// it was last invoked with so tests can inspect prompt construction.
type fakeClient struct {
	reply    string
	lastMsgs []providers.Message
}

func (f *fakeClient) Generate(_ context.Context, model string, messages []providers.Message, _ float32, _ providers.GenerateOpts) (*providers.Result, error) {
	f.lastMsgs = messages
	return &providers.Result{Content: f.reply, Model: model}, nil
}

func flatEmbeddingFunc(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeClient) {
	t.Helper()
	llm := &fakeClient{reply: "A short reply"}
	bag := &llmrouter.Bag{OpenAI: llm}

	store := convstore.NewMemoryStore()

	embStore, err := vectorstore.NewEmbeddingStore(t.TempDir(), "postgres://host/db", flatEmbeddingFunc)
	if err != nil {
		t.Fatalf("NewEmbeddingStore: %v", err)
	}
	processor := vectorstore.NewFileProcessor(embStore)

	resolver := fsutil.NewResolver(t.TempDir())
	attachHandler := attachments.New(resolver, nil)
	statusMgr := status.NewManager()
	brave := &websearch.BraveClient{APIKey: "unused"}

	return New(statusMgr, store, processor, attachHandler, brave, bag, resolver), llm
}

func createSystemMessage(t *testing.T, store convstore.Store, sm *convstore.SystemMessage) string {
	t.Helper()
	sm.ID = "sm-" + sm.Name
	if err := store.CreateSystemMessage(context.Background(), sm); err != nil {
		t.Fatalf("CreateSystemMessage: %v", err)
	}
	return sm.ID
}

func TestRun_NewConversationEndToEnd(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	smID := createSystemMessage(t, o.Store, &convstore.SystemMessage{Name: "plain", Content: "You are helpful."})

	user := &convstore.User{ID: "user-1"}
	req := Request{
		Messages: []providers.Message{
			{Role: "system", Content: "You are helpful."},
			{Role: "user", Content: "What's the capital of France?"},
		},
		Model:           "gpt-4o-mini",
		Temperature:     0.7,
		SystemMessageID: smID,
	}

	resp, err := o.Run(context.Background(), req, user, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Response != "A short reply" {
		t.Fatalf("expected the model reply echoed back, got %q", resp.Response)
	}
	if resp.ConversationID == "" {
		t.Fatal("expected a new conversation id to be assigned")
	}
	if resp.ConversationTitle == "" {
		t.Fatal("expected a generated title for a new conversation")
	}

	stored, err := o.Store.GetConversation(context.Background(), resp.ConversationID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if len(stored.Messages) != 3 {
		t.Fatalf("expected system+user+assistant persisted, got %d messages", len(stored.Messages))
	}
	if stored.Messages[len(stored.Messages)-1].Role != "assistant" {
		t.Fatalf("expected last persisted message to be the assistant reply")
	}
}

func TestRun_UnknownSystemMessageFails(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	user := &convstore.User{ID: "user-1"}
	req := Request{
		Messages:        []providers.Message{{Role: "user", Content: "hi"}},
		Model:           "gpt-4o-mini",
		SystemMessageID: "does-not-exist",
	}

	if _, err := o.Run(context.Background(), req, user, ""); err == nil {
		t.Fatal("expected an error for a missing system message")
	}
}

func TestRun_TimeSenseInjectsFreshBlockAndStripsStale(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	smID := createSystemMessage(t, o.Store, &convstore.SystemMessage{Name: "timesense", Content: "base prompt", EnableTimeSense: true})

	user := &convstore.User{ID: "user-2"}
	staleSystem := "base prompt\n\n<Time Context>\nstale info from last turn\n</Time Context>"
	req := Request{
		Messages: []providers.Message{
			{Role: "system", Content: staleSystem},
			{Role: "user", Content: "what time is it"},
		},
		Model:           "gpt-4o-mini",
		SystemMessageID: smID,
		UserTimezone:    "America/New_York",
	}

	resp, err := o.Run(context.Background(), req, user, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Contains(resp.SystemMessageContent, "stale info from last turn") {
		t.Fatalf("expected the stale time context to be removed, got %q", resp.SystemMessageContent)
	}
	if !strings.Contains(resp.SystemMessageContent, "<Time Context>") {
		t.Fatalf("expected a fresh time context block, got %q", resp.SystemMessageContent)
	}
}

func TestRun_ContinuingConversationAppendsWithoutRetitling(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	smID := createSystemMessage(t, o.Store, &convstore.SystemMessage{Name: "continuing", Content: "base"})
	user := &convstore.User{ID: "user-3"}

	existing := &convstore.Conversation{
		UserID:          user.ID,
		SystemMessageID: smID,
		Title:           "Original Title",
		Messages: []convstore.Message{
			{Role: "system", Content: "base"},
			{Role: "user", Content: "first question"},
			{Role: "assistant", Content: "first answer"},
		},
	}
	if err := o.Store.CreateConversation(context.Background(), existing); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	req := Request{
		Messages: []providers.Message{
			{Role: "system", Content: "base"},
			{Role: "user", Content: "first question"},
			{Role: "assistant", Content: "first answer"},
			{Role: "user", Content: "follow up question"},
		},
		Model:           "gpt-4o-mini",
		SystemMessageID: smID,
		ConversationID:  existing.ID,
	}

	resp, err := o.Run(context.Background(), req, user, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.ConversationTitle != "Original Title" {
		t.Fatalf("expected title to be left untouched on an existing conversation, got %q", resp.ConversationTitle)
	}
	if resp.ConversationID != existing.ID {
		t.Fatalf("expected the same conversation id, got %q want %q", resp.ConversationID, existing.ID)
	}
}

func TestInjectAttachments_StripsStaleBlockWhenNoAttachmentIDs(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	messages := []providers.Message{
		{Role: "user", Content: "question\n\n--- Attached Files Context ---\nold file\n--- End Attached Files Context ---"},
	}
	query, err := o.injectAttachments(context.Background(), "sess", messages, nil, "user-1")
	if err != nil {
		t.Fatalf("injectAttachments: %v", err)
	}
	if strings.Contains(query, "Attached Files Context") {
		t.Fatalf("expected the stale attachment block stripped, got %q", query)
	}
	if strings.Contains(messages[0].Content, "Attached Files Context") {
		t.Fatalf("expected the message content cleaned too, got %q", messages[0].Content)
	}
}
