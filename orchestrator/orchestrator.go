// Package orchestrator implements the Chat Orchestrator (C12): the
// per-request pipeline that assembles context, fans out to the other
// subsystems, and commits a durable conversation record. Grounded on
// original_source/orchestration/chat_orchestrator.py's ChatOrchestrator.
package orchestrator

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/ghiac/chatforge/apperr"
	"github.com/ghiac/chatforge/attachments"
	"github.com/ghiac/chatforge/convstore"
	"github.com/ghiac/chatforge/fsutil"
	"github.com/ghiac/chatforge/llmrouter"
	"github.com/ghiac/chatforge/log"
	"github.com/ghiac/chatforge/providers"
	"github.com/ghiac/chatforge/status"
	"github.com/ghiac/chatforge/vectorstore"
	"github.com/ghiac/chatforge/websearch"
)

// EmbeddingModelTokenLimit bounds the semantic-search query before it must
// be rewritten or truncated (§4.1 step 6).
const EmbeddingModelTokenLimit = 8190

// Orchestrator holds every collaborator the pipeline calls, mirroring the
// constructor parameter list of the original ChatOrchestrator.
type Orchestrator struct {
	Status      *status.Manager
	Store       convstore.Store
	Processor   *vectorstore.FileProcessor
	Attachments *attachments.Handler
	Brave       *websearch.BraveClient
	LLM         *llmrouter.Bag
	Resolver    *fsutil.Resolver
}

// New wires an Orchestrator from its collaborators.
func New(statusMgr *status.Manager, store convstore.Store, processor *vectorstore.FileProcessor, attach *attachments.Handler, brave *websearch.BraveClient, llm *llmrouter.Bag, resolver *fsutil.Resolver) *Orchestrator {
	return &Orchestrator{
		Status:      statusMgr,
		Store:       store,
		Processor:   processor,
		Attachments: attach,
		Brave:       brave,
		LLM:         llm,
		Resolver:    resolver,
	}
}

// Request carries every per-turn input named in spec.md §4.1.
type Request struct {
	Messages         []providers.Message
	Model            string
	Temperature      float32
	SystemMessageID  string
	EnableWebSearch  bool
	EnableDeepSearch bool
	ConversationID   string
	UserTimezone     string
	ExtendedThinking bool
	ThinkingBudget   int
	AttachmentIDs    []string
	ReasoningEffort  string
}

// Response is the JSON payload returned at the end of a successful turn
// (§4.1 step 11).
type Response struct {
	Response               string
	ConversationID         string
	ConversationTitle      string
	VectorSearchResults    string
	GeneratedSearchQueries []string
	WebSearchResults       string
	SystemMessageContent   string
	ThinkingProcess        string
	PromptTokens           int
	CompletionTokens       int
	TotalTokens            int
	EnableWebSearch        bool
	EnableDeepSearch       bool
	ModelName              string
}

var attachmentBlockRegex = regexp.MustCompile(`\n*--- Attached Files Context ---[\s\S]*?--- End Attached Files Context ---\n*`)

// Run executes the 12-step pipeline for one chat turn. sessionID may be
// empty, in which case a fresh status session is created for userID.
func (o *Orchestrator) Run(ctx context.Context, req Request, user *convstore.User, sessionID string) (*Response, error) {
	if sessionID == "" {
		sessionID = o.Status.CreateSession(user.ID)
	}
	defer o.Status.RemoveConnection(sessionID, true)

	o.Status.SendStatusUpdate(sessionID, "Initializing conversation", "")

	// Step 2: load conversation.
	conversation, err := o.loadConversation(ctx, req.ConversationID, user)
	if err != nil {
		return nil, err
	}

	// Step 3: load system message.
	o.Status.SendStatusUpdate(sessionID, "Loading system message", "")
	systemMessage, err := o.Store.GetSystemMessage(ctx, req.SystemMessageID)
	if err != nil {
		o.Status.SendStatusUpdate(sessionID, "System message not found", "error")
		return nil, err
	}

	messages := append([]providers.Message(nil), req.Messages...)

	// Step 4: attachment injection.
	semanticQuery, err := o.injectAttachments(ctx, sessionID, messages, req.AttachmentIDs, user.ID)
	if err != nil {
		return nil, err
	}

	// Step 5: time context.
	if systemMessage.EnableTimeSense {
		o.Status.SendStatusUpdate(sessionID, "Processing time context information", "")
		messages = applyTimeContext(messages, req.UserTimezone)
	}
	sysIdx := systemMessageIndex(messages)
	if sysIdx == -1 {
		messages = append([]providers.Message{{Role: "system", Content: ""}}, messages...)
		sysIdx = 0
	}

	// Step 6: semantic retrieval.
	o.Status.SendStatusUpdate(sessionID, "Checking document database", "")
	vectorResult, err := o.runSemanticRetrieval(ctx, req.SystemMessageID, semanticQuery)
	if err != nil {
		log.Log.Errorf("orchestrator[%s]: semantic retrieval failed: %v", sessionID, err)
		o.Status.SendStatusUpdate(sessionID, "Error searching document database", "error")
	}
	if vectorResult != "" {
		messages[sysIdx].Content += "\n\n<Added Context Provided by Vector Search>\n" + vectorResult + "\n</Added Context Provided by Vector Search>"
		o.Status.SendStatusUpdate(sessionID, "Found relevant information in documents", "")
	} else {
		o.Status.SendStatusUpdate(sessionID, "No relevant documents found", "")
	}

	// Step 7: web search.
	var searchQueries []string
	var webSummary string
	if req.EnableWebSearch {
		searchQueries, webSummary = o.runWebSearch(ctx, sessionID, req, messages, semanticQuery, user.ID)
		if webSummary != "" {
			messages[sysIdx].Content += "\n\n<Added Context Provided by Web Search>\n" + webSummary + "\n</Added Context Provided by Web Search>"
			messages[sysIdx].Content += "\n\nIMPORTANT: In your response, please include relevant footnotes using [1], [2], etc. At the end of your response, list all sources under a 'Sources:' section, providing full URLs for each footnote."
		}
	}

	// Step 8: LLM call.
	o.Status.SendStatusUpdate(sessionID, "Generating final analysis and response using model: "+req.Model, "")
	opts := providers.GenerateOpts{ReasoningEffort: req.ReasoningEffort}
	if req.Model == "claude-3-7-sonnet-20250219" && req.ExtendedThinking {
		opts.ExtendedThinking = true
		opts.ThinkingBudget = req.ThinkingBudget
	}
	result, err := llmrouter.Generate(ctx, o.LLM, req.Model, messages, req.Temperature, opts)
	if err != nil {
		o.Status.SendStatusUpdate(sessionID, "Error getting response from AI model", "error")
		return nil, apperr.WrapProviderError(err, "model %s produced no response", req.Model)
	}

	// Step 9: tokenization.
	promptTokens := llmrouter.CountTokens(result.Model, messages)
	completionTokens := llmrouter.CountTokens(result.Model, []providers.Message{{Role: "assistant", Content: result.Content}})
	totalTokens := promptTokens + completionTokens

	assistantMessages := append(messages, providers.Message{Role: "assistant", Content: result.Content})

	// Step 10: persist.
	o.Status.SendStatusUpdate(sessionID, "Saving conversation", "")
	conversation, title, err := o.persist(ctx, conversation, req, user, assistantMessages, vectorResult, searchQueries, webSummary, totalTokens, result.Model)
	if err != nil {
		return nil, err
	}

	return &Response{
		Response:               result.Content,
		ConversationID:         conversation.ID,
		ConversationTitle:      title,
		VectorSearchResults:    vectorResult,
		GeneratedSearchQueries: searchQueries,
		WebSearchResults:       webSummary,
		SystemMessageContent:   messages[sysIdx].Content,
		ThinkingProcess:        result.Thinking,
		PromptTokens:           promptTokens,
		CompletionTokens:       completionTokens,
		TotalTokens:            totalTokens,
		EnableWebSearch:        req.EnableWebSearch,
		EnableDeepSearch:       req.EnableDeepSearch,
		ModelName:              result.Model,
	}, nil
}

func (o *Orchestrator) loadConversation(ctx context.Context, conversationID string, user *convstore.User) (*convstore.Conversation, error) {
	if conversationID == "" {
		return nil, nil
	}
	conv, err := o.Store.GetConversation(ctx, conversationID)
	if err != nil || conv.UserID != user.ID {
		log.Log.Infof("orchestrator: no valid conversation %s, starting a new one", conversationID)
		return nil, nil
	}
	return conv, nil
}

func systemMessageIndex(messages []providers.Message) int {
	for i, m := range messages {
		if m.Role == "system" {
			return i
		}
	}
	return -1
}

// injectAttachments implements step 4: strip any stale attachment block
// from the last user message, fetch fresh content for every attachment id,
// and append it — but only to the text sent to the LLM. It returns the
// text used for semantic search, which never carries the attachment block
// or its injected content.
func (o *Orchestrator) injectAttachments(ctx context.Context, sessionID string, messages []providers.Message, attachmentIDs []string, userID string) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}
	lastIdx := len(messages) - 1
	original := messages[lastIdx].Content
	withoutBlock := strings.TrimSpace(attachmentBlockRegex.ReplaceAllString(original, ""))

	if len(attachmentIDs) == 0 {
		messages[lastIdx].Content = withoutBlock
		return withoutBlock, nil
	}

	o.Status.SendStatusUpdate(sessionID, "Processing session attachments...", "")
	var blocks []string
	for _, id := range attachmentIDs {
		text, filename, _, err := o.Attachments.GetContent(ctx, userID, id)
		if err != nil {
			log.Log.Errorf("orchestrator[%s]: could not retrieve attachment %s: %v", sessionID, id, err)
			continue
		}
		blocks = append(blocks, "\n--- Content from "+filename+" ---\n"+text+"\n--- End Content from "+filename+" ---")
	}

	if len(blocks) == 0 {
		messages[lastIdx].Content = withoutBlock
		return withoutBlock, nil
	}

	injected := strings.Join(blocks, "\n")
	messages[lastIdx].Content = strings.TrimSpace(withoutBlock + "\n\n" + injected)
	return withoutBlock, nil
}

// runSemanticRetrieval implements step 6: rewrite an over-long query before
// querying the vector index; a retrieval error never fails the turn.
func (o *Orchestrator) runSemanticRetrieval(ctx context.Context, systemMessageID, query string) (string, error) {
	tokenCount := llmrouter.CountTokens("gpt-", []providers.Message{{Content: query}})
	searchQuery := query
	if tokenCount > EmbeddingModelTokenLimit {
		rewritten, err := rewriteConciseQuery(ctx, o.LLM, query)
		if err == nil && rewritten != "" {
			searchQuery = rewritten
		}
		if llmrouter.CountTokens("gpt-", []providers.Message{{Content: searchQuery}}) > EmbeddingModelTokenLimit {
			maxChars := EmbeddingModelTokenLimit * 3
			if len(searchQuery) > maxChars {
				searchQuery = searchQuery[:maxChars]
			}
		}
	}
	if llmrouter.CountTokens("gpt-", []providers.Message{{Content: searchQuery}}) > int(float64(EmbeddingModelTokenLimit)*1.5) {
		return "", nil
	}

	text, ok, err := o.Processor.Query(ctx, systemMessageID, searchQuery)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return text, nil
}

// runWebSearch implements step 7: dispatch to the standard or deep
// pipeline; any failure is logged and the turn continues without web
// context.
func (o *Orchestrator) runWebSearch(ctx context.Context, sessionID string, req Request, messages []providers.Message, understoodQuery, userID string) ([]string, string) {
	o.Status.SendStatusUpdate(sessionID, "Starting web search process", "")

	interpretation, err := websearch.UnderstandQuery(ctx, o.LLM, understandModel(req), messages, understoodQuery)
	if err != nil {
		interpretation = understoodQuery
	}

	var queries []string
	var summary string
	if req.EnableDeepSearch {
		queries, summary, err = websearch.DeepSearch(ctx, o.LLM, req.Model, interpretation, userID, req.SystemMessageID, o.Brave, o.Resolver)
	} else {
		queries, summary, err = websearch.StandardSearch(ctx, o.LLM, req.Model, messages, interpretation, userID, req.SystemMessageID, o.Brave, o.Resolver)
	}
	if err != nil {
		log.Log.Errorf("orchestrator[%s]: web search failed: %v", sessionID, err)
		o.Status.SendStatusUpdate(sessionID, "Error during web search process", "error")
		return nil, ""
	}
	o.Status.SendStatusUpdate(sessionID, "Web search completed, processing results", "")
	return queries, summary
}

func understandModel(req Request) string {
	if req.EnableDeepSearch {
		return req.Model
	}
	return "gpt-4o-mini-2024-07-18"
}

// persist implements step 10: create or update the conversation row, set
// the per-turn side data, and generate a title for new conversations.
func (o *Orchestrator) persist(ctx context.Context, conversation *convstore.Conversation, req Request, user *convstore.User, messages []providers.Message, vectorResult string, searchQueries []string, webSummary string, totalTokens int, modelName string) (*convstore.Conversation, string, error) {
	now := time.Now().UTC()
	isNew := conversation == nil
	if isNew {
		conversation = &convstore.Conversation{
			UserID:          user.ID,
			SystemMessageID: req.SystemMessageID,
			ModelName:       modelName,
			Temperature:     req.Temperature,
			TokenCount:      totalTokens,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
	} else {
		conversation.TokenCount += totalTokens
		conversation.ModelName = modelName
		conversation.Temperature = req.Temperature
		conversation.UpdatedAt = now
	}

	conversation.Messages = toConvMessages(messages)
	conversation.LastVectorSearchResult = vectorResult
	conversation.LastSearchQueries = searchQueries
	conversation.LastWebSearchSummary = webSummary

	if isNew {
		conversation.Title = generateSummaryTitle(ctx, o.LLM, messages)
		if err := o.Store.CreateConversation(ctx, conversation); err != nil {
			return nil, "", apperr.WrapStoreError(err, "create conversation for user %s", user.ID)
		}
	} else {
		if err := o.Store.UpdateConversation(ctx, conversation); err != nil {
			return nil, "", apperr.WrapStoreError(err, "update conversation %s", conversation.ID)
		}
	}
	return conversation, conversation.Title, nil
}

func toConvMessages(messages []providers.Message) []convstore.Message {
	out := make([]convstore.Message, len(messages))
	for i, m := range messages {
		out[i] = convstore.Message{Role: m.Role, Content: m.Content, CreatedAt: time.Now().UTC()}
	}
	return out
}
