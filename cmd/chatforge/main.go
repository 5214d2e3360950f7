// Command chatforge starts the chat-orchestration HTTP server: it loads
// configuration, wires every subsystem (conversation store, semantic
// retrieval, web search, session attachments, status sessions, the LLM
// router) and serves the external-interfaces table over gin plus a status
// websocket. Grounded on cmd/agentize/main.go's load-config/construct/serve
// shape.
package main

import (
	"context"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	openai "github.com/sashabaranov/go-openai"

	"github.com/ghiac/chatforge/attachments"
	"github.com/ghiac/chatforge/config"
	"github.com/ghiac/chatforge/convstore"
	"github.com/ghiac/chatforge/extractor"
	"github.com/ghiac/chatforge/fsutil"
	"github.com/ghiac/chatforge/httpapi"
	"github.com/ghiac/chatforge/llmrouter"
	"github.com/ghiac/chatforge/orchestrator"
	"github.com/ghiac/chatforge/providers"
	"github.com/ghiac/chatforge/scheduler"
	"github.com/ghiac/chatforge/status"
	"github.com/ghiac/chatforge/vectorstore"
	"github.com/ghiac/chatforge/websearch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("chatforge: config: %v", err)
	}

	store, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("chatforge: store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.EnsureDefaultSystemMessage(ctx); err != nil {
		log.Fatalf("chatforge: default system message: %v", err)
	}

	resolver := fsutil.NewResolver(cfg.BaseUploadFolder)

	embeddingStore, err := vectorstore.NewEmbeddingStore(cfg.VectorStorePath, cfg.DatabaseURL, embeddingFuncFor(cfg))
	if err != nil {
		log.Fatalf("chatforge: embedding store: %v", err)
	}
	processor := vectorstore.NewFileProcessor(embeddingStore)

	extractorClient := extractor.New(cfg.LLMWhisperer.APIKey, cfg.LLMWhisperer.BaseURL)
	fileManager := vectorstore.NewFileManager(store, resolver, extractorClient, processor)
	attachHandler := attachments.New(resolver, extractorClient)

	statusMgr := status.NewManager()
	brave := websearch.NewBraveClient(cfg.BraveSearchAPIKey)
	bag := buildProviderBag(ctx, cfg)

	orch := orchestrator.New(statusMgr, store, processor, attachHandler, brave, bag, resolver)

	sched := scheduler.New(statusMgr, scheduler.Config{
		Enabled:       cfg.Scheduler.Enabled,
		CheckInterval: cfg.Scheduler.CheckInterval,
		DisableLogs:   cfg.Scheduler.DisableLogs,
	})
	sched.Start(ctx)
	defer sched.Stop()

	if !cfg.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api := httpapi.New(orch, store, fileManager, attachHandler, statusMgr)
	api.RegisterRoutes(router)

	if err := router.Run(cfg.GetAddress()); err != nil {
		log.Fatalf("chatforge: server: %v", err)
	}
}

// buildStore selects the Conversation Store backend from DatabaseURL's
// scheme: mongodb(+srv):// talks to Mongo, anything else is treated as a
// SQLite file path (matching the default AppEnv=development experience of
// running against a local file with no external database).
func buildStore(cfg *config.Config) (convstore.Store, error) {
	if strings.HasPrefix(cfg.DatabaseURL, "mongodb://") || strings.HasPrefix(cfg.DatabaseURL, "mongodb+srv://") {
		return convstore.NewMongoStore(convstore.MongoStoreConfig{URI: cfg.DatabaseURL, Database: databaseNameFromURL(cfg.DatabaseURL)})
	}
	return convstore.NewSQLiteStore(strings.TrimPrefix(cfg.DatabaseURL, "sqlite://"))
}

func databaseNameFromURL(databaseURL string) string {
	parts := strings.Split(strings.TrimPrefix(databaseURL, "mongodb://"), "/")
	if len(parts) < 2 || parts[1] == "" {
		return "chatforge"
	}
	return strings.SplitN(parts[1], "?", 2)[0]
}

// embeddingFuncFor wires the embedding function off a second, raw go-openai
// client: vectorstore.NewOpenAIEmbeddingFunc needs the unwrapped SDK type,
// which providers.OpenAIClient deliberately keeps private behind its own
// narrow Client interface.
func embeddingFuncFor(cfg *config.Config) func(ctx context.Context, text string) ([]float32, error) {
	client := openai.NewClient(cfg.Providers.OpenAI)
	return vectorstore.NewOpenAIEmbeddingFunc(client)
}

// buildProviderBag wires one provider client per configured credential; an
// absent key leaves that slot nil, and llmrouter.Generate reports a Config
// error rather than panicking when a model routes to it.
func buildProviderBag(ctx context.Context, cfg *config.Config) *llmrouter.Bag {
	bag := &llmrouter.Bag{}
	if cfg.Providers.OpenAI != "" {
		bag.OpenAI = providers.NewOpenAIClient(cfg.Providers.OpenAI)
	}
	if cfg.Providers.Anthropic != "" {
		bag.Anthropic = providers.NewAnthropicClient(cfg.Providers.Anthropic)
	}
	if cfg.Providers.Google != "" {
		gemini, err := providers.NewGeminiClient(ctx, cfg.Providers.Google)
		if err != nil {
			log.Printf("chatforge: gemini client unavailable: %v", err)
		} else {
			bag.Gemini = gemini
			llmrouter.SetGeminiCounter(gemini.CountTokens)
		}
	}
	if cfg.Providers.Cerebras != "" {
		bag.Cerebras = providers.NewCerebrasClient(cfg.Providers.Cerebras)
	}
	return bag
}
