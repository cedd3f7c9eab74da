// Visionnaire: a personalized, retrieval-augmented conversational assistant.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/joho/godotenv"

	"github.com/visionnaire/assistant-go/auth"
	"github.com/visionnaire/assistant-go/config"
	"github.com/visionnaire/assistant-go/engine"
	"github.com/visionnaire/assistant-go/memory"
	openaiembed "github.com/visionnaire/assistant-go/memory/embedder/openai"
	"github.com/visionnaire/assistant-go/memory/store/chromem"
	"github.com/visionnaire/assistant-go/observability"
	"github.com/visionnaire/assistant-go/server"
	"github.com/visionnaire/assistant-go/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	if anthropicKey == "" {
		log.Fatal("ANTHROPIC_API_KEY environment variable is required")
	}
	openaiKey := os.Getenv("OPENAI_API_KEY")
	if openaiKey == "" {
		log.Fatal("OPENAI_API_KEY environment variable is required")
	}

	store, err := chromem.New()
	if err != nil {
		log.Fatalf("vector store init failed: %v", err)
	}
	defer store.Close()

	embedder, err := openaiembed.New(openaiKey, openaiembed.Config{
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
	})
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}

	memCfg := &memory.Config{
		MaxHistory: cfg.MaxHistory,
		FetchLimit: cfg.HistoryFetchLimit,
		TopK:       cfg.TopK,
	}
	reconciler := memory.NewReconciler(store, embedder.Dimensions(), memCfg)
	recorder := memory.NewRecorder(store, embedder)
	knowledge := memory.NewKnowledgeBase(store, embedder, memCfg)

	client := anthropic.NewClient(option.WithAPIKey(anthropicKey))
	generator := engine.NewAnthropicGenerator(&client, cfg.AnthropicModel, cfg.AnthropicMaxTokens)
	responder := engine.NewResponder(knowledge, generator, nil)

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	eng := engine.NewEngine(reconciler, responder, recorder, engine.WithMetrics(metrics))

	var authenticator auth.Authenticator
	switch cfg.AuthMode {
	case config.AuthModeProvider:
		provider, err := auth.NewProvider(cfg.IdentityURL, nil)
		if err != nil {
			log.Fatalf("identity provider init failed: %v", err)
		}
		authenticator = provider
		log.Printf("[AUTH] Using identity provider at %s", cfg.IdentityURL)
	default:
		registry, err := auth.NewRegistry(cfg.RegistryPath)
		if err != nil {
			log.Fatalf("registry init failed: %v", err)
		}
		defer registry.Close()
		authenticator = registry
		log.Printf("[AUTH] Using flat user registry at %s", cfg.RegistryPath)
	}
	cached, err := auth.NewCachedAuthenticator(authenticator, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("session cache init failed: %v", err)
	}

	srv := server.New(server.Config{
		Auth:      cached,
		Engine:    eng,
		Sessions:  session.NewManager(cfg.SessionInactivityTimeout),
		Knowledge: knowledge,
	})

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: srv.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("[SERVER] Listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[SERVER] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[SERVER] Shutdown error: %v", err)
	}
}
