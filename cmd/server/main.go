package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/arturoeanton/go-youtube-rag/internal/adapter/ai"
	"github.com/arturoeanton/go-youtube-rag/internal/adapter/store"
	"github.com/arturoeanton/go-youtube-rag/internal/adapter/translate"
	"github.com/arturoeanton/go-youtube-rag/internal/adapter/youtube"
	"github.com/arturoeanton/go-youtube-rag/internal/handler"
	"github.com/arturoeanton/go-youtube-rag/internal/mcp"
	"github.com/arturoeanton/go-youtube-rag/internal/middleware"
	"github.com/arturoeanton/go-youtube-rag/internal/port"
	"github.com/arturoeanton/go-youtube-rag/internal/service"
	"github.com/arturoeanton/go-youtube-rag/pkg/config"

	_ "github.com/lib/pq"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("🚀 Starting YouTube RAG Assistant",
		"port", cfg.Port,
		"target_language", cfg.TargetLanguage,
		"embed_provider", cfg.EmbedProvider,
		"completion_provider", cfg.CompletionProvider,
		"index_backend", cfg.IndexBackend,
		"mcp_enabled", cfg.MCPEnabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: cfg.ServiceTimeout}

	// ── AI adapters ──────────────────────────────────────────────────────
	embedCfg := ai.EndpointConfig{
		BaseURL: cfg.EmbedURL,
		Model:   cfg.EmbedModel,
		Token:   cfg.EmbedToken,
		Timeout: cfg.ServiceTimeout,
	}
	var embedder port.Embedder
	switch cfg.EmbedProvider {
	case "openai":
		embedder = ai.NewOpenAIEmbedder(embedCfg)
	default:
		embedder = ai.NewOllamaEmbedder(embedCfg)
	}

	completeCfg := ai.EndpointConfig{
		BaseURL: cfg.CompletionURL,
		Model:   cfg.CompletionModel,
		Token:   cfg.CompletionToken,
		Timeout: cfg.ServiceTimeout,
	}
	var completer port.Completer
	switch cfg.CompletionProvider {
	case "ollama":
		completer = ai.NewOllamaCompleter(completeCfg, cfg.Temperature, cfg.MaxTokens)
	default:
		completer = ai.NewOpenAICompleter(completeCfg, cfg.Temperature, cfg.MaxTokens)
	}

	// ── Index store ──────────────────────────────────────────────────────
	var indexStore port.IndexStore
	switch cfg.IndexBackend {
	case "pgvector":
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL, cfg.EmbeddingDimension)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pgStore.Close()

		if err := pgStore.Migrate(ctx); err != nil {
			slog.Error("database migration failed", "error", err)
			os.Exit(1)
		}
		// Indexes live only for the process lifetime.
		if err := pgStore.Reset(ctx); err != nil {
			slog.Warn("failed to clear stale passages", "error", err)
		}
		indexStore = store.NewVectorStore(pgStore)
	default:
		indexStore = store.NewMemoryStore()
	}

	// ── Transcript pipeline ──────────────────────────────────────────────
	provider := youtube.NewProvider(youtube.Config{HTTPClient: httpClient})

	translateOpts := translate.Options{HTTPClient: httpClient, RatePerSec: cfg.TranslateRatePerSec}
	translator := service.NewTranslator(
		translate.NewGoogle(translateOpts),
		translate.NewMyMemory(translateOpts, cfg.MyMemoryEmail),
		service.TranslatorConfig{
			MaxChunkSize: cfg.TranslateChunkSize,
			Retries:      cfg.TranslateRetries,
			BackoffUnit:  cfg.TranslateBackoffUnit,
			CallTimeout:  cfg.ServiceTimeout,
		},
	)

	transcriptOpts := []service.TranscriptOption{service.WithCallTimeout(cfg.ServiceTimeout)}
	if cfg.TranslateMode == "text" {
		transcriptOpts = append(transcriptOpts, service.WithPlainTextTranslation())
	}
	if cfg.RedisURL != "" {
		cache, err := store.NewTranscriptCache(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("transcript cache disabled", "error", err)
		} else {
			defer cache.Close()
			transcriptOpts = append(transcriptOpts, service.WithTranscriptCache(cache, cfg.TranscriptCacheTTL))
		}
	}
	transcripts := service.NewTranscriptService(provider, translator, transcriptOpts...)

	chunker, err := service.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		slog.Error("invalid chunker configuration", "error", err)
		os.Exit(1)
	}
	indexer := service.NewIndexer(embedder, indexStore, cfg.EmbedBatchSize, cfg.ServiceTimeout)

	session := service.NewSession(transcripts, chunker, indexer, embedder, completer, service.SessionConfig{
		TargetLanguage: cfg.TargetLanguage,
		TopK:           cfg.TopK,
		CallTimeout:    cfg.ServiceTimeout,
	})

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // synchronous ingestion of long videos
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
	}))
	app.Use(middleware.RequestLog(slog.Default()))

	// Health check
	app.Get("/api/v1/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"app":     cfg.AppName,
			"version": "1.0.0",
			"index":   indexStore.Backend(),
		})
	})

	api := app.Group("/api/v1")

	jobTracker := handler.NewJobTracker()

	videoHandler := handler.NewVideoHandler(ctx, session, jobTracker, 10*time.Minute)
	videoHandler.Register(api)

	jobsHandler := handler.NewJobsHandler(jobTracker)
	jobsHandler.Register(api)

	// ── MCP Server (separate port) ───────────────────────────────────────
	var mcpServer *mcp.Server
	if cfg.MCPEnabled {
		mcpServer = mcp.NewServer(session, "youtube-rag", cfg.MCPPort)
		go func() {
			if err := mcpServer.Start(); err != nil {
				slog.Error("MCP server failed", "error", err)
			}
		}()
	}

	// ── Start ────────────────────────────────────────────────────────────
	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if mcpServer != nil {
			if err := mcpServer.Shutdown(shutdownCtx); err != nil {
				slog.Warn("MCP shutdown failed", "error", err)
			}
		}
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			slog.Warn("HTTP shutdown failed", "error", err)
		}
	}()

	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":"+cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := session.Close(cleanupCtx); err != nil {
		slog.Warn("failed to drop active index", "error", err)
	}
}
