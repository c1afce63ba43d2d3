// Package main is the entry point for the chat API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-rag-chatbot/internal/config"
	"github.com/tbourn/go-rag-chatbot/internal/domain"
	httpapi "github.com/tbourn/go-rag-chatbot/internal/http"
	"github.com/tbourn/go-rag-chatbot/internal/index"
	"github.com/tbourn/go-rag-chatbot/internal/llm"
	"github.com/tbourn/go-rag-chatbot/internal/observability"
	"github.com/tbourn/go-rag-chatbot/internal/repo"
	"github.com/tbourn/go-rag-chatbot/internal/sysutil"
	"github.com/tbourn/go-rag-chatbot/internal/token"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

// chunkStoreShim adapts the repository free functions to the index.ChunkLoader
// interface so the index can be warmed from persisted chunks at startup.
type chunkStoreShim struct{ db *gorm.DB }

func (s chunkStoreShim) ListChunks(ctx context.Context) ([]domain.DocumentChunk, error) {
	return repo.ListChunks(ctx, s.db)
}

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	sysutil.SetupLogger("chat-api", cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	idx, err := index.NewFromStore(ctx, chunkStoreShim{db: db})
	if err != nil {
		log.Fatal().Err(err).Msg("index warm-up failed")
	}
	log.Info().Int("chunks", idx.Len()).Msg("vector index loaded")

	ai, err := llm.NewOpenAIClient(cfg.OpenAI)
	if err != nil {
		log.Fatal().Err(err).Msg("openai client init failed")
	}

	verifier := token.NewRemoteVerifier(cfg.Auth.VerifyURL, cfg.Auth.VerifyTimeout)

	r := gin.New()
	httpapi.RegisterChatRoutes(r, db, idx, verifier, ai, ai, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("version", version).Msg("chat api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown failed")
	}
	log.Info().Msg("stopped")
}
