// Package main is the entry point for the token issuance service.
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

	"github.com/tbourn/go-rag-chatbot/internal/config"
	httpapi "github.com/tbourn/go-rag-chatbot/internal/http"
	"github.com/tbourn/go-rag-chatbot/internal/observability"
	"github.com/tbourn/go-rag-chatbot/internal/sysutil"
	"github.com/tbourn/go-rag-chatbot/internal/token"
)

var version = "dev"

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	sysutil.SetupLogger("auth", cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	if cfg.Auth.SecretKey == "" {
		log.Fatal().Msg("SECRET_KEY is required")
	}

	ctx := context.Background()
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	creds, err := token.NewStaticCredentials(cfg.Auth.DemoUsername, cfg.Auth.DemoPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("credential setup failed")
	}
	svc := token.NewService(cfg.Auth.SecretKey, cfg.Auth.TokenTTL, creds)

	r := gin.New()
	httpapi.RegisterAuthRoutes(r, svc, cfg)

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
		log.Info().Str("port", cfg.Port).Str("version", version).Msg("auth service listening")
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
