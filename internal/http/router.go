// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers for both binaries: the chat API and the
// auth service. It centralizes cross-cutting concerns such as tracing,
// correlation IDs, logging, panic recovery, metrics, CORS, security headers,
// and rate limiting.
//
// Design goals:
//   - Observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-rag-chatbot/internal/config"
	"github.com/tbourn/go-rag-chatbot/internal/http/handlers"
	"github.com/tbourn/go-rag-chatbot/internal/http/middleware"
	"github.com/tbourn/go-rag-chatbot/internal/llm"
	"github.com/tbourn/go-rag-chatbot/internal/services"
	"github.com/tbourn/go-rag-chatbot/internal/token"
)

// RegisterChatRoutes attaches middleware and the chat API endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured logs (Authorization values never recorded)
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip and Metrics
//  7. Rate limiter (per client IP; runs before the auth delegation call so
//     abusive traffic never reaches the auth service)
//  8. CORS and security headers
func RegisterChatRoutes(
	r *gin.Engine,
	db *gorm.DB,
	retriever services.Retriever,
	verifier token.Verifier,
	embedder services.Embedder,
	generator llm.Generator,
	cfg config.Config,
) {
	useCommonMiddleware(r, cfg)

	// Dependency injection: services ← store/index/capabilities.
	chatSvc := &services.ChatService{
		DB:               db,
		Verifier:         verifier,
		Embedder:         embedder,
		Retriever:        retriever,
		Generator:        generator,
		TopK:             cfg.Retrieval.TopK,
		DiversityWeight:  cfg.Retrieval.DiversityWeight,
		HistoryLimit:     50,
		MaxQuestionRunes: 2000,
	}
	convSvc := &services.ConversationService{DB: db}
	h := handlers.NewChat(chatSvc, convSvc, verifier)

	r.POST("/chat", h.PostChat)
	r.GET("/conversations", h.ListConversations)
}

// RegisterAuthRoutes attaches middleware and the token service endpoints to r.
func RegisterAuthRoutes(r *gin.Engine, svc *token.Service, cfg config.Config) {
	useCommonMiddleware(r, cfg)

	h := handlers.NewAuth(svc)
	r.POST("/token", h.PostToken)
	r.GET("/verify", h.GetVerify)
}

// useCommonMiddleware installs the shared middleware chain plus the /health
// and /metrics endpoints and the JSON fallbacks for unmatched routes.
func useCommonMiddleware(r *gin.Engine, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	r.Use(rl.Handler())

	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
		NoStore:    false,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader; oversized bodies error on read downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
