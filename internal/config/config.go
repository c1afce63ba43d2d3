// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the chat
// API, the auth service, and the ingestion CLI: server timeouts, logging,
// database paths, token signing, retrieval tuning, model selection, rate
// limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-rag-chatbot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AuthConfig groups token issuance and verification settings.
//
// The chat API only uses VerifyURL/VerifyTimeout; it never sees the signing
// secret. The auth service uses SecretKey/TokenTTL plus the demo credential.
type AuthConfig struct {
	SecretKey     string        // SECRET_KEY (HS256 signing key, auth service only)
	TokenTTL      time.Duration // TOKEN_TTL_MINUTES (minutes)
	VerifyURL     string        // AUTH_VERIFY_URL (e.g. "http://auth:8001/verify")
	VerifyTimeout time.Duration // AUTH_VERIFY_TIMEOUT
	DemoUsername  string        // DEMO_USERNAME
	DemoPassword  string        // DEMO_PASSWORD (hashed at startup, never stored)
}

// RetrievalConfig tunes chunking and vector search.
type RetrievalConfig struct {
	ChunkSize       int     // CHUNK_SIZE (runes per chunk)
	ChunkOverlap    int     // CHUNK_OVERLAP (runes shared between neighbors)
	TopK            int     // RETRIEVAL_K (max chunks returned per query)
	DiversityWeight float64 // DIVERSITY_WEIGHT in [0,1] (MMR lambda complement)
}

// OpenAIConfig selects the generation and embedding models.
type OpenAIConfig struct {
	APIKey         string  // OPENAI_API_KEY
	Model          string  // OPENAI_MODEL (chat completion model)
	EmbeddingModel string  // EMBEDDING_MODEL
	Temperature    float64 // OPENAI_TEMPERATURE
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// App
	DBPath   string // SQLite path (conversations, messages, chunks)
	DocsPath string // directory of source documents for ingestion

	// Domain
	Auth      AuthConfig
	Retrieval RetrievalConfig
	OpenAI    OpenAIConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8090"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// App
		DBPath:   getenv("DB_PATH", "app.db"),
		DocsPath: getenv("DOCS_PATH", "docs"),

		Auth: AuthConfig{
			SecretKey:     getenv("SECRET_KEY", ""),
			TokenTTL:      time.Duration(getint("TOKEN_TTL_MINUTES", 30)) * time.Minute,
			VerifyURL:     getenv("AUTH_VERIFY_URL", "http://localhost:8001/verify"),
			VerifyTimeout: getdur("AUTH_VERIFY_TIMEOUT", 5*time.Second),
			DemoUsername:  getenv("DEMO_USERNAME", "demo"),
			DemoPassword:  getenv("DEMO_PASSWORD", "demo-password"),
		},

		Retrieval: RetrievalConfig{
			ChunkSize:       getint("CHUNK_SIZE", 1000),
			ChunkOverlap:    getint("CHUNK_OVERLAP", 200),
			TopK:            getint("RETRIEVAL_K", 6),
			DiversityWeight: getfloat("DIVERSITY_WEIGHT", 0.5),
		},

		OpenAI: OpenAIConfig{
			APIKey:         getenv("OPENAI_API_KEY", ""),
			Model:          getenv("OPENAI_MODEL", "gpt-4o-mini"),
			EmbeddingModel: getenv("EMBEDDING_MODEL", "text-embedding-3-small"),
			Temperature:    getfloat("OPENAI_TEMPERATURE", 1.0),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-rag-chatbot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return cfg, errors.New("TOKEN_TTL_MINUTES must be > 0")
	}
	if cfg.Auth.VerifyTimeout <= 0 {
		return cfg, errors.New("AUTH_VERIFY_TIMEOUT must be > 0")
	}
	if cfg.Retrieval.ChunkSize <= 0 {
		return cfg, errors.New("CHUNK_SIZE must be > 0")
	}
	if cfg.Retrieval.ChunkOverlap < 0 || cfg.Retrieval.ChunkOverlap >= cfg.Retrieval.ChunkSize {
		return cfg, errors.New("CHUNK_OVERLAP must be in [0, CHUNK_SIZE)")
	}
	if cfg.Retrieval.TopK < 1 {
		return cfg, errors.New("RETRIEVAL_K must be >= 1")
	}
	if cfg.Retrieval.DiversityWeight < 0 || cfg.Retrieval.DiversityWeight > 1 {
		return cfg, errors.New("DIVERSITY_WEIGHT must be in [0,1]")
	}
	if cfg.OpenAI.Temperature < 0 || cfg.OpenAI.Temperature > 2 {
		return cfg, errors.New("OPENAI_TEMPERATURE must be in [0,2]")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
