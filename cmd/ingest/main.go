// Package main is the document ingestion CLI. It chunks every document under
// a directory, embeds the chunks, and writes them to the SQLite store the
// chat API warms its vector index from.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-rag-chatbot/internal/config"
	"github.com/tbourn/go-rag-chatbot/internal/domain"
	"github.com/tbourn/go-rag-chatbot/internal/ingest"
	"github.com/tbourn/go-rag-chatbot/internal/llm"
	"github.com/tbourn/go-rag-chatbot/internal/repo"
	"github.com/tbourn/go-rag-chatbot/internal/sysutil"
)

// chunkWriterShim adapts the repository free functions to ingest.ChunkWriter.
type chunkWriterShim struct{ db *gorm.DB }

func (s chunkWriterShim) UpsertChunk(ctx context.Context, chunk *domain.DocumentChunk) (bool, error) {
	return repo.UpsertChunk(ctx, s.db, chunk)
}

func main() {
	docsFlag := flag.String("docs", "", "directory of documents to ingest (overrides DOCS_PATH)")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall ingestion deadline")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.MustLoad()
	sysutil.SetupLogger("ingest", cfg.LogLevel, cfg.LogPretty)

	dir := sysutil.FirstNonEmpty(*docsFlag, cfg.DocsPath)

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	ai, err := llm.NewOpenAIClient(cfg.OpenAI)
	if err != nil {
		log.Fatal().Err(err).Msg("openai client init failed")
	}

	docs, err := ingest.LoadDocuments(dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", dir).Msg("load documents failed")
	}
	if len(docs) == 0 {
		log.Warn().Str("dir", dir).Msg("no documents found")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	p := &ingest.Pipeline{
		Embedder:     ai,
		Store:        chunkWriterShim{db: db},
		ChunkSize:    cfg.Retrieval.ChunkSize,
		ChunkOverlap: cfg.Retrieval.ChunkOverlap,
	}
	written, err := p.Ingest(ctx, docs)
	if err != nil {
		log.Fatal().Err(err).Int("written", written).Msg("ingestion failed")
	}

	total, err := repo.CountChunks(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("count chunks failed")
	}
	fmt.Printf("ingested %d documents, wrote %d new chunks (%d total)\n", len(docs), written, total)
}
