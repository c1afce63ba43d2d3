// Ingestion pipeline: documents -> chunks -> embeddings -> store.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-rag-chatbot/internal/domain"
)

// Document is a raw source document handed to the pipeline.
type Document struct {
	ID   string // stable source identifier (e.g. relative file path)
	Text string
}

// Embedder turns a batch of texts into fixed-length vectors, one per input,
// in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkWriter persists a chunk. Writes are keyed by the chunk ID, so
// re-ingesting unchanged content is a no-op rather than an accumulation of
// duplicate rows.
type ChunkWriter interface {
	UpsertChunk(ctx context.Context, chunk *domain.DocumentChunk) (created bool, err error)
}

// Indexer receives chunks for in-memory similarity search.
type Indexer interface {
	Add(chunk domain.DocumentChunk)
}

// Pipeline chunks, embeds, and stores documents. All collaborators are
// injected; the pipeline holds no global state.
type Pipeline struct {
	Embedder Embedder
	Store    ChunkWriter
	Index    Indexer

	ChunkSize    int
	ChunkOverlap int
}

// Ingest processes every document and returns the number of chunks written
// to the store. Chunks whose (source, index, content) already exist are
// re-added to the index but not counted as written.
func (p *Pipeline) Ingest(ctx context.Context, docs []Document) (int, error) {
	written := 0
	for _, doc := range docs {
		chunks := SplitText(doc.Text, p.ChunkSize, p.ChunkOverlap)
		if len(chunks) == 0 {
			log.Warn().Str("source_id", doc.ID).Msg("document produced no chunks")
			continue
		}

		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vecs, err := p.Embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return written, fmt.Errorf("embed %q: %w", doc.ID, err)
		}
		if len(vecs) != len(chunks) {
			return written, fmt.Errorf("embed %q: got %d vectors for %d chunks", doc.ID, len(vecs), len(chunks))
		}

		for i, c := range chunks {
			rec := domain.DocumentChunk{
				ID:         ChunkID(doc.ID, c.Index, c.Text),
				SourceID:   doc.ID,
				ChunkIndex: c.Index,
				Text:       c.Text,
				CharOffset: c.Offset,
				Embedding:  domain.Vector(vecs[i]),
				CreatedAt:  time.Now().UTC(),
			}
			created, err := p.Store.UpsertChunk(ctx, &rec)
			if err != nil {
				return written, fmt.Errorf("store chunk %s: %w", rec.ID, err)
			}
			if created {
				written++
			}
			if p.Index != nil {
				p.Index.Add(rec)
			}
		}
		log.Info().Str("source_id", doc.ID).Int("chunks", len(chunks)).Msg("document ingested")
	}
	return written, nil
}

// ChunkID derives the stable chunk key from the source document id, the
// chunk position, and a digest of the chunk text. Identical content maps to
// the identical key across ingestion runs.
func ChunkID(sourceID string, index int, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s:%d:%s", sourceID, index, hex.EncodeToString(sum[:8]))
}
