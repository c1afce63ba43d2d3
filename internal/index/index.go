// Package index provides an in-memory vector index over document chunks with
// diversity-aware nearest-neighbor search. Chunks are persisted elsewhere
// (see repo); the index is rebuilt from the store at startup and kept hot in
// memory, which is adequate for a single-process deployment.
//
// Search ranks candidates by maximal marginal relevance: a blended score that
// rewards similarity to the query and penalizes similarity to results already
// selected, so the returned set favors both relevance and non-redundancy.
// Results are deterministic for a fixed index state and query; ties break by
// chunk id ascending.
package index

import (
	"context"
	"sort"
	"sync"

	"github.com/tbourn/go-rag-chatbot/internal/domain"
)

// ChunkLoader supplies all persisted chunks, used to warm the index.
type ChunkLoader interface {
	ListChunks(ctx context.Context) ([]domain.DocumentChunk, error)
}

// Index is a concurrency-safe in-memory vector index.
type Index struct {
	mu     sync.RWMutex
	chunks map[string]domain.DocumentChunk
}

// New returns an empty index.
func New() *Index {
	return &Index{chunks: make(map[string]domain.DocumentChunk)}
}

// NewFromStore builds an index holding every chunk the loader returns.
func NewFromStore(ctx context.Context, loader ChunkLoader) (*Index, error) {
	chunks, err := loader.ListChunks(ctx)
	if err != nil {
		return nil, err
	}
	idx := New()
	for _, c := range chunks {
		idx.Add(c)
	}
	return idx, nil
}

// Add stores or replaces a chunk. Chunks without an embedding are kept but
// never rank in searches.
func (i *Index) Add(chunk domain.DocumentChunk) {
	i.mu.Lock()
	i.chunks[chunk.ID] = chunk
	i.mu.Unlock()
}

// Len returns the number of indexed chunks.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.chunks)
}

// scored pairs a chunk with its query similarity during selection.
type scored struct {
	chunk domain.DocumentChunk
	sim   float64
}

// Search returns up to k chunks ranked by maximal marginal relevance against
// queryVec. diversityWeight in [0,1] sets the redundancy penalty: 0 is plain
// nearest-neighbor order, 1 ranks purely by dissimilarity to already-selected
// results. The same chunk id never appears twice.
func (i *Index) Search(queryVec []float32, k int, diversityWeight float64) []domain.DocumentChunk {
	if k <= 0 || len(queryVec) == 0 {
		return nil
	}
	if diversityWeight < 0 {
		diversityWeight = 0
	}
	if diversityWeight > 1 {
		diversityWeight = 1
	}

	i.mu.RLock()
	candidates := make([]scored, 0, len(i.chunks))
	for _, c := range i.chunks {
		sim := CosineSimilarity(queryVec, c.Embedding)
		if sim <= 0 {
			continue
		}
		candidates = append(candidates, scored{chunk: c, sim: sim})
	}
	i.mu.RUnlock()

	if len(candidates) == 0 {
		return nil
	}

	// Deterministic candidate order before selection: similarity descending,
	// then chunk id ascending. Map iteration order must never leak through.
	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].sim != candidates[b].sim {
			return candidates[a].sim > candidates[b].sim
		}
		return candidates[a].chunk.ID < candidates[b].chunk.ID
	})

	if k > len(candidates) {
		k = len(candidates)
	}

	selected := make([]domain.DocumentChunk, 0, k)
	remaining := candidates
	for len(selected) < k && len(remaining) > 0 {
		bestIdx := 0
		bestScore := mmrScore(remaining[0], selected, diversityWeight)
		for j := 1; j < len(remaining); j++ {
			score := mmrScore(remaining[j], selected, diversityWeight)
			if score > bestScore ||
				(score == bestScore && remaining[j].chunk.ID < remaining[bestIdx].chunk.ID) {
				bestIdx, bestScore = j, score
			}
		}
		selected = append(selected, remaining[bestIdx].chunk)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

// mmrScore blends query relevance with dissimilarity to the selected set:
// (1-w)*sim(query,c) - w*max over s in selected of sim(c,s).
func mmrScore(c scored, selected []domain.DocumentChunk, w float64) float64 {
	if len(selected) == 0 {
		return c.sim
	}
	var maxRedundancy float64
	for _, s := range selected {
		if r := CosineSimilarity(c.chunk.Embedding, s.Embedding); r > maxRedundancy {
			maxRedundancy = r
		}
	}
	return (1-w)*c.sim - w*maxRedundancy
}
