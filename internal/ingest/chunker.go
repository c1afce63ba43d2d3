// Package ingest loads raw documents, splits them into overlapping chunks,
// computes embeddings, and writes the chunks into the vector store. The
// chunker is deliberately simple and deterministic: a sliding window over the
// document's runes with a fixed size and overlap, advancing by size-overlap
// per step, so every pair of consecutive chunks shares exactly the overlap
// region and chunk offsets increase monotonically.
package ingest

// Chunk is one window over a source document's text.
type Chunk struct {
	Index  int    // position within the document, starting at 0
	Offset int    // rune offset of the window start
	Text   string // window content; the last chunk may be shorter than size
}

// SplitText splits text into chunks of at most size runes, with each chunk
// overlapping its predecessor by overlap runes. The window start advances by
// size-overlap per step; the final window is the remainder and is never
// empty. Empty input yields no chunks.
//
// For size=1000 and overlap=200 the offsets are 0, 800, 1600, ... until the
// remainder fits in one window.
func SplitText(text string, size, overlap int) []Chunk {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	stride := size - overlap
	out := make([]Chunk, 0, (len(runes)+stride-1)/stride)
	for start := 0; start < len(runes); start += stride {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, Chunk{
			Index:  len(out),
			Offset: start,
			Text:   string(runes[start:end]),
		})
		if end == len(runes) {
			// The tail is covered; a further step would only produce a
			// window already contained in this one.
			break
		}
	}
	return out
}
