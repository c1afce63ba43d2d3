// Package llm provides the opaque language-model capabilities the chat core
// depends on: turning text into embedding vectors and producing an answer
// from a question, conversation history, and retrieved context. Both are
// expressed as small interfaces so the orchestrator composes them through
// plain function calls and tests substitute fakes.
package llm

import "context"

// Exchange is one completed question/answer turn of a conversation, replayed
// to the generator so follow-up questions resolve references to earlier
// turns.
type Exchange struct {
	Question string
	Answer   string
}

// Embedder converts text into a fixed-length numeric vector.
type Embedder interface {
	// EmbedText embeds a single text.
	EmbedText(ctx context.Context, text string) ([]float32, error)
	// EmbedTexts embeds a batch, returning one vector per input in order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces an answer given the question, the prior exchanges in
// order, and the retrieved context snippets.
type Generator interface {
	Generate(ctx context.Context, question string, history []Exchange, contexts []string) (string, error)
}
