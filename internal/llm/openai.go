// OpenAI-backed Embedder and Generator.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tbourn/go-rag-chatbot/internal/config"
)

const systemPromptTemplate = "You are a helpful customer support assistant. " +
	"Answer the user's question using the context below. If the context does " +
	"not contain the answer, say that you don't have that information; do not " +
	"make anything up.\n\n--- CONTEXT START ---\n%s\n--- CONTEXT END ---"

// OpenAIClient implements Embedder and Generator against the OpenAI API.
type OpenAIClient struct {
	client         *openai.Client
	model          string
	embeddingModel openai.EmbeddingModel
	temperature    float32
}

// NewOpenAIClient constructs a client from configuration. The API key is
// required; model names fall back to the config defaults.
func NewOpenAIClient(cfg config.OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: OpenAI API key is required")
	}
	return &OpenAIClient{
		client:         openai.NewClient(cfg.APIKey),
		model:          cfg.Model,
		embeddingModel: openai.EmbeddingModel(cfg.EmbeddingModel),
		temperature:    float32(cfg.Temperature),
	}, nil
}

// EmbedText implements Embedder for a single input.
func (c *OpenAIClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedTexts implements Embedder for a batch.
func (c *OpenAIClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: c.embeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: embedding request: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("llm: embedding response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("llm: embedding response index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Generate implements Generator. The retrieved context rides in the system
// prompt; prior exchanges are replayed as alternating user/assistant
// messages so the model sees the conversation the way it happened.
func (c *OpenAIClient) Generate(ctx context.Context, question string, history []Exchange, contexts []string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2*len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: fmt.Sprintf(systemPromptTemplate, strings.Join(contexts, "\n\n")),
	})
	for _, ex := range history {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: ex.Question},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: ex.Answer},
		)
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: question,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
