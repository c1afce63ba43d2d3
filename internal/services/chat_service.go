// Package services – ChatService
//
// This file implements the ChatService, the orchestrator at the top of every
// chat request. It verifies the caller by delegating to the auth service
// (it never holds the signing secret), resolves the conversation for the
// (user, session) pair, reconstructs the question/answer history, retrieves
// relevant chunks from the vector index, invokes the generation capability,
// and persists the new exchange.
//
// The request proceeds through a linear sequence of states with no back
// edges (AuthCheck, LoadHistory, Retrieve, Generate, Persist, Respond), and
// any state can exit with an error. None of the downstream calls is retried
// here; retry policy belongs to the caller.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// user/session identifiers and retrieval parameters.
package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-rag-chatbot/internal/domain"
	"github.com/tbourn/go-rag-chatbot/internal/llm"
	"github.com/tbourn/go-rag-chatbot/internal/repo"
	"github.com/tbourn/go-rag-chatbot/internal/token"
)

// Retriever answers nearest-neighbor queries over the chunk index.
// *index.Index satisfies this.
type Retriever interface {
	Search(queryVec []float32, k int, diversityWeight float64) []domain.DocumentChunk
}

// Embedder is the single-text embedding capability the orchestrator needs.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// ChatResult is the outcome of one chat request.
type ChatResult struct {
	// SessionID identifies the conversation; newly generated when the
	// request carried none.
	SessionID string `json:"session_id"`
	// Answer is the generated assistant reply.
	Answer string `json:"answer"`
	// Saved reports whether the exchange reached the store. A false value
	// means the answer is real but unpersisted: the caller still gets it
	// rather than losing a computed reply to a write failure.
	Saved bool `json:"-"`
}

// ChatService coordinates auth delegation, history replay, retrieval,
// generation, and persistence for chat requests.
type ChatService struct {
	DB        *gorm.DB
	Verifier  token.Verifier
	Embedder  Embedder
	Retriever Retriever
	Generator llm.Generator

	// Retrieval tuning.
	TopK            int
	DiversityWeight float64

	// HistoryLimit caps how many stored messages are replayed; <= 0 loads
	// the full history.
	HistoryLimit int

	// MaxQuestionRunes guards against oversized prompts; <= 0 disables.
	MaxQuestionRunes int
}

// Answer runs the full request pipeline and returns the generated reply.
//
// sessionID may be empty, in which case a fresh UUID is minted and returned
// in the result. Auth errors and verifier unavailability surface as the
// token package's sentinels; retrieval and generation failures surface as
// ErrRetrieval / ErrGeneration; an empty generation result is ErrEmptyAnswer.
// A persistence failure after generation does not discard the answer: the
// result is returned with Saved=false and the failure is logged.
func (s *ChatService) Answer(ctx context.Context, authorization, sessionID, question string) (*ChatResult, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Answer",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int("retrieval.k", s.TopK),
		),
	)
	defer span.End()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if s.MaxQuestionRunes > 0 && utf8.RuneCountInString(question) > s.MaxQuestionRunes {
		return nil, ErrQuestionTooLong
	}

	// AuthCheck: delegated verification, bounded by the verifier's timeout.
	username, err := s.Verifier.Verify(ctx, authorization)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", username))

	// LoadHistory: resolve the conversation and replay prior exchanges.
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	conv, err := repo.GetOrCreateConversation(ctx, s.DB, username, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}
	msgs, err := repo.ListMessages(ctx, s.DB, conv.ID, s.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	history := pairExchanges(msgs)

	// Retrieve: embed the question, then diversity-aware top-k search.
	queryVec, err := s.Embedder.EmbedText(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %v", ErrRetrieval, err)
	}
	chunks := s.Retriever.Search(queryVec, s.TopK, s.DiversityWeight)
	contexts := make([]string, len(chunks))
	for i, c := range chunks {
		contexts[i] = c.Text
	}
	span.SetAttributes(attribute.Int("retrieval.hits", len(chunks)))

	// Generate.
	answer, err := s.Generator.Generate(ctx, question, history, contexts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if strings.TrimSpace(answer) == "" {
		return nil, ErrEmptyAnswer
	}

	result := &ChatResult{SessionID: sessionID, Answer: answer, Saved: true}

	// Persist: question before answer, in one transaction so a half-written
	// exchange never survives.
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.AppendMessage(ctx, tx, conv.ID, domain.RoleUser, question); err != nil {
			return err
		}
		_, err := repo.AppendMessage(ctx, tx, conv.ID, domain.RoleAssistant, answer)
		return err
	})
	if err != nil {
		// Deliberate policy: prefer returning an unsaved answer over
		// silently dropping it. The caller can inspect Saved.
		log.Error().Err(err).
			Str("user_id", username).
			Str("session_id", sessionID).
			Msg("exchange not persisted")
		result.Saved = false
	}

	return result, nil
}

// pairExchanges reconstructs the alternating (question, answer) turns from
// stored messages in replay order. Each user message is paired with the
// immediately following assistant message; user messages without a following
// assistant reply (e.g. a request that failed after Persist started) are
// skipped, as are orphaned assistant messages.
func pairExchanges(msgs []domain.Message) []llm.Exchange {
	out := make([]llm.Exchange, 0, len(msgs)/2)
	for i := 0; i < len(msgs); i++ {
		if msgs[i].Role != domain.RoleUser {
			continue
		}
		if i+1 < len(msgs) && msgs[i+1].Role == domain.RoleAssistant {
			out = append(out, llm.Exchange{
				Question: msgs[i].Content,
				Answer:   msgs[i+1].Content,
			})
			i++
		}
	}
	return out
}
