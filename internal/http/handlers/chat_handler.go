// Chat HTTP handlers.
//
// This file exposes the chat API endpoints:
//   - POST /chat            (answer a question within a session)
//   - GET  /conversations   (list the caller's conversations, paginated)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results (the error taxonomy included) into
// HTTP responses. Authentication is delegated per request: the raw
// Authorization header travels to the service layer, which consults the
// auth service; no signature checking happens here.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-rag-chatbot/internal/domain"
	"github.com/tbourn/go-rag-chatbot/internal/http/middleware"
	"github.com/tbourn/go-rag-chatbot/internal/services"
	"github.com/tbourn/go-rag-chatbot/internal/token"
	"github.com/tbourn/go-rag-chatbot/internal/utils"
)

//
// Service contracts (context-aware)
//

// ChatService runs the full chat pipeline for one request. Implementations
// must be safe for concurrent use and honor the context for cancellation.
type ChatService interface {
	// Answer verifies the caller, replays history, retrieves context,
	// generates a reply, and persists the exchange.
	Answer(ctx context.Context, authorization, sessionID, question string) (*services.ChatResult, error)
}

// ConversationService lists a user's conversation threads.
type ConversationService interface {
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Conversation, int64, error)
}

// Verifier resolves an Authorization header to a username; used by read
// endpoints that need the caller's identity without the chat pipeline.
type Verifier interface {
	Verify(ctx context.Context, authorization string) (string, error)
}

//
// Handler wiring
//

// ChatHandlers groups the chat API endpoints.
type ChatHandlers struct {
	chatSvc  ChatService
	convSvc  ConversationService
	verifier Verifier
}

// NewChat constructs ChatHandlers bound to the given services.
func NewChat(chatSvc ChatService, convSvc ConversationService, verifier Verifier) *ChatHandlers {
	return &ChatHandlers{chatSvc: chatSvc, convSvc: convSvc, verifier: verifier}
}

//
// DTOs
//

// ChatRequest is the JSON payload for POST /chat.
type ChatRequest struct {
	// SessionID continues an existing conversation; omit to start a new one.
	SessionID string `json:"session_id"`
	// Question is the user's query.
	Question string `json:"question" binding:"required"`
}

// ChatResponse is the success body of POST /chat.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListConversationsResponse wraps a page of conversations.
type ListConversationsResponse struct {
	Conversations []domain.Conversation `json:"conversations"`
	Pagination    Pagination            `json:"pagination"`
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

//
// Handlers
//

// PostChat answers a question within a (possibly new) session.
//
// Responses:
//
//	200 {session_id, answer}
//	400 empty/invalid body or question
//	401 missing/malformed/invalid/expired token
//	503 auth service unreachable
//	500 retrieval or generation failure, or empty answer
func (h *ChatHandlers) PostChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	res, err := h.chatSvc.Answer(
		c.Request.Context(),
		c.GetHeader("Authorization"),
		strings.TrimSpace(req.SessionID),
		req.Question,
	)
	if err != nil {
		failFromChatErr(c, err)
		return
	}

	if !res.Saved {
		// The answer was generated but the store write failed; the client
		// still gets the reply, the gap is visible in logs and history.
		middleware.LoggerFrom(c).Warn().
			Str("session_id", res.SessionID).
			Msg("returning unsaved answer")
	}
	ok(c, http.StatusOK, ChatResponse{SessionID: res.SessionID, Answer: res.Answer})
}

// ListConversations returns a page of the caller's conversations ordered by
// most-recently-updated.
func (h *ChatHandlers) ListConversations(c *gin.Context) {
	username, err := h.verifier.Verify(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		failFromChatErr(c, err)
		return
	}

	page, pageSize := clampPagination(c)
	items, total, err := h.convSvc.ListPage(c.Request.Context(), username, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListConversationsResponse{
		Conversations: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// failFromChatErr maps the service and token error taxonomy onto HTTP
// statuses and stable codes.
func failFromChatErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, token.ErrMissingToken),
		errors.Is(err, token.ErrMalformedHeader),
		errors.Is(err, token.ErrInvalidSignature),
		errors.Is(err, token.ErrTokenExpired),
		errors.Is(err, token.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error())
	case errors.Is(err, token.ErrVerifierUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeAuthUnavailable, "auth service unavailable")
	case errors.Is(err, services.ErrEmptyQuestion),
		errors.Is(err, services.ErrQuestionTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrEmptyAnswer):
		fail(c, http.StatusInternalServerError, ErrCodeEmptyAnswer, "no answer produced")
	case errors.Is(err, services.ErrRetrieval),
		errors.Is(err, services.ErrGeneration):
		fail(c, http.StatusInternalServerError, ErrCodeAnswerFailed, "failed to answer the question")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
