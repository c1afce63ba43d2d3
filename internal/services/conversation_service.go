// Package services – ConversationService
//
// Listing of a user's conversations, most recently updated first, with
// pagination defaults applied here so handlers stay transport-thin.
package services

import (
	"context"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-rag-chatbot/internal/domain"
	"github.com/tbourn/go-rag-chatbot/internal/repo"
)

// ConversationService provides read access to a user's conversation threads.
type ConversationService struct {
	DB *gorm.DB
}

// ListPage returns a page of the user's conversations ordered by
// most-recently-updated, plus the total count. Invalid paging values fall
// back to page 1 / size 20.
func (s *ConversationService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Conversation, int64, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountConversations(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Conversation{}, 0, nil
	}

	items, err := repo.ListConversationsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}
