// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for conversations
// and their messages.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported as ErrNotFound in db.go).
//   - On DB errors (constraint violations, connectivity issues, etc.) the
//     raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-rag-chatbot/internal/domain"
)

// GetOrCreateConversation returns the conversation for (userID, sessionID),
// creating it when absent. The insert uses ON CONFLICT DO NOTHING against
// the unique (user_id, session_id) index, so concurrent first requests for
// the same pair can never produce two rows: every caller observes exactly
// one winner.
func GetOrCreateConversation(ctx context.Context, db *gorm.DB, userID, sessionID string) (*domain.Conversation, error) {
	now := time.Now().UTC()
	conv := &domain.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "session_id"}},
			DoNothing: true,
		}).
		Create(conv)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 1 {
		return conv, nil
	}

	// Insert was a no-op: the pair already exists (possibly created a moment
	// ago by a concurrent request). Read the winning row.
	var out domain.Conversation
	err := db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AppendMessage inserts a message with a server-assigned UTC timestamp and
// touches the parent conversation's updated_at. Prior messages are never
// overwritten.
func AppendMessage(ctx context.Context, db *gorm.DB, conversationID, role, content string) (*domain.Message, error) {
	m := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	err := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", conversationID).
		Update("updated_at", m.CreatedAt).Error
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMessages returns the most recent limit messages of a conversation in
// ascending (created_at, id) order, i.e. oldest-first within the window.
// limit <= 0 returns the full history.
func ListMessages(ctx context.Context, db *gorm.DB, conversationID string, limit int) ([]domain.Message, error) {
	var out []domain.Message
	q := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	// Fetched newest-first to apply the limit; flip to replay order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// CountConversations returns the total number of conversations owned by
// userID.
func CountConversations(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListConversationsPage returns a slice of the user's conversations ordered
// by most-recently-updated first.
func ListConversationsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Conversation, error) {
	var out []domain.Conversation
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
