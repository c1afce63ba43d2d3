// Package domain defines the persistence models for conversations, messages,
// and document chunks. These types are mapped with GORM and form the core
// data layer of the retrieval-augmented chat application.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Roles a message author can have inside a conversation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation represents a durable chat thread owned by a user and scoped to
// a client-chosen session identifier. Exactly one conversation exists per
// (user_id, session_id) pair; the composite unique index backs the atomic
// find-or-insert used by the store.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the conversation owner; part of the unique pair
//     and of the (user_id, created_at) listing index.
//   - SessionID: client-chosen session identifier; part of the unique pair.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM; UpdatedAt is touched
//     whenever a message is appended so listings surface active threads first.
type Conversation struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_user_session,priority:1;index:idx_user_convs,priority:1"`
	SessionID string    `json:"session_id" gorm:"type:char(36);not null;uniqueIndex:ux_user_session,priority:2"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_user_convs,priority:2"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message represents a single utterance within a conversation, authored
// either by the "user" or the "assistant". Messages are never updated or
// deleted by the application; history replay relies on the
// (conversation_id, created_at) index for ordered scans.
type Message struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string    `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conv_msgs,priority:1"`
	Role           string    `json:"role"            gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content        string    `json:"content"         gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"created_at"      gorm:"index:idx_conv_msgs,priority:2"`

	// Conversation is the parent thread. Messages are cascade-deleted if the
	// conversation is removed out of band.
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// DocumentChunk is a bounded contiguous slice of a source document together
// with its embedding vector. Chunks for one source document cover it with
// bounded overlap and monotonically increasing offsets.
//
// The primary key is derived from the source document id, the chunk index,
// and a hash of the chunk text, so re-ingesting an unchanged corpus is a
// no-op rather than an accumulation of duplicates.
type DocumentChunk struct {
	ID         string    `json:"id"          gorm:"type:varchar(128);primaryKey"`
	SourceID   string    `json:"source_id"   gorm:"type:varchar(255);not null;index:idx_source_chunks,priority:1"`
	ChunkIndex int       `json:"chunk_index" gorm:"not null;index:idx_source_chunks,priority:2"`
	Text       string    `json:"text"        gorm:"type:text;not null"`
	CharOffset int       `json:"char_offset" gorm:"not null"`
	Embedding  Vector    `json:"-"           gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for DocumentChunk.
func (DocumentChunk) TableName() string { return "document_chunks" }

// Vector is a fixed-length embedding stored as a JSON array in a text column.
// SQLite has no native array type; JSON keeps the column readable and the
// round trip lossless for float32 components.
type Vector []float32

// Value implements driver.Valuer.
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]float32(v))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (v *Vector) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		*v = nil
		return nil
	case []byte:
		return json.Unmarshal(s, (*[]float32)(v))
	case string:
		return json.Unmarshal([]byte(s), (*[]float32)(v))
	default:
		return errors.New("domain: unsupported source type for Vector")
	}
}
