// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for document
// chunks, the durable side of the vector index.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-rag-chatbot/internal/domain"
)

// UpsertChunk inserts a chunk, doing nothing when a row with the same ID
// already exists. The ID encodes (source, index, content hash), so an
// unchanged chunk from a re-ingestion run is skipped rather than duplicated.
// The returned flag reports whether a new row was written.
func UpsertChunk(ctx context.Context, db *gorm.DB, chunk *domain.DocumentChunk) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(chunk)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListChunks returns every stored chunk ordered by (source_id, chunk_index),
// used to rebuild the in-memory index at startup.
func ListChunks(ctx context.Context, db *gorm.DB) ([]domain.DocumentChunk, error) {
	var out []domain.DocumentChunk
	err := db.WithContext(ctx).
		Order("source_id ASC, chunk_index ASC").
		Find(&out).Error
	return out, err
}

// CountChunks returns the total number of stored chunks.
func CountChunks(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.DocumentChunk{}).Count(&total).Error
	return total, err
}
