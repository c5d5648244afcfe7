// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Conversation model.
//
// Functions:
//
//   - GetActiveConversation(ctx, db, buildingID, residentID, channel) -> *domain.Conversation, error
//     Returns the single active thread for the triple, or ErrNotFound.
//
//   - CreateConversation(ctx, db, buildingID, residentID, channel) -> *domain.Conversation, error
//     Inserts an active thread; returns ErrDuplicate when another writer won
//     the partial unique index race.
//
//   - TouchConversation(ctx, db, id, at) -> error
//     Sets last_message_at and nothing else.
//
//   - MarkConversationForReview(ctx, db, id) -> error
//     Raises the needs_review flag without touching status.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/condohub/condo-backend/internal/domain"
)

// Conversation statuses.
const (
	ConversationActive   = "active"
	ConversationResolved = "resolved"
	ConversationArchived = "archived"
)

// GetActiveConversation returns the active conversation for the resident on
// channel within buildingID.
func GetActiveConversation(ctx context.Context, db *gorm.DB, buildingID, residentID, channel string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).
		Where("building_id = ? AND resident_id = ? AND channel = ? AND status = ?", buildingID, residentID, channel, ConversationActive).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateConversation inserts a new active conversation. A concurrent insert for
// the same (building, resident, channel) surfaces as ErrDuplicate.
func CreateConversation(ctx context.Context, db *gorm.DB, buildingID, residentID, channel string) (*domain.Conversation, error) {
	now := time.Now().UTC()
	c := &domain.Conversation{
		ID:            uuid.NewString(),
		BuildingID:    buildingID,
		ResidentID:    residentID,
		Channel:       channel,
		Status:        ConversationActive,
		LastMessageAt: now,
		CreatedAt:     now,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return c, nil
}

// GetConversation fetches a conversation by ID.
func GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// TouchConversation sets last_message_at to at. UpdateColumn skips hooks and
// the updated_at bump so the row's other columns are left as they were.
func TouchConversation(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		UpdateColumn("last_message_at", at.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkConversationForReview flags the conversation for a human.
func MarkConversationForReview(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		UpdateColumn("needs_review", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
