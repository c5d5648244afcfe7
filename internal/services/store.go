package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/condohub/condo-backend/internal/domain"
	"github.com/condohub/condo-backend/internal/repo"
)

// RepoConversations satisfies ConversationRepo with the repo package.
type RepoConversations struct{}

func (RepoConversations) GetActiveConversation(ctx context.Context, db *gorm.DB, buildingID, residentID, channel string) (*domain.Conversation, error) {
	return repo.GetActiveConversation(ctx, db, buildingID, residentID, channel)
}

func (RepoConversations) CreateConversation(ctx context.Context, db *gorm.DB, buildingID, residentID, channel string) (*domain.Conversation, error) {
	return repo.CreateConversation(ctx, db, buildingID, residentID, channel)
}

func (RepoConversations) GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	return repo.GetConversation(ctx, db, id)
}

func (RepoConversations) TouchConversation(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	return repo.TouchConversation(ctx, db, id, at)
}

func (RepoConversations) MarkConversationForReview(ctx context.Context, db *gorm.DB, id string) error {
	return repo.MarkConversationForReview(ctx, db, id)
}

// DispatchStore is the GORM-backed persistence used by the action
// dispatcher.
type DispatchStore struct {
	DB *gorm.DB
}

// SaveMessage persists one inbound or outbound message.
func (s DispatchStore) SaveMessage(ctx context.Context, m *domain.Message) error {
	return repo.SaveMessage(ctx, s.DB, m)
}

// CreateTicket persists a maintenance ticket.
func (s DispatchStore) CreateTicket(ctx context.Context, t *domain.MaintenanceTicket) error {
	return repo.CreateTicket(ctx, s.DB, t)
}

// MarkForReview flags the conversation for a human.
func (s DispatchStore) MarkForReview(ctx context.Context, conversationID string) error {
	return repo.MarkConversationForReview(ctx, s.DB, conversationID)
}
