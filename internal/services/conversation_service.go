// Package services – ConversationService
//
// This file implements the ConversationService, which owns the active
// conversation of a resident on a channel. GetOrCreate is the only creation
// path; the repository's partial unique index turns a lost creation race into
// ErrDuplicate, after which the winner is re-read. Status transitions beyond
// "active" belong to admin workflows and are not exposed here.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/condohub/condo-backend/internal/domain"
	"github.com/condohub/condo-backend/internal/repo"
)

// ConversationRepo defines the repository contract required by
// ConversationService.
type ConversationRepo interface {
	// GetActiveConversation returns the active conversation for the triple.
	GetActiveConversation(ctx context.Context, db *gorm.DB, buildingID, residentID, channel string) (*domain.Conversation, error)

	// CreateConversation inserts a new active conversation; a concurrent
	// duplicate surfaces as repo.ErrDuplicate.
	CreateConversation(ctx context.Context, db *gorm.DB, buildingID, residentID, channel string) (*domain.Conversation, error)

	// GetConversation fetches a conversation by ID.
	GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error)

	// TouchConversation sets last_message_at.
	TouchConversation(ctx context.Context, db *gorm.DB, id string, at time.Time) error

	// MarkConversationForReview sets needs_review.
	MarkConversationForReview(ctx context.Context, db *gorm.DB, id string) error
}

// ConversationService provides conversation lookup and bookkeeping.
type ConversationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the conversation repository used by this service.
	Repo ConversationRepo
	// Now overrides the clock in tests.
	Now func() time.Time
}

// NewConversationService constructs a ConversationService.
func NewConversationService(db *gorm.DB, r ConversationRepo) *ConversationService {
	return &ConversationService{DB: db, Repo: r}
}

// GetOrCreate returns the active conversation for (building, resident,
// channel), creating it when none exists.
func (s *ConversationService) GetOrCreate(ctx context.Context, buildingID, residentID string, ch domain.Channel) (*domain.Conversation, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "GetOrCreate",
		trace.WithAttributes(
			attribute.String("building.id", buildingID),
			attribute.String("resident.id", residentID),
			attribute.String("channel", string(ch)),
		),
	)
	defer span.End()

	if !ch.Valid() {
		return nil, ErrInvalidChannel
	}

	c, err := s.Repo.GetActiveConversation(ctx, s.DB, buildingID, residentID, string(ch))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	c, err = s.Repo.CreateConversation(ctx, s.DB, buildingID, residentID, string(ch))
	if errors.Is(err, repo.ErrDuplicate) {
		// Someone else created it between our read and insert.
		span.AddEvent("creation race lost")
		return s.Repo.GetActiveConversation(ctx, s.DB, buildingID, residentID, string(ch))
	}
	return c, err
}

// Get fetches a conversation and checks it belongs to buildingID. An empty
// buildingID skips the ownership check.
func (s *ConversationService) Get(ctx context.Context, buildingID, id string) (*domain.Conversation, error) {
	c, err := s.Repo.GetConversation(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if buildingID != "" && c.BuildingID != buildingID {
		return nil, ErrConversationNotFound
	}
	return c, nil
}

// Touch records activity on the conversation. Only last_message_at changes.
func (s *ConversationService) Touch(ctx context.Context, id string) error {
	err := s.Repo.TouchConversation(ctx, s.DB, id, s.now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrConversationNotFound
	}
	return err
}

// MarkForReview flags the conversation for a human; status is untouched.
func (s *ConversationService) MarkForReview(ctx context.Context, id string) error {
	err := s.Repo.MarkConversationForReview(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrConversationNotFound
	}
	return err
}

func (s *ConversationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
