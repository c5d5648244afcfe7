// Package services – MessageService
//
// This file implements MessageService, the read side of conversation
// history. Messages are written by the action dispatcher during intake; this
// service pages through them for admins and exposes the aggregate used for
// conditional responses.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include the conversation identifier and pagination parameters.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/condohub/condo-backend/internal/domain"
	"github.com/condohub/condo-backend/internal/repo"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// MessageService lists messages of a conversation.
type MessageService struct {
	DB            *gorm.DB
	Conversations *ConversationService
}

// ListPage returns paginated messages for a conversation of buildingID,
// oldest first, plus the total count.
func (s *MessageService) ListPage(ctx context.Context, buildingID, conversationID string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	offset := (page - 1) * pageSize

	if _, err := s.Conversations.Get(ctx, buildingID, conversationID); err != nil {
		return nil, 0, err
	}

	total, err := repo.CountMessages(ctx, s.DB, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := repo.ListMessagesPage(ctx, s.DB, conversationID, offset, pageSize)
	return items, total, err
}

// Stats returns the message count and latest update time of a conversation.
func (s *MessageService) Stats(ctx context.Context, conversationID string) (int64, *time.Time, error) {
	return repo.MessagesStats(ctx, s.DB, conversationID)
}
