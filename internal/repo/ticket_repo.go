package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/condohub/condo-backend/internal/domain"
)

// Ticket statuses. The intake engine only ever creates TicketOpen.
const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"
)

// CreateTicket inserts t with status open unless one is set.
func CreateTicket(ctx context.Context, db *gorm.DB, t *domain.MaintenanceTicket) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TicketOpen
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(t).Error
}

// ListTickets returns the tickets of buildingID, newest first.
func ListTickets(ctx context.Context, db *gorm.DB, buildingID string) ([]domain.MaintenanceTicket, error) {
	var out []domain.MaintenanceTicket
	err := db.WithContext(ctx).
		Where("building_id = ?", buildingID).
		Order("created_at desc, id desc").
		Find(&out).Error
	return out, err
}
