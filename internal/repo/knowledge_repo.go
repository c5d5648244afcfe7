package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/condohub/condo-backend/internal/domain"
)

// ListActiveKnowledge returns every active entry of buildingID in ranking
// order: priority descending, then most recently created, then id.
func ListActiveKnowledge(ctx context.Context, db *gorm.DB, buildingID string) ([]domain.KnowledgeEntry, error) {
	var out []domain.KnowledgeEntry
	err := db.WithContext(ctx).
		Where("building_id = ? AND active = ?", buildingID, true).
		Order("priority DESC, created_at DESC, id ASC").
		Find(&out).Error
	return out, err
}

// CreateKnowledgeEntry inserts e, assigning an ID and creation time when missing.
func CreateKnowledgeEntry(ctx context.Context, db *gorm.DB, e *domain.KnowledgeEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(e).Error
}
