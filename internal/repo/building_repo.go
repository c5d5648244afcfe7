// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for buildings,
// units and residents: the read side the intake engine consumes to build its
// per-call BuildingConfig and UnitOccupancy parameters.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
//
// Error semantics:
//   - Missing rows surface as ErrNotFound (gorm.ErrRecordNotFound).
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/condohub/condo-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateBuilding inserts b, assigning an ID and timestamps when missing.
func CreateBuilding(ctx context.Context, db *gorm.DB, b *domain.Building) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(b).Error
}

// GetBuilding fetches a building by ID.
func GetBuilding(ctx context.Context, db *gorm.DB, id string) (*domain.Building, error) {
	var b domain.Building
	if err := db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBuildingConfig loads a building and projects it into a BuildingConfig.
func GetBuildingConfig(ctx context.Context, db *gorm.DB, id string) (domain.BuildingConfig, error) {
	b, err := GetBuilding(ctx, db, id)
	if err != nil {
		return domain.BuildingConfig{}, err
	}
	return b.Config(), nil
}

// GetBuildingByWhatsAppNumber resolves the building that owns a provider
// address. The "whatsapp:" prefix is optional on both sides.
func GetBuildingByWhatsAppNumber(ctx context.Context, db *gorm.DB, number string) (*domain.Building, error) {
	bare := strings.TrimPrefix(strings.TrimSpace(number), "whatsapp:")
	var b domain.Building
	err := db.WithContext(ctx).
		Where("whatsapp_number IN ?", []string{bare, "whatsapp:" + bare}).
		Order("created_at asc").
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateUnit inserts u, assigning an ID when missing.
func CreateUnit(ctx context.Context, db *gorm.DB, u *domain.Unit) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return db.WithContext(ctx).Create(u).Error
}

// CreateResident inserts r, assigning an ID when missing.
func CreateResident(ctx context.Context, db *gorm.DB, r *domain.Resident) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return db.WithContext(ctx).Create(r).Error
}

// GetResident fetches a resident of buildingID by ID.
func GetResident(ctx context.Context, db *gorm.DB, buildingID, id string) (*domain.Resident, error) {
	var r domain.Resident
	err := db.WithContext(ctx).
		Where("id = ? AND building_id = ?", id, buildingID).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetResidentByPhone finds the active resident of buildingID whose phone
// matches. The "whatsapp:" prefix of provider addresses is ignored.
func GetResidentByPhone(ctx context.Context, db *gorm.DB, buildingID, phone string) (*domain.Resident, error) {
	bare := strings.TrimPrefix(strings.TrimSpace(phone), "whatsapp:")
	var r domain.Resident
	err := db.WithContext(ctx).
		Where("building_id = ? AND phone = ? AND active = ?", buildingID, bare, true).
		Order("created_at asc, id asc").
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetUnitOccupancy reports the owner and active renter of unitID. A unit with
// no active residents yields an empty occupancy, not an error.
func GetUnitOccupancy(ctx context.Context, db *gorm.DB, unitID string) (domain.UnitOccupancy, error) {
	occ := domain.UnitOccupancy{UnitID: unitID}
	var rows []domain.Resident
	err := db.WithContext(ctx).
		Where("unit_id = ? AND active = ?", unitID, true).
		Order("created_at asc, id asc").
		Find(&rows).Error
	if err != nil {
		return occ, err
	}
	for _, r := range rows {
		switch domain.SenderType(r.Type) {
		case domain.SenderOwner:
			if occ.OwnerID == "" {
				occ.OwnerID = r.ID
			}
		case domain.SenderRenter:
			if occ.RenterID == "" {
				occ.RenterID = r.ID
			}
		}
	}
	return occ, nil
}
