package services

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/condohub/condo-backend/internal/domain"
	"github.com/condohub/condo-backend/internal/repo"
)

// ---------- test helpers ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type fixture struct {
	Building domain.Building
	Unit     domain.Unit
	Owner    domain.Resident
	Renter   domain.Resident
}

// seed creates a building with one unit occupied by an owner and an active
// renter.
func seed(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	ctx := context.Background()
	f := fixture{
		Building: domain.Building{Name: "Torre Norte", WhatsAppNumber: "whatsapp:+5215550001111", DefaultLanguage: "es", AdminEmail: "admin@torre.mx"},
	}
	if err := repo.CreateBuilding(ctx, db, &f.Building); err != nil {
		t.Fatalf("create building: %v", err)
	}
	f.Unit = domain.Unit{BuildingID: f.Building.ID, Number: "101"}
	if err := repo.CreateUnit(ctx, db, &f.Unit); err != nil {
		t.Fatalf("create unit: %v", err)
	}
	f.Owner = domain.Resident{BuildingID: f.Building.ID, UnitID: f.Unit.ID, Name: "Ana", Phone: "+5215550002222", Type: "owner", Active: true}
	if err := repo.CreateResident(ctx, db, &f.Owner); err != nil {
		t.Fatalf("create owner: %v", err)
	}
	f.Renter = domain.Resident{BuildingID: f.Building.ID, UnitID: f.Unit.ID, Name: "Luis", Phone: "+5215550003333", Type: "renter", Language: "en-US", Active: true}
	if err := repo.CreateResident(ctx, db, &f.Renter); err != nil {
		t.Fatalf("create renter: %v", err)
	}
	return f
}

func addKnowledge(t *testing.T, db *gorm.DB, buildingID, question, answer string, priority int, keywords ...string) domain.KnowledgeEntry {
	t.Helper()
	e := domain.KnowledgeEntry{
		BuildingID: buildingID,
		Question:   question,
		Answer:     answer,
		Keywords:   keywords,
		Priority:   priority,
		Active:     true,
	}
	if err := repo.CreateKnowledgeEntry(context.Background(), db, &e); err != nil {
		t.Fatalf("create knowledge: %v", err)
	}
	return e
}
