package services

import (
	"context"
	"errors"
	"testing"

	"github.com/condohub/condo-backend/internal/domain"
	"github.com/condohub/condo-backend/internal/repo"
)

func TestKnowledgeService_Search_RankingAndEligibility(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	ctx := context.Background()

	low := addKnowledge(t, db, f.Building.ID, "¿Cuál es el horario de la alberca?", "De 7 a 22 h.", 1, "alberca")
	high := addKnowledge(t, db, f.Building.ID, "¿Se permiten mascotas en la alberca?", "No.", 5)
	inactive := domain.KnowledgeEntry{BuildingID: f.Building.ID, Question: "Alberca cerrada", Answer: "x", Priority: 9, Active: false}
	if err := repo.CreateKnowledgeEntry(ctx, db, &inactive); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Same question in another building must not leak.
	other := domain.Building{Name: "Otra"}
	_ = repo.CreateBuilding(ctx, db, &other)
	addKnowledge(t, db, other.ID, "¿Horario de la alberca?", "24 h.", 10)

	s := &KnowledgeService{DB: db}
	got, err := s.Search(ctx, "ALBERCA", f.Building.ID, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 || got[0].ID != high.ID || got[1].ID != low.ID {
		t.Fatalf("unexpected results: %+v", got)
	}

	got, _ = s.Search(ctx, "alberca", f.Building.ID, 1)
	if len(got) != 1 || got[0].ID != high.ID {
		t.Fatalf("limit 1 should keep the top-ranked entry, got %+v", got)
	}
}

func TestKnowledgeService_Search_AccentInsensitive(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	e := addKnowledge(t, db, f.Building.ID, "¿Cuánto es la cuota de mantenimiento?", "$1,500 al mes.", 1)

	got, err := (&KnowledgeService{DB: db}).Search(context.Background(), "cuanto es la cuota", f.Building.ID, 0)
	if err != nil || len(got) != 1 || got[0].ID != e.ID {
		t.Fatalf("got %+v, %v", got, err)
	}
}

func TestKnowledgeService_Best(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	ctx := context.Background()

	pool := addKnowledge(t, db, f.Building.ID, "¿Cuál es el horario de la alberca?", "La alberca abre de 7 a 22 h.", 1, "alberca")
	gym := addKnowledge(t, db, f.Building.ID, "¿Dónde está el gimnasio?", "En el piso 2, junto a la alberca.", 3)
	s := &KnowledgeService{DB: db}

	// Whole query is a substring of the question.
	m, err := s.Best(ctx, "horario de la alberca", f.Building.ID)
	if err != nil || m == nil || m.Entry.ID != pool.ID || !m.Strong {
		t.Fatalf("whole query: got %+v, %v", m, err)
	}

	// Keyword fallback: "alberca" hits the pool entry by keyword (strong) and
	// the gym entry by answer only (weak). Strong wins over rank.
	m, err = s.Best(ctx, "Hola, ¿a qué hora abren la alberca?", f.Building.ID)
	if err != nil || m == nil {
		t.Fatalf("keyword fallback: got %+v, %v", m, err)
	}
	if m.Entry.ID != pool.ID || !m.Strong {
		t.Fatalf("want strong pool hit, got %+v (gym=%s)", m, gym.ID)
	}

	// Nothing at all.
	m, err = s.Best(ctx, "paquetería", f.Building.ID)
	if err != nil || m != nil {
		t.Fatalf("expected no match, got %+v, %v", m, err)
	}
}

func TestKnowledgeService_Best_WholeQueryPrefersStrong(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	ctx := context.Background()

	// Higher priority, but "alberca" appears only in the answer.
	addKnowledge(t, db, f.Building.ID, "¿Dónde está el gimnasio?", "Junto a la alberca.", 5)
	pool := addKnowledge(t, db, f.Building.ID, "¿Horario de la alberca?", "De 7 a 22 h.", 1)

	m, err := (&KnowledgeService{DB: db}).Best(ctx, "alberca", f.Building.ID)
	if err != nil || m == nil {
		t.Fatalf("Best: got %+v, %v", m, err)
	}
	if m.Entry.ID != pool.ID || !m.Strong {
		t.Fatalf("want strong question hit %s, got %+v", pool.ID, m)
	}
}

func TestKnowledgeService_Errors(t *testing.T) {
	s := &KnowledgeService{DB: newTestDB(t)}
	if _, err := s.Search(context.Background(), "x", "  ", 5); !errors.Is(err, ErrLookup) {
		t.Fatalf("expected ErrLookup for empty building, got %v", err)
	}

	db := newTestDB(t)
	if err := db.Migrator().DropTable(&domain.KnowledgeEntry{}); err != nil {
		t.Fatalf("drop: %v", err)
	}
	s = &KnowledgeService{DB: db}
	if _, err := s.Best(context.Background(), "x", "b1"); !errors.Is(err, ErrLookup) {
		t.Fatalf("expected ErrLookup for store failure, got %v", err)
	}
}
