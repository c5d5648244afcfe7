package repo

import (
	"context"
	"testing"
	"time"

	"github.com/condohub/condo-backend/internal/domain"
)

func TestCreateTicket_DefaultsAndList(t *testing.T) {
	db := newTestDB(t, &domain.MaintenanceTicket{})
	ctx := context.Background()

	conv := "c1"
	first := &domain.MaintenanceTicket{
		BuildingID:     "b1",
		ResidentID:     "r1",
		ConversationID: &conv,
		Title:          "Aire Acondicionado",
		Description:    "El aire acondicionado no funciona",
		Category:       "hvac",
		Priority:       "high",
		ExtractedByAI:  true,
		CreatedAt:      time.Now().UTC().Add(-time.Minute),
	}
	if err := CreateTicket(ctx, db, first); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if first.ID == "" || first.Status != TicketOpen {
		t.Fatalf("expected generated ID and open status: %+v", first)
	}
	second := &domain.MaintenanceTicket{BuildingID: "b1", ResidentID: "r2", Title: "Fuga", Description: "fuga", Category: "plumbing", Priority: "medium"}
	if err := CreateTicket(ctx, db, second); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	got, err := ListTickets(ctx, db, "b1")
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if len(got) != 2 || got[0].ID != second.ID || !got[1].ExtractedByAI || got[1].ConversationID == nil || *got[1].ConversationID != "c1" {
		t.Fatalf("unexpected tickets: %+v", got)
	}
}

func TestCreateTicket_Error_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	tk := &domain.MaintenanceTicket{BuildingID: "b1", ResidentID: "r1", Title: "x", Description: "x", Category: "general", Priority: "low"}
	if err := CreateTicket(context.Background(), db, tk); err == nil {
		t.Fatalf("expected error due to missing table")
	}
}
