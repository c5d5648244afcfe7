package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/condohub/condo-backend/internal/domain"
)

func TestSaveMessage_RoundTrip(t *testing.T) {
	db := newTestDB(t, &domain.Conversation{}, &domain.Message{})
	ctx := context.Background()

	c, err := CreateConversation(ctx, db, "b1", "r1", "whatsapp")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	m := &domain.Message{
		ConversationID: c.ID,
		BuildingID:     "b1",
		ResidentID:     "r1",
		Direction:      DirectionInbound,
		SenderType:     "renter",
		Channel:        "whatsapp",
		Content:        "El aire acondicionado no funciona",
		Intent:         "maintenance_request",
		Priority:       "high",
		RoutedTo:       []string{"owner"},
		ExtractedData:  map[string]any{"location": "unit 101"},
	}
	if err := SaveMessage(ctx, db, m); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}
	if m.ID == "" || m.CreatedAt.IsZero() {
		t.Fatalf("expected generated ID/CreatedAt: %+v", m)
	}

	got, err := GetMessage(ctx, db, m.ID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if got.Content != m.Content || got.SenderType != "renter" || got.ConversationID != c.ID {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if len(got.RoutedTo) != 1 || got.RoutedTo[0] != "owner" {
		t.Fatalf("RoutedTo = %v", got.RoutedTo)
	}
	if got.ExtractedData["location"] != "unit 101" {
		t.Fatalf("ExtractedData = %v", got.ExtractedData)
	}

	if _, err := GetMessage(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveMessage_RejectsUnknownSenderType(t *testing.T) {
	db := newTestDB(t, &domain.Message{})
	m := &domain.Message{ConversationID: "c1", BuildingID: "b1", ResidentID: "r1", Direction: DirectionInbound, SenderType: "guest", Channel: "web", Content: "x"}
	if err := SaveMessage(context.Background(), db, m); err == nil {
		t.Fatalf("expected check violation for sender_type")
	}
}

func TestCountMessages_Error_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	if _, err := CountMessages(context.Background(), db, "c1"); err == nil {
		t.Fatalf("expected error due to missing messages table")
	}
}

func TestListMessagesPage_PaginationAndOrder(t *testing.T) {
	db := newTestDB(t, &domain.Message{})
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		m := &domain.Message{
			ID:             fmt.Sprintf("m%d", i),
			ConversationID: "c1",
			BuildingID:     "b1",
			ResidentID:     "r1",
			Direction:      DirectionInbound,
			SenderType:     "owner",
			Channel:        "web",
			Content:        fmt.Sprintf("msg %d", i),
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := SaveMessage(ctx, db, m); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
	// Noise in another conversation.
	_ = SaveMessage(ctx, db, &domain.Message{ConversationID: "c2", BuildingID: "b1", ResidentID: "r2", Direction: DirectionInbound, SenderType: "owner", Channel: "web", Content: "other"})

	total, err := CountMessages(ctx, db, "c1")
	if err != nil || total != 5 {
		t.Fatalf("CountMessages = %d, %v", total, err)
	}

	page, err := ListMessagesPage(ctx, db, "c1", 2, 2)
	if err != nil {
		t.Fatalf("ListMessagesPage: %v", err)
	}
	if len(page) != 2 || page[0].ID != "m2" || page[1].ID != "m3" {
		t.Fatalf("unexpected page: %+v", page)
	}
}
