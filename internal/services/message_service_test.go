package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/condohub/condo-backend/internal/domain"
	"github.com/condohub/condo-backend/internal/repo"
)

func TestMessageService_ListPage(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	ctx := context.Background()
	convs := NewConversationService(db, RepoConversations{})
	c, _ := convs.GetOrCreate(ctx, f.Building.ID, f.Owner.ID, domain.ChannelWhatsApp)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		m := &domain.Message{
			ConversationID: c.ID,
			BuildingID:     f.Building.ID,
			ResidentID:     f.Owner.ID,
			Direction:      repo.DirectionInbound,
			SenderType:     "owner",
			Channel:        "whatsapp",
			Content:        fmt.Sprintf("m%d", i),
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.SaveMessage(ctx, db, m); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	s := &MessageService{DB: db, Conversations: convs}
	items, total, err := s.ListPage(ctx, f.Building.ID, c.ID, 2, 2)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 5 || len(items) != 2 || items[0].Content != "m2" || items[1].Content != "m3" {
		t.Fatalf("unexpected page: total=%d items=%+v", total, items)
	}

	// Defaults for invalid page/size.
	items, _, _ = s.ListPage(ctx, f.Building.ID, c.ID, 0, 0)
	if len(items) != 5 || items[0].Content != "m0" {
		t.Fatalf("default page: %+v", items)
	}

	n, maxUpd, err := s.Stats(ctx, c.ID)
	if err != nil || n != 5 || maxUpd == nil {
		t.Fatalf("Stats = %d, %v, %v", n, maxUpd, err)
	}
}

func TestMessageService_ListPage_EmptyAndMissing(t *testing.T) {
	db := newTestDB(t)
	f := seed(t, db)
	ctx := context.Background()
	convs := NewConversationService(db, RepoConversations{})
	c, _ := convs.GetOrCreate(ctx, f.Building.ID, f.Owner.ID, domain.ChannelWhatsApp)
	s := &MessageService{DB: db, Conversations: convs}

	items, total, err := s.ListPage(ctx, f.Building.ID, c.ID, 1, 20)
	if err != nil || total != 0 || items == nil || len(items) != 0 {
		t.Fatalf("empty conversation: %v %d %v", items, total, err)
	}
	if _, _, err := s.ListPage(ctx, f.Building.ID, "nope", 1, 20); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
	if _, _, err := s.ListPage(ctx, "other", c.ID, 1, 20); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound for foreign building, got %v", err)
	}
}
