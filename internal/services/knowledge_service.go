// Package services – KnowledgeService
//
// This file implements KnowledgeService, which answers natural-language
// queries from a building's knowledge base. Eligible entries are loaded from
// the repository already ranked (priority DESC, created_at DESC) and matched in
// memory with search.Matcher, so ranking never depends on match quality.
//
// Failures wrap ErrLookup; the intake pipeline treats them as non-fatal and
// keeps the classifier's own suggested reply.
package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/condohub/condo-backend/internal/domain"
	"github.com/condohub/condo-backend/internal/repo"
	"github.com/condohub/condo-backend/internal/search"
)

// maxQueryTerms bounds how many keywords of a long message are tried when the
// message as a whole matches nothing.
const maxQueryTerms = 8

// KnowledgeService looks up building knowledge entries.
type KnowledgeService struct {
	DB *gorm.DB

	// MatchOptions are passed to search.NewMatcher.
	MatchOptions []search.Option
}

// Search returns up to limit eligible entries matching query, in ranking
// order. limit <= 0 means search.DefaultLimit.
func (s *KnowledgeService) Search(ctx context.Context, query, buildingID string, limit int) ([]domain.KnowledgeEntry, error) {
	tr := otel.Tracer("services/KnowledgeService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(
			attribute.String("building.id", buildingID),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	m, _, err := s.matcher(ctx, buildingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, err
	}
	hits := m.Match(query, limit)
	out := make([]domain.KnowledgeEntry, len(hits))
	for i, h := range hits {
		out[i] = h.Entry
	}
	span.SetAttributes(attribute.Int("results", len(out)))
	return out, nil
}

// Best returns the single best entry for a resident message, or nil when
// nothing matches. The whole message is tried first; failing that, its
// keywords are tried one by one. Either way a strong hit beats a weak one
// and rank breaks ties.
func (s *KnowledgeService) Best(ctx context.Context, query, buildingID string) (*domain.KnowledgeMatch, error) {
	tr := otel.Tracer("services/KnowledgeService")
	ctx, span := tr.Start(ctx, "Best",
		trace.WithAttributes(attribute.String("building.id", buildingID)),
	)
	defer span.End()

	m, rank, err := s.matcher(ctx, buildingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, err
	}

	if hits := m.Match(query, len(rank)); len(hits) > 0 {
		best := hits[0]
		for _, h := range hits {
			if h.Strong {
				best = h
				break
			}
		}
		span.SetAttributes(attribute.Bool("strong", best.Strong))
		return &domain.KnowledgeMatch{Entry: best.Entry, Strong: best.Strong}, nil
	}

	var best *search.Hit
	for _, term := range search.Keywords(query, maxQueryTerms) {
		for _, h := range m.Match(term, len(rank)) {
			if best == nil || better(h, *best, rank) {
				best = &h
			}
		}
	}
	if best == nil {
		return nil, nil
	}
	span.SetAttributes(attribute.Bool("strong", best.Strong))
	return &domain.KnowledgeMatch{Entry: best.Entry, Strong: best.Strong}, nil
}

// matcher loads the eligible entries for buildingID and returns a matcher
// over them plus each entry's rank.
func (s *KnowledgeService) matcher(ctx context.Context, buildingID string) (search.Matcher, map[string]int, error) {
	if strings.TrimSpace(buildingID) == "" {
		return nil, nil, fmt.Errorf("%w: building id is required", ErrLookup)
	}
	entries, err := repo.ListActiveKnowledge(ctx, s.DB, buildingID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrLookup, err)
	}
	rank := make(map[string]int, len(entries))
	for i, e := range entries {
		rank[e.ID] = i
	}
	return search.NewMatcher(entries, s.MatchOptions...), rank, nil
}

func better(a, b search.Hit, rank map[string]int) bool {
	if a.Strong != b.Strong {
		return a.Strong
	}
	return rank[a.Entry.ID] < rank[b.Entry.ID]
}
