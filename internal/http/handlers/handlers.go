// Handler wiring and the service contracts consumed by the HTTP layer.
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses. Every dependency is an
// interface so tests can substitute stubs for the database-backed services.
package handlers

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/condohub/condo-backend/internal/domain"
	"github.com/condohub/condo-backend/internal/services"
	"github.com/condohub/condo-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// IntakeService runs one inbound message through the intake pipeline.
type IntakeService interface {
	Process(ctx context.Context, msg domain.InboundMessage) (*services.IntakeResult, error)
}

// MessageService reads conversation history.
type MessageService interface {
	// ListPage returns a page of messages within a building's conversation
	// and the total count.
	ListPage(ctx context.Context, buildingID, conversationID string, page, pageSize int) ([]domain.Message, int64, error)
	// Stats returns the message count and latest update time, used for ETags.
	Stats(ctx context.Context, conversationID string) (int64, *time.Time, error)
}

// KnowledgeService searches a building's knowledge base.
type KnowledgeService interface {
	Search(ctx context.Context, query, buildingID string, limit int) ([]domain.KnowledgeEntry, error)
}

// Directory resolves buildings and residents. Missing rows are reported with
// repo.ErrNotFound.
type Directory interface {
	Building(ctx context.Context, id string) (domain.BuildingConfig, error)
	BuildingByNumber(ctx context.Context, number string) (*domain.Building, error)
	ResidentByPhone(ctx context.Context, buildingID, phone string) (*domain.Resident, error)
}

// IdempotencyStore records which message a retried request already produced.
type IdempotencyStore interface {
	Lookup(ctx context.Context, scope, key string, now time.Time) (messageID string, found bool, err error)
	Record(ctx context.Context, scope, key, messageID string, status int) error
	Message(ctx context.Context, id string) (*domain.Message, error)
}

// ReviewHub streams review notices to connected admin consoles. Serve blocks
// until the connection closes.
type ReviewHub interface {
	Serve(buildingID string, ws *websocket.Conn)
}

//
// Handler wiring
//

// Deps bundles the collaborators of Handlers.
type Deps struct {
	Intake      IntakeService
	Messages    MessageService
	Knowledge   KnowledgeService
	Directory   Directory
	Idempotency IdempotencyStore
	Hub         ReviewHub
	// Upgrader is used by the review feed. Nil means same-origin only.
	Upgrader *websocket.Upgrader
	// MaxTextRunes bounds inbound text at the edge; <= 0 means 4000.
	MaxTextRunes int
	Now          func() time.Time
}

// Handlers groups the HTTP endpoints of the intake API.
type Handlers struct {
	intake    IntakeService
	msgs      MessageService
	knowledge KnowledgeService
	dir       Directory
	idem      IdempotencyStore
	hub       ReviewHub
	upgrader  *websocket.Upgrader
	maxRunes  int
	now       func() time.Time
}

// New constructs a Handlers instance bound to the given dependencies.
func New(d Deps) *Handlers {
	h := &Handlers{
		intake:    d.Intake,
		msgs:      d.Messages,
		knowledge: d.Knowledge,
		dir:       d.Directory,
		idem:      d.Idempotency,
		hub:       d.Hub,
		upgrader:  d.Upgrader,
		maxRunes:  d.MaxTextRunes,
		now:       d.Now,
	}
	if h.maxRunes <= 0 {
		h.maxRunes = 4000
	}
	if h.now == nil {
		h.now = func() time.Time { return time.Now().UTC() }
	}
	if h.upgrader == nil {
		h.upgrader = &websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}
	}
	return h
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.Clamp(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeText normalizes resident text: CRLF and CR become LF, runs of blank
// lines collapse to one, and surrounding whitespace is trimmed.
func sanitizeText(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
