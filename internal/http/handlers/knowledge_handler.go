package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/condohub/condo-backend/internal/domain"
	"github.com/condohub/condo-backend/internal/http/middleware"
	"github.com/condohub/condo-backend/internal/repo"
	"github.com/condohub/condo-backend/internal/utils"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 20
	maxQueryRunes      = 500
)

// SearchKnowledgeResponse lists matching knowledge entries, best first.
type SearchKnowledgeResponse struct {
	Query   string                  `json:"query"`
	Results []domain.KnowledgeEntry `json:"results"`
}

// SearchKnowledge godoc
// @ID          searchKnowledge
// @Summary     Search a building's knowledge base
// @Description Returns active entries matching the query: exact keyword hits first, then question and answer substring hits.
// @Tags        Knowledge
// @Produce     json
//
// @Param       id     path   string  true  "Building ID"
// @Param       q      query  string  true  "Search text"
// @Param       limit  query  int     false "Max results"  minimum(1) maximum(20) default(5)
//
// @Success     200  {object} handlers.SearchKnowledgeResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Building not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /buildings/{id}/knowledge/search [get]
func (h *Handlers) SearchKnowledge(c *gin.Context) {
	ctx := c.Request.Context()
	buildingID := strings.TrimSpace(c.Param("id"))
	middleware.WithBuilding(c, buildingID)

	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "q required")
		return
	}
	if len([]rune(q)) > maxQueryRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "q too long")
		return
	}
	limit := utils.Clamp(utils.AtoiDefault(c.Query("limit"), defaultSearchLimit), 1, maxSearchLimit)

	if h.dir != nil {
		if _, err := h.dir.Building(ctx, buildingID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				fail(c, http.StatusNotFound, ErrCodeNotFound, "building not found")
				return
			}
			fail(c, http.StatusInternalServerError, ErrCodeLookupFailed, "building lookup failed")
			return
		}
	}

	items, err := h.knowledge.Search(ctx, q, buildingID, limit)
	if err != nil {
		failService(c, err, h.maxRunes)
		return
	}
	if items == nil {
		items = []domain.KnowledgeEntry{}
	}
	ok(c, http.StatusOK, SearchKnowledgeResponse{Query: q, Results: items})
}
