package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/condohub/condo-backend/internal/http/middleware"
	"github.com/condohub/condo-backend/internal/repo"
)

// ReviewFeed godoc
// @ID          reviewFeed
// @Summary     Live review notices
// @Description Upgrades to a WebSocket that receives a frame whenever a message of the building needs human review.
// @Tags        Review
//
// @Param       Authorization  header  string  true  "Bearer admin token (REVIEW_TOKEN)"
// @Param       building_id    query   string  true  "Building ID"
//
// @Success     101  "Switching protocols"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or invalid token"
// @Failure     404  {object}  handlers.ErrorResponse  "Building not found"
// @Router      /ws/review [get]
func (h *Handlers) ReviewFeed(c *gin.Context) {
	buildingID := strings.TrimSpace(c.Query("building_id"))
	if buildingID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "building_id required")
		return
	}
	middleware.WithBuilding(c, buildingID)

	if _, err := h.dir.Building(c.Request.Context(), buildingID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "building not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeLookupFailed, "building lookup failed")
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		middleware.LoggerFrom(c).Warn().Err(err).Msg("review feed upgrade failed")
		c.Abort()
		return
	}
	defer ws.Close()

	lg := middleware.LoggerFrom(c)
	lg.Info().Msg("review subscriber connected")
	h.hub.Serve(buildingID, ws)
	lg.Info().Msg("review subscriber disconnected")
}
