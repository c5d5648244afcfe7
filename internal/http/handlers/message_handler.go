// Conversation history handler.
//
//   - GET /buildings/{id}/conversations/{conversation_id}/messages
//
// Responses carry a weak ETag derived from the message count and the latest
// update; a matching If-None-Match yields 304 without a body.
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/condohub/condo-backend/internal/domain"
	"github.com/condohub/condo-backend/internal/http/middleware"
)

// ListMessagesResponse contains a page of messages and pagination metadata.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List messages in a conversation
// @Description Returns a paginated, chronological list of messages. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Conversations
// @Produce     json
//
// @Param       id               path   string  true  "Building ID"
// @Param       conversation_id  path   string  true  "Conversation ID"
// @Param       page             query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size        query  int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Param       If-None-Match    header string  false "ETag from a previous response"
//
// @Success     200  {object} handlers.ListMessagesResponse
// @Success     304  "Not modified"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /buildings/{id}/conversations/{conversation_id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	buildingID := strings.TrimSpace(c.Param("id"))
	convID := strings.TrimSpace(c.Param("conversation_id"))
	middleware.WithBuilding(c, buildingID)

	page, pageSize := clampPagination(c)

	// ListPage checks that the conversation belongs to the building, so it
	// runs before any ETag is revealed.
	items, total, err := h.msgs.ListPage(ctx, buildingID, convID, page, pageSize)
	if err != nil {
		if isNotFound(err) {
			failService(c, err, h.maxRunes)
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list messages")
		return
	}

	// ETag (best effort).
	if count, maxTS, err := h.msgs.Stats(ctx, convID); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"messages:%s:%d:%d:%d:%d"`, convID, count, ts, page, pageSize)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	ok(c, http.StatusOK, ListMessagesResponse{
		Messages:   items,
		Pagination: newPagination(page, pageSize, total),
	})
}
