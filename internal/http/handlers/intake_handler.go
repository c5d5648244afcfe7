// Intake HTTP handler.
//
// POST /buildings/{id}/messages accepts a resident message from an
// authenticated client (resident app or admin console) and runs it through the
// full intake pipeline, returning the analysis, the routing decision and the
// execution report.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// result exists for (building, key), the stored message is returned with
// `Idempotency-Replayed: true` and the pipeline is not run again.
package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/condohub/condo-backend/internal/domain"
	"github.com/condohub/condo-backend/internal/http/middleware"
	"github.com/condohub/condo-backend/internal/services"
)

//
// DTOs
//

// PostMessageRequest is the JSON payload for submitting a resident message.
type PostMessageRequest struct {
	ResidentID string `json:"resident_id" binding:"required" example:"0b6e7c1a-3f7e-4c8e-9a55-2f0c1d9a1e01"`
	// Text is normalized by the handler (line endings, blank lines).
	Text       string `json:"text"        binding:"required" example:"Hay una fuga de agua en mi baño"`
	SenderType string `json:"sender_type" binding:"required" example:"renter" enums:"owner,renter"`
	// Language overrides the resident's preferred language ("es" or "en").
	Language       string `json:"language,omitempty"        example:"es"`
	ConversationID string `json:"conversation_id,omitempty" example:""`
	// Channel defaults to "web" for API submissions.
	Channel string `json:"channel,omitempty" example:"web" enums:"whatsapp,sms,web"`
}

// PostMessageResponse reports what the engine did with the message. On a
// replay only the identifiers are filled in.
type PostMessageResponse struct {
	ConversationID string                  `json:"conversation_id"`
	MessageID      string                  `json:"message_id"`
	Replayed       bool                    `json:"replayed"`
	Analysis       *domain.AnalysisResult  `json:"analysis,omitempty"`
	Decision       *domain.RoutingDecision `json:"decision,omitempty"`
	Report         *domain.ExecutionReport `json:"report,omitempty"`
}

//
// Handlers
//

// PostMessage godoc
// @ID          postMessage
// @Summary     Submit a resident message
// @Description Classifies the message, decides who must see it and executes the resulting actions.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Intake
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string  true  "Building ID"
// @Param       body             body    handlers.PostMessageRequest  true  "Resident message"
//
// @Success     201  {object}  handlers.PostMessageResponse  "Processed"
// @Success     200  {object}  handlers.PostMessageResponse  "Idempotent replay"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Building, resident or conversation not found"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /buildings/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	ctx := c.Request.Context()
	buildingID := strings.TrimSpace(c.Param("id"))
	if buildingID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "building id required")
		return
	}
	middleware.WithBuilding(c, buildingID)

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "resident_id, text and sender_type are required")
		return
	}

	// Sanitize + early size cap to fail fast at the edge.
	text := sanitizeText(req.Text)
	if text == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text required")
		return
	}
	if utf8.RuneCountInString(text) > h.maxRunes {
		failService(c, services.ErrTooLong, h.maxRunes)
		return
	}

	// Replay path: the key was validated and looked up by the middleware.
	if prevID, replay := middleware.ReplayedMessageID(c); replay && h.idem != nil {
		if prev, err := h.idem.Message(ctx, prevID); err == nil && prev.BuildingID == buildingID {
			c.Header("Idempotency-Replayed", "true")
			ok(c, http.StatusOK, PostMessageResponse{
				ConversationID: prev.ConversationID,
				MessageID:      prev.ID,
				Replayed:       true,
			})
			return
		}
	}

	channel := domain.Channel(strings.ToLower(strings.TrimSpace(req.Channel)))
	if channel == "" {
		channel = domain.ChannelWeb
	}

	res, err := h.intake.Process(ctx, domain.InboundMessage{
		Text:           text,
		SenderType:     domain.SenderType(strings.ToLower(strings.TrimSpace(req.SenderType))),
		Language:       domain.Language(strings.ToLower(strings.TrimSpace(req.Language))),
		BuildingID:     buildingID,
		ResidentID:     strings.TrimSpace(req.ResidentID),
		ConversationID: strings.TrimSpace(req.ConversationID),
		Channel:        channel,
		ReceivedAt:     h.now(),
	})
	if err != nil {
		failService(c, err, h.maxRunes)
		return
	}

	// Idempotency (store path) – best effort.
	if key, has := middleware.GetIdempotencyKey(c); has && h.idem != nil && res.Report.MessageID != "" {
		if err := h.idem.Record(ctx, middleware.GetIdempotencyScope(c), key, res.Report.MessageID, http.StatusCreated); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record failed")
		}
	}

	ok(c, http.StatusCreated, PostMessageResponse{
		ConversationID: res.ConversationID,
		MessageID:      res.Report.MessageID,
		Analysis:       &res.Analysis,
		Decision:       &res.Decision,
		Report:         &res.Report,
	})
}
