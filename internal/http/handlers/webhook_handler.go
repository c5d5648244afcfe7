// WhatsApp webhook handler.
//
// POST /webhooks/whatsapp receives inbound messages from the messaging
// provider as an url-encoded form. The signature is checked by middleware
// before this handler runs.
//
// The provider retries on any non-2xx answer, so the handler only returns an
// error status when a retry could succeed (storage failures). Messages that
// can never be processed (unknown building, unknown sender, invalid text) are
// acknowledged and logged. Redelivered MessageSids are acknowledged without
// running the pipeline again.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/condohub/condo-backend/internal/domain"
	"github.com/condohub/condo-backend/internal/http/middleware"
	"github.com/condohub/condo-backend/internal/repo"
)

// WebhookScope is the idempotency scope of provider message ids.
const WebhookScope = "whatsapp"

// WhatsAppWebhookForm is the subset of the provider's webhook fields the
// engine uses.
type WhatsAppWebhookForm struct {
	MessageSid string `form:"MessageSid" binding:"required"`
	From       string `form:"From"       binding:"required"`
	To         string `form:"To"         binding:"required"`
	Body       string `form:"Body"`
	NumMedia   int    `form:"NumMedia"`
}

// WhatsAppWebhook godoc
// @ID          whatsappWebhook
// @Summary     Inbound WhatsApp message
// @Description Provider webhook. Always answers with empty TwiML unless the message could not be stored.
// @Tags        Webhooks
// @Accept      x-www-form-urlencoded
// @Produce     xml
//
// @Param       X-Twilio-Signature  header    string  true  "Request signature"
// @Param       MessageSid          formData  string  true  "Provider message id"
// @Param       From                formData  string  true  "Sender address (whatsapp:+E164)"
// @Param       To                  formData  string  true  "Building address (whatsapp:+E164)"
// @Param       Body                formData  string  false "Message text"
//
// @Success     200  {string}  string  "Empty TwiML"
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed webhook"
// @Failure     403  {object}  handlers.ErrorResponse  "Bad signature"
// @Failure     500  {object}  handlers.ErrorResponse  "Message could not be stored"
// @Router      /webhooks/whatsapp [post]
func (h *Handlers) WhatsAppWebhook(c *gin.Context) {
	ctx := c.Request.Context()
	lg := middleware.LoggerFrom(c)

	var form WhatsAppWebhookForm
	if err := c.ShouldBind(&form); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "MessageSid, From and To are required")
		return
	}
	sid := strings.TrimSpace(form.MessageSid)

	if h.idem != nil {
		if _, found, err := h.idem.Lookup(ctx, WebhookScope, sid, h.now()); err == nil && found {
			lg.Info().Str("message_sid", sid).Msg("duplicate webhook delivery")
			twiml(c)
			return
		}
	}

	b, err := h.dir.BuildingByNumber(ctx, form.To)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			lg.Warn().Str("to", middleware.Redact(form.To)).Msg("webhook for unknown building number")
			twiml(c)
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeLookupFailed, "building lookup failed")
		return
	}
	middleware.WithBuilding(c, b.ID)
	lg = middleware.LoggerFrom(c)

	res, err := h.dir.ResidentByPhone(ctx, b.ID, form.From)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			lg.Warn().Str("from", middleware.Redact(form.From)).Msg("message from unknown sender")
			twiml(c)
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeLookupFailed, "resident lookup failed")
		return
	}

	text := sanitizeText(form.Body)
	if text == "" && form.NumMedia > 0 {
		lg.Info().Int("num_media", form.NumMedia).Msg("media-only message ignored")
		twiml(c)
		return
	}

	out, err := h.intake.Process(ctx, domain.InboundMessage{
		Text:              text,
		SenderType:        domain.SenderType(res.Type),
		Language:          domain.Language(res.Language),
		BuildingID:        b.ID,
		ResidentID:        res.ID,
		Channel:           domain.ChannelWhatsApp,
		From:              form.From,
		ProviderMessageID: sid,
		ReceivedAt:        h.now(),
	})
	if err != nil {
		if isInputError(err) || isNotFound(err) {
			lg.Warn().Err(err).Str("message_sid", sid).Msg("webhook message rejected")
			twiml(c)
			return
		}
		failService(c, err, h.maxRunes)
		return
	}

	if h.idem != nil && out.Report.MessageID != "" {
		if err := h.idem.Record(ctx, WebhookScope, sid, out.Report.MessageID, http.StatusOK); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			lg.Warn().Err(err).Str("message_sid", sid).Msg("idempotency record failed")
		}
	}

	lg.Info().
		Str("message_sid", sid).
		Str("conversation_id", out.ConversationID).
		Str("intent", string(out.Analysis.Intent)).
		Strs("routed_to", out.Decision.RecipientStrings()).
		Int("warnings", len(out.Report.Warnings)).
		Msg("webhook processed")
	twiml(c)
}
