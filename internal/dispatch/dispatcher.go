// Package dispatch executes the side effects chosen by the routing policy for
// one inbound message, in a fixed order:
//
//  1. persist_message: fatal on failure (ErrPersistence), nothing else runs
//  2. create_ticket:   failure becomes the "ticket creation failed" warning
//  3. notify_human:    failure is logged only
//  4. send_reply:      failure becomes the "delivery failed" warning
//
// Every external call runs under its own timeout. Nothing is retried; the
// ExecutionReport says what happened and the caller decides what to surface.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/condohub/condo-backend/internal/domain"
)

// Failure kinds.
var (
	ErrPersistence    = errors.New("persistence failure")
	ErrTicketCreation = errors.New("ticket creation failure")
	ErrDelivery       = errors.New("delivery failure")
)

// Warning texts recorded on ExecutionReport.Warnings.
const (
	WarnTicketFailed     = "ticket creation failed"
	WarnDeliveryFailed   = "delivery failed"
	WarnReplyNotRecorded = "reply not recorded"
)

// DefaultStepTimeout bounds each external call when StepTimeout is unset.
const DefaultStepTimeout = 10 * time.Second

// Store is the persistence collaborator used by the dispatcher.
type Store interface {
	SaveMessage(ctx context.Context, m *domain.Message) error
	CreateTicket(ctx context.Context, t *domain.MaintenanceTicket) error
	MarkForReview(ctx context.Context, conversationID string) error
}

// Sender delivers a message over an outbound channel and returns the
// provider's delivery id.
type Sender interface {
	Send(ctx context.Context, to, from, body string) (string, error)
}

// Notifier raises a review notice to humans.
type Notifier interface {
	Notify(ctx context.Context, n domain.ReviewNotice) error
}

// Dispatcher carries out a RoutingDecision. Senders is keyed by channel; a
// channel without a sender fails delivery. Notifier may be nil.
type Dispatcher struct {
	Store       Store
	Senders     map[domain.Channel]Sender
	Notifier    Notifier
	StepTimeout time.Duration
	Logger      *zerolog.Logger
	Now         func() time.Time
}

// Execute runs the decided actions for msg. The returned error is non-nil
// only for ErrPersistence; every other failure is reported in the report.
func (d *Dispatcher) Execute(ctx context.Context, b domain.BuildingConfig, dec domain.RoutingDecision, msg domain.InboundMessage, a domain.AnalysisResult) (domain.ExecutionReport, error) {
	tr := otel.Tracer("dispatch/Dispatcher")
	ctx, span := tr.Start(ctx, "Execute",
		trace.WithAttributes(
			attribute.String("building.id", b.ID),
			attribute.String("conversation.id", msg.ConversationID),
			attribute.StringSlice("actions", actionStrings(dec.Actions)),
		),
	)
	defer span.End()

	lg := d.logger().With().
		Str("building_id", b.ID).
		Str("conversation_id", msg.ConversationID).
		Logger()

	rep := domain.ExecutionReport{Warnings: []string{}}

	// 1) persist_message runs for every message, listed or not.
	inbound := &domain.Message{
		ConversationID:    msg.ConversationID,
		BuildingID:        b.ID,
		ResidentID:        msg.ResidentID,
		Direction:         "inbound",
		SenderType:        string(msg.SenderType),
		Channel:           string(msg.Channel),
		Content:           msg.Text,
		Intent:            string(a.Intent),
		Priority:          string(a.Priority),
		RoutedTo:          dec.RecipientStrings(),
		RequiresReview:    dec.RequiresHumanReview,
		ExtractedData:     a.ExtractedData,
		ProviderMessageID: msg.ProviderMessageID,
		CreatedAt:         d.now(),
	}
	if err := d.step(ctx, func(ctx context.Context) error { return d.Store.SaveMessage(ctx, inbound) }); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		lg.Error().Err(err).Msg("inbound message not persisted")
		return rep, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	rep.Persisted = true
	rep.MessageID = inbound.ID

	// 2) create_ticket
	if dec.HasAction(domain.ActionCreateTicket) {
		created := false
		t := newTicket(b, msg, a, inbound.ID)
		if err := d.step(ctx, func(ctx context.Context) error { return d.Store.CreateTicket(ctx, t) }); err != nil {
			rep.Warnings = append(rep.Warnings, WarnTicketFailed)
			lg.Warn().Err(fmt.Errorf("%w: %v", ErrTicketCreation, err)).Str("message_id", inbound.ID).Msg(WarnTicketFailed)
		} else {
			created = true
			rep.TicketID = t.ID
		}
		rep.TicketCreated = &created
	}

	// 3) notify_human
	if dec.HasAction(domain.ActionNotifyHuman) {
		d.notify(ctx, lg, b, dec, msg, a, inbound.ID)
	}

	// 4) send_reply
	if dec.HasAction(domain.ActionSendReply) {
		sent := false
		id, err := d.send(ctx, b, msg, dec.Reply)
		if err != nil {
			rep.Warnings = append(rep.Warnings, WarnDeliveryFailed)
			lg.Warn().Err(err).Str("channel", string(msg.Channel)).Msg(WarnDeliveryFailed)
		} else {
			sent = true
			rep.DeliveryID = id
			if rerr := d.recordReply(ctx, b, msg, dec.Reply, id); rerr != nil {
				rep.Warnings = append(rep.Warnings, WarnReplyNotRecorded)
				lg.Warn().Err(rerr).Str("delivery_id", id).Msg(WarnReplyNotRecorded)
			}
		}
		rep.ReplySent = &sent
	}

	span.SetAttributes(attribute.Int("warnings", len(rep.Warnings)))
	return rep, nil
}

func (d *Dispatcher) notify(ctx context.Context, lg zerolog.Logger, b domain.BuildingConfig, dec domain.RoutingDecision, msg domain.InboundMessage, a domain.AnalysisResult, messageID string) {
	if err := d.step(ctx, func(ctx context.Context) error { return d.Store.MarkForReview(ctx, msg.ConversationID) }); err != nil {
		lg.Warn().Err(err).Msg("conversation not marked for review")
	}
	if d.Notifier == nil {
		return
	}
	n := domain.ReviewNotice{
		BuildingID:     b.ID,
		BuildingName:   b.Name,
		AdminEmail:     b.AdminEmail,
		ConversationID: msg.ConversationID,
		MessageID:      messageID,
		ResidentID:     msg.ResidentID,
		Intent:         a.Intent,
		Priority:       a.Priority,
		Recipients:     dec.RecipientStrings(),
		Text:           msg.Text,
		CreatedAt:      d.now(),
	}
	if err := d.step(ctx, func(ctx context.Context) error { return d.Notifier.Notify(ctx, n) }); err != nil {
		lg.Warn().Err(err).Msg("review notification failed")
	}
}

func (d *Dispatcher) send(ctx context.Context, b domain.BuildingConfig, msg domain.InboundMessage, body string) (string, error) {
	s, ok := d.Senders[msg.Channel]
	if !ok || s == nil {
		return "", fmt.Errorf("%w: no sender for channel %q", ErrDelivery, msg.Channel)
	}
	if strings.TrimSpace(msg.From) == "" && msg.Channel != domain.ChannelWeb {
		return "", fmt.Errorf("%w: resident has no address", ErrDelivery)
	}
	var id string
	err := d.step(ctx, func(ctx context.Context) error {
		var err error
		id, err = s.Send(ctx, msg.From, replyFrom(b, msg.Channel), body)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return id, nil
}

func (d *Dispatcher) recordReply(ctx context.Context, b domain.BuildingConfig, msg domain.InboundMessage, body, deliveryID string) error {
	out := &domain.Message{
		ConversationID:    msg.ConversationID,
		BuildingID:        b.ID,
		ResidentID:        msg.ResidentID,
		Direction:         "outbound",
		SenderType:        "system",
		Channel:           string(msg.Channel),
		Content:           body,
		ProviderMessageID: deliveryID,
		CreatedAt:         d.now(),
	}
	return d.step(ctx, func(ctx context.Context) error { return d.Store.SaveMessage(ctx, out) })
}

// step runs fn under the per-call timeout.
func (d *Dispatcher) step(ctx context.Context, fn func(context.Context) error) error {
	timeout := d.StepTimeout
	if timeout <= 0 {
		timeout = DefaultStepTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

func (d *Dispatcher) logger() *zerolog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return &log.Logger
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

// replyFrom picks the building address replies are sent from.
func replyFrom(b domain.BuildingConfig, ch domain.Channel) string {
	if ch == domain.ChannelWhatsApp {
		return b.WhatsAppNumber
	}
	return ""
}

func actionStrings(as []domain.Action) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = string(a)
	}
	return out
}
