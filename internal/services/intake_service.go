// Package services – IntakeService
//
// This file implements IntakeService, which runs one inbound resident message
// through the engine:
//
//	validate → load building + occupancy → resolve conversation → classify
//	→ knowledge lookup (FAQ intents) → routing policy → dispatch → touch
//
// Classification and knowledge failures degrade (fallback verdict, no
// pre-filled answer). Persistence failure of the inbound message is the only
// dispatch outcome that fails the call. Every stage is timed in Prometheus and
// traced with OpenTelemetry.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/condohub/condo-backend/internal/domain"
	"github.com/condohub/condo-backend/internal/observability"
	"github.com/condohub/condo-backend/internal/repo"
	"github.com/condohub/condo-backend/internal/routing"
)

// DefaultMaxTextRunes caps inbound message length when MaxTextRunes is unset.
const DefaultMaxTextRunes = 4000

// Classifier produces an AnalysisResult. On failure it must still return a
// usable (fallback) result alongside the error.
type Classifier interface {
	Classify(ctx context.Context, text string, sender domain.SenderType, lang domain.Language, buildingName string) (domain.AnalysisResult, error)
}

// Dispatcher executes a routing decision.
type Dispatcher interface {
	Execute(ctx context.Context, b domain.BuildingConfig, dec domain.RoutingDecision, msg domain.InboundMessage, a domain.AnalysisResult) (domain.ExecutionReport, error)
}

// BuildingSource loads a building configuration; repo.ErrNotFound when
// missing.
type BuildingSource func(ctx context.Context, id string) (domain.BuildingConfig, error)

// IntakeResult is what Process reports back to the transport layer.
type IntakeResult struct {
	ConversationID string                 `json:"conversation_id"`
	Analysis       domain.AnalysisResult  `json:"analysis"`
	Decision       domain.RoutingDecision `json:"decision"`
	Report         domain.ExecutionReport `json:"report"`
}

// IntakeService wires the engine stages together.
type IntakeService struct {
	DB            *gorm.DB
	Buildings     BuildingSource
	Conversations *ConversationService
	Knowledge     *KnowledgeService
	Classifier    Classifier
	Dispatcher    Dispatcher

	// Optional guards
	MaxTextRunes int

	Logger *zerolog.Logger
}

var supportedLanguages = language.NewMatcher([]language.Tag{language.Spanish, language.English})

// Process runs msg through the engine.
func (s *IntakeService) Process(ctx context.Context, msg domain.InboundMessage) (*IntakeResult, error) {
	tr := otel.Tracer("services/IntakeService")
	ctx, span := tr.Start(ctx, "Process",
		trace.WithAttributes(
			attribute.String("building.id", msg.BuildingID),
			attribute.String("resident.id", msg.ResidentID),
			attribute.String("channel", string(msg.Channel)),
		),
	)
	defer span.End()

	fail := func(err error) (*IntakeResult, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Normalize & validate
	msg.Text = strings.TrimSpace(msg.Text)
	if msg.Text == "" {
		return fail(ErrEmptyText)
	}
	if utf8.RuneCountInString(msg.Text) > s.maxTextRunes() {
		return fail(ErrTooLong)
	}
	if !msg.SenderType.Valid() {
		return fail(ErrInvalidSender)
	}
	if msg.Channel == "" {
		msg.Channel = domain.ChannelWhatsApp
	}
	if !msg.Channel.Valid() {
		return fail(ErrInvalidChannel)
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}

	// Building and resident/occupancy are independent reads.
	start := time.Now()
	var (
		g          errgroup.Group
		building   domain.BuildingConfig
		resident   *domain.Resident
		occupancy  domain.UnitOccupancy
		bErr, rErr error
	)
	g.Go(func() error {
		building, bErr = s.loadBuilding(ctx, msg.BuildingID)
		if errors.Is(bErr, gorm.ErrRecordNotFound) {
			bErr = ErrBuildingNotFound
		}
		return bErr
	})
	g.Go(func() error {
		resident, rErr = repo.GetResident(ctx, s.DB, msg.BuildingID, msg.ResidentID)
		if rErr != nil {
			if errors.Is(rErr, gorm.ErrRecordNotFound) {
				rErr = ErrResidentNotFound
			}
			return rErr
		}
		occ, err := repo.GetUnitOccupancy(ctx, s.DB, resident.UnitID)
		if err != nil {
			s.logger().Warn().Err(err).Str("unit_id", resident.UnitID).Msg("unit occupancy unavailable; routing without occupants")
			occ = domain.UnitOccupancy{UnitID: resident.UnitID}
		}
		occupancy = occ
		return nil
	})
	if err := g.Wait(); err != nil {
		// A missing building explains a missing resident, so it wins.
		if bErr != nil {
			return fail(bErr)
		}
		return fail(err)
	}
	observability.ObserveStage("load", start)

	msg.Language = resolveLanguage(building.DefaultLanguage, string(msg.Language), resident.Language)
	if msg.From == "" {
		msg.From = replyAddress(msg.Channel, resident.Phone)
	}

	lg := s.logger().With().
		Str("building_id", building.ID).
		Str("resident_id", msg.ResidentID).
		Logger()

	// Conversation
	start = time.Now()
	if msg.ConversationID == "" {
		c, err := s.Conversations.GetOrCreate(ctx, building.ID, msg.ResidentID, msg.Channel)
		if err != nil {
			return fail(err)
		}
		msg.ConversationID = c.ID
	} else {
		c, err := s.Conversations.Get(ctx, building.ID, msg.ConversationID)
		if err != nil {
			return fail(err)
		}
		if c.ResidentID != msg.ResidentID {
			return fail(ErrConversationNotFound)
		}
	}
	observability.ObserveStage("conversation", start)
	lg = lg.With().Str("conversation_id", msg.ConversationID).Logger()

	// Classify
	start = time.Now()
	analysis, err := s.Classifier.Classify(ctx, msg.Text, msg.SenderType, msg.Language, building.Name)
	observability.ObserveStage("classify", start)
	if err != nil {
		observability.CountClassificationFallback()
		lg.Warn().Err(err).Msg("classification failed; using fallback verdict")
	}

	// Knowledge
	var km *domain.KnowledgeMatch
	if analysis.Intent.IsFAQ() && s.Knowledge != nil {
		start = time.Now()
		km, err = s.Knowledge.Best(ctx, msg.Text, building.ID)
		observability.ObserveStage("knowledge", start)
		if err != nil {
			lg.Warn().Err(err).Msg("knowledge lookup failed; keeping suggested reply")
			km = nil
		}
	}

	// Route
	decision := routing.Decide(analysis, building, occupancy, km)
	span.SetAttributes(
		attribute.String("intent", string(analysis.Intent)),
		attribute.String("priority", string(analysis.Priority)),
		attribute.StringSlice("recipients", decision.RecipientStrings()),
	)

	// Dispatch
	start = time.Now()
	report, err := s.Dispatcher.Execute(ctx, building, decision, msg, analysis)
	observability.ObserveStage("dispatch", start)
	if err != nil {
		return fail(err)
	}
	for _, w := range report.Warnings {
		observability.CountDispatchWarning(w)
	}

	if err := s.Conversations.Touch(ctx, msg.ConversationID); err != nil {
		lg.Warn().Err(err).Msg("conversation not touched")
	}

	observability.CountIntake(string(analysis.Intent), string(analysis.Priority))
	lg.Info().
		Str("intent", string(analysis.Intent)).
		Str("priority", string(analysis.Priority)).
		Strs("recipients", decision.RecipientStrings()).
		Bool("review", decision.RequiresHumanReview).
		Strs("warnings", report.Warnings).
		Msg("message processed")

	return &IntakeResult{
		ConversationID: msg.ConversationID,
		Analysis:       analysis,
		Decision:       decision,
		Report:         report,
	}, nil
}

func (s *IntakeService) loadBuilding(ctx context.Context, id string) (domain.BuildingConfig, error) {
	if s.Buildings != nil {
		return s.Buildings(ctx, id)
	}
	return repo.GetBuildingConfig(ctx, s.DB, id)
}

func (s *IntakeService) maxTextRunes() int {
	if s.MaxTextRunes > 0 {
		return s.MaxTextRunes
	}
	return DefaultMaxTextRunes
}

func (s *IntakeService) logger() *zerolog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return &log.Logger
}

// resolveLanguage picks the first candidate that confidently matches a
// supported language ("es-MX" → es, "en_US" → en), else fallback.
func resolveLanguage(fallback domain.Language, candidates ...string) domain.Language {
	for _, raw := range candidates {
		raw = strings.ReplaceAll(strings.TrimSpace(raw), "_", "-")
		if raw == "" {
			continue
		}
		tag, err := language.Parse(raw)
		if err != nil {
			continue
		}
		if _, idx, conf := supportedLanguages.Match(tag); conf != language.No {
			if idx == 1 {
				return domain.LanguageEN
			}
			return domain.LanguageES
		}
	}
	if !fallback.Valid() {
		return domain.LanguageES
	}
	return fallback
}

// replyAddress derives the outbound address for a resident phone number.
func replyAddress(ch domain.Channel, phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	switch ch {
	case domain.ChannelWhatsApp:
		if strings.HasPrefix(phone, "whatsapp:") {
			return phone
		}
		return "whatsapp:" + phone
	case domain.ChannelSMS:
		return strings.TrimPrefix(phone, "whatsapp:")
	}
	return ""
}
