package domain

import (
	"strings"
	"time"
)

// SenderType identifies the occupant role of the resident who wrote in.
type SenderType string

const (
	SenderOwner  SenderType = "owner"
	SenderRenter SenderType = "renter"
)

// Valid reports whether s is one of the accepted sender types.
func (s SenderType) Valid() bool { return s == SenderOwner || s == SenderRenter }

// Language is the conversation language understood by the engine.
type Language string

const (
	LanguageES Language = "es"
	LanguageEN Language = "en"
)

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool { return l == LanguageES || l == LanguageEN }

// Channel is the transport a conversation runs over.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
	ChannelWeb      Channel = "web"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelWhatsApp, ChannelSMS, ChannelWeb:
		return true
	}
	return false
}

// Intent is the classified purpose of a resident message. The set is closed:
// anything the classifier returns outside it is folded into IntentOther.
type Intent string

const (
	IntentMaintenanceRequest Intent = "maintenance_request"
	IntentGeneralQuestion    Intent = "general_question"
	IntentNoiseComplaint     Intent = "noise_complaint"
	IntentVisitorAccess      Intent = "visitor_access"
	IntentHOAFeeQuestion     Intent = "hoa_fee_question"
	IntentAmenityReservation Intent = "amenity_reservation"
	IntentDocumentRequest    Intent = "document_request"
	IntentEmergency          Intent = "emergency"
	IntentOther              Intent = "other"
)

// Intents lists every member of the closed intent set.
var Intents = []Intent{
	IntentMaintenanceRequest,
	IntentGeneralQuestion,
	IntentNoiseComplaint,
	IntentVisitorAccess,
	IntentHOAFeeQuestion,
	IntentAmenityReservation,
	IntentDocumentRequest,
	IntentEmergency,
	IntentOther,
}

// ParseIntent maps raw classifier output onto the closed set.
func ParseIntent(s string) Intent {
	v := Intent(strings.ToLower(strings.TrimSpace(s)))
	for _, in := range Intents {
		if v == in {
			return v
		}
	}
	return IntentOther
}

// IsFAQ reports whether the intent is answerable from the knowledge base.
func (i Intent) IsFAQ() bool {
	return i == IntentGeneralQuestion || i == IntentHOAFeeQuestion
}

// Priority is the urgency assigned to a message.
type Priority string

const (
	PriorityLow       Priority = "low"
	PriorityMedium    Priority = "medium"
	PriorityHigh      Priority = "high"
	PriorityEmergency Priority = "emergency"
)

// Priorities lists every member of the priority set, lowest first.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityEmergency}

// ParsePriority maps raw classifier output onto the priority set. The second
// result is false when the input was missing or unknown.
func ParsePriority(s string) (Priority, bool) {
	v := Priority(strings.ToLower(strings.TrimSpace(s)))
	for _, p := range Priorities {
		if v == p {
			return v, true
		}
	}
	return PriorityMedium, false
}

// RouteTarget is the classifier's suggestion of who should handle a message.
type RouteTarget string

const (
	RouteOwner  RouteTarget = "owner"
	RouteRenter RouteTarget = "renter"
	RouteAdmin  RouteTarget = "admin"
	RouteBoth   RouteTarget = "both"
)

// ParseRouteTarget maps raw classifier output onto a route target; unknown
// values route to the admin.
func ParseRouteTarget(s string) RouteTarget {
	switch v := RouteTarget(strings.ToLower(strings.TrimSpace(s))); v {
	case RouteOwner, RouteRenter, RouteAdmin, RouteBoth:
		return v
	}
	return RouteAdmin
}

// Recipient is a concrete role that will see a routed message.
type Recipient string

const (
	RecipientOwner  Recipient = "owner"
	RecipientRenter Recipient = "renter"
	RecipientAdmin  Recipient = "admin"
)

// Action is a side effect the dispatcher must perform.
type Action string

const (
	ActionPersistMessage Action = "persist_message"
	ActionCreateTicket   Action = "create_ticket"
	ActionNotifyHuman    Action = "notify_human"
	ActionSendReply      Action = "send_reply"
)

// InboundMessage is a resident message as received. It is never modified
// after construction.
type InboundMessage struct {
	Text              string     `json:"text"`
	SenderType        SenderType `json:"sender_type"`
	Language          Language   `json:"language"`
	BuildingID        string     `json:"building_id"`
	ResidentID        string     `json:"resident_id"`
	ConversationID    string     `json:"conversation_id"`
	Channel           Channel    `json:"channel"`
	From              string     `json:"from,omitempty"`
	ProviderMessageID string     `json:"provider_message_id,omitempty"`
	ReceivedAt        time.Time  `json:"received_at"`
}

// AnalysisResult is the classifier's verdict for one inbound message.
type AnalysisResult struct {
	Intent              Intent         `json:"intent"`
	Priority            Priority       `json:"priority"`
	RouteTo             RouteTarget    `json:"route_to"`
	SuggestedResponse   string         `json:"suggested_response"`
	RequiresHumanReview bool           `json:"requires_human_review"`
	ExtractedData       map[string]any `json:"extracted_data"`
}

// FallbackAnalysis is the conservative verdict used whenever classification
// fails: the message always reaches a human.
func FallbackAnalysis() AnalysisResult {
	return AnalysisResult{
		Intent:              IntentOther,
		Priority:            PriorityMedium,
		RouteTo:             RouteAdmin,
		RequiresHumanReview: true,
		ExtractedData:       map[string]any{},
	}
}

// ExtractedString returns the first non-empty string value among keys.
func (a AnalysisResult) ExtractedString(keys ...string) string {
	for _, k := range keys {
		if v, ok := a.ExtractedData[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// BuildingConfig is the immutable per-call view of building settings.
type BuildingConfig struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	DefaultLanguage  Language `json:"default_language"`
	WhatsAppNumber   string   `json:"whatsapp_number"`
	AdminEmail       string   `json:"admin_email"`
	AdminPhone       string   `json:"admin_phone"`
	DisableAutoReply bool     `json:"disable_auto_reply"`
}

// UnitOccupancy says who currently lives in or owns a unit.
type UnitOccupancy struct {
	UnitID   string `json:"unit_id"`
	OwnerID  string `json:"owner_id,omitempty"`
	RenterID string `json:"renter_id,omitempty"`
}

// HasOwner reports whether the unit has an owner on record.
func (u UnitOccupancy) HasOwner() bool { return u.OwnerID != "" }

// HasActiveRenter reports whether the unit has an active renter.
func (u UnitOccupancy) HasActiveRenter() bool { return u.RenterID != "" }

// KnowledgeMatch is the best knowledge-base hit for a message. Strong is set
// when a keyword matched exactly or the query appears in the question.
type KnowledgeMatch struct {
	Entry  KnowledgeEntry `json:"entry"`
	Strong bool           `json:"strong"`
}

// Reply sources recorded on a RoutingDecision.
const (
	ReplySourceClassifier = "classifier"
	ReplySourceKnowledge  = "knowledge"
)

// RoutingDecision is derived from an AnalysisResult and building state. It is
// recomputed per message and never persisted as such.
type RoutingDecision struct {
	Recipients          []Recipient `json:"recipients"`
	Actions             []Action    `json:"actions"`
	RequiresHumanReview bool        `json:"requires_human_review"`
	Reply               string      `json:"reply,omitempty"`
	ReplySource         string      `json:"reply_source,omitempty"`
}

// HasRecipient reports whether r is in the recipient set.
func (d RoutingDecision) HasRecipient(r Recipient) bool {
	for _, x := range d.Recipients {
		if x == r {
			return true
		}
	}
	return false
}

// HasAction reports whether a is in the action set.
func (d RoutingDecision) HasAction(a Action) bool {
	for _, x := range d.Actions {
		if x == a {
			return true
		}
	}
	return false
}

// RecipientStrings returns the recipients as plain strings, in order.
func (d RoutingDecision) RecipientStrings() []string {
	out := make([]string, len(d.Recipients))
	for i, r := range d.Recipients {
		out[i] = string(r)
	}
	return out
}

// ExecutionReport aggregates the outcome of dispatching a decision. Nil
// pointers mean the action was not required.
type ExecutionReport struct {
	Persisted     bool     `json:"persisted"`
	MessageID     string   `json:"message_id,omitempty"`
	TicketCreated *bool    `json:"ticket_created"`
	TicketID      string   `json:"ticket_id,omitempty"`
	ReplySent     *bool    `json:"reply_sent"`
	DeliveryID    string   `json:"delivery_id,omitempty"`
	Warnings      []string `json:"warnings"`
}

// ReviewNotice tells a human that a message needs attention.
type ReviewNotice struct {
	BuildingID     string    `json:"building_id"`
	BuildingName   string    `json:"building_name"`
	AdminEmail     string    `json:"-"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	ResidentID     string    `json:"resident_id"`
	Intent         Intent    `json:"intent"`
	Priority       Priority  `json:"priority"`
	Recipients     []string  `json:"recipients"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}
