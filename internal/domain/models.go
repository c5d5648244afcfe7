// Package domain defines the persistence models for buildings, residents,
// conversations, messages, maintenance tickets and knowledge-base entries.
// These types are mapped with GORM and form the data layer consumed by the
// message intake engine.
package domain

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Building is one tenant of the platform. Its settings are projected into an
// immutable BuildingConfig before being handed to the routing engine.
//
// Fields:
//   - WhatsAppNumber: the provider address residents write to (e.g. "whatsapp:+5215550001111").
//   - DefaultLanguage: "es" or "en"; used when an inbound message carries no usable language.
//   - AdminEmail / AdminPhone: destinations for human-review notices.
//   - DisableAutoReply: when true the engine never sends automated replies.
type Building struct {
	ID               string         `json:"id"                 gorm:"type:char(36);primaryKey"`
	Name             string         `json:"name"               gorm:"type:varchar(255);not null"`
	WhatsAppNumber   string         `json:"whatsapp_number"    gorm:"column:whatsapp_number;type:varchar(64);index"`
	DefaultLanguage  string         `json:"default_language"   gorm:"type:varchar(8);not null;default:'es'"`
	AdminEmail       string         `json:"admin_email"        gorm:"type:varchar(255)"`
	AdminPhone       string         `json:"admin_phone"        gorm:"type:varchar(64)"`
	DisableAutoReply bool           `json:"disable_auto_reply" gorm:"not null"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-"                  gorm:"index"`
}

// TableName returns the database table name for Building.
func (Building) TableName() string { return "buildings" }

// Config projects the building row into the parameter object used by the
// routing policy and the action dispatcher.
func (b Building) Config() BuildingConfig {
	lang := Language(b.DefaultLanguage)
	if !lang.Valid() {
		lang = LanguageES
	}
	return BuildingConfig{
		ID:               b.ID,
		Name:             b.Name,
		DefaultLanguage:  lang,
		WhatsAppNumber:   b.WhatsAppNumber,
		AdminEmail:       b.AdminEmail,
		AdminPhone:       b.AdminPhone,
		DisableAutoReply: b.DisableAutoReply,
	}
}

// Unit is an apartment inside a building.
type Unit struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	BuildingID string    `json:"building_id" gorm:"type:char(36);not null;index"`
	Number     string    `json:"number"      gorm:"type:varchar(32);not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Building Building `json:"-" gorm:"foreignKey:BuildingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Unit.
func (Unit) TableName() string { return "units" }

// Resident is an owner or renter of a unit. Only active residents count
// towards unit occupancy.
type Resident struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	BuildingID string    `json:"building_id" gorm:"type:char(36);not null;index"`
	UnitID     string    `json:"unit_id"     gorm:"type:char(36);not null;index:idx_unit_residents"`
	Name       string    `json:"name"        gorm:"type:varchar(255);not null"`
	Phone      string    `json:"phone"       gorm:"type:varchar(64);index"`
	Email      string    `json:"email"       gorm:"type:varchar(255)"`
	Type       string    `json:"type"        gorm:"type:varchar(16);not null;check:type IN ('owner','renter')"`
	Language   string    `json:"language"    gorm:"type:varchar(8)"`
	Active     bool      `json:"active"      gorm:"not null;index:idx_unit_residents"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Unit Unit `json:"-" gorm:"foreignKey:UnitID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Resident.
func (Resident) TableName() string { return "residents" }

// Conversation is the ongoing thread between one resident and the building
// over one channel. At most one active conversation exists per
// (building, resident, channel); the partial unique index enforces it.
//
// Status transitions (active → resolved → archived) belong to admin workflows;
// the intake engine only creates active conversations and bumps LastMessageAt.
type Conversation struct {
	ID            string    `json:"id"              gorm:"type:char(36);primaryKey"`
	BuildingID    string    `json:"building_id"     gorm:"type:char(36);not null;uniqueIndex:ux_active_conversation,priority:1,where:status = 'active'"`
	ResidentID    string    `json:"resident_id"     gorm:"type:char(36);not null;uniqueIndex:ux_active_conversation,priority:2,where:status = 'active'"`
	Channel       string    `json:"channel"         gorm:"type:varchar(16);not null;uniqueIndex:ux_active_conversation,priority:3,where:status = 'active'"`
	Status        string    `json:"status"          gorm:"type:varchar(16);not null;index;check:status IN ('active','resolved','archived')"`
	NeedsReview   bool      `json:"needs_review"    gorm:"not null"`
	LastMessageAt time.Time `json:"last_message_at" gorm:"index"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message is a single inbound or outbound utterance in a conversation.
// Inbound messages carry the classifier's verdict so admins can audit routing.
type Message struct {
	ID                string                      `json:"id"                            gorm:"type:char(36);primaryKey"`
	ConversationID    string                      `json:"conversation_id"               gorm:"type:char(36);not null;index:idx_conversation_msgs,priority:1"`
	BuildingID        string                      `json:"building_id"                   gorm:"type:char(36);not null;index"`
	ResidentID        string                      `json:"resident_id"                   gorm:"type:char(36);not null"`
	Direction         string                      `json:"direction"                     gorm:"type:varchar(16);not null;check:direction IN ('inbound','outbound')"`
	SenderType        string                      `json:"sender_type"                   gorm:"type:varchar(16);not null;check:sender_type IN ('owner','renter','admin','system')"`
	Channel           string                      `json:"channel"                       gorm:"type:varchar(16);not null"`
	Content           string                      `json:"content"                       gorm:"type:text;not null"`
	Intent            string                      `json:"intent,omitempty"              gorm:"type:varchar(32)"`
	Priority          string                      `json:"priority,omitempty"            gorm:"type:varchar(16)"`
	RoutedTo          datatypes.JSONSlice[string] `json:"routed_to,omitempty"`
	RequiresReview    bool                        `json:"requires_review"               gorm:"not null"`
	ExtractedData     datatypes.JSONMap           `json:"extracted_data,omitempty"`
	ProviderMessageID string                      `json:"provider_message_id,omitempty" gorm:"type:varchar(64);index"`
	CreatedAt         time.Time                   `json:"created_at"                    gorm:"index:idx_conversation_msgs,priority:2"`
	UpdatedAt         time.Time                   `json:"updated_at"`
	DeletedAt         gorm.DeletedAt              `json:"-"                             gorm:"index"`

	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// MaintenanceTicket is a tracked work item. Tickets created by the intake
// engine have ExtractedByAI set; every later transition is an admin action.
type MaintenanceTicket struct {
	ID             string    `json:"id"                        gorm:"type:char(36);primaryKey"`
	BuildingID     string    `json:"building_id"               gorm:"type:char(36);not null;index"`
	ResidentID     string    `json:"resident_id"               gorm:"type:char(36);not null"`
	ConversationID *string   `json:"conversation_id,omitempty" gorm:"type:char(36);index"`
	MessageID      *string   `json:"message_id,omitempty"      gorm:"type:char(36)"`
	Title          string    `json:"title"                     gorm:"type:varchar(255);not null"`
	Description    string    `json:"description"               gorm:"type:text;not null"`
	Category       string    `json:"category"                  gorm:"type:varchar(64);not null"`
	Location       string    `json:"location,omitempty"        gorm:"type:varchar(255)"`
	Priority       string    `json:"priority"                  gorm:"type:varchar(16);not null;check:priority IN ('low','medium','high','emergency')"`
	Status         string    `json:"status"                    gorm:"type:varchar(16);not null;check:status IN ('open','in_progress','resolved','closed')"`
	ExtractedByAI  bool      `json:"extracted_by_ai"           gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for MaintenanceTicket.
func (MaintenanceTicket) TableName() string { return "maintenance_tickets" }

// KnowledgeEntry is a canned question/answer owned by a building admin.
type KnowledgeEntry struct {
	ID         string                      `json:"id"          gorm:"type:char(36);primaryKey"`
	BuildingID string                      `json:"building_id" gorm:"type:char(36);not null;index:idx_building_knowledge,priority:1"`
	Category   string                      `json:"category"    gorm:"type:varchar(64)"`
	Question   string                      `json:"question"    gorm:"type:text;not null"`
	Answer     string                      `json:"answer"      gorm:"type:text;not null"`
	Keywords   datatypes.JSONSlice[string] `json:"keywords"`
	Priority   int                         `json:"priority"    gorm:"not null"`
	Active     bool                        `json:"active"      gorm:"not null;index:idx_building_knowledge,priority:2"`
	CreatedAt  time.Time                   `json:"created_at"`
	UpdatedAt  time.Time                   `json:"updated_at"`
}

// TableName returns the database table name for KnowledgeEntry.
func (KnowledgeEntry) TableName() string { return "knowledge_entries" }
