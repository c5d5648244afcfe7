package dispatch

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/condohub/condo-backend/internal/domain"
	"github.com/condohub/condo-backend/internal/search"
)

const (
	titleMaxWords = 6
	titleMaxRunes = 80
)

func newTicket(b domain.BuildingConfig, msg domain.InboundMessage, a domain.AnalysisResult, messageID string) *domain.MaintenanceTicket {
	conv, mid := msg.ConversationID, messageID
	category := a.ExtractedString("maintenanceCategory", "category")
	if category == "" {
		category = "general"
	}
	return &domain.MaintenanceTicket{
		BuildingID:     b.ID,
		ResidentID:     msg.ResidentID,
		ConversationID: &conv,
		MessageID:      &mid,
		Title:          TicketTitle(msg.Text, msg.Language),
		Description:    msg.Text,
		Category:       strings.ToLower(category),
		Location:       a.ExtractedString("location"),
		Priority:       string(a.Priority),
		ExtractedByAI:  true,
	}
}

// TicketTitle derives a short title-cased title from the message keywords.
func TicketTitle(text string, lang domain.Language) string {
	tag := language.Spanish
	fallback := "Solicitud de mantenimiento"
	if lang == domain.LanguageEN {
		tag = language.English
		fallback = "Maintenance request"
	}

	words := search.Keywords(text, titleMaxWords)
	if len(words) == 0 {
		return fallback
	}
	caser := cases.Title(tag)
	for i, w := range words {
		words[i] = caser.String(w)
	}
	title := strings.Join(words, " ")
	if utf8.RuneCountInString(title) > titleMaxRunes {
		title = strings.TrimSpace(string([]rune(title)[:titleMaxRunes]))
	}
	return title
}
