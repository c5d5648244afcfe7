package classifier

import (
	"fmt"
	"strings"

	"github.com/condohub/condo-backend/internal/domain"
)

const systemPrompt = `You triage messages sent by condominium residents to their building administration.
Answer with a single JSON object and nothing else, using exactly these fields:
  "intent": one of maintenance_request, general_question, noise_complaint, visitor_access, hoa_fee_question, amenity_reservation, document_request, emergency, other
  "priority": one of low, medium, high, emergency
  "routeTo": one of owner, renter, admin, both
  "suggestedResponse": a short, polite reply to the resident in the resident's language, or "" when a person must answer
  "requiresHumanReview": true when an administrator must look at the message before anyone replies
  "extractedData": an object with any of maintenanceCategory, urgency, location, visitorName, visitDate, amenity, date, documentType
Use priority emergency only for risks to people or property (fire, gas, flooding, break-ins).
Never promise dates, refunds or approvals in suggestedResponse.`

func userPrompt(text string, sender domain.SenderType, lang domain.Language, buildingName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Building: %s\n", strings.TrimSpace(buildingName))
	fmt.Fprintf(&b, "Sender: %s\n", sender)
	fmt.Fprintf(&b, "Reply language: %s\n", languageName(lang))
	b.WriteString("Message:\n")
	b.WriteString(text)
	return b.String()
}

func languageName(l domain.Language) string {
	if l == domain.LanguageEN {
		return "English"
	}
	return "Spanish"
}
