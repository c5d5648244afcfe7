// Package routing holds the routing policy: a pure function from a
// classifier verdict and building state to the set of recipients and actions
// for one inbound message. Nothing here performs I/O.
package routing

import (
	"strings"

	"github.com/condohub/condo-backend/internal/domain"
)

var (
	recipientOrder = []domain.Recipient{domain.RecipientOwner, domain.RecipientRenter, domain.RecipientAdmin}
	actionOrder    = []domain.Action{domain.ActionPersistMessage, domain.ActionCreateTicket, domain.ActionNotifyHuman, domain.ActionSendReply}
)

// Decide maps analysis, building settings and unit occupancy to a
// RoutingDecision. knowledge is the best knowledge-base hit for the message,
// or nil; a strong hit replaces the suggested reply for FAQ intents.
//
// Decide is deterministic and never returns an empty recipient set.
func Decide(analysis domain.AnalysisResult, building domain.BuildingConfig, unit domain.UnitOccupancy, knowledge *domain.KnowledgeMatch) domain.RoutingDecision {
	review := analysis.RequiresHumanReview
	emergency := analysis.Priority == domain.PriorityEmergency
	if emergency {
		review = true
	}

	set := make(map[domain.Recipient]bool, 3)
	switch analysis.RouteTo {
	case domain.RouteOwner:
		if unit.HasOwner() {
			set[domain.RecipientOwner] = true
		} else {
			set[domain.RecipientAdmin] = true
		}
	case domain.RouteRenter:
		switch {
		case unit.HasActiveRenter():
			set[domain.RecipientRenter] = true
		case unit.HasOwner():
			set[domain.RecipientOwner] = true
			set[domain.RecipientAdmin] = true
		default:
			set[domain.RecipientAdmin] = true
		}
	case domain.RouteBoth:
		if unit.HasOwner() {
			set[domain.RecipientOwner] = true
		}
		if unit.HasActiveRenter() {
			set[domain.RecipientRenter] = true
		}
		if review {
			set[domain.RecipientAdmin] = true
		}
	default:
		set[domain.RecipientAdmin] = true
	}
	if emergency || len(set) == 0 {
		set[domain.RecipientAdmin] = true
	}

	reply, source := strings.TrimSpace(analysis.SuggestedResponse), ""
	if reply != "" {
		source = domain.ReplySourceClassifier
	}
	if knowledge != nil && knowledge.Strong && analysis.Intent.IsFAQ() {
		if a := strings.TrimSpace(knowledge.Entry.Answer); a != "" {
			reply, source = a, domain.ReplySourceKnowledge
		}
	}

	acts := map[domain.Action]bool{domain.ActionPersistMessage: true}
	if analysis.Intent == domain.IntentMaintenanceRequest {
		acts[domain.ActionCreateTicket] = true
	}
	if review {
		acts[domain.ActionNotifyHuman] = true
	}
	if reply != "" && !review && !building.DisableAutoReply {
		acts[domain.ActionSendReply] = true
	}

	d := domain.RoutingDecision{RequiresHumanReview: review}
	for _, r := range recipientOrder {
		if set[r] {
			d.Recipients = append(d.Recipients, r)
		}
	}
	for _, a := range actionOrder {
		if acts[a] {
			d.Actions = append(d.Actions, a)
		}
	}
	if d.HasAction(domain.ActionSendReply) {
		d.Reply, d.ReplySource = reply, source
	}
	return d
}
