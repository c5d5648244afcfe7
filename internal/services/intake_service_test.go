package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/condohub/condo-backend/internal/dispatch"
	"github.com/condohub/condo-backend/internal/domain"
	"github.com/condohub/condo-backend/internal/repo"
)

type classifierFunc func(ctx context.Context, text string, sender domain.SenderType, lang domain.Language, building string) (domain.AnalysisResult, error)

func (f classifierFunc) Classify(ctx context.Context, text string, sender domain.SenderType, lang domain.Language, building string) (domain.AnalysisResult, error) {
	return f(ctx, text, sender, lang, building)
}

func fixedVerdict(a domain.AnalysisResult) classifierFunc {
	return func(context.Context, string, domain.SenderType, domain.Language, string) (domain.AnalysisResult, error) {
		return a, nil
	}
}

type recordingSender struct {
	mu    sync.Mutex
	to    []string
	from  []string
	bodys []string
	err   error
}

func (r *recordingSender) Send(_ context.Context, to, from, body string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.to, r.from, r.bodys = append(r.to, to), append(r.from, from), append(r.bodys, body)
	if r.err != nil {
		return "", r.err
	}
	return "SM123", nil
}

type recordingNotifier struct{ got []domain.ReviewNotice }

func (r *recordingNotifier) Notify(_ context.Context, n domain.ReviewNotice) error {
	r.got = append(r.got, n)
	return nil
}

type harness struct {
	f        fixture
	svc      *IntakeService
	sender   *recordingSender
	notifier *recordingNotifier
}

func newHarness(t *testing.T, c Classifier) *harness {
	t.Helper()
	db := newTestDB(t)
	f := seed(t, db)
	nop := zerolog.Nop()
	h := &harness{f: f, sender: &recordingSender{}, notifier: &recordingNotifier{}}
	convs := NewConversationService(db, RepoConversations{})
	h.svc = &IntakeService{
		DB:            db,
		Conversations: convs,
		Knowledge:     &KnowledgeService{DB: db},
		Classifier:    c,
		Dispatcher: &dispatch.Dispatcher{
			Store:       DispatchStore{DB: db},
			Senders:     map[domain.Channel]dispatch.Sender{domain.ChannelWhatsApp: h.sender},
			Notifier:    h.notifier,
			StepTimeout: time.Second,
			Logger:      &nop,
		},
		Logger: &nop,
	}
	return h
}

func (h *harness) inbound(sender domain.Resident, text string) domain.InboundMessage {
	return domain.InboundMessage{
		Text:       text,
		SenderType: domain.SenderType(sender.Type),
		BuildingID: h.f.Building.ID,
		ResidentID: sender.ID,
		Channel:    domain.ChannelWhatsApp,
	}
}

func TestIntake_MaintenanceFromRenter(t *testing.T) {
	h := newHarness(t, fixedVerdict(domain.AnalysisResult{
		Intent:            domain.IntentMaintenanceRequest,
		Priority:          domain.PriorityHigh,
		RouteTo:           domain.RouteRenter,
		SuggestedResponse: "We logged your request.",
		ExtractedData:     map[string]any{"maintenanceCategory": "plumbing", "location": "kitchen"},
	}))
	ctx := context.Background()

	res, err := h.svc.Process(ctx, h.inbound(h.f.Renter, "  The kitchen sink is leaking  "))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.ConversationID == "" || !res.Report.Persisted {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got := res.Decision.RecipientStrings(); len(got) != 1 || got[0] != "renter" {
		t.Fatalf("recipients = %v; want [renter]", got)
	}
	if res.Report.TicketCreated == nil || !*res.Report.TicketCreated {
		t.Fatalf("ticket not created: %+v", res.Report)
	}
	if res.Report.ReplySent == nil || !*res.Report.ReplySent {
		t.Fatalf("reply not sent: %+v", res.Report)
	}

	// Reply goes to the resident's WhatsApp address from the building number.
	if h.sender.to[0] != "whatsapp:"+h.f.Renter.Phone || h.sender.from[0] != h.f.Building.WhatsAppNumber {
		t.Fatalf("send to=%v from=%v", h.sender.to, h.sender.from)
	}

	tickets, _ := repo.ListTickets(ctx, h.svc.DB, h.f.Building.ID)
	if len(tickets) != 1 || tickets[0].Category != "plumbing" || tickets[0].Priority != "high" || tickets[0].Status != repo.TicketOpen {
		t.Fatalf("tickets = %+v", tickets)
	}

	msgs, _ := repo.ListMessagesPage(ctx, h.svc.DB, res.ConversationID, 0, 10)
	if len(msgs) != 2 || msgs[0].Direction != "inbound" || msgs[1].Direction != "outbound" {
		t.Fatalf("messages = %+v", msgs)
	}
	if msgs[0].Content != "The kitchen sink is leaking" || msgs[0].Intent != "maintenance_request" {
		t.Fatalf("inbound not stored as expected: %+v", msgs[0])
	}

	// Second message reuses the conversation.
	res2, err := h.svc.Process(ctx, h.inbound(h.f.Renter, "Any update?"))
	if err != nil || res2.ConversationID != res.ConversationID {
		t.Fatalf("second message: %v, conv %s vs %s", err, res2.ConversationID, res.ConversationID)
	}
}

func TestIntake_EmergencyNotifiesAdmin(t *testing.T) {
	h := newHarness(t, fixedVerdict(domain.AnalysisResult{
		Intent:            domain.IntentEmergency,
		Priority:          domain.PriorityEmergency,
		RouteTo:           domain.RouteOwner,
		SuggestedResponse: "Stay safe.",
	}))
	ctx := context.Background()

	res, err := h.svc.Process(ctx, h.inbound(h.f.Owner, "Hay humo en el pasillo"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Decision.RequiresHumanReview || !res.Decision.HasRecipient(domain.RecipientAdmin) {
		t.Fatalf("emergency must escalate: %+v", res.Decision)
	}
	if res.Report.ReplySent != nil {
		t.Fatalf("no auto reply under review, got %+v", res.Report)
	}
	if len(h.notifier.got) != 1 || h.notifier.got[0].AdminEmail != "admin@torre.mx" {
		t.Fatalf("notices = %+v", h.notifier.got)
	}
	c, _ := repo.GetConversation(ctx, h.svc.DB, res.ConversationID)
	if !c.NeedsReview {
		t.Fatalf("conversation should be flagged for review")
	}
}

func TestIntake_FAQAnsweredFromKnowledge(t *testing.T) {
	h := newHarness(t, fixedVerdict(domain.AnalysisResult{
		Intent:            domain.IntentGeneralQuestion,
		Priority:          domain.PriorityLow,
		RouteTo:           domain.RouteAdmin,
		SuggestedResponse: "Let me check.",
	}))
	addKnowledge(t, h.svc.DB, h.f.Building.ID, "¿Cuál es el horario de la alberca?", "La alberca abre de 7 a 22 h.", 1, "alberca")

	res, err := h.svc.Process(context.Background(), h.inbound(h.f.Owner, "¿A qué hora abre la alberca?"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Decision.ReplySource != domain.ReplySourceKnowledge || h.sender.bodys[0] != "La alberca abre de 7 a 22 h." {
		t.Fatalf("reply = %q (%s)", res.Decision.Reply, res.Decision.ReplySource)
	}
	// The verdict itself is left alone.
	if res.Analysis.SuggestedResponse != "Let me check." {
		t.Fatalf("analysis mutated: %+v", res.Analysis)
	}
}

func TestIntake_ClassifierFailureFallsBack(t *testing.T) {
	h := newHarness(t, classifierFunc(func(context.Context, string, domain.SenderType, domain.Language, string) (domain.AnalysisResult, error) {
		return domain.FallbackAnalysis(), errors.New("upstream timeout")
	}))

	res, err := h.svc.Process(context.Background(), h.inbound(h.f.Owner, "???"))
	if err != nil {
		t.Fatalf("classification failure must not fail intake: %v", err)
	}
	if res.Analysis.Intent != domain.IntentOther || !res.Decision.RequiresHumanReview {
		t.Fatalf("want fallback routed to review, got %+v", res)
	}
	if got := res.Decision.RecipientStrings(); len(got) != 1 || got[0] != "admin" {
		t.Fatalf("recipients = %v", got)
	}
}

func TestIntake_DeliveryFailureIsWarning(t *testing.T) {
	h := newHarness(t, fixedVerdict(domain.AnalysisResult{
		Intent: domain.IntentVisitorAccess, Priority: domain.PriorityLow, RouteTo: domain.RouteOwner, SuggestedResponse: "Ok",
	}))
	h.sender.err = errors.New("provider down")

	res, err := h.svc.Process(context.Background(), h.inbound(h.f.Owner, "Viene un técnico a las 5"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Report.Persisted || *res.Report.ReplySent || len(res.Report.Warnings) != 1 || res.Report.Warnings[0] != dispatch.WarnDeliveryFailed {
		t.Fatalf("report = %+v", res.Report)
	}
}

func TestIntake_PersistenceFailureFails(t *testing.T) {
	h := newHarness(t, fixedVerdict(domain.AnalysisResult{Intent: domain.IntentOther, Priority: domain.PriorityLow, RouteTo: domain.RouteAdmin}))
	if err := h.svc.DB.Migrator().DropTable(&domain.Message{}); err != nil {
		t.Fatalf("drop: %v", err)
	}
	_, err := h.svc.Process(context.Background(), h.inbound(h.f.Owner, "hola"))
	if !errors.Is(err, dispatch.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestIntake_Validation(t *testing.T) {
	h := newHarness(t, fixedVerdict(domain.FallbackAnalysis()))
	h.svc.MaxTextRunes = 5
	ctx := context.Background()

	cases := []struct {
		name string
		mut  func(*domain.InboundMessage)
		want error
	}{
		{"empty", func(m *domain.InboundMessage) { m.Text = "   " }, ErrEmptyText},
		{"too long", func(m *domain.InboundMessage) { m.Text = strings.Repeat("á", 6) }, ErrTooLong},
		{"sender", func(m *domain.InboundMessage) { m.SenderType = "admin" }, ErrInvalidSender},
		{"channel", func(m *domain.InboundMessage) { m.Channel = "telegram" }, ErrInvalidChannel},
		{"building", func(m *domain.InboundMessage) { m.BuildingID = "nope" }, ErrBuildingNotFound},
		{"resident", func(m *domain.InboundMessage) { m.ResidentID = "nope" }, ErrResidentNotFound},
		{"conversation", func(m *domain.InboundMessage) { m.ConversationID = "nope" }, ErrConversationNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := h.inbound(h.f.Owner, "hola")
			tc.mut(&m)
			if _, err := h.svc.Process(ctx, m); !errors.Is(err, tc.want) {
				t.Fatalf("got %v; want %v", err, tc.want)
			}
		})
	}
}

func TestIntake_ForeignConversationRejected(t *testing.T) {
	h := newHarness(t, fixedVerdict(domain.FallbackAnalysis()))
	ctx := context.Background()
	c, _ := h.svc.Conversations.GetOrCreate(ctx, h.f.Building.ID, h.f.Renter.ID, domain.ChannelWhatsApp)

	m := h.inbound(h.f.Owner, "hola")
	m.ConversationID = c.ID
	if _, err := h.svc.Process(ctx, m); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestIntake_LanguageResolution(t *testing.T) {
	var seen []domain.Language
	h := newHarness(t, classifierFunc(func(_ context.Context, _ string, _ domain.SenderType, lang domain.Language, _ string) (domain.AnalysisResult, error) {
		seen = append(seen, lang)
		return domain.FallbackAnalysis(), nil
	}))
	ctx := context.Background()

	m := h.inbound(h.f.Owner, "hello")
	m.Language = "en-GB"
	_, _ = h.svc.Process(ctx, m)

	// No language on the message: the renter's profile says en-US.
	_, _ = h.svc.Process(ctx, h.inbound(h.f.Renter, "hello"))

	// Owner has no profile language: building default.
	_, _ = h.svc.Process(ctx, h.inbound(h.f.Owner, "hola"))

	want := []domain.Language{domain.LanguageEN, domain.LanguageEN, domain.LanguageES}
	if len(seen) != len(want) {
		t.Fatalf("classifier calls = %d", len(seen))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("call %d language = %q; want %q", i, seen[i], want[i])
		}
	}
}

func TestResolveLanguage(t *testing.T) {
	cases := []struct {
		fallback domain.Language
		in       []string
		want     domain.Language
	}{
		{domain.LanguageEN, []string{"es-MX"}, domain.LanguageES},
		{domain.LanguageES, []string{"en_US"}, domain.LanguageEN},
		{domain.LanguageEN, []string{"fr", ""}, domain.LanguageEN},
		{domain.LanguageES, []string{"!!", "en"}, domain.LanguageEN},
		{"", nil, domain.LanguageES},
	}
	for _, tc := range cases {
		if got := resolveLanguage(tc.fallback, tc.in...); got != tc.want {
			t.Fatalf("resolveLanguage(%q, %v) = %q; want %q", tc.fallback, tc.in, got, tc.want)
		}
	}
}

func TestReplyAddress(t *testing.T) {
	if got := replyAddress(domain.ChannelWhatsApp, "+521"); got != "whatsapp:+521" {
		t.Fatalf("whatsapp: %q", got)
	}
	if got := replyAddress(domain.ChannelWhatsApp, "whatsapp:+521"); got != "whatsapp:+521" {
		t.Fatalf("prefixed: %q", got)
	}
	if got := replyAddress(domain.ChannelSMS, "whatsapp:+521"); got != "+521" {
		t.Fatalf("sms: %q", got)
	}
	if got := replyAddress(domain.ChannelWeb, "+521"); got != "" {
		t.Fatalf("web: %q", got)
	}
}
