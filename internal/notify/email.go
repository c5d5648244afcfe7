package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/condohub/condo-backend/internal/domain"
)

// SESService is the part of the SES client used here.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailNotifier emails the building admin. Fallback receives notices for
// buildings without an admin address; with neither, the notice is skipped.
type EmailNotifier struct {
	Client   SESService
	From     string
	Fallback string
}

// NewEmailNotifier wraps an SES client.
func NewEmailNotifier(client SESService, from, fallback string) *EmailNotifier {
	return &EmailNotifier{Client: client, From: from, Fallback: fallback}
}

// Notify implements Notifier.
func (e *EmailNotifier) Notify(ctx context.Context, n domain.ReviewNotice) error {
	to := strings.TrimSpace(n.AdminEmail)
	if to == "" {
		to = strings.TrimSpace(e.Fallback)
	}
	if to == "" {
		return nil
	}
	subject, body := renderNotice(n)
	_, err := e.Client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(e.From),
	})
	if err != nil {
		return fmt.Errorf("send review email: %w", err)
	}
	return nil
}

func renderNotice(n domain.ReviewNotice) (subject, body string) {
	name := n.BuildingName
	if name == "" {
		name = n.BuildingID
	}
	subject = fmt.Sprintf("[%s] Review needed: %s (%s)", name, n.Intent, n.Priority)

	var b strings.Builder
	fmt.Fprintf(&b, "A resident message needs attention.\n\n")
	fmt.Fprintf(&b, "Building:     %s\n", name)
	fmt.Fprintf(&b, "Intent:       %s\n", n.Intent)
	fmt.Fprintf(&b, "Priority:     %s\n", n.Priority)
	fmt.Fprintf(&b, "Routed to:    %s\n", strings.Join(n.Recipients, ", "))
	fmt.Fprintf(&b, "Conversation: %s\n", n.ConversationID)
	fmt.Fprintf(&b, "Message:      %s\n", n.MessageID)
	fmt.Fprintf(&b, "Received:     %s\n\n", n.CreatedAt.Format("2006-01-02 15:04 MST"))
	b.WriteString(n.Text)
	b.WriteString("\n")
	return subject, b.String()
}
