// Package outbound delivers replies to residents over the supported
// channels. Every sender satisfies dispatch.Sender: Send(ctx, to, from, body)
// returns the provider's delivery id.
package outbound

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// whatsAppMaxRunes is the provider's body limit.
const whatsAppMaxRunes = 1600

// ErrProvider is returned when the provider rejects a message.
var ErrProvider = errors.New("provider rejected message")

// MessageCreator is the slice of the Twilio REST API the sender uses;
// *twilioapi.ApiService satisfies it.
type MessageCreator interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
}

// TwilioSender sends WhatsApp messages through the Twilio Messages API.
type TwilioSender struct {
	API         MessageCreator
	DefaultFrom string
}

// NewTwilioSender returns a sender backed by a twilio-go REST client whose
// HTTP calls are bounded by timeout. edge selects a Twilio edge location;
// empty keeps the default.
func NewTwilioSender(accountSID, authToken, edge, defaultFrom string, timeout time.Duration) *TwilioSender {
	rc := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	if edge != "" {
		rc.SetEdge(edge)
	}
	if timeout > 0 {
		rc.SetTimeout(timeout)
	}
	return &TwilioSender{API: rc.Api, DefaultFrom: defaultFrom}
}

type createResult struct {
	msg *twilioapi.ApiV2010Message
	err error
}

// Send posts one WhatsApp message. from falls back to DefaultFrom; both
// addresses get the "whatsapp:" prefix when missing. The SDK call has no
// context, so ctx only bounds how long Send waits for it.
func (s *TwilioSender) Send(ctx context.Context, to, from, body string) (string, error) {
	if from == "" {
		from = s.DefaultFrom
	}
	if strings.TrimSpace(to) == "" || strings.TrimSpace(from) == "" {
		return "", fmt.Errorf("%w: missing address", ErrProvider)
	}
	if utf8.RuneCountInString(body) > whatsAppMaxRunes {
		body = string([]rune(body)[:whatsAppMaxRunes])
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(WhatsAppAddress(to))
	params.SetFrom(WhatsAppAddress(from))
	params.SetBody(body)

	done := make(chan createResult, 1)
	go func() {
		m, err := s.API.CreateMessage(params)
		done <- createResult{msg: m, err: err}
	}()

	var res createResult
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-done:
	}

	if res.err != nil {
		var restErr *client.TwilioRestError
		if errors.As(res.err, &restErr) {
			return "", fmt.Errorf("%w: %d %s (code %d)", ErrProvider, restErr.Status, restErr.Message, restErr.Code)
		}
		return "", res.err
	}
	if res.msg == nil || res.msg.Sid == nil || *res.msg.Sid == "" {
		return "", fmt.Errorf("%w: response without sid", ErrProvider)
	}
	return *res.msg.Sid, nil
}

// WhatsAppAddress adds the "whatsapp:" scheme to a bare phone number.
func WhatsAppAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, "whatsapp:") {
		return addr
	}
	return "whatsapp:" + addr
}
