package outbound

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSPublisher is the part of the SNS client used for SMS.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SMSSender sends transactional SMS through Amazon SNS.
type SMSSender struct {
	Client   SNSPublisher
	SenderID string
}

// NewSMSSender wraps an SNS client.
func NewSMSSender(client SNSPublisher, senderID string) *SMSSender {
	return &SMSSender{Client: client, SenderID: senderID}
}

// Send publishes body to the phone number to. SNS has no per-message sender
// number, so from is ignored in favour of SenderID.
func (s *SMSSender) Send(ctx context.Context, to, _ string, body string) (string, error) {
	phone := strings.TrimPrefix(strings.TrimSpace(to), "whatsapp:")
	if phone == "" {
		return "", fmt.Errorf("%w: missing phone number", ErrProvider)
	}
	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
	}
	if s.SenderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(s.SenderID)}
	}
	out, err := s.Client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(phone),
		Message:           aws.String(body),
		MessageAttributes: attrs,
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}
