package outbound

import (
	"context"

	"github.com/google/uuid"
)

// WebSender handles the web channel, where replies are read back from the
// conversation history rather than pushed. It only mints a delivery id.
type WebSender struct{}

// Send returns a fresh delivery id.
func (WebSender) Send(context.Context, string, string, string) (string, error) {
	return "web-" + uuid.NewString(), nil
}
