// Package notify raises review notices to humans when the routing policy
// asks for notify_human: an email to the building admin (Amazon SES) and a
// live frame to every admin dashboard connected over WebSocket. Delivery is
// best-effort; the dispatcher only logs failures.
package notify

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/condohub/condo-backend/internal/domain"
)

// Notifier delivers one review notice.
type Notifier interface {
	Notify(ctx context.Context, n domain.ReviewNotice) error
}

// Multi fans a notice out to every notifier concurrently. All notifiers run
// even if some fail; the failures are joined.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, n domain.ReviewNotice) error {
	errs := make([]error, len(m))
	var g errgroup.Group
	for i, nt := range m {
		if nt == nil {
			continue
		}
		g.Go(func() error {
			errs[i] = nt.Notify(ctx, n)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
