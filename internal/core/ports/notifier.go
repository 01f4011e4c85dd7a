package ports

import (
	"context"

	"github.com/coachline/coaching-core/internal/core/domain"
)

// Notifier accepts lifecycle notifications without blocking the caller. Delivery
// failures are the notifier's concern and never surface to the transition.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}
