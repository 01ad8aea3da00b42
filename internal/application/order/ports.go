package order

import (
	"context"

	domain "shopcore/internal/domain/order"
)

type IDGenerator interface {
	NewID() string
}

// Publisher fans lifecycle events out to interested collaborators. Publishing
// is best-effort: a failure is logged and never fails the request.
type Publisher interface {
	Publish(ctx context.Context, e domain.Event) error
}
