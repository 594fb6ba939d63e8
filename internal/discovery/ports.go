package discovery

import (
	"context"

	"github.com/couchcryptid/pukaar-service/internal/domain"
)

// GeodataSource queries the live geodata service around a point. An empty
// result with a nil error means the service answered but found nothing.
type GeodataSource interface {
	FetchNearby(ctx context.Context, p domain.Point) ([]domain.RawElement, error)
}

// FallbackSource loads the bundled static dataset.
type FallbackSource interface {
	Load(ctx context.Context) ([]domain.RawElement, error)
}

// Sink receives every completed batch, in cycle order.
type Sink interface {
	PublishBatch(ctx context.Context, batch domain.Batch) error
}
