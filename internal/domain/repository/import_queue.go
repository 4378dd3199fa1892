package repository

import (
	"context"

	"github.com/stationhub/internal/domain"
)

// PhotoImportQueue is the write side of the acceptance hand-off. Accepted
// photos are queued for the upstream photo store and show up via the next
// source refresh; this is eventually consistent by design.
type PhotoImportQueue interface {
	// Publish enqueues one accepted photo.
	Publish(ctx context.Context, imp domain.PhotoImport) error

	// Consume streams queued imports until the context is cancelled.
	Consume(ctx context.Context, consumer string) (<-chan domain.PhotoImportMessage, error)

	// Ack confirms that an import has been delivered upstream.
	Ack(ctx context.Context, messageID string) error
}
