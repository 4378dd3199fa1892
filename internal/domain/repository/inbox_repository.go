package repository

import (
	"context"

	"github.com/stationhub/internal/domain"
)

// InboxRepository is the persistence contract for inbox entries. Entries
// are never deleted; accept/reject only flip Done and the engine relies on
// the count queries always excluding the entry under evaluation.
type InboxRepository interface {
	// Insert persists a new pending entry and returns its id.
	Insert(ctx context.Context, entry *domain.InboxEntry) (int64, error)

	// FindByID loads one entry.
	FindByID(ctx context.Context, id int64) (*domain.InboxEntry, error)

	// FindPendingEntries returns all not-done entries, oldest first.
	FindPendingEntries(ctx context.Context) ([]domain.InboxEntry, error)

	// CountPendingForStation counts other not-done entries for the same
	// station, excluding excludeID.
	CountPendingForStation(ctx context.Context, country, stationID string, excludeID int64) (int, error)

	// CountPendingNearby counts other not-done entries within ~500 m of the
	// given coordinates (planar approximation), excluding excludeID.
	CountPendingNearby(ctx context.Context, coords domain.Coordinates, excludeID int64) (int, error)

	// FindByCrc32 returns entries whose uploaded content has the given
	// checksum, for recognizing byte-identical re-uploads.
	FindByCrc32(ctx context.Context, crc32 uint32) ([]domain.InboxEntry, error)

	// UpdateCrc32 attaches a content checksum to an entry.
	UpdateCrc32(ctx context.Context, id int64, crc32 uint32) error

	// MarkAccepted sets done=true on a pending entry. Returns
	// errors.ErrInboxEntryDone when the entry was already processed.
	MarkAccepted(ctx context.Context, id int64) error

	// MarkRejected sets done=true and records the reason on a pending
	// entry. Same already-done semantics as MarkAccepted.
	MarkRejected(ctx context.Context, id int64, reason string) error

	// FindEntriesToNotify returns done entries whose submitter has not
	// been notified yet.
	FindEntriesToNotify(ctx context.Context) ([]domain.InboxEntry, error)

	// MarkNotified flags the given entries as notified.
	MarkNotified(ctx context.Context, ids []int64) error
}
