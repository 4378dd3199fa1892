package repository

import (
	"context"

	"github.com/stationhub/internal/domain"
)

// StationRepository is the read side over the merged per-country station
// maps. Implementations serve stale snapshots while refreshing in the
// background; readers never observe a partially rebuilt map.
type StationRepository interface {
	// Get returns the station map for one country.
	Get(ctx context.Context, country string) (map[domain.StationKey]domain.Station, error)

	// GetAll merges the maps of every registered country.
	GetAll(ctx context.Context) (map[domain.StationKey]domain.Station, error)

	// FindByKey looks one station up; ok is false when it does not exist.
	FindByKey(ctx context.Context, key domain.StationKey) (domain.Station, bool, error)

	// FindByName does a case-insensitive substring search over titles.
	FindByName(ctx context.Context, query string) ([]domain.Station, error)

	// Refresh forces an immediate coalesced reload of every country.
	Refresh(ctx context.Context)

	// Countries lists the registered sources.
	Countries() []domain.Country
}

// PhotographerDirectory resolves photographer nicknames to attribution
// metadata.
type PhotographerDirectory interface {
	// Lookup returns the photographer for a nickname, if known.
	Lookup(ctx context.Context, nickname string) (domain.Photographer, bool)

	// Invalidate drops the cached list so the next lookup reloads it.
	Invalidate()
}
