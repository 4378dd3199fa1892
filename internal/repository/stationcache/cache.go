package stationcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stationhub/internal/domain"
	"github.com/stationhub/internal/domain/repository"
	"github.com/stationhub/internal/loader"
	"github.com/stationhub/internal/pkg/errors"
	"go.uber.org/zap"
)

// countryEntry is the per-country cache slot. The mutex only guards the
// slot state; loads run outside the lock and the finished map is swapped
// in atomically, so readers never see a partially built map.
type countryEntry struct {
	mu        sync.Mutex
	value     map[domain.StationKey]domain.Station
	loaded    bool
	loadedAt  time.Time
	inFlight  bool
	firstLoad chan struct{}
	firstErr  error
}

// StationCache serves merged station maps with refresh-ahead semantics:
// the first read of a country loads synchronously (concurrent callers
// coalesce onto a single upstream fetch), later reads return the cached
// map immediately and kick a background refresh once it has aged past the
// interval. A failed refresh keeps the previous value and reports to
// monitoring.
type StationCache struct {
	registry     *loader.Registry
	directory    *PhotographerCache
	monitor      repository.Monitor
	interval     time.Duration
	photoBaseURL string
	logger       *zap.Logger

	mu      sync.Mutex
	entries map[string]*countryEntry
	closed  bool
}

var _ repository.StationRepository = (*StationCache)(nil)

func New(
	registry *loader.Registry,
	directory *PhotographerCache,
	monitor repository.Monitor,
	interval time.Duration,
	photoBaseURL string,
	logger *zap.Logger,
) *StationCache {
	entries := make(map[string]*countryEntry)
	for _, c := range registry.Countries() {
		entries[c.Code] = &countryEntry{}
	}

	return &StationCache{
		registry:     registry,
		directory:    directory,
		monitor:      monitor,
		interval:     interval,
		photoBaseURL: photoBaseURL,
		logger:       logger,
		entries:      entries,
	}
}

// Close stops the cache from scheduling further background refreshes.
func (s *StationCache) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *StationCache) Countries() []domain.Country {
	return s.registry.Countries()
}

// Get returns the station map of one country. The returned map must be
// treated as read-only; it is shared with concurrent readers.
func (s *StationCache) Get(ctx context.Context, country string) (map[domain.StationKey]domain.Station, error) {
	e, ok := s.entries[country]
	if !ok {
		return nil, errors.ErrUnknownCountry
	}

	e.mu.Lock()

	if e.loaded {
		value := e.value
		if time.Since(e.loadedAt) > s.interval && !e.inFlight && !s.isClosed() {
			e.inFlight = true
			go s.loadEntry(context.Background(), country, e)
		}
		e.mu.Unlock()
		return value, nil
	}

	// Not loaded yet: either join the in-flight first load or run it.
	if e.inFlight {
		done := e.firstLoad
		e.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		if !e.loaded {
			return nil, e.firstErr
		}
		return e.value, nil
	}

	e.inFlight = true
	e.firstLoad = make(chan struct{})
	e.mu.Unlock()

	s.loadEntry(ctx, country, e)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return nil, e.firstErr
	}
	return e.value, nil
}

// GetAll merges the maps of all registered countries. The composite key
// guarantees the merge has no collisions.
func (s *StationCache) GetAll(ctx context.Context) (map[domain.StationKey]domain.Station, error) {
	merged := make(map[domain.StationKey]domain.Station)
	for _, c := range s.registry.Countries() {
		stations, err := s.Get(ctx, c.Code)
		if err != nil {
			return nil, err
		}
		for key, station := range stations {
			merged[key] = station
		}
	}
	return merged, nil
}

func (s *StationCache) FindByKey(ctx context.Context, key domain.StationKey) (domain.Station, bool, error) {
	stations, err := s.Get(ctx, key.Country)
	if err != nil {
		return domain.Station{}, false, err
	}
	station, ok := stations[key]
	return station, ok, nil
}

func (s *StationCache) FindByName(ctx context.Context, query string) ([]domain.Station, error) {
	stations, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	var result []domain.Station
	for _, station := range stations {
		if station.MatchesName(query) {
			result = append(result, station)
		}
	}
	return result, nil
}

// Refresh forces a reload of every country and waits for the reloads it
// started. The photographer directory is reloaded first so the rebuilt
// station maps carry current attribution. Countries with a refresh
// already in flight are skipped: the running load supersedes this
// trigger.
func (s *StationCache) Refresh(ctx context.Context) {
	s.directory.Refresh(ctx)

	var wg sync.WaitGroup

	for country, e := range s.entries {
		e.mu.Lock()
		if e.inFlight {
			e.mu.Unlock()
			continue
		}
		e.inFlight = true
		if !e.loaded && e.firstLoad == nil {
			e.firstLoad = make(chan struct{})
		}
		e.mu.Unlock()

		wg.Add(1)
		go func(country string, e *countryEntry) {
			defer wg.Done()
			s.loadEntry(ctx, country, e)
		}(country, e)
	}

	wg.Wait()
}

// loadEntry runs one country load and publishes the result. The caller
// must have set e.inFlight under the entry lock.
func (s *StationCache) loadEntry(ctx context.Context, country string, e *countryEntry) {
	ldr, ok := s.registry.Get(country)
	if !ok {
		// entries are built from the registry, so this cannot happen
		return
	}

	photographers := s.directory.Snapshot(ctx)

	stations, err := ldr.LoadStations(ctx, photographers, s.photoBaseURL)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.inFlight = false

	if err != nil {
		s.logger.Error("Country refresh failed, keeping previous data",
			zap.String("country", country),
			zap.Error(err))
		s.monitor.Notify(fmt.Sprintf("station load failed for %s: %v", country, err))
		e.firstErr = errors.ErrInternalServer.WithDetails(map[string]interface{}{
			"country": country,
			"cause":   err.Error(),
		})
		if !e.loaded && e.firstLoad != nil {
			close(e.firstLoad)
			e.firstLoad = nil
		}
		return
	}

	e.value = stations
	e.loadedAt = time.Now()
	if !e.loaded {
		e.loaded = true
		if e.firstLoad != nil {
			close(e.firstLoad)
			e.firstLoad = nil
		}
	}
}

func (s *StationCache) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
