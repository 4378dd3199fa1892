package usecase

import (
	"context"
	"time"

	"github.com/stationhub/internal/domain"
	"github.com/stationhub/internal/domain/repository"
	"go.uber.org/zap"
)

// StatsCache is the response cache for computed statistics. Misses and
// cache failures both fall back to recomputing.
type StatsCache interface {
	Get(ctx context.Context, country string) *domain.Statistics
	Set(ctx context.Context, country string, stats *domain.Statistics, ttl time.Duration)
}

type StatsUseCase struct {
	stations repository.StationRepository
	cache    StatsCache
	ttl      time.Duration
	logger   *zap.Logger
}

func NewStatsUseCase(
	stations repository.StationRepository,
	cache StatsCache,
	ttl time.Duration,
	logger *zap.Logger,
) *StatsUseCase {
	return &StatsUseCase{
		stations: stations,
		cache:    cache,
		ttl:      ttl,
		logger:   logger,
	}
}

// Get computes aggregate statistics for one country ("" for all).
// Distinct photographers are counted by the statistics attribution, so
// anonymized uploads all fall under the anonymous identity.
func (uc *StatsUseCase) Get(ctx context.Context, country string) (*domain.Statistics, error) {
	if uc.cache != nil {
		if cached := uc.cache.Get(ctx, country); cached != nil {
			return cached, nil
		}
	}

	var stations map[domain.StationKey]domain.Station
	var err error
	if country == "" {
		stations, err = uc.stations.GetAll(ctx)
	} else {
		stations, err = uc.stations.Get(ctx, country)
	}
	if err != nil {
		return nil, err
	}

	stats := &domain.Statistics{
		Country:     country,
		Total:       len(stations),
		LastUpdated: time.Now(),
	}

	photographers := make(map[string]struct{})
	for _, station := range stations {
		if station.HasPhoto() {
			stats.WithPhoto++
			photographers[station.Photo.StatsOwner()] = struct{}{}
		}
	}
	stats.WithoutPhoto = stats.Total - stats.WithPhoto
	stats.Photographers = len(photographers)

	if uc.cache != nil {
		uc.cache.Set(ctx, country, stats, uc.ttl)
	}

	return stats, nil
}
