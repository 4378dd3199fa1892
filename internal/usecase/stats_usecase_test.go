package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stationhub/internal/domain"
	"github.com/stationhub/internal/usecase"
)

// MockStatsCache is a mock of usecase.StatsCache
type MockStatsCache struct {
	mock.Mock
}

func (m *MockStatsCache) Get(ctx context.Context, country string) *domain.Statistics {
	args := m.Called(ctx, country)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.Statistics)
}

func (m *MockStatsCache) Set(ctx context.Context, country string, stats *domain.Statistics, ttl time.Duration) {
	m.Called(ctx, country, stats, ttl)
}

func statsStations() map[domain.StationKey]domain.Station {
	keyA := domain.StationKey{Country: "de", ID: "1"}
	keyB := domain.StationKey{Country: "de", ID: "2"}
	keyC := domain.StationKey{Country: "de", ID: "3"}
	keyD := domain.StationKey{Country: "de", ID: "4"}

	return map[domain.StationKey]domain.Station{
		keyA: {Key: keyA, Photo: &domain.Photo{Key: keyA, Photographer: "anna"}},
		// two anonymized photos by different submitters count as one
		// statistics identity
		keyB: {Key: keyB, Photo: &domain.Photo{Key: keyB, Photographer: "bert", StatsPhotographer: "@anonym"}},
		keyC: {Key: keyC, Photo: &domain.Photo{Key: keyC, Photographer: "carl", StatsPhotographer: "@anonym"}},
		keyD: {Key: keyD},
	}
}

func TestStatsUseCase_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("computes statistics for one country", func(t *testing.T) {
		repo := &MockStationRepository{}
		repo.On("Get", ctx, "de").Return(statsStations(), nil)
		cache := &MockStatsCache{}
		cache.On("Get", ctx, "de").Return(nil)
		cache.On("Set", ctx, "de", mock.Anything, 5*time.Minute).Return()

		uc := usecase.NewStatsUseCase(repo, cache, 5*time.Minute, zap.NewNop())

		stats, err := uc.Get(ctx, "de")
		require.NoError(t, err)
		assert.Equal(t, 4, stats.Total)
		assert.Equal(t, 3, stats.WithPhoto)
		assert.Equal(t, 1, stats.WithoutPhoto)
		assert.Equal(t, 2, stats.Photographers)
		cache.AssertExpectations(t)
	})

	t.Run("cache hit skips recomputation", func(t *testing.T) {
		repo := &MockStationRepository{}
		cached := &domain.Statistics{Country: "de", Total: 42}
		cache := &MockStatsCache{}
		cache.On("Get", ctx, "de").Return(cached)

		uc := usecase.NewStatsUseCase(repo, cache, 5*time.Minute, zap.NewNop())

		stats, err := uc.Get(ctx, "de")
		require.NoError(t, err)
		assert.Equal(t, 42, stats.Total)
		repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("empty country aggregates everything", func(t *testing.T) {
		repo := &MockStationRepository{}
		repo.On("GetAll", ctx).Return(statsStations(), nil)

		uc := usecase.NewStatsUseCase(repo, nil, 5*time.Minute, zap.NewNop())

		stats, err := uc.Get(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, 4, stats.Total)
	})
}
