package usecase

import (
	"context"
	"math"
	"sort"

	"github.com/stationhub/internal/domain"
	"github.com/stationhub/internal/domain/repository"
	"github.com/stationhub/internal/pkg/errors"
	"github.com/stationhub/internal/pkg/utils"
	"github.com/stationhub/internal/usecase/dto"
	"go.uber.org/zap"
)

type StationUseCase struct {
	stations repository.StationRepository
	logger   *zap.Logger
}

func NewStationUseCase(stations repository.StationRepository, logger *zap.Logger) *StationUseCase {
	return &StationUseCase{
		stations: stations,
		logger:   logger,
	}
}

// List returns stations matching the filters, sorted by key.
func (uc *StationUseCase) List(ctx context.Context, req dto.StationListRequest) ([]domain.Station, error) {
	if req.MaxDistance < 0 || math.IsNaN(req.MaxDistance) {
		return nil, errors.ErrInvalidMaxDistance
	}

	withDistance := req.MaxDistance > 0
	if withDistance {
		if req.Lat == nil || req.Lon == nil {
			return nil, errors.ErrInvalidRequest
		}
		if !utils.ValidateCoordinates(*req.Lat, *req.Lon) {
			return nil, errors.ErrInvalidCoordinates
		}
	}

	stations, err := uc.getScope(ctx, req.Country)
	if err != nil {
		return nil, err
	}

	result := make([]domain.Station, 0, len(stations))
	for _, station := range stations {
		if req.HasPhoto != nil && station.HasPhoto() != *req.HasPhoto {
			continue
		}
		if req.Photographer != "" {
			if !station.HasPhoto() || station.Photo.Photographer != req.Photographer {
				continue
			}
		}
		if withDistance {
			distance := utils.HaversineDistance(
				*req.Lat, *req.Lon,
				station.Coordinates.Lat, station.Coordinates.Lon,
			)
			if distance >= req.MaxDistance {
				continue
			}
		}
		result = append(result, station)
	}

	sortStations(result)
	return result, nil
}

// ByKey looks up one station.
func (uc *StationUseCase) ByKey(ctx context.Context, key domain.StationKey) (domain.Station, error) {
	station, ok, err := uc.stations.FindByKey(ctx, key)
	if err != nil {
		return domain.Station{}, err
	}
	if !ok {
		return domain.Station{}, errors.ErrStationNotFound
	}
	return station, nil
}

// SearchByName does a case-insensitive substring search over titles.
func (uc *StationUseCase) SearchByName(ctx context.Context, req dto.StationSearchRequest) ([]domain.Station, error) {
	stations, err := uc.stations.FindByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	sortStations(stations)
	return stations, nil
}

// PhotographerCounts ranks photographers by number of photos in one
// country ("" for all), using the public attribution.
func (uc *StationUseCase) PhotographerCounts(ctx context.Context, country string) ([]domain.PhotographerCount, error) {
	stations, err := uc.getScope(ctx, country)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, station := range stations {
		if station.HasPhoto() {
			counts[station.Photo.Photographer]++
		}
	}

	result := make([]domain.PhotographerCount, 0, len(counts))
	for name, count := range counts {
		result = append(result, domain.PhotographerCount{Name: name, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})

	return result, nil
}

// Countries lists the registered data sources.
func (uc *StationUseCase) Countries() []domain.Country {
	return uc.stations.Countries()
}

// Refresh forces a coalesced reload of all countries.
func (uc *StationUseCase) Refresh(ctx context.Context) {
	uc.logger.Info("Manual station refresh triggered")
	uc.stations.Refresh(ctx)
}

func (uc *StationUseCase) getScope(ctx context.Context, country string) (map[domain.StationKey]domain.Station, error) {
	if country == "" {
		return uc.stations.GetAll(ctx)
	}
	return uc.stations.Get(ctx, country)
}

func sortStations(stations []domain.Station) {
	sort.Slice(stations, func(i, j int) bool {
		if stations[i].Key.Country != stations[j].Key.Country {
			return stations[i].Key.Country < stations[j].Key.Country
		}
		return stations[i].Key.ID < stations[j].Key.ID
	})
}
