package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/stationhub/internal/config"
	"github.com/stationhub/internal/domain"
	"github.com/stationhub/internal/domain/repository"
	"github.com/stationhub/internal/infrastructure/provider"
	"go.uber.org/zap"
)

// Registry holds one loader per configured country.
type Registry struct {
	loaders map[string]*Loader
}

func NewRegistry(
	cfg config.LoaderConfig,
	fetcher *provider.Client,
	monitor repository.Monitor,
	logger *zap.Logger,
) (*Registry, error) {
	loaders := make(map[string]*Loader, len(cfg.Countries))

	for _, src := range cfg.Countries {
		mapper, ok := MapperFor(src.Mapper)
		if !ok {
			return nil, fmt.Errorf("unknown field mapper %q for country %q", src.Mapper, src.Code)
		}
		loaders[src.Code] = New(
			domain.Country{Code: src.Code, Name: src.Name},
			src.StationsURL,
			src.PhotosURL,
			mapper,
			fetcher,
			monitor,
			cfg.AnonymousNickname,
			logger,
		)
	}

	return &Registry{loaders: loaders}, nil
}

// Get returns the loader for a country code.
func (r *Registry) Get(country string) (*Loader, bool) {
	l, ok := r.loaders[country]
	return l, ok
}

// Countries lists the registered countries, sorted by code.
func (r *Registry) Countries() []domain.Country {
	result := make([]domain.Country, 0, len(r.loaders))
	for _, l := range r.loaders {
		result = append(result, l.Country())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Code < result[j].Code
	})
	return result
}

// LoadPhotographers fetches the full photographer list from the single
// upstream source and keys it by nickname.
func LoadPhotographers(ctx context.Context, fetcher *provider.Client, url string) (map[string]domain.Photographer, error) {
	body, err := fetcher.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch photographers: %w", err)
	}

	var records []domain.Photographer
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("malformed photographer listing: %w", err)
	}

	result := make(map[string]domain.Photographer, len(records))
	for _, p := range records {
		if p.Name == "" {
			return nil, fmt.Errorf("mandatory field %q missing in photographer listing", "name")
		}
		result[p.Name] = p
	}

	return result, nil
}
