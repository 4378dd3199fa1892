package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stationhub/internal/domain"
	"github.com/stationhub/internal/domain/repository"
	"github.com/stationhub/internal/infrastructure/provider"
	"go.uber.org/zap"
)

// Raw photo listings share one schema across all countries.
const (
	photoFieldStationID    = "bahnhofsnr"
	photoFieldPath         = "bahnhofsfoto"
	photoFieldPhotographer = "fotograf-title"
	photoFieldCreatedAt    = "erfasst"
	photoFieldLicense      = "lizenz"
	photoFieldFlag         = "flag"

	anonymizedFlag = "1"
)

// LoadError wraps any failure of a whole-country load. A load either
// produces the complete dataset or fails; partial data never reaches the
// cache.
type LoadError struct {
	Country string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load country %s: %v", e.Country, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Loader fetches and merges the station and photo listings of one country.
type Loader struct {
	country     domain.Country
	stationsURL string
	photosURL   string
	mapper      FieldMapper
	fetcher     *provider.Client
	monitor     repository.Monitor
	anonymous   string
	logger      *zap.Logger
}

func New(
	country domain.Country,
	stationsURL, photosURL string,
	mapper FieldMapper,
	fetcher *provider.Client,
	monitor repository.Monitor,
	anonymousNickname string,
	logger *zap.Logger,
) *Loader {
	return &Loader{
		country:     country,
		stationsURL: stationsURL,
		photosURL:   photosURL,
		mapper:      mapper,
		fetcher:     fetcher,
		monitor:     monitor,
		anonymous:   anonymousNickname,
		logger:      logger,
	}
}

func (l *Loader) Country() domain.Country {
	return l.country
}

// LoadStations fetches the photo listing first, then the station listing,
// and merges them by station key. Station identity is authoritative: a
// photo without a matching station record is dropped with the station.
func (l *Loader) LoadStations(
	ctx context.Context,
	photographers map[string]domain.Photographer,
	photoBaseURL string,
) (map[domain.StationKey]domain.Station, error) {
	photos, err := l.loadPhotos(ctx, photographers, photoBaseURL)
	if err != nil {
		return nil, &LoadError{Country: l.country.Code, Err: err}
	}

	stations, err := l.loadStationRecords(ctx, photos)
	if err != nil {
		return nil, &LoadError{Country: l.country.Code, Err: err}
	}

	l.logger.Info("Country loaded",
		zap.String("country", l.country.Code),
		zap.Int("stations", len(stations)),
		zap.Int("photos", len(photos)))

	return stations, nil
}

func (l *Loader) loadPhotos(
	ctx context.Context,
	photographers map[string]domain.Photographer,
	photoBaseURL string,
) (map[domain.StationKey]domain.Photo, error) {
	photos := make(map[domain.StationKey]domain.Photo)

	for page := 0; ; page++ {
		records, err := l.fetchPage(ctx, l.photosURL, page)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			break
		}

		for _, rec := range records {
			photo, err := l.parsePhoto(rec, photographers, photoBaseURL)
			if err != nil {
				return nil, err
			}
			if _, exists := photos[photo.Key]; exists {
				l.monitor.Notify(fmt.Sprintf("duplicate photo for station %s", photo.Key))
			}
			// last parsed wins
			photos[photo.Key] = photo
		}
	}

	return photos, nil
}

func (l *Loader) parsePhoto(
	rec map[string]interface{},
	photographers map[string]domain.Photographer,
	photoBaseURL string,
) (domain.Photo, error) {
	stationID, err := mandatoryString(rec, photoFieldStationID)
	if err != nil {
		return domain.Photo{}, err
	}
	path, err := mandatoryString(rec, photoFieldPath)
	if err != nil {
		return domain.Photo{}, err
	}
	nickname, err := mandatoryString(rec, photoFieldPhotographer)
	if err != nil {
		return domain.Photo{}, err
	}
	license, err := mandatoryString(rec, photoFieldLicense)
	if err != nil {
		return domain.Photo{}, err
	}
	createdAt, err := parseCreatedAt(rec[photoFieldCreatedAt])
	if err != nil {
		return domain.Photo{}, err
	}

	photo := domain.Photo{
		Key:          domain.StationKey{Country: l.country.Code, ID: stationID},
		URL:          photoBaseURL + path,
		Photographer: nickname,
		License:      strings.TrimSpace(license),
		CreatedAt:    createdAt,
	}

	if flag, _ := rec[photoFieldFlag].(string); flag == anonymizedFlag {
		photo.StatsPhotographer = l.anonymous
		if l.mapper.AnonymizePublic {
			photo.Photographer = l.anonymous
		}
	}

	if p, ok := photographers[photo.Photographer]; ok {
		photo.PhotographerURL = p.URL
	}

	return photo, nil
}

func (l *Loader) loadStationRecords(
	ctx context.Context,
	photos map[domain.StationKey]domain.Photo,
) (map[domain.StationKey]domain.Station, error) {
	stations := make(map[domain.StationKey]domain.Station)

	for page := 0; ; page++ {
		records, err := l.fetchPage(ctx, l.stationsURL, page)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			break
		}

		for _, rec := range records {
			station, err := l.parseStation(rec)
			if err != nil {
				return nil, err
			}
			if photo, ok := photos[station.Key]; ok {
				p := photo
				station.Photo = &p
			}
			// duplicate station ids within a listing: last record wins
			stations[station.Key] = station
		}
	}

	return stations, nil
}

func (l *Loader) parseStation(rec map[string]interface{}) (domain.Station, error) {
	id, err := mandatoryString(rec, l.mapper.StationID)
	if err != nil {
		return domain.Station{}, err
	}
	title, err := mandatoryString(rec, l.mapper.Title)
	if err != nil {
		return domain.Station{}, err
	}
	lat, err := mandatoryFloat(rec, l.mapper.Lat)
	if err != nil {
		return domain.Station{}, err
	}
	lon, err := mandatoryFloat(rec, l.mapper.Lon)
	if err != nil {
		return domain.Station{}, err
	}

	station := domain.Station{
		Key:         domain.StationKey{Country: l.country.Code, ID: id},
		Title:       title,
		Coordinates: domain.Coordinates{Lat: lat, Lon: lon},
	}

	if l.mapper.ShortCode != "" {
		if code, ok := rec[l.mapper.ShortCode].(string); ok {
			station.ShortCode = code
		}
	}

	return station, nil
}

func (l *Loader) fetchPage(ctx context.Context, url string, page int) ([]map[string]interface{}, error) {
	body, err := l.fetcher.GetPage(ctx, url, page)
	if err != nil {
		return nil, err
	}

	var records []map[string]interface{}
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("malformed listing at %s page %d: %w", url, page, err)
	}

	return records, nil
}

// parseCreatedAt accepts epoch millis (JSON number or all-digit string),
// an RFC 3339 datetime or a plain date.
func parseCreatedAt(v interface{}) (time.Time, error) {
	switch value := v.(type) {
	case float64:
		return time.UnixMilli(int64(value)), nil
	case string:
		if value == "" {
			return time.Time{}, fmt.Errorf("mandatory field %q missing", photoFieldCreatedAt)
		}
		if isDigits(value) {
			millis, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, err)
			}
			return time.UnixMilli(millis), nil
		}
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return t, nil
		}
		t, err := time.Parse("2006-01-02", value)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, err)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("mandatory field %q missing", photoFieldCreatedAt)
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func mandatoryString(rec map[string]interface{}, field string) (string, error) {
	v, ok := rec[field]
	if !ok || v == nil {
		return "", fmt.Errorf("mandatory field %q missing", field)
	}
	switch value := v.(type) {
	case string:
		if value == "" {
			return "", fmt.Errorf("mandatory field %q missing", field)
		}
		return value, nil
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("mandatory field %q has unexpected type %T", field, v)
	}
}

func mandatoryFloat(rec map[string]interface{}, field string) (float64, error) {
	v, ok := rec[field]
	if !ok || v == nil {
		return 0, fmt.Errorf("mandatory field %q missing", field)
	}
	switch value := v.(type) {
	case float64:
		return value, nil
	case string:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("mandatory field %q is not numeric: %w", field, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("mandatory field %q has unexpected type %T", field, v)
	}
}
