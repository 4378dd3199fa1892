package domain

import (
	"fmt"
	"strings"
	"time"
)

// StationKey is the composite identity of a station. Station ids are only
// unique within one country, so the key always carries both parts.
type StationKey struct {
	Country string `json:"country"`
	ID      string `json:"id"`
}

func (k StationKey) String() string {
	return fmt.Sprintf("%s:%s", k.Country, k.ID)
}

// Coordinates in decimal degrees. The zero value means "missing".
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// IsValid reports whether the coordinates are inside the valid ranges and
// not the 0/0 missing marker.
func (c Coordinates) IsValid() bool {
	if c.Lat == 0 && c.Lon == 0 {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Station is one merged record from a country source. Instances are built
// fresh on every refresh cycle and never mutated afterwards.
type Station struct {
	Key         StationKey  `json:"key"`
	Title       string      `json:"title"`
	Coordinates Coordinates `json:"coordinates"`
	ShortCode   string      `json:"shortCode,omitempty"`
	Photo       *Photo      `json:"photo,omitempty"`
}

func (s Station) HasPhoto() bool {
	return s.Photo != nil
}

// MatchesName does a case-insensitive substring match on the title.
func (s Station) MatchesName(query string) bool {
	return strings.Contains(strings.ToLower(s.Title), strings.ToLower(query))
}

// Photo is the accepted photo attached to a station. StatsPhotographer
// is set when the upload was anonymized: statistics then attribute the
// photo to the anonymous identity, while the public attribution may or
// may not be replaced depending on the country source.
type Photo struct {
	Key               StationKey `json:"key"`
	URL               string     `json:"url"`
	Photographer      string     `json:"photographer"`
	PhotographerURL   string     `json:"photographerUrl,omitempty"`
	StatsPhotographer string     `json:"-"`
	License           string     `json:"license"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// StatsOwner is the attribution used for statistics.
func (p Photo) StatsOwner() string {
	if p.StatsPhotographer != "" {
		return p.StatsPhotographer
	}
	return p.Photographer
}

// Photographer identity, keyed by nickname.
type Photographer struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	License string `json:"license,omitempty"`
}

// Country describes one registered data source.
type Country struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}
