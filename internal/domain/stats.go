package domain

import "time"

// Statistics is the aggregate view over one country (or all countries).
type Statistics struct {
	Country       string    `json:"country,omitempty"`
	Total         int       `json:"total"`
	WithPhoto     int       `json:"withPhoto"`
	WithoutPhoto  int       `json:"withoutPhoto"`
	Photographers int       `json:"photographers"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// PhotographerCount is one row of the per-photographer usage ranking.
type PhotographerCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
