package dto

// StationListRequest filters the merged station listing. Country is empty
// for all countries. MaxDistance (km) requires Lat and Lon.
type StationListRequest struct {
	Country      string   `json:"country" query:"country"`
	HasPhoto     *bool    `json:"hasPhoto" query:"hasPhoto"`
	Photographer string   `json:"photographer" query:"photographer"`
	MaxDistance  float64  `json:"maxDistance" query:"maxDistance" validate:"gte=0"`
	Lat          *float64 `json:"lat" query:"lat"`
	Lon          *float64 `json:"lon" query:"lon"`
}

// StationSearchRequest is a name substring search.
type StationSearchRequest struct {
	Name string `json:"name" query:"name" validate:"required,min=2"`
}
