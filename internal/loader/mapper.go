package loader

// FieldMapper names the raw JSON fields of a country's station listing.
// The three sources ship the same data under different keys; everything
// else about the load algorithm is shared.
type FieldMapper struct {
	StationID string
	Title     string
	Lat       string
	Lon       string
	// ShortCode is empty for sources without a DS100-style code.
	ShortCode string
	// AnonymizePublic controls whether the anonymization flag also
	// replaces the public photographer name, not only the statistics
	// attribution.
	AnonymizePublic bool
}

var mappers = map[string]FieldMapper{
	"de": {
		StationID:       "HauptbfNr",
		Title:           "Bahnhof",
		Lat:             "lat",
		Lon:             "lon",
		ShortCode:       "DS100",
		AnonymizePublic: true,
	},
	"fr": {
		StationID: "id",
		Title:     "nom",
		Lat:       "latitude",
		Lon:       "longitude",
	},
	"uk": {
		StationID: "stationid",
		Title:     "name",
		Lat:       "lat",
		Lon:       "lon",
		ShortCode: "crs",
	},
}

// MapperFor resolves a configured mapper name.
func MapperFor(name string) (FieldMapper, bool) {
	m, ok := mappers[name]
	return m, ok
}
