package utils

import "math"

const earthRadiusKm = 6371.0

// HaversineDistance returns the great-circle distance between two points in km.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// ApproxDistanceKm is the planar approximation used by the nearby-upload
// check: sqrt((71.5*dLon)^2 + (111.3*dLat)^2). Only reasonable at moderate
// latitudes; the 500 m duplicate-suppression threshold is calibrated against
// it. Keep in sync with the SQL in the inbox repository.
func ApproxDistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dx := 71.5 * (lon1 - lon2)
	dy := 111.3 * (lat1 - lat2)
	return math.Sqrt(dx*dx + dy*dy)
}

// ValidateCoordinates reports whether lat/lon are inside the valid ranges.
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
