package domain

import "math"

// EarthRadiusKm is the mean earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometers between two
// WGS84 coordinate pairs.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// BoundingBox returns a latitude/longitude window that fully contains the
// circle of radiusKm around the center point. Used as a cheap SQL pre-filter
// before the exact haversine check.
func BoundingBox(lat, lon, radiusKm float64) (minLat, maxLat, minLon, maxLon float64) {
	latDelta := radiusKm / 111.0 // ~111 km per degree of latitude
	minLat = lat - latDelta
	maxLat = lat + latDelta

	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		// Near the poles the longitude window degenerates; take everything.
		return minLat, maxLat, -180, 180
	}
	lonDelta := radiusKm / (111.0 * cosLat)
	minLon = lon - lonDelta
	maxLon = lon + lonDelta
	return minLat, maxLat, minLon, maxLon
}

// ValidCoordinates reports whether a latitude/longitude pair is in range.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
