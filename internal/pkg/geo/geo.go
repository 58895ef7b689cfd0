package geo

import "math"

const (
	// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
	EarthRadiusMeters = 6371000

	DefaultRadiusMeters = 100
)

// Distance returns the great-circle distance between two coordinates in meters.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

func toRadians(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}

// ValidCoordinate reports whether lat/lon are inside the WGS84 ranges.
func ValidCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Fence is a circular geofence around a registered site.
type Fence struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
}

func (f Fence) Radius() float64 {
	if f.RadiusMeters <= 0 {
		return DefaultRadiusMeters
	}
	return f.RadiusMeters
}

// Check returns the distance from the fence center and whether it is within the radius.
func (f Fence) Check(lat, lon float64) (float64, bool) {
	d := Distance(lat, lon, f.Latitude, f.Longitude)
	return d, d <= f.Radius()
}
