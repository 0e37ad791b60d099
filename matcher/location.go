package matcher

import (
	"math"

	"dnamatcher/types"
)

const earthRadiusKM = 6371.0

// HaversineKM returns the great-circle distance between two coordinates
// in kilometers.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// LocationBoost computes the additive proximity bonus between two cases.
// The bonus decays exponentially with distance relative to the search
// radius and is zero when either case has no coordinates.
func LocationBoost(a, b *types.Case, maxBoost, defaultRadiusKM float64) (boost, distanceKM float64, ok bool) {
	if a == nil || b == nil || !a.HasLocation() || !b.HasLocation() {
		return 0, 0, false
	}
	radius := a.SearchRadiusKM
	if radius <= 0 {
		radius = defaultRadiusKM
	}
	d := HaversineKM(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	boost = maxBoost * math.Exp(-d/(radius*0.5))
	return boost, d, true
}
