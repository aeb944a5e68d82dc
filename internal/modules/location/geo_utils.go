// README: Pure geographic helpers (haversine distance, ordering).
package location

import (
	"math"

	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

const (
	earthRadiusKm = 6371.0
	// cityKmPerHour is the average urban driving speed used for arrival estimates.
	cityKmPerHour = 30.0
)

// EstimateDistanceKm returns the great-circle distance between two points.
// It is symmetric and returns 0 for identical points.
func EstimateDistanceKm(a, b types.Point) float64 {
	return haversineKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

// haversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// etaMinutes converts a distance to whole minutes at city speed.
func etaMinutes(distanceKm float64) int {
	return int(math.Round(distanceKm / cityKmPerHour * 60))
}

// candidateScore weighs proximity at 60% and rating (out of 5) at 40%.
func candidateScore(distanceKm, rating float64) float64 {
	proximity := 1 / (1 + math.Max(distanceKm, 0))
	r := math.Min(math.Max(rating, 0), 5)
	return 0.6*proximity + 0.4*r/5
}

// sortByKey performs a stable insertion sort (fine for small N) on any slice
// where each element exposes an ascending sort key via the accessor function.
func sortByKey[T any](items []T, key func(T) float64) {
	for i := 1; i < len(items); i++ {
		k := items[i]
		j := i - 1
		for j >= 0 && key(items[j]) > key(k) {
			items[j+1] = items[j]
			j--
		}
		items[j+1] = k
	}
}
