package geoblur

import (
	"math"
	"sort"

	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// Radius tiers of the replacement search: 5km, 10km, ... 500km.
const (
	searchStepKm   = 5
	searchMaxSteps = 100
)

// Haversine returns the great-circle distance in kilometres between two
// points given in decimal degrees.
func Haversine(lon1, lat1, lon2, lat2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	// s2 computes the haversine central angle on the unit sphere.
	return a.Distance(b).Radians() * EarthRadiusKm
}

// Search finds the replacement for a location at (lat, lng) among pool.
//
// The radius grows in 5km steps up to 500km. The first step that contains
// any city with population above minPopulation ends the search, and the
// least populous of those cities is chosen (ties go to the earlier pool
// entry), not the closest.
func Search(pool []City, lat, lng float64, minPopulation int64) (City, bool) {
	if len(pool) == 0 || !validCoordinate(lat, lng) {
		return City{}, false
	}

	// Distances don't depend on the radius; compute them once.
	dists := make([]float64, len(pool))
	for i, c := range pool {
		dists[i] = Haversine(lng, lat, c.Longitude, c.Latitude)
	}

	var valid []int
	for step := 1; step <= searchMaxSteps; step++ {
		maxDist := float64(step * searchStepKm)
		valid = valid[:0]
		for i, c := range pool {
			if dists[i] < maxDist && c.Population > minPopulation {
				valid = append(valid, i)
			}
		}
		if len(valid) == 0 {
			continue
		}
		sort.SliceStable(valid, func(i, j int) bool {
			return pool[valid[i]].Population < pool[valid[j]].Population
		})
		return pool[valid[0]], true
	}
	return City{}, false
}

func validCoordinate(lat, lng float64) bool {
	return !math.IsNaN(lat) && !math.IsNaN(lng) &&
		!math.IsInf(lat, 0) && !math.IsInf(lng, 0)
}
