package geoblur

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	// Paris to London.
	d := Haversine(2.3522, 48.8566, -0.1278, 51.5074)
	if d < 343 || d > 344 {
		t.Errorf("Haversine(Paris, London) = %.2f km, want ~343.5", d)
	}

	points := [][2]float64{
		{0, 0},
		{-118.0, 34.0},
		{151.2093, -33.8688},
		{179.9, 0.5},
		{-179.9, -0.5},
	}
	for _, p := range points {
		if got := Haversine(p[0], p[1], p[0], p[1]); got != 0 {
			t.Errorf("Haversine(%v, %v) = %v, want 0", p, p, got)
		}
		for _, q := range points {
			a := Haversine(p[0], p[1], q[0], q[1])
			b := Haversine(q[0], q[1], p[0], p[1])
			if math.Abs(a-b) > 1e-9 {
				t.Errorf("Haversine not symmetric for %v, %v: %v != %v", p, q, a, b)
			}
		}
	}

	// Across the antimeridian the short way round.
	if d := Haversine(179.9, 0, -179.9, 0); d > 23 || d < 22 {
		t.Errorf("Haversine across the antimeridian = %.2f km, want ~22.2", d)
	}

	// One degree of latitude.
	want := EarthRadiusKm * math.Pi / 180
	if d := Haversine(0, 0, 0, 1); math.Abs(d-want) > 1e-6 {
		t.Errorf("Haversine(1 degree) = %v, want %v", d, want)
	}
}

// poolAt builds cities due north of 0,0 at the given distances.
func poolAt(pops []int64, dists []float64) []City {
	pool := make([]City, len(pops))
	for i := range pops {
		pool[i] = City{
			GeonameID:  uint32(i + 1),
			Latitude:   kmNorth(dists[i]),
			Longitude:  0,
			Population: pops[i],
		}
	}
	return pool
}

func TestSearch(t *testing.T) {
	const minPop = 5000

	tests := []struct {
		name   string
		pops   []int64
		dists  []float64
		wantID uint32 // 0 means no replacement
	}{
		{
			// The 9000 city at 3km is already inside the first 5km tier.
			name:   "first tier wins",
			pops:   []int64{1200, 6000, 9000},
			dists:  []float64{2, 40, 3},
			wantID: 3,
		},
		{
			name:   "smallest population within the first satisfying tier",
			pops:   []int64{1200, 6000, 9000},
			dists:  []float64{2, 39, 36},
			wantID: 2,
		},
		{
			name:   "smaller city beats a closer larger one in the same tier",
			pops:   []int64{9000, 6000},
			dists:  []float64{1, 4},
			wantID: 2,
		},
		{
			name:   "closer tier beats smaller population further out",
			pops:   []int64{9000, 6000},
			dists:  []float64{4, 6},
			wantID: 1,
		},
		{
			name:   "population equal to the threshold never qualifies",
			pops:   []int64{5000, 1200},
			dists:  []float64{1, 1},
			wantID: 0,
		},
		{
			name:   "radius is exclusive",
			pops:   []int64{6000, 7000},
			dists:  []float64{10.001, 9.999},
			wantID: 2,
		},
		{
			name:   "last tier",
			pops:   []int64{6000},
			dists:  []float64{499},
			wantID: 1,
		},
		{
			name:   "beyond 500km",
			pops:   []int64{6000},
			dists:  []float64{501},
			wantID: 0,
		},
		{
			name:   "ties go to pool order",
			pops:   []int64{7000, 6000, 6000},
			dists:  []float64{1, 2, 3},
			wantID: 2,
		},
		{
			name:   "empty pool",
			wantID: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := poolAt(tt.pops, tt.dists)
			got, ok := Search(pool, 0, 0, minPop)
			if tt.wantID == 0 {
				if ok {
					t.Errorf("Search = city %d, want no replacement", got.GeonameID)
				}
				return
			}
			if !ok {
				t.Fatalf("Search found nothing, want city %d", tt.wantID)
			}
			if got.GeonameID != tt.wantID {
				t.Errorf("Search = city %d, want %d", got.GeonameID, tt.wantID)
			}
		})
	}
}

func TestSearchInvalidCoordinates(t *testing.T) {
	pool := poolAt([]int64{6000}, []float64{1})
	for _, c := range [][2]float64{
		{math.NaN(), 0},
		{0, math.NaN()},
		{math.Inf(1), 0},
		{0, math.Inf(-1)},
	} {
		if got, ok := Search(pool, c[0], c[1], 5000); ok {
			t.Errorf("Search(%v, %v) = city %d, want no replacement", c[0], c[1], got.GeonameID)
		}
	}
}

// The selected city always has population above the threshold and the
// smallest population of all qualifying cities in the smallest tier.
func TestSearchMinimality(t *testing.T) {
	const minPop = 5000
	pops := []int64{100, 5001, 80000, 5000, 12000, 6000, 450, 9000, 7000, 6500}
	dists := []float64{0.5, 47, 12, 3, 13.5, 14.9, 1, 60, 11, 33}
	pool := poolAt(pops, dists)

	got, ok := Search(pool, 0, 0, minPop)
	if !ok {
		t.Fatal("Search found nothing")
	}
	if got.Population <= minPop {
		t.Fatalf("selected population %d not above %d", got.Population, minPop)
	}

	tier := math.Floor(dists[got.GeonameID-1]/searchStepKm) + 1
	radius := tier * searchStepKm
	for i, c := range pool {
		d := Haversine(0, 0, c.Longitude, c.Latitude)
		if c.Population <= minPop {
			continue
		}
		if d < radius-searchStepKm {
			t.Errorf("city %d at %.2fkm qualifies in an earlier tier than the selection", c.GeonameID, d)
		}
		if d < radius && c.Population < got.Population {
			t.Errorf("city %d (pop %d) in tier is smaller than the selection (pop %d)", i+1, c.Population, got.Population)
		}
	}
	// 80000@12, 12000@13.5, 6000@14.9 and 7000@11 share the 15km tier.
	if got.GeonameID != 6 {
		t.Errorf("Search = city %d, want 6", got.GeonameID)
	}
}

func TestSearchZeroCoordinates(t *testing.T) {
	pool := []City{{GeonameID: 1, Latitude: 0.01, Longitude: 0.01, Population: 6000}}
	if got, ok := Search(pool, 0, 0, 5000); !ok || got.GeonameID != 1 {
		t.Errorf("Search at 0,0 = %d, %v; want city 1", got.GeonameID, ok)
	}
}
