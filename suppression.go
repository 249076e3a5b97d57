package geoblur

// SuppressionSet holds the geoname ids of cities too small to disclose.
// A record pointing at one of them is blurred.
type SuppressionSet map[uint32]struct{}

// NewSuppressionSet collects every city in the full, unfiltered corpus
// whose population is below minPopulation.
func NewSuppressionSet(cities []City, minPopulation int64) SuppressionSet {
	set := make(SuppressionSet)
	for _, c := range cities {
		if c.Population < minPopulation {
			set[c.GeonameID] = struct{}{}
		}
	}
	return set
}

// Contains reports whether id belongs to a suppressed city.
func (s SuppressionSet) Contains(id uint32) bool {
	_, ok := s[id]
	return ok
}
