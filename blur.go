package geoblur

import (
	"iter"
	"time"
)

// Outcome is what blurring did to a record.
type Outcome int

const (
	// Unchanged records had no city or a city large enough to disclose.
	Unchanged Outcome = iota
	// Replaced records now point at a qualifying nearby city.
	Replaced
	// Suppressed records lost their location, city and subdivisions and
	// got no replacement.
	Suppressed
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Replaced:
		return "replaced"
	case Suppressed:
		return "suppressed"
	}
	return "unknown"
}

// Blur returns a sequence yielding src's entries in order with every
// record passed through BlurRecord. Like src it can be consumed once; an
// error from src is yielded and ends the sequence.
func (b *Blurrer) Blur(src iter.Seq2[Entry, error]) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		start := time.Now()
		n := 0
		for e, err := range src {
			if err != nil {
				yield(Entry{}, err)
				return
			}
			b.BlurRecord(&e.Record)
			n++
			if n%progressEvery == 0 {
				b.config.Logger.Debugf("%d prefixes blurred", n)
			}
			if !yield(e, nil) {
				return
			}
		}
		b.config.Logger.Infof("Blurred %d prefixes", n)
		b.config.Stats.ObservePhase("blur", time.Since(start))
	}
}

// BlurRecord blurs r in place.
//
// A record without a city geoname id, or whose city isn't suppressed, is
// left untouched. Otherwise its location, city and subdivisions are
// removed, and replaced by the nearest qualifying city found by Search
// in the record's subdivision or country pool when there is one.
func (b *Blurrer) BlurRecord(r *Record) Outcome {
	o := b.blurRecord(r)
	b.config.Stats.observe(o)
	return o
}

func (b *Blurrer) blurRecord(r *Record) Outcome {
	id, ok := r.CityGeonameID()
	if !ok || !b.suppressed.Contains(id) {
		return Unchanged
	}

	pool := b.groups.Pool(r.CountryCode(), r.SubdivisionCode(), b.config.SubdivisionCountries)
	coords, hasCoords := r.Coordinates()

	r.Location = nil
	r.City = nil
	r.Subdivisions = nil

	if !hasCoords || len(pool) == 0 {
		return Suppressed
	}
	c, ok := Search(pool, coords.Latitude, coords.Longitude, b.config.MinPopulation)
	if !ok {
		return Suppressed
	}
	b.replace(r, c)
	return Replaced
}

// replace points r at city c. The replacement carries one subdivision,
// the city's admin1 division; an unknown admin code leaves it with
// geoname id 0 and no names.
func (b *Blurrer) replace(r *Record, c City) {
	r.Location = &Location{
		Coordinates: &Coordinates{Latitude: c.Latitude, Longitude: c.Longitude},
	}
	r.City = &RecordCity{
		GeonameID: geonameID(c.GeonameID),
		Names:     map[string]string{"en": c.ASCIIName},
	}

	sub := Subdivision{
		ISOCode:   c.Admin1Code,
		GeonameID: geonameID(0),
		Names:     map[string]string{},
	}
	if ac, ok := b.adminCodes.Lookup(c.CountryCode, c.Admin1Code); ok {
		sub.GeonameID = geonameID(ac.GeonameID)
		sub.Names["en"] = ac.ASCIIName
	}
	r.Subdivisions = []Subdivision{sub}
}
