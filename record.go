package geoblur

import (
	"fmt"
	"net"

	"github.com/maxmind/mmdbwriter/mmdbtype"
)

// Field names of the GeoIP2 City record layout touched by blurring.
const (
	fieldLocation     = "location"
	fieldCity         = "city"
	fieldSubdivisions = "subdivisions"
	fieldCountry      = "country"

	keyLatitude  = "latitude"
	keyLongitude = "longitude"
	keyGeonameID = "geoname_id"
	keyNames     = "names"
	keyISOCode   = "iso_code"
)

// Entry is one network of a geolocation store with its decoded record.
type Entry struct {
	Network *net.IPNet
	Record  Record
}

// Record is the data attached to a network. The location, city and
// subdivisions are decoded; every other top-level field stays in Fields
// and passes through blurring untouched.
type Record struct {
	Location *Location
	City     *RecordCity
	// Subdivisions is nil when the record has no subdivisions field and
	// non-nil (possibly empty) when it does.
	Subdivisions []Subdivision
	Fields       mmdbtype.Map
}

// Coordinates is a point in decimal degrees.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Location is the "location" field. Coordinates is nil unless both
// latitude and longitude are present; a point at 0,0 is a real location.
type Location struct {
	Coordinates *Coordinates
	Extra       mmdbtype.Map // accuracy_radius, time_zone, ...
}

// RecordCity is the "city" field. GeonameID is nil when absent; a stored
// id of 0 is kept as is.
type RecordCity struct {
	GeonameID *uint32
	Names     map[string]string
	Extra     mmdbtype.Map
}

// Subdivision is one entry of the "subdivisions" field, most general
// first. GeonameID is nil when absent.
type Subdivision struct {
	ISOCode   string
	GeonameID *uint32
	Names     map[string]string
	Extra     mmdbtype.Map
}

// CountryCode returns country.iso_code, or "" when the record has none.
func (r Record) CountryCode() string {
	country, ok := r.Fields[fieldCountry].(mmdbtype.Map)
	if !ok {
		return ""
	}
	code, _ := country[keyISOCode].(mmdbtype.String)
	return string(code)
}

// SubdivisionCode returns the ISO code of the first subdivision, or "".
func (r Record) SubdivisionCode() string {
	if len(r.Subdivisions) == 0 {
		return ""
	}
	return r.Subdivisions[0].ISOCode
}

// CityGeonameID returns the city's geoname id and whether it has one. An
// id of 0 names no city.
func (r Record) CityGeonameID() (uint32, bool) {
	if r.City == nil || r.City.GeonameID == nil || *r.City.GeonameID == 0 {
		return 0, false
	}
	return *r.City.GeonameID, true
}

// geonameID returns a pointer to id, for building records.
func geonameID(id uint32) *uint32 {
	return &id
}

// Coordinates returns the record's point, if it has one.
func (r Record) Coordinates() (Coordinates, bool) {
	if r.Location == nil || r.Location.Coordinates == nil {
		return Coordinates{}, false
	}
	return *r.Location.Coordinates, true
}

// DecodeRecord converts a store value into a Record. The value must be a
// map; the location, city and subdivisions fields must have the GeoIP2
// types (double coordinates, uint32 geoname ids, string names).
func DecodeRecord(v mmdbtype.DataType) (Record, error) {
	m, ok := v.(mmdbtype.Map)
	if !ok {
		return Record{}, fmt.Errorf("record is %T, want map", v)
	}

	var (
		r   Record
		err error
	)
	r.Fields = make(mmdbtype.Map, len(m))
	for k, val := range m {
		switch k {
		case fieldLocation:
			r.Location, err = decodeLocation(val)
		case fieldCity:
			r.City, err = decodeCity(val)
		case fieldSubdivisions:
			r.Subdivisions, err = decodeSubdivisions(val)
		default:
			r.Fields[k] = val
		}
		if err != nil {
			return Record{}, fmt.Errorf("%s: %w", k, err)
		}
	}
	return r, nil
}

// Encode converts the record back into a store value.
func (r Record) Encode() mmdbtype.Map {
	m := make(mmdbtype.Map, len(r.Fields)+3)
	for k, v := range r.Fields {
		m[k] = v
	}
	if r.Location != nil {
		m[fieldLocation] = r.Location.encode()
	}
	if r.City != nil {
		m[fieldCity] = r.City.encode()
	}
	if r.Subdivisions != nil {
		subs := make(mmdbtype.Slice, 0, len(r.Subdivisions))
		for _, s := range r.Subdivisions {
			subs = append(subs, s.encode())
		}
		m[fieldSubdivisions] = subs
	}
	return m
}

func decodeLocation(v mmdbtype.DataType) (*Location, error) {
	m, ok := v.(mmdbtype.Map)
	if !ok {
		return nil, fmt.Errorf("got %T, want map", v)
	}
	loc := &Location{Extra: copyExcept(m, keyLatitude, keyLongitude)}

	latV, hasLat := m[keyLatitude]
	lngV, hasLng := m[keyLongitude]
	if !hasLat || !hasLng {
		// A lone coordinate isn't a point; keep it opaque.
		if hasLat {
			loc.Extra[keyLatitude] = latV
		}
		if hasLng {
			loc.Extra[keyLongitude] = lngV
		}
		return loc, nil
	}

	lat, ok := latV.(mmdbtype.Float64)
	if !ok {
		return nil, fmt.Errorf("latitude is %T, want double", latV)
	}
	lng, ok := lngV.(mmdbtype.Float64)
	if !ok {
		return nil, fmt.Errorf("longitude is %T, want double", lngV)
	}
	loc.Coordinates = &Coordinates{Latitude: float64(lat), Longitude: float64(lng)}
	return loc, nil
}

func (l *Location) encode() mmdbtype.Map {
	m := make(mmdbtype.Map, len(l.Extra)+2)
	for k, v := range l.Extra {
		m[k] = v
	}
	if l.Coordinates != nil {
		m[keyLatitude] = mmdbtype.Float64(l.Coordinates.Latitude)
		m[keyLongitude] = mmdbtype.Float64(l.Coordinates.Longitude)
	}
	return m
}

func decodeCity(v mmdbtype.DataType) (*RecordCity, error) {
	m, ok := v.(mmdbtype.Map)
	if !ok {
		return nil, fmt.Errorf("got %T, want map", v)
	}
	id, err := decodeGeonameID(m)
	if err != nil {
		return nil, err
	}
	names, err := decodeNames(m)
	if err != nil {
		return nil, err
	}
	return &RecordCity{
		GeonameID: id,
		Names:     names,
		Extra:     copyExcept(m, keyGeonameID, keyNames),
	}, nil
}

func (c *RecordCity) encode() mmdbtype.Map {
	m := make(mmdbtype.Map, len(c.Extra)+2)
	for k, v := range c.Extra {
		m[k] = v
	}
	if c.GeonameID != nil {
		m[keyGeonameID] = mmdbtype.Uint32(*c.GeonameID)
	}
	if c.Names != nil {
		m[keyNames] = encodeNames(c.Names)
	}
	return m
}

func decodeSubdivisions(v mmdbtype.DataType) ([]Subdivision, error) {
	s, ok := v.(mmdbtype.Slice)
	if !ok {
		return nil, fmt.Errorf("got %T, want array", v)
	}
	subs := make([]Subdivision, 0, len(s))
	for i, item := range s {
		m, ok := item.(mmdbtype.Map)
		if !ok {
			return nil, fmt.Errorf("[%d]: got %T, want map", i, item)
		}
		id, err := decodeGeonameID(m)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		names, err := decodeNames(m)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		sub := Subdivision{
			GeonameID: id,
			Names:     names,
			Extra:     copyExcept(m, keyGeonameID, keyNames, keyISOCode),
		}
		if code, ok := m[keyISOCode]; ok {
			str, ok := code.(mmdbtype.String)
			if !ok {
				return nil, fmt.Errorf("[%d]: iso_code is %T, want string", i, code)
			}
			sub.ISOCode = string(str)
			if str == "" {
				// Encode drops an empty ISOCode; keep the stored key.
				sub.Extra[keyISOCode] = str
			}
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (s Subdivision) encode() mmdbtype.Map {
	m := make(mmdbtype.Map, len(s.Extra)+3)
	for k, v := range s.Extra {
		m[k] = v
	}
	if s.ISOCode != "" {
		m[keyISOCode] = mmdbtype.String(s.ISOCode)
	}
	if s.GeonameID != nil {
		m[keyGeonameID] = mmdbtype.Uint32(*s.GeonameID)
	}
	if s.Names != nil {
		m[keyNames] = encodeNames(s.Names)
	}
	return m
}

func decodeGeonameID(m mmdbtype.Map) (*uint32, error) {
	v, ok := m[keyGeonameID]
	if !ok {
		return nil, nil
	}
	id, ok := v.(mmdbtype.Uint32)
	if !ok {
		return nil, fmt.Errorf("geoname_id is %T, want uint32", v)
	}
	return geonameID(uint32(id)), nil
}

func decodeNames(m mmdbtype.Map) (map[string]string, error) {
	v, ok := m[keyNames]
	if !ok {
		return nil, nil
	}
	nm, ok := v.(mmdbtype.Map)
	if !ok {
		return nil, fmt.Errorf("names is %T, want map", v)
	}
	names := make(map[string]string, len(nm))
	for lang, name := range nm {
		s, ok := name.(mmdbtype.String)
		if !ok {
			return nil, fmt.Errorf("names.%s is %T, want string", lang, name)
		}
		names[string(lang)] = string(s)
	}
	return names, nil
}

func encodeNames(names map[string]string) mmdbtype.Map {
	m := make(mmdbtype.Map, len(names))
	for lang, name := range names {
		m[mmdbtype.String(lang)] = mmdbtype.String(name)
	}
	return m
}

// copyExcept returns the entries of m other than keys. The result is
// never nil.
func copyExcept(m mmdbtype.Map, keys ...mmdbtype.String) mmdbtype.Map {
	out := make(mmdbtype.Map, len(m))
outer:
	for k, v := range m {
		for _, skip := range keys {
			if k == skip {
				continue outer
			}
		}
		out[k] = v
	}
	return out
}
