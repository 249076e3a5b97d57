package geoblur

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// geonamesCityFields is the column count of the GeoNames cities dump:
// geonameid, name, asciiname, alternatenames, latitude, longitude,
// feature class, feature code, country code, cc2, admin1 code,
// admin2 code, admin3 code, admin4 code, population, elevation, dem,
// timezone, modification date.
const geonamesCityFields = 19

// Column indexes into a GeoNames cities row.
const (
	colGeonameID  = 0
	colName       = 1
	colASCIIName  = 2
	colLatitude   = 4
	colLongitude  = 5
	colCountry    = 8
	colAdmin1     = 10
	colAdmin2     = 11
	colPopulation = 14
)

// maxLineSize bounds a single corpus line. Rows with long alternate name
// lists exceed bufio.Scanner's 64KB default.
const maxLineSize = 1 << 20

// City is a populated place from the GeoNames corpus. Cities are created
// once at load time and never mutated.
type City struct {
	GeonameID   uint32
	Name        string
	ASCIIName   string
	CountryCode string
	Admin1Code  string
	Admin2Code  string
	Latitude    float64
	Longitude   float64
	Population  int64
}

// Key returns the spatial grouping key for the city: the country code, or
// "CC.ADMIN1" when the country is in subdivisionCountries.
func (c City) Key(subdivisionCountries []string) string {
	return spatialKey(c.CountryCode, c.Admin1Code, subdivisionCountries)
}

// spatialKey never returns "CC."; such a group could not be looked up.
func spatialKey(country, admin1 string, subdivisionCountries []string) string {
	if admin1 != "" && containsCode(subdivisionCountries, country) {
		return country + "." + admin1
	}
	return country
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

// ParseError reports a malformed row in one of the tab separated input
// files.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// codeTable interns short repeated codes so parsed cities don't keep the
// whole scanned line alive through substrings.
type codeTable map[string]string

func (t codeTable) intern(s string) string {
	if v, ok := t[s]; ok {
		return v
	}
	v := strings.Clone(s)
	t[v] = v
	return v
}

// LoadCities reads a GeoNames cities dump from path. The dump may be
// zipped, as GeoNames distributes it, or bzip2 compressed.
func LoadCities(path string, opts ...Option) ([]City, error) {
	cfg := newConfig(opts)
	fi, closeInput, err := openInput(path)
	if err != nil {
		return nil, fmt.Errorf("opening cities file: %w", err)
	}
	defer closeInput()

	cfg.Logger.Infof("Reading cities data from %s", path)
	cities, err := parseCities(fi, path, cfg)
	if err != nil {
		return nil, err
	}
	cfg.Logger.Infof("Read %d cities from %s", len(cities), path)
	return cities, nil
}

// ParseCities parses GeoNames city rows from r. Any malformed row is
// returned as a *ParseError; nothing is skipped except blank lines.
func ParseCities(r io.Reader, opts ...Option) ([]City, error) {
	return parseCities(r, "", newConfig(opts))
}

func parseCities(r io.Reader, name string, cfg *Config) ([]City, error) {
	codes := make(codeTable)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var cities []City
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}
		c, err := parseCityRow(text, codes)
		if err != nil {
			return nil, &ParseError{File: name, Line: line, Err: err}
		}
		cities = append(cities, c)
		if line%progressEvery == 0 {
			cfg.Logger.Debugf("%d lines read", line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading cities: %w", err)
	}
	return cities, nil
}

func parseCityRow(text string, codes codeTable) (City, error) {
	fields := strings.Split(text, "\t")
	if len(fields) != geonamesCityFields {
		return City{}, fmt.Errorf("expected %d fields, got %d", geonamesCityFields, len(fields))
	}

	id, err := strconv.ParseUint(fields[colGeonameID], 10, 32)
	if err != nil {
		return City{}, fmt.Errorf("geonameid: %w", err)
	}
	lat, err := strconv.ParseFloat(fields[colLatitude], 64)
	if err != nil {
		return City{}, fmt.Errorf("latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(fields[colLongitude], 64)
	if err != nil {
		return City{}, fmt.Errorf("longitude: %w", err)
	}
	pop, err := strconv.ParseInt(fields[colPopulation], 10, 64)
	if err != nil {
		return City{}, fmt.Errorf("population: %w", err)
	}
	if pop < 0 {
		return City{}, fmt.Errorf("population: negative value %d", pop)
	}

	return City{
		GeonameID:   uint32(id),
		Name:        strings.Clone(fields[colName]),
		ASCIIName:   strings.Clone(fields[colASCIIName]),
		CountryCode: codes.intern(fields[colCountry]),
		Admin1Code:  codes.intern(fields[colAdmin1]),
		Admin2Code:  codes.intern(fields[colAdmin2]),
		Latitude:    lat,
		Longitude:   lng,
		Population:  pop,
	}, nil
}

// Groups maps a spatial key (country code, or "CC.ADMIN1" for countries
// grouped by subdivision) to the cities eligible as blurring replacements.
// Every member has at least the minimum population it was grouped with.
type Groups map[string][]City

// GroupCities drops cities with population below minPopulation and groups
// the rest by spatial key, keeping input order within each group.
func GroupCities(cities []City, minPopulation int64, subdivisionCountries []string) Groups {
	groups := make(Groups)
	for _, c := range cities {
		if c.Population < minPopulation {
			continue
		}
		key := c.Key(subdivisionCountries)
		groups[key] = append(groups[key], c)
	}
	return groups
}

// Len returns the number of grouped cities.
func (g Groups) Len() int {
	n := 0
	for _, cities := range g {
		n += len(cities)
	}
	return n
}

// Pool returns the candidate cities for a record in country with the given
// first-level subdivision code. The subdivision pool is tried first for
// countries in subdivisionCountries, then the country pool. The result is
// empty when neither exists.
func (g Groups) Pool(country, subdivision string, subdivisionCountries []string) []City {
	if country == "" {
		return nil
	}
	if subdivision != "" && containsCode(subdivisionCountries, country) {
		if pool := g[country+"."+subdivision]; len(pool) > 0 {
			return pool
		}
	}
	return g[country]
}
