package geoblur

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/maxmind/mmdbwriter/mmdbtype"
)

// cityRow renders a 19-column GeoNames cities row.
func cityRow(id uint32, name, country, admin1, admin2 string, lat, lng float64, pop int64) string {
	fields := []string{
		strconv.FormatUint(uint64(id), 10),
		name,
		name,
		name + "," + strings.ToLower(name),
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lng, 'f', -1, 64),
		"P",
		"PPL",
		country,
		"",
		admin1,
		admin2,
		"",
		"",
		strconv.FormatInt(pop, 10),
		"",
		"12",
		"Etc/UTC",
		"2024-01-01",
	}
	return strings.Join(fields, "\t")
}

// fataler is implemented by *testing.T and gocheck's *C.
type fataler interface {
	Fatalf(format string, args ...interface{})
}

func writeTestFile(t fataler, dir, name string, lines ...string) string {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// kmNorth returns the latitude d kilometres north of the equator along a
// meridian.
func kmNorth(d float64) float64 {
	return d / EarthRadiusKm * 180 / math.Pi
}

// testCorpus is a small corpus around Los Angeles, Reno, Paris and the
// South Atlantic, for a 5000 population threshold.
var testCorpusRows = []string{
	cityRow(100, "Tinyville", "US", "CA", "037", 34.0, -118.0, 800),
	cityRow(101, "Hamlet", "FR", "11", "", 48.9, 2.4, 300),
	cityRow(102, "Remote", "FR", "11", "", -40.0, 2.0, 10),
	cityRow(103, "Dusty", "US", "NV", "031", 39.51, -119.81, 100),
	cityRow(200, "Bigtown", "US", "CA", "037", 34.05, -118.05, 60000),
	cityRow(201, "Midtown", "US", "CA", "037", 34.02, -118.01, 7000),
	cityRow(202, "Texcity", "US", "TX", "201", 34.001, -118.001, 9000),
	cityRow(203, "Grandville", "FR", "11", "", 48.85, 2.35, 2000000),
	cityRow(204, "Evenville", "FR", "11", "", 48.9, 2.4001, 5000),
	cityRow(205, "Renoish", "US", "NV", "031", 39.5, -119.8, 6000),
}

var testAdminRows = []string{
	"US.CA\tCalifornia\tCalifornia\t5332921",
	"US.TX\tTexas\tTexas\t4736286",
	"FR.11\tÎle-de-France\tIle-de-France\t3012874",
}

func testCorpus(t fataler) ([]City, AdminCodes) {
	cities, err := ParseCities(strings.NewReader(strings.Join(testCorpusRows, "\n")), WithQuiet(true))
	if err != nil {
		t.Fatalf("ParseCities: %v", err)
	}
	codes, err := ParseAdminCodes(strings.NewReader(strings.Join(testAdminRows, "\n")))
	if err != nil {
		t.Fatalf("ParseAdminCodes: %v", err)
	}
	return cities, codes
}

func names(en string) mmdbtype.Map {
	return mmdbtype.Map{"en": mmdbtype.String(en)}
}

// geoRecord builds a GeoIP2 City shaped record.
func geoRecord(cityID uint32, country, subdivision string, lat, lng float64) mmdbtype.Map {
	m := mmdbtype.Map{
		"continent": mmdbtype.Map{
			"code":       mmdbtype.String("XX"),
			"geoname_id": mmdbtype.Uint32(6255148),
			"names":      names("Somewhere"),
		},
		"country": mmdbtype.Map{
			"iso_code":             mmdbtype.String(country),
			"geoname_id":           mmdbtype.Uint32(1000),
			"is_in_european_union": mmdbtype.Bool(country == "FR"),
			"names":                names(country),
		},
		"location": mmdbtype.Map{
			"accuracy_radius": mmdbtype.Uint16(20),
			"latitude":        mmdbtype.Float64(lat),
			"longitude":       mmdbtype.Float64(lng),
			"time_zone":       mmdbtype.String("Etc/UTC"),
		},
		"postal": mmdbtype.Map{
			"code": mmdbtype.String("90001"),
		},
		"city": mmdbtype.Map{
			"geoname_id": mmdbtype.Uint32(cityID),
			"names": mmdbtype.Map{
				"en": mmdbtype.String("Original"),
				"de": mmdbtype.String("Original"),
			},
		},
	}
	if subdivision != "" {
		m["subdivisions"] = mmdbtype.Slice{
			mmdbtype.Map{
				"iso_code":   mmdbtype.String(subdivision),
				"geoname_id": mmdbtype.Uint32(42),
				"names":      names("Subdivision " + subdivision),
			},
		}
	}
	return m
}

func decodeTestRecord(t fataler, m mmdbtype.Map) Record {
	r, err := DecodeRecord(m)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	return r
}
