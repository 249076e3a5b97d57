package geoblur

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// AdminCode is a first-level administrative division (state, province,
// canton) from the GeoNames admin1 codes dump.
type AdminCode struct {
	Code      string // "CC.ADMIN1", e.g. "US.TX", "CH.ZH"
	Name      string
	ASCIIName string
	GeonameID uint32
}

// AdminCodes maps "CC.ADMIN1" codes to their division.
type AdminCodes map[string]AdminCode

// Lookup returns the division for a country and admin1 code. A miss is
// not an error; callers fall back to an empty label.
func (a AdminCodes) Lookup(country, admin1 string) (AdminCode, bool) {
	ac, ok := a[country+"."+admin1]
	return ac, ok
}

// LoadAdminCodes reads admin1CodesASCII.txt from path, optionally zipped
// or bzip2 compressed.
// Format: CC.CODE<tab>Name<tab>AsciiName<tab>GeonameId
func LoadAdminCodes(path string, opts ...Option) (AdminCodes, error) {
	cfg := newConfig(opts)
	fi, closeInput, err := openInput(path)
	if err != nil {
		return nil, fmt.Errorf("opening admin codes file: %w", err)
	}
	defer closeInput()

	cfg.Logger.Infof("Reading admincodes data from %s", path)
	codes, err := parseAdminCodes(fi, path)
	if err != nil {
		return nil, err
	}
	cfg.Logger.Infof("Read %d admin codes from %s", len(codes), path)
	return codes, nil
}

// ParseAdminCodes parses admin1 code rows from r. Later rows for the same
// code replace earlier ones.
func ParseAdminCodes(r io.Reader) (AdminCodes, error) {
	return parseAdminCodes(r, "")
}

func parseAdminCodes(r io.Reader, name string) (AdminCodes, error) {
	codes := make(AdminCodes)
	scanner := bufio.NewScanner(r)

	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}

		fields := strings.Split(text, "\t")
		if len(fields) != 4 {
			return nil, &ParseError{File: name, Line: line, Err: fmt.Errorf("expected 4 fields, got %d", len(fields))}
		}
		id, err := strconv.ParseUint(fields[3], 10, 32)
		if err != nil {
			return nil, &ParseError{File: name, Line: line, Err: fmt.Errorf("geonameid: %w", err)}
		}

		codes[fields[0]] = AdminCode{
			Code:      fields[0],
			Name:      fields[1],
			ASCIIName: fields[2],
			GeonameID: uint32(id),
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading admin codes: %w", err)
	}
	return codes, nil
}
