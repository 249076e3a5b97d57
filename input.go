package geoblur

import (
	"archive/zip"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// openInput opens a GeoNames dump for reading. A .zip archive is read
// from its data entry (cities500.zip holds cities500.txt), a .bz2 file is
// decompressed, anything else is read as is. The returned func closes
// everything that was opened.
func openInput(file string) (io.Reader, func() error, error) {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".zip":
		return openZipEntry(file)
	case ".bz2":
		fh, err := os.Open(file)
		if err != nil {
			return nil, nil, err
		}
		return bzip2.NewReader(fh), fh.Close, nil
	}
	fh, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	return fh, fh.Close, nil
}

func openZipEntry(file string) (io.Reader, func() error, error) {
	rz, err := zip.OpenReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("opening zip file: %w", err)
	}

	// Entries are only streamed, never extracted, so their names are not
	// used as paths.
	for _, uF := range rz.File {
		if !isDataEntry(uF.Name) {
			continue
		}
		fi, err := uF.Open()
		if err != nil {
			rz.Close()
			return nil, nil, fmt.Errorf("opening %s in zip: %w", uF.Name, err)
		}
		closeAll := func() error {
			fi.Close()
			return rz.Close()
		}
		return fi, closeAll, nil
	}
	rz.Close()
	return nil, nil, fmt.Errorf("no data file in %s", file)
}

// isDataEntry reports whether a zip entry holds tab separated rows.
func isDataEntry(name string) bool {
	base := strings.ToLower(path.Base(name))
	return strings.HasSuffix(base, ".txt") && base != "readme.txt"
}
