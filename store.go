package geoblur

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/maxmind/mmdbwriter"
	"github.com/oschwald/maxminddb-golang"
)

// Store is an open MaxMind DB file.
type Store struct {
	db   *maxminddb.Reader
	path string
}

// OpenStore opens the MaxMind DB at path for iteration.
func OpenStore(path string) (*Store, error) {
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Metadata returns the store's metadata section.
func (s *Store) Metadata() maxminddb.Metadata {
	return s.db.Metadata
}

// Close releases the underlying file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Entries yields every network of the store with its decoded record, in
// the store's traversal order. IPv4 networks reachable through the IPv6
// aliases are yielded once. The sequence stops after the first error.
func (s *Store) Entries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		networks := s.db.Networks(maxminddb.SkipAliasedNetworks)
		var dec valueDecoder
		for networks.Next() {
			dec.reset()
			network, err := networks.Network(&dec)
			if err != nil {
				yield(Entry{}, fmt.Errorf("reading %s: %w", s.path, err))
				return
			}
			v, err := dec.result()
			if err != nil {
				yield(Entry{}, fmt.Errorf("decoding %s: %w", network, err))
				return
			}
			rec, err := DecodeRecord(v)
			if err != nil {
				yield(Entry{}, fmt.Errorf("decoding %s: %w", network, err))
				return
			}
			if !yield(Entry{Network: network, Record: rec}, nil) {
				return
			}
		}
		if err := networks.Err(); err != nil {
			yield(Entry{}, fmt.Errorf("reading %s: %w", s.path, err))
		}
	}
}

// Rewrite writes entries to a new store at dstPath that keeps srcPath's
// metadata (IP version, record size, database type, description,
// languages and build epoch). WithDatabaseType overrides the database
// type. dstPath is replaced only once the whole store is written. It
// returns the number of networks written.
func Rewrite(srcPath string, entries iter.Seq2[Entry, error], dstPath string, opts ...Option) (int, error) {
	cfg := newConfig(opts)

	src, err := OpenStore(srcPath)
	if err != nil {
		return 0, err
	}
	meta := src.Metadata()
	if err := src.Close(); err != nil {
		return 0, fmt.Errorf("closing store %s: %w", srcPath, err)
	}

	dbType := meta.DatabaseType
	if cfg.DatabaseType != "" {
		dbType = cfg.DatabaseType
	}
	tree, err := mmdbwriter.New(mmdbwriter.Options{
		BuildEpoch:              int64(meta.BuildEpoch),
		DatabaseType:            dbType,
		Description:             meta.Description,
		Languages:               meta.Languages,
		IPVersion:               int(meta.IPVersion),
		RecordSize:              int(meta.RecordSize),
		IncludeReservedNetworks: true,
	})
	if err != nil {
		return 0, fmt.Errorf("creating tree: %w", err)
	}

	n := 0
	for e, err := range entries {
		if err != nil {
			return n, err
		}
		if err := tree.Insert(e.Network, e.Record.Encode()); err != nil {
			return n, fmt.Errorf("inserting %s: %w", e.Network, err)
		}
		n++
		if n%progressEvery == 0 {
			cfg.Logger.Debugf("%d prefixes written", n)
		}
	}

	if err := writeTree(tree, dstPath); err != nil {
		return n, err
	}
	return n, nil
}

// writeTree writes the tree to a temporary file next to path and renames
// it into place.
func writeTree(tree *mmdbwriter.Tree, path string) error {
	out, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating file for %s: %w", path, err)
	}
	tmp := out.Name()

	success := false
	defer func() {
		out.Close()
		if !success {
			os.Remove(tmp)
		}
	}()

	if _, err := tree.WriteTo(out); err != nil {
		return fmt.Errorf("writing store %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing store %s: %w", path, err)
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming store %s: %w", path, err)
	}
	success = true
	return nil
}
