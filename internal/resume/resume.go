// Package resume persists the root_trees memo table (§3) to disk so an
// interrupted run can skip top-trees it already rewrote. It is a pure
// optimization: a rewrite run with no resume store, or a fresh one,
// behaves identically to one that recomputes everything.
package resume

import (
	"github.com/javanhut/gitcs-filter/internal/ferrors"
	"github.com/javanhut/gitcs-filter/internal/store"
)

var rootTreesBucket = []byte("root_trees")

// Store is a bbolt-backed mirror of the root_trees memo table, keyed
// by the original top-tree hex and valued by the rewritten hex.
type Store struct {
	db *store.DB
}

// Open opens (creating if necessary) a resume store at path.
func Open(path string) (*Store, error) {
	db, err := store.Open(path, rootTreesBucket)
	if err != nil {
		return nil, ferrors.IoError("open resume store %s: %s", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the rewritten hex previously recorded for origHex, if
// any.
func (s *Store) Lookup(origHex string) (string, bool, error) {
	v, err := s.db.Get(rootTreesBucket, []byte(origHex))
	if err != nil {
		return "", false, ferrors.IoError("read resume store: %s", err)
	}
	return string(v), v != nil, nil
}

// Record persists origHex -> rewrittenHex.
func (s *Store) Record(origHex, rewrittenHex string) error {
	if err := s.db.Put(rootTreesBucket, []byte(origHex), []byte(rewrittenHex)); err != nil {
		return ferrors.IoError("write resume store: %s", err)
	}
	return nil
}
