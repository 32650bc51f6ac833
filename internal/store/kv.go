// Package store wraps bbolt with the bucketed-KV conventions the
// resume store (internal/resume) persists its memo table through.
package store

import (
	"go.etcd.io/bbolt"
)

// DB is a bbolt database opened with a fixed set of buckets already
// created.
type DB struct{ *bbolt.DB }

// Open opens (creating if necessary) a bbolt database at path and
// ensures every named bucket exists.
func Open(path string, buckets ...[]byte) (*DB, error) {
	db, err := bbolt.Open(path, 0o666, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, b := range buckets {
			if _, e := tx.CreateBucketIfNotExists(b); e != nil {
				return e
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

func (db *DB) Close() error { return db.DB.Close() }

// Get reads a single key from bucket.
func (db *DB) Get(bucket, key []byte) ([]byte, error) {
	var value []byte
	err := db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucket).Get(key)
		if v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	return value, err
}

// Put writes a single key to bucket.
func (db *DB) Put(bucket, key, value []byte) error {
	return db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put(key, value)
	})
}
