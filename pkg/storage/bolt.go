package storage

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltStore is a bbolt-backed Store. Each namespace maps to a bucket.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) a bbolt database at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Get returns the value for key in namespace.
func (s *BoltStore) Get(namespace, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return ErrNotFound
		}
		v := b.Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Put writes the value for key in namespace, creating the bucket on
// first use.
func (s *BoltStore) Put(namespace, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
}

// Delete removes key from namespace.
func (s *BoltStore) Delete(namespace, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// Close releases the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Compile-time interface satisfaction check.
var _ Store = (*BoltStore)(nil)
