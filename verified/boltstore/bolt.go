package boltstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/unkn0wn-root/feedcache/verified"
)

var bucketVerified = []byte("verified")

// Store keeps verified ids as keys of a single bbolt bucket. Reads return ids
// in byte order of the key.
type Store struct {
	db *bolt.DB
}

var _ verified.Store = (*Store)(nil)

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVerified)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) VerifiedIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids := []string{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketVerified)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read verified ids: %w", err)
	}
	return ids, nil
}

func (s *Store) Add(_ context.Context, ids ...string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketVerified)
		stamp := []byte(time.Now().UTC().Format(time.RFC3339))
		for _, id := range ids {
			if id == "" {
				return fmt.Errorf("empty verified id")
			}
			if err := b.Put([]byte(id), stamp); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Remove(_ context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketVerified).Delete([]byte(id))
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}
