package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// bucketAbuseKV stores expiring entries keyed by the abuse key, value is
// a JSON boltEntry with an absolute expiry timestamp.
var bucketAbuseKV = []byte("abuse_kv")

// BoltStore is the single-instance durable backend. Entries survive
// restarts but are local to one process's database file. Expiry is
// lazy: entries past their deadline are deleted when read.
type BoltStore struct {
	db *bolt.DB
}

type boltEntry struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OpenBolt creates or opens a BoltDB-backed store at the given path,
// creating parent directories as needed.
func OpenBolt(path string) (*BoltStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketAbuseKV)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

var _ Store = (*BoltStore)(nil)

func (s *BoltStore) Get(ctx context.Context, key string) (string, bool, error) {
	var entry boltEntry
	found := false

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketAbuseKV).Get([]byte(key))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &entry); err != nil {
			return fmt.Errorf("corrupt entry for %s: %w", key, err)
		}
		found = true
		return nil
	})
	if err != nil {
		return "", false, err
	}

	if !found {
		return "", false, nil
	}

	if !time.Now().Before(entry.ExpiresAt) {
		err := s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketAbuseKV).Delete([]byte(key))
		})
		return "", false, err
	}

	return entry.Value, true, nil
}

func (s *BoltStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	data, err := json.Marshal(boltEntry{
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAbuseKV).Put([]byte(key), data)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
