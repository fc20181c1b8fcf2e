package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// entryKey is the single key inside each record bucket
var entryKey = []byte("entry")

// BoltStore keeps each record in its own bbolt bucket. Every Put is a single
// transaction, so a record is either the old or the new value, never a mix.
type BoltStore struct {
	codec
	db *bolt.DB
}

// OpenBolt opens (or creates) the database at path.
// Parent directories are created automatically.
func OpenBolt(path string, logger *slog.Logger, opts ...Option) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}

	return &BoltStore{codec: newCodec(logger, opts), db: db}, nil
}

// Close closes the database
func (b *BoltStore) Close() error {
	return b.db.Close()
}

// Path returns the filesystem path of the open database
func (b *BoltStore) Path() string {
	return b.db.Path()
}

func (b *BoltStore) Get(ctx context.Context, key string, ttl time.Duration, dst any) bool {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(key))
		if bucket == nil {
			return nil
		}
		if v := bucket.Get(entryKey); v != nil {
			// Values are only valid for the life of the transaction.
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		b.logger.Warn("Failed to read cache entry", "key", key, "error", err)
		return false
	}
	if data == nil {
		return false
	}
	return b.decode(key, data, ttl, dst)
}

func (b *BoltStore) Put(ctx context.Context, key string, value any) error {
	data, err := b.encode(value)
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", key, err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(key))
		if err != nil {
			return fmt.Errorf("creating bucket %s: %w", key, err)
		}
		return bucket.Put(entryKey, data)
	})
}

func (b *BoltStore) Clear(ctx context.Context) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		var names [][]byte
		if err := tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			names = append(names, append([]byte(nil), name...))
			return nil
		}); err != nil {
			return err
		}
		for _, name := range names {
			if err := tx.DeleteBucket(name); err != nil {
				return fmt.Errorf("deleting bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// putRaw stores data verbatim, bypassing the envelope
func (b *BoltStore) putRaw(key string, data []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(key))
		if err != nil {
			return err
		}
		return bucket.Put(entryKey, data)
	})
}
