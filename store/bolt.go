package store

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketSettings = []byte("user_settings")

// Bolt keeps settings in a local BoltDB file, one nested bucket per user.
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens (or creates) the settings database at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open settings db %q: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSettings)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Get(_ context.Context, user, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := b.db.View(func(tx *bbolt.Tx) error {
		ub := tx.Bucket(bucketSettings).Bucket([]byte(user))
		if ub == nil {
			return nil
		}
		if v := ub.Get([]byte(key)); v != nil {
			value, found = string(v), true
		}
		return nil
	})
	return value, found, err
}

func (b *Bolt) Set(_ context.Context, user, key, value string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		ub, err := tx.Bucket(bucketSettings).CreateBucketIfNotExists([]byte(user))
		if err != nil {
			return fmt.Errorf("create bucket for %q: %w", user, err)
		}
		return ub.Put([]byte(key), []byte(value))
	})
}

func (b *Bolt) Delete(_ context.Context, user, key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		ub := tx.Bucket(bucketSettings).Bucket([]byte(user))
		if ub == nil {
			return nil
		}
		return ub.Delete([]byte(key))
	})
}

func (b *Bolt) All(_ context.Context, user string) (map[string]string, error) {
	out := make(map[string]string)
	err := b.db.View(func(tx *bbolt.Tx) error {
		ub := tx.Bucket(bucketSettings).Bucket([]byte(user))
		if ub == nil {
			return nil
		}
		return ub.ForEach(func(k, v []byte) error {
			if v != nil {
				out[string(k)] = string(v)
			}
			return nil
		})
	})
	return out, err
}

func (b *Bolt) Close() error {
	return b.db.Close()
}
