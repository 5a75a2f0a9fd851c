package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketName = []byte("router")
	storageKey = []byte("storage")
)

// Persister saves committed storage and loads it back at startup.
type Persister interface {
	// Load returns nil storage when nothing has been saved yet.
	Load() (*Storage, error)
	Save(s *Storage) error
	Close() error
}

// Nop keeps nothing; used for tests and throwaway deployments.
type Nop struct{}

func (Nop) Load() (*Storage, error) { return nil, nil }
func (Nop) Save(*Storage) error     { return nil }
func (Nop) Close() error            { return nil }

// Bolt persists storage as a single JSON document in a bbolt file. Each
// Save is one bbolt transaction, so a crash leaves the previous commit intact.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the database at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Bolt{db: db}, nil
}

// Load implements Persister.
func (b *Bolt) Load() (*Storage, error) {
	var s *Storage
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get(storageKey)
		if v == nil {
			return nil
		}
		s = &Storage{}
		return json.Unmarshal(v, s)
	})
	if err != nil {
		return nil, fmt.Errorf("load storage: %w", err)
	}
	if s != nil {
		s.init()
	}
	return s, nil
}

// Save implements Persister.
func (b *Bolt) Save(s *Storage) error {
	buf, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode storage: %w", err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(storageKey, buf)
	})
}

// Close implements Persister.
func (b *Bolt) Close() error {
	return b.db.Close()
}
