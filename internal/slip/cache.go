package slip

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const textBucketName = "recognized_text"

// TextCache stores recognizer output keyed by image hash, so re-uploading the
// same slip skips OCR. Extraction results are never cached.
type TextCache interface {
	// GetText returns the cached text and whether it was present
	GetText(key string) (string, bool, error)

	// PutText stores text under key
	PutText(key, text string) error

	// Close closes the cache
	Close() error
}

// NopCache caches nothing
type NopCache struct{}

func (NopCache) GetText(key string) (string, bool, error) { return "", false, nil }
func (NopCache) PutText(key, text string) error           { return nil }
func (NopCache) Close() error                             { return nil }

type cachedText struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// BoltCache implements the TextCache interface using BoltDB
type BoltCache struct {
	db         *bbolt.DB
	timeSource TimeSource
}

// NewBoltCache creates a new BoltCache instance
func NewBoltCache(path string) (*BoltCache, error) {
	return NewBoltCacheWithClock(path, &defaultTimeSource{})
}

// NewBoltCacheWithClock creates a new BoltCache with a custom time source for testing
func NewBoltCacheWithClock(path string, timeSrc TimeSource) (*BoltCache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(textBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltCache{db: db, timeSource: timeSrc}, nil
}

// GetText returns the cached text for key
func (b *BoltCache) GetText(key string) (string, bool, error) {
	var entry *cachedText
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(textBucketName)).Get([]byte(key))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return "", false, fmt.Errorf("reading cached text: %w", err)
	}
	if entry == nil {
		return "", false, nil
	}
	return entry.Text, true, nil
}

// PutText stores text under key
func (b *BoltCache) PutText(key, text string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(cachedText{Text: text, CreatedAt: b.timeSource.Now()})
		if err != nil {
			return fmt.Errorf("marshaling cached text: %w", err)
		}
		return tx.Bucket([]byte(textBucketName)).Put([]byte(key), data)
	})
}

// Prune removes entries created before cutoff and returns how many were removed
func (b *BoltCache) Prune(cutoff time.Time) (int, error) {
	removed := 0
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(textBucketName))
		var stale [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var entry cachedText
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshaling cached text %s: %w", k, err)
			}
			if entry.CreatedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		// deleting inside ForEach is not allowed
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}
	return removed, nil
}

// Len returns the number of cached entries
func (b *BoltCache) Len() (int, error) {
	n := 0
	err := b.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(textBucketName)).Stats().KeyN
		return nil
	})
	return n, err
}

// Close closes the database connection
func (b *BoltCache) Close() error {
	return b.db.Close()
}
