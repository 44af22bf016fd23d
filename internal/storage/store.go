package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pders01/vsearch/internal/api"
	bolt "go.etcd.io/bbolt"
)

var (
	searchesBucket = []byte("searches")
	productsBucket = []byte("products")
	metaBucket     = []byte("metadata")

	preferencesKey = []byte("preferences")
)

var (
	ErrSearchNotFound  = errors.New("search not found")
	ErrProductNotFound = errors.New("product not found")
)

type Store struct {
	db           *bolt.DB
	historyLimit int
}

// NewStore opens (or creates) the history database. historyLimit caps the
// number of searches kept; zero keeps everything.
func NewStore(dbPath string, timeout time.Duration, historyLimit int) (*Store, error) {
	if timeout <= 0 {
		timeout = 1 * time.Second
	}
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{searchesBucket, productsBucket, metaBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db, historyLimit: historyLimit}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// searchKey orders records by creation time. Version 7 UUIDs sort by
// their embedded timestamp, so byte order is chronological order.
func searchKey(id string) ([]byte, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid search id %q: %w", id, err)
	}
	return u[:], nil
}

// SaveSearch stores rec, assigning an ID and timestamp when missing, and
// records every product of its result set as seen.
func (s *Store) SaveSearch(rec *SearchRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if rec.ID == "" {
		u, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generating search id: %w", err)
		}
		rec.ID = u.String()
	}
	key, err := searchKey(rec.ID)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := tx.Bucket(searchesBucket).Put(key, data); err != nil {
			return err
		}
		if err := markSeen(tx.Bucket(productsBucket), rec.Products, rec.CreatedAt); err != nil {
			return err
		}
		return s.prune(tx.Bucket(searchesBucket))
	})
}

func markSeen(b *bolt.Bucket, products []api.Product, at time.Time) error {
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		key := []byte(p.ID)

		seen := SeenProduct{FirstSeen: at}
		if data := b.Get(key); data != nil {
			if err := json.Unmarshal(data, &seen); err != nil {
				seen = SeenProduct{FirstSeen: at}
			}
		}
		seen.Product = p
		seen.LastSeen = at
		seen.SeenCount++
		if p.Similarity > seen.BestSimilarity {
			seen.BestSimilarity = p.Similarity
		}

		data, err := json.Marshal(seen)
		if err != nil {
			return err
		}
		if err := b.Put(key, data); err != nil {
			return err
		}
	}
	return nil
}

// prune drops the oldest searches beyond the history limit.
func (s *Store) prune(b *bolt.Bucket) error {
	if s.historyLimit <= 0 {
		return nil
	}
	c := b.Cursor()
	count := 0
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		count++
	}
	excess := count - s.historyLimit
	if excess <= 0 {
		return nil
	}
	var stale [][]byte
	for k, _ := c.First(); k != nil && len(stale) < excess; k, _ = c.Next() {
		stale = append(stale, append([]byte(nil), k...))
	}
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetSearch(id string) (*SearchRecord, error) {
	key, err := searchKey(id)
	if err != nil {
		return nil, err
	}
	var rec SearchRecord
	err = s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(searchesBucket).Get(key)
		if data == nil {
			return fmt.Errorf("%w: %s", ErrSearchNotFound, id)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// RecentSearches returns up to limit searches, newest first.
func (s *Store) RecentSearches(limit int) ([]*SearchRecord, error) {
	var records []*SearchRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(searchesBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var rec SearchRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			records = append(records, &rec)
		}
		return nil
	})
	return records, err
}

func (s *Store) DeleteSearch(id string) error {
	key, err := searchKey(id)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(searchesBucket)
		if b.Get(key) == nil {
			return fmt.Errorf("%w: %s", ErrSearchNotFound, id)
		}
		return b.Delete(key)
	})
}

// ClearHistory removes all searches and seen products. Preferences stay.
func (s *Store) ClearHistory() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{searchesBucket, productsBucket} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetProduct(id api.ProductID) (*SeenProduct, error) {
	var seen SeenProduct
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(productsBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		return json.Unmarshal(data, &seen)
	})
	if err != nil {
		return nil, err
	}
	return &seen, nil
}

// AllProducts returns every seen product in key order.
func (s *Store) AllProducts() ([]*SeenProduct, error) {
	var products []*SeenProduct
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(productsBucket).ForEach(func(_, v []byte) error {
			var seen SeenProduct
			if err := json.Unmarshal(v, &seen); err != nil {
				return nil
			}
			products = append(products, &seen)
			return nil
		})
	})
	return products, err
}

func (s *Store) SavePreferences(p Preferences) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put(preferencesKey, data)
	})
}

// GetPreferences returns the saved preferences; ok is false when none were saved.
func (s *Store) GetPreferences() (p Preferences, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(metaBucket).Get(preferencesKey)
		if data == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(data, &p)
	})
	return p, ok, err
}
