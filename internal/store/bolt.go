package store

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// documentsBucket holds every state document, keyed by schema key.
var documentsBucket = []byte("documents")

// BoltStore is a DocumentStore backed by a bbolt database file.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the bbolt database at dbPath and
// ensures the documents bucket exists.
func NewBoltStore(dbPath string) (*BoltStore, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(documentsBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Load returns the document stored under key.
func (s *BoltStore) Load(key string) ([]byte, bool, error) {
	var doc []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(documentsBucket).Get([]byte(key)); v != nil {
			doc = make([]byte, len(v))
			copy(doc, v)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to load document %q: %w", key, err)
	}
	return doc, doc != nil, nil
}

// Save writes the document under key.
func (s *BoltStore) Save(key string, doc []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(documentsBucket).Put([]byte(key), doc)
	})
	if err != nil {
		return fmt.Errorf("failed to save document %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
