// Package store persists the application state as a single versioned
// JSON document in an opaque key-value medium. Two backends are
// provided, SQLite and bbolt, behind the same DocumentStore contract;
// the adapter on top handles schema-key migration and default seeding.
package store

import "fmt"

// DocumentStore is the opaque key-to-JSON-blob persistence contract.
type DocumentStore interface {
	// Load returns the document stored under key, with found reporting
	// whether the key exists.
	Load(key string) (doc []byte, found bool, err error)
	// Save writes the document under key, replacing any previous value.
	Save(key string, doc []byte) error
	// Close releases the underlying medium.
	Close() error
}

// PersistenceError reports a failed state document write. It is always
// surfaced to the caller: a swallowed write failure would let in-memory
// and persisted state diverge.
type PersistenceError struct {
	Key string // Document key being written
	Err error  // Underlying failure
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist state document %q: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
