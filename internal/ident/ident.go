// Package ident generates record identifiers and user access codes.
// Identifiers only need to be statistically unique; access codes are the
// sole bearer credential for a user and must come from a cryptographically
// strong source. There is no weak-source fallback: if crypto/rand fails,
// generation fails loudly.
package ident

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// AccessCodeLength is the length of a generated access code in hex characters.
const AccessCodeLength = 24

// Generator produces identifiers and access codes. The interface exists
// so lifecycle operations can be tested with a deterministic source.
type Generator interface {
	// NewID returns a statistically-unique opaque record identifier.
	NewID() string
	// NewAccessCode returns 24 lowercase hex characters (96 bits) drawn
	// from a cryptographically strong source.
	NewAccessCode() (string, error)
}

// Source is the production Generator backed by UUIDv4 identifiers and
// crypto/rand access codes.
type Source struct{}

// NewID returns a new UUIDv4 string.
func (Source) NewID() string {
	return uuid.NewString()
}

// NewAccessCode returns a new 24-character hex access code. It returns an
// error if the strong randomness source is unavailable rather than
// degrading to a predictable one.
func (Source) NewAccessCode() (string, error) {
	buf := make([]byte, AccessCodeLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes for access code: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
