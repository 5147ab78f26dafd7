// Package identity abstracts the host-platform identity hand-off. When
// the hosting environment (for example a messenger web-app container)
// supplies an identity string, users whose ExternalID matches it can be
// logged in automatically. Absence of a provider changes nothing else.
package identity

import "os"

// Provider supplies the opaque external-identity string of the current
// session, when one is available.
type Provider interface {
	ExternalID() (string, bool)
}

// EnvProvider reads the identity from an environment variable. It is the
// default binding for containerized deployments where the host injects
// the identity into the process environment.
type EnvProvider struct {
	Var string // Environment variable holding the identity
}

// ExternalID returns the identity from the configured variable.
func (p EnvProvider) ExternalID() (string, bool) {
	if p.Var == "" {
		return "", false
	}
	v := os.Getenv(p.Var)
	return v, v != ""
}

// None is a Provider that never supplies an identity.
type None struct{}

// ExternalID always reports absence.
func (None) ExternalID() (string, bool) {
	return "", false
}

// Static supplies a fixed identity, primarily for tests.
type Static struct {
	ID string
}

// ExternalID returns the fixed identity.
func (p Static) ExternalID() (string, bool) {
	return p.ID, p.ID != ""
}
