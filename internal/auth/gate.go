package auth

import (
	"ghostlayer/internal/state"
)

// AuthenticateAdmin checks the admin password against the bcrypt hash in
// the state snapshot. It returns ErrBadCredentials on mismatch so the
// caller can present a precise rejection rather than a generic failure.
func AuthenticateAdmin(s state.AppState, password string) error {
	if !VerifyPassword(password, s.AdminPasswordHash) {
		return ErrBadCredentials
	}
	return nil
}

// AuthenticateUser returns the user owning the given access code. The
// code is the sole user credential and is unique across all users, so
// the first match is the only match.
func AuthenticateUser(s state.AppState, code string) (state.UserData, error) {
	if code == "" {
		return state.UserData{}, ErrBadCredentials
	}
	for i := range s.Users {
		if s.Users[i].AccessCode == code {
			return s.Users[i], nil
		}
	}
	return state.UserData{}, ErrBadCredentials
}

// MatchExternalIdentity returns the user bound to the given host-platform
// identity string, if any. It powers the optional auto-login hand-off;
// its absence affects nothing else.
func MatchExternalIdentity(s state.AppState, externalID string) (state.UserData, bool) {
	if externalID == "" {
		return state.UserData{}, false
	}
	for i := range s.Users {
		if s.Users[i].ExternalID == externalID {
			return s.Users[i], true
		}
	}
	return state.UserData{}, false
}
