// Package auth implements the authentication gate of the control plane:
// the admin-password check, the user access-code lookup, and the JWT
// session tokens handed to the presentation layer. The admin credential
// is stored only as a bcrypt hash.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Role identifies which surface a session token grants access to.
type Role string

const (
	RoleAdmin Role = "admin" // Administrative surface
	RoleUser  Role = "user"  // User self-service surface
)

// ErrBadCredentials is the explicit rejection signal for a failed admin
// password check or an unknown access code.
var ErrBadCredentials = errors.New("invalid credentials")

// TokenManager issues and validates JWT session tokens.
type TokenManager struct {
	jwtSecret   string        // Secret key for token signing and verification
	tokenExpiry time.Duration // Duration for which tokens remain valid
}

// Claims is the JWT claims structure for authenticated sessions.
type Claims struct {
	Role   Role   `json:"role"`              // Which surface the session may use
	UserID string `json:"user_id,omitempty"` // Set for user sessions only
	jwt.RegisteredClaims
}

// NewTokenManager creates a token manager with a 24 hour expiry.
func NewTokenManager(jwtSecret string) *TokenManager {
	return NewTokenManagerWithExpiry(jwtSecret, 24*time.Hour)
}

// NewTokenManagerWithExpiry creates a token manager with a custom expiry.
func NewTokenManagerWithExpiry(jwtSecret string, tokenExpiry time.Duration) *TokenManager {
	return &TokenManager{
		jwtSecret:   jwtSecret,
		tokenExpiry: tokenExpiry,
	}
}

// HashPassword creates a bcrypt hash of the provided password. The salt
// is generated and embedded by bcrypt itself.
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// VerifyPassword compares a plain text password with a bcrypt hash using
// constant-time comparison.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken creates a signed session token for the given role. For
// user sessions, userID identifies the account.
func (tm *TokenManager) GenerateToken(role Role, userID string) (string, error) {
	claims := &Claims{
		Role:   role,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tm.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "ghostlayer",
			Subject:   string(role),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tm.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a session token, verifying the
// signature and the standard claims.
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token claims")
}

// GenerateSecureSecret creates a cryptographically secure random secret
// for JWT signing: 32 bytes encoded as base64.
func GenerateSecureSecret() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure secret: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
