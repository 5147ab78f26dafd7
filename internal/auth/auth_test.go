package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghostlayer/internal/state"
)

func TestHashPassword(t *testing.T) {
	t.Run("should hash and verify a password", func(t *testing.T) {
		hash, err := HashPassword("hunter2")

		require.NoError(t, err)
		assert.NotEmpty(t, hash)
		assert.NotEqual(t, "hunter2", hash)
		assert.True(t, VerifyPassword("hunter2", hash))
		assert.False(t, VerifyPassword("wrong", hash))
	})

	t.Run("should salt hashes independently", func(t *testing.T) {
		hash1, err := HashPassword("hunter2")
		require.NoError(t, err)
		hash2, err := HashPassword("hunter2")
		require.NoError(t, err)

		assert.NotEqual(t, hash1, hash2)
	})
}

func TestAuthenticateAdmin(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	s := state.Default(time.Unix(1700000000, 0), hash)

	t.Run("should accept the correct password", func(t *testing.T) {
		assert.NoError(t, AuthenticateAdmin(s, "hunter2"))
	})

	t.Run("should reject a wrong password with an explicit signal", func(t *testing.T) {
		err := AuthenticateAdmin(s, "wrong")
		assert.ErrorIs(t, err, ErrBadCredentials)
	})

	t.Run("should reject an empty password", func(t *testing.T) {
		err := AuthenticateAdmin(s, "")
		assert.ErrorIs(t, err, ErrBadCredentials)
	})
}

func TestAuthenticateUser(t *testing.T) {
	s := state.Default(time.Unix(1700000000, 0), "hash")
	s.Users = []state.UserData{
		{ID: "u-1", Username: "@alice", AccessCode: "00112233445566778899aabb"},
		{ID: "u-2", Username: "@bob", AccessCode: "ffeeddccbbaa998877665544"},
	}

	t.Run("should return the user owning the code", func(t *testing.T) {
		user, err := AuthenticateUser(s, "ffeeddccbbaa998877665544")

		require.NoError(t, err)
		assert.Equal(t, "u-2", user.ID)
	})

	t.Run("should reject an unknown code", func(t *testing.T) {
		_, err := AuthenticateUser(s, "000000000000000000000000")
		assert.ErrorIs(t, err, ErrBadCredentials)
	})

	t.Run("should reject an empty code", func(t *testing.T) {
		_, err := AuthenticateUser(s, "")
		assert.ErrorIs(t, err, ErrBadCredentials)
	})
}

func TestMatchExternalIdentity(t *testing.T) {
	s := state.Default(time.Unix(1700000000, 0), "hash")
	s.Users = []state.UserData{
		{ID: "u-1", Username: "@alice", ExternalID: "tg-100"},
		{ID: "u-2", Username: "@bob"},
	}

	t.Run("should match a bound identity", func(t *testing.T) {
		user, ok := MatchExternalIdentity(s, "tg-100")

		assert.True(t, ok)
		assert.Equal(t, "u-1", user.ID)
	})

	t.Run("should not match an empty identity", func(t *testing.T) {
		_, ok := MatchExternalIdentity(s, "")
		assert.False(t, ok)
	})

	t.Run("should not match an unknown identity", func(t *testing.T) {
		_, ok := MatchExternalIdentity(s, "tg-999")
		assert.False(t, ok)
	})
}

func TestTokenManager(t *testing.T) {
	t.Run("should round-trip claims through a token", func(t *testing.T) {
		tm := NewTokenManager("test-secret")

		token, err := tm.GenerateToken(RoleUser, "u-1")
		require.NoError(t, err)

		claims, err := tm.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, RoleUser, claims.Role)
		assert.Equal(t, "u-1", claims.UserID)
	})

	t.Run("should reject a token signed with a different secret", func(t *testing.T) {
		token, err := NewTokenManager("secret-a").GenerateToken(RoleAdmin, "")
		require.NoError(t, err)

		_, err = NewTokenManager("secret-b").ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("should reject an expired token", func(t *testing.T) {
		tm := NewTokenManagerWithExpiry("test-secret", -time.Minute)

		token, err := tm.GenerateToken(RoleAdmin, "")
		require.NoError(t, err)

		_, err = tm.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("should reject garbage", func(t *testing.T) {
		tm := NewTokenManager("test-secret")
		_, err := tm.ValidateToken("not-a-token")
		assert.Error(t, err)
	})
}

func TestGenerateSecureSecret(t *testing.T) {
	t.Run("should generate distinct secrets", func(t *testing.T) {
		s1, err := GenerateSecureSecret()
		require.NoError(t, err)
		s2, err := GenerateSecureSecret()
		require.NoError(t, err)

		assert.NotEmpty(t, s1)
		assert.NotEqual(t, s1, s2)
	})
}
