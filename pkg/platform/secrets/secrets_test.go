package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "compass/pkg/domain-errors"
)

func TestHashPassword(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		hash, err := HashPassword("hunter2hunter2")
		require.NoError(t, err)
		assert.NotEqual(t, "hunter2hunter2", hash)
		assert.NoError(t, VerifyPassword("hunter2hunter2", hash))
	})

	t.Run("same password hashes differently", func(t *testing.T) {
		// bcrypt salts internally; equal hashes would mean the salt is gone.
		a, err := HashPassword("hunter2hunter2")
		require.NoError(t, err)
		b, err := HashPassword("hunter2hunter2")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("empty password rejected", func(t *testing.T) {
		_, err := HashPassword("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("over-long password rejected", func(t *testing.T) {
		_, err := HashPassword(strings.Repeat("x", maxPasswordBytes+1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("72 bytes exactly is accepted", func(t *testing.T) {
		hash, err := HashPassword(strings.Repeat("x", maxPasswordBytes))
		require.NoError(t, err)
		assert.NoError(t, VerifyPassword(strings.Repeat("x", maxPasswordBytes), hash))
	})
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		err := VerifyPassword("battery-staple", hash)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("empty password is unauthorized", func(t *testing.T) {
		err := VerifyPassword("", hash)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("mangled hash is not an auth failure", func(t *testing.T) {
		err := VerifyPassword("correct-horse", "not-a-bcrypt-hash")
		require.Error(t, err)
		assert.False(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
