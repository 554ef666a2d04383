package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	require.NoError(t, VerifyPassword(hash, "secret123"))
	require.Error(t, VerifyPassword(hash, "secret124"))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	require.Error(t, err)
	require.Error(t, VerifyPassword("", "x"))
}
