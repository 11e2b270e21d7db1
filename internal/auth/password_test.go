package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hashed, err := HashPassword("segredo123", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, "segredo123", hashed)
	assert.True(t, PasswordMatches(hashed, "segredo123"))
	assert.False(t, PasswordMatches(hashed, "segredo124"))
	assert.False(t, PasswordMatches("not-a-hash", "segredo123"))
}

func TestHashPasswordFallsBackToDefaultCost(t *testing.T) {
	hashed, err := HashPassword("segredo123", 99)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hashed))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
