package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.True(t, CheckPassword("s3cret!", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestNewAPITokenIsUniqueAndPrefixed(t *testing.T) {
	a, err := NewAPIToken()
	require.NoError(t, err)
	b, err := NewAPIToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, APITokenPrefix))
	assert.Len(t, a, len(APITokenPrefix)+64)
}

func TestHashAndPreview(t *testing.T) {
	tok := "mpt_0123456789abcdef"
	assert.Equal(t, HashAPIToken(tok), HashAPIToken(tok))
	assert.NotEqual(t, tok, HashAPIToken(tok))
	assert.Equal(t, "mpt_0123...cdef", TokenPreview(tok))
	assert.Equal(t, "abc...", TokenPreview("abcdef"))
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 12.99, RoundMoney(12.99))
	assert.Equal(t, 0.3, RoundMoney(0.1+0.2))
	assert.Equal(t, 38.97, RoundMoney(12.99*3))
	assert.Equal(t, 1.01, RoundMoney(1.005+0.0001))
}
