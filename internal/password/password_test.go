package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-auth-api/internal/model"
)

func TestBcrypt_HashAndVerify(t *testing.T) {
	t.Parallel()

	hasher := NewBcrypt(bcrypt.MinCost)

	hash, err := hasher.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, hasher.Verify("correct horse battery staple", hash))
	assert.False(t, hasher.Verify("wrong password", hash))
}

func TestBcrypt_HashIsSalted(t *testing.T) {
	t.Parallel()

	hasher := NewBcrypt(bcrypt.MinCost)

	first, err := hasher.Hash("secret123")
	require.NoError(t, err)
	second, err := hasher.Hash("secret123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Verify("secret123", first))
	assert.True(t, hasher.Verify("secret123", second))
}

func TestBcrypt_VerifyMalformedHash(t *testing.T) {
	t.Parallel()

	hasher := NewBcrypt(bcrypt.MinCost)

	assert.False(t, hasher.Verify("anything", ""))
	assert.False(t, hasher.Verify("anything", "not-a-bcrypt-hash"))
}

func TestNewBcrypt_CostFallback(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bcrypt.DefaultCost, NewBcrypt(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcrypt(bcrypt.MaxCost+1).cost)
	assert.Equal(t, 12, NewBcrypt(12).cost)
}

func TestBcrypt_BurnNeverPanics(t *testing.T) {
	t.Parallel()

	hasher := NewBcrypt(bcrypt.MinCost)
	assert.NotPanics(t, func() { hasher.Burn("whatever") })
}

func TestBcrypt_HashRejectsPasswordsOverByteLimit(t *testing.T) {
	t.Parallel()

	hasher := NewBcrypt(bcrypt.MinCost)

	// 40 two-byte runes: 40 characters, 80 bytes.
	_, err := hasher.Hash(strings.Repeat("é", 40))
	require.ErrorIs(t, err, model.ErrInvalidInput)

	hash, err := hasher.Hash(strings.Repeat("é", 36))
	require.NoError(t, err)
	assert.True(t, hasher.Verify(strings.Repeat("é", 36), hash))
}
