package auth

import (
	"strings"
	"testing"

	"github.com/petermazzocco/vitalarbor-api/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("pw1")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "pw1", hash)

	ok, err := h.Compare(hash, "pw1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Compare(hash, "pw2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasher_SaltsEachHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHasher_MalformedHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	ok, err := h.Compare("not-a-bcrypt-hash", "pw")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewHasher_CostOutOfRangeUsesDefault(t *testing.T) {
	assert.Equal(t, DefaultCost, NewHasher(0).cost)
	assert.Equal(t, DefaultCost, NewHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, bcrypt.MinCost, NewHasher(bcrypt.MinCost).cost)
}

func TestHasher_UsesConfiguredCost(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("pw")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestHasher_RejectsPasswordOver72Bytes(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	_, err := h.Hash(strings.Repeat("x", 80))
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = h.Hash(strings.Repeat("x", 72))
	assert.NoError(t, err)
}
