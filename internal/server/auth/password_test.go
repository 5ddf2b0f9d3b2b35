package auth

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgon2Hasher_HashAndVerify(t *testing.T) {
	t.Parallel()

	h := NewFastArgon2Hasher()
	salt, err := h.NewSalt()
	require.NoError(t, err)

	hash := h.Hash("pw123", salt)
	_, err = hex.DecodeString(hash)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	assert.True(t, h.Verify("pw123", salt, hash))
	assert.False(t, h.Verify("pw124", salt, hash))
	assert.False(t, h.Verify("pw123", salt+"x", hash))
	assert.False(t, h.Verify("pw123", salt, "not-hex"))
}

func TestArgon2Hasher_Deterministic(t *testing.T) {
	t.Parallel()

	h := NewFastArgon2Hasher()
	assert.Equal(t, h.Hash("secret", "salt"), h.Hash("secret", "salt"))
	assert.NotEqual(t, h.Hash("secret", "salt-a"), h.Hash("secret", "salt-b"))
}

func TestArgon2Hasher_NewSalt(t *testing.T) {
	t.Parallel()

	h := NewArgon2Hasher()
	a, err := h.NewSalt()
	require.NoError(t, err)
	b, err := h.NewSalt()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestNewArgon2Hasher_Parameters(t *testing.T) {
	t.Parallel()

	h := NewArgon2Hasher()
	assert.Equal(t, uint32(1), h.time)
	assert.Equal(t, uint32(64*1024), h.memory)
	assert.Equal(t, uint8(4), h.threads)
	assert.Equal(t, uint32(32), h.keyLen)
}
