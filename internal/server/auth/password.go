package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/dmitrijs2005/tokenauth/internal/common"
	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

// Argon2Hasher derives password hashes with argon2id. The per-user salt is
// stored next to the hash.
type Argon2Hasher struct {
	time    uint32
	memory  uint32
	threads uint8
	keyLen  uint32
}

// NewArgon2Hasher uses the parameters the project settled on for master
// keys: one pass, 64 MiB, four lanes, 32-byte output.
func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{time: 1, memory: 64 * 1024, threads: 4, keyLen: 32}
}

// NewFastArgon2Hasher trades strength for speed. For tests only.
func NewFastArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{time: 1, memory: 64, threads: 1, keyLen: 32}
}

// NewSalt returns the hex sha256 of a fresh random uuid.
func (h *Argon2Hasher) NewSalt() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(id.String()))
	return hex.EncodeToString(sum[:]), nil
}

func (h *Argon2Hasher) Hash(password, salt string) string {
	pw := []byte(password)
	defer common.WipeByteArray(pw)

	key := argon2.IDKey(pw, []byte(salt), h.time, h.memory, h.threads, h.keyLen)
	return hex.EncodeToString(key)
}

// Verify compares in constant time.
func (h *Argon2Hasher) Verify(password, salt, hash string) bool {
	want, err := hex.DecodeString(hash)
	if err != nil {
		return false
	}
	got, _ := hex.DecodeString(h.Hash(password, salt))
	return subtle.ConstantTimeCompare(got, want) == 1
}
