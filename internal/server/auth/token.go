// Package auth issues opaque token values and checks their lifetimes, and
// hashes user passwords.
package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tokenauth/internal/common"
	"github.com/google/uuid"
)

// TokenFactory produces access/refresh token values and decides expiry.
// Access tokens live for a fixed duration; refresh tokens for a number of
// calendar months after the token row was last issued or rotated.
type TokenFactory struct {
	accessTTL     time.Duration
	refreshMonths int
	now           func() time.Time
}

// NewTokenFactory returns a factory using clock for "now". A nil clock
// means time.Now.
func NewTokenFactory(accessTTL time.Duration, refreshMonths int, clock func() time.Time) *TokenFactory {
	if clock == nil {
		clock = time.Now
	}
	return &TokenFactory{accessTTL: accessTTL, refreshMonths: refreshMonths, now: clock}
}

func (f *TokenFactory) Now() time.Time {
	return f.now()
}

// GenerateTokenValue returns a 64-char hex value derived from the owner's
// email, a fresh uuid, the current time and 16 random bytes. Two calls never
// share the uuid or random part, so values do not repeat in practice; the
// store's unique constraints catch the rest.
func (f *TokenFactory) GenerateTokenValue(email string) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("token uuid: %w", err)
	}
	salt, err := common.MakeRandHexString(16)
	if err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}

	sum := sha256.Sum256(fmt.Appendf(nil, "_%s:%s-%d=%s", email, id, f.now().UnixMicro(), salt))
	return hex.EncodeToString(sum[:]), nil
}

// AccessTokenExpiry is the expiry for an access token issued at from.
func (f *TokenFactory) AccessTokenExpiry(from time.Time) time.Time {
	return from.Add(f.accessTTL)
}

// AccessTokenIsExpired reports now > expiresAt. A token is still valid at
// the exact expiry instant.
func (f *TokenFactory) AccessTokenIsExpired(expiresAt time.Time) bool {
	return expiresAt.Before(f.now())
}

// RefreshTokenExpiry is the instant after which a refresh token last issued
// at lastUpdated can no longer be used.
func (f *TokenFactory) RefreshTokenExpiry(lastUpdated time.Time) time.Time {
	return lastUpdated.AddDate(0, f.refreshMonths, 0)
}

func (f *TokenFactory) RefreshTokenIsExpired(lastUpdated time.Time) bool {
	return f.RefreshTokenExpiry(lastUpdated).Before(f.now())
}

// EncodeToken is the wire form of a token value (header and JSON bodies).
func EncodeToken(raw string) string {
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// DecodeToken reverses EncodeToken. Empty input and bad base64 both fail.
func DecodeToken(encoded string) (string, error) {
	if encoded == "" {
		return "", common.ErrInvalidToken
	}
	b, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(b) == 0 {
		return "", common.ErrInvalidToken
	}
	return string(b), nil
}
