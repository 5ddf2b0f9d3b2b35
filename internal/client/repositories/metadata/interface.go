// Package metadata is a small key/value store kept in the local session
// database.
package metadata

import (
	"context"
)

// Repository stores opaque values by key. Get reports common.ErrorNotFound
// for a key that was never set.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
