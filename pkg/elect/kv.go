package elect

import (
	"context"
	"errors"
	"time"
)

var (
	ErrKeyExists    = errors.New("key already exists")
	ErrKeyNotFound  = errors.New("key not found")
	ErrAnotherError = errors.New("another error")
)

// KV is the subset of a TTL-enabled key-value bucket the election needs.
// Keys must expire when they are not updated for the bucket TTL.
type KV interface {
	TTL() time.Duration
	Create(ctx context.Context, key string, value []byte) (uint64, error)
	Update(ctx context.Context, key string, value []byte, seq uint64) (uint64, error)
}
