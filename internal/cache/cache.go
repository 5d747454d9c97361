package cache

import (
	"context"
	"time"
)

// BytesCache stores raw bytes with a TTL. A miss is reported as ok=false,
// not as an error.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
