package cache

import (
	"context"
	"time"
)

// SummaryCache holds serialized report summaries keyed by business and
// filter. Entries expire by TTL; there is no explicit invalidation.
type SummaryCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return nil
}
