package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hrdash/lifecycle/pkg/locking"
)

// NewLocker returns the in-process locker for "" or "memory", and a Redis
// backed one for redis:// and rediss:// URLs. The returned func closes any
// connection opened on the way.
func NewLocker(ctx context.Context, lockURL string, ttl time.Duration, logger *slog.Logger) (locking.Locker, func() error, error) {
	switch {
	case lockURL == "" || lockURL == "memory":
		return locking.NewMemoryLocker(), func() error { return nil }, nil
	case strings.HasPrefix(lockURL, "redis://"), strings.HasPrefix(lockURL, "rediss://"):
		client, err := locking.OpenRedis(ctx, lockURL)
		if err != nil {
			return nil, nil, err
		}

		return locking.NewRedisLocker(client, ttl, logger), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: lock backend %q, supported: memory, redis://", ErrUnsupportedProvider, lockURL)
	}
}
