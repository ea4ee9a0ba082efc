package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// WindowLease serializes check-then-book for one (service, window)
// pair so two concurrent checkouts cannot both pass the availability
// check and overbook the window. The lease is a Redis SET-NX key with a
// short TTL; the TTL bounds how long a crashed holder can block others.
type WindowLease struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewWindowLease(client *redis.Client) *WindowLease {
	return &WindowLease{Client: client, TTL: 30 * time.Second}
}

// ErrWindowBusy means another checkout holds the window right now.
var ErrWindowBusy = fmt.Errorf("another booking for this window is in progress")

// Acquire takes the lease and returns a release func. Callers release
// once the booking write has settled.
func (l *WindowLease) Acquire(ctx context.Context, providerServiceID string, start, end time.Time) (func(), error) {
	key := fmt.Sprintf("avail:lease:%s:%d:%d", providerServiceID, start.Unix(), end.Unix())
	ok, err := l.Client.SetNX(ctx, key, 1, l.TTL).Result()
	if err != nil {
		return nil, fmt.Errorf("window lease: %w", err)
	}
	if !ok {
		return nil, ErrWindowBusy
	}
	release := func() {
		l.Client.Del(context.Background(), key)
	}
	return release, nil
}
