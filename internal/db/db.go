// Package db holds the storage facades behind the response cache and the
// readiness polling shared by every backend.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultPollInterval is the delay between readiness pings.
const DefaultPollInterval = 100 * time.Millisecond

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides the key-value operations the response cache needs.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Store is a remote key-value backend.
type Store interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// WaitReady pings p until it answers or timeout expires. The first ping is immediate.
// On timeout the last ping error is joined to the context error.
func WaitReady(ctx context.Context, p Pinger, timeout, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		last := p.Ping(ctx)
		if last == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("not ready after %s: %w", timeout, errors.Join(ctx.Err(), last))
		case <-ticker.C:
		}
	}
}
