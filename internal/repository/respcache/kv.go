package respcache

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ChristinaDay/FabLab/internal/db"
	"github.com/ChristinaDay/FabLab/internal/domain"
)

const stampSize = 8

// kvStore is the consumer interface for the shared key-value cache (ISP).
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// KV stores responses in the shared key-value store, so every replica sees the same cache.
// Values are an 8-byte big-endian unix-nano stamp followed by the payload.
type KV struct {
	store  kvStore
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewKV creates a key-value backed cache. prefix namespaces keys; empty uses domain.KeyPrefix.
func NewKV(s kvStore, prefix string, ttl time.Duration) *KV {
	if prefix == "" {
		prefix = domain.KeyPrefix
	}
	if ttl <= 0 {
		ttl = domain.CacheTTL
	}
	return &KV{store: s, prefix: prefix + "resp:", ttl: ttl, now: time.Now}
}

// Get loads key. A missing key is a miss; an undecodable value wraps domain.ErrMalformedCacheEntry.
func (c *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.store.Get(ctx, c.prefix+key)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cached response: %w", err)
	}

	e, err := decodeEntry(data)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", domain.ErrMalformedCacheEntry, err)
	}
	if !fresh(e, c.now(), c.ttl) {
		return nil, false, nil
	}
	return e.Payload, true, nil
}

// Set writes payload with the cache TTL as the key expiry.
func (c *KV) Set(ctx context.Context, key string, payload []byte) error {
	data := encodeEntry(Entry{StoredAt: c.now(), Payload: payload})
	if err := c.store.SetWithTTL(ctx, c.prefix+key, data, c.ttl); err != nil {
		return fmt.Errorf("set cached response: %w", err)
	}
	return nil
}

// Delete removes key.
func (c *KV) Delete(ctx context.Context, key string) error {
	if err := c.store.Del(ctx, c.prefix+key); err != nil {
		return fmt.Errorf("delete cached response: %w", err)
	}
	return nil
}

func encodeEntry(e Entry) []byte {
	buf := make([]byte, stampSize+len(e.Payload))
	binary.BigEndian.PutUint64(buf, uint64(e.StoredAt.UnixNano())) //nolint:gosec // timestamps are positive
	copy(buf[stampSize:], e.Payload)
	return buf
}

func decodeEntry(data []byte) (Entry, error) {
	if len(data) <= stampSize {
		return Entry{}, fmt.Errorf("invalid cache data: len=%d", len(data))
	}
	ns := int64(binary.BigEndian.Uint64(data[:stampSize])) //nolint:gosec // round-trips encodeEntry
	return Entry{StoredAt: time.Unix(0, ns), Payload: data[stampSize:]}, nil
}
