// Package respcache stores encoded search responses keyed by request fingerprint.
package respcache

import "time"

// Entry is one cached response.
type Entry struct {
	StoredAt time.Time
	Payload  []byte
}

func fresh(e Entry, now time.Time, ttl time.Duration) bool {
	return now.Sub(e.StoredAt) < ttl
}
