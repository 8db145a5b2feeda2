// Package ratelimit implements the per-client sliding-window request limiter.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/ChristinaDay/FabLab/internal/domain"
)

// Error is returned when a client exceeds its window. It unwraps to domain.ErrRateLimited.
type Error struct {
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: retry after %s", domain.ErrRateLimited, e.RetryAfter)
}

func (e *Error) Unwrap() error { return domain.ErrRateLimited }

// Limiter keeps the request instants of every client inside a sliding window.
type Limiter struct {
	window time.Duration
	max    int
	now    func() time.Time

	mu      sync.Mutex
	clients map[string][]time.Time
}

// New creates a limiter allowing max requests per window. Zero values fall back to 60 per 60s.
func New(window time.Duration, maxRequests int) *Limiter {
	if window <= 0 {
		window = domain.RateWindow
	}
	if maxRequests <= 0 {
		maxRequests = domain.RateMaxRequests
	}
	return &Limiter{
		window:  window,
		max:     maxRequests,
		now:     time.Now,
		clients: make(map[string][]time.Time),
	}
}

// Allow records a request from client and rejects it with *Error when the window is full.
// Rejected requests are recorded too, so a client hammering the endpoint stays blocked.
func (l *Limiter) Allow(client string) error {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := prune(l.clients[client], now.Add(-l.window))
	hits = append(hits, now)
	l.clients[client] = hits

	if len(hits) <= l.max {
		return nil
	}
	// Enough hits must expire for the next request to fit under max.
	retry := hits[len(hits)-l.max].Add(l.window).Sub(now)
	if retry < time.Second {
		retry = time.Second
	}
	return &Error{RetryAfter: retry}
}

// Sweep drops clients without requests in the current window and returns how many were removed.
func (l *Limiter) Sweep() int {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for c, hits := range l.clients {
		hits = prune(hits, cutoff)
		if len(hits) == 0 {
			delete(l.clients, c)
			removed++
			continue
		}
		l.clients[c] = hits
	}
	return removed
}

// Clients returns the number of tracked clients.
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// prune drops instants at or before cutoff. hits is sorted ascending.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}
