package domain

import "time"

// KeyPrefix namespaces every key written to the shared key-value store.
const KeyPrefix = "fablab:"

// Search pipeline constants. The ranking and filter weights live next to the code that uses them.
const (
	// MaxDescriptionLength bounds JobRecord descriptions (runes).
	MaxDescriptionLength = 2000
	// MaxLimit caps the number of ranked results returned per page.
	MaxLimit = 200
	// DefaultLimit is used when the caller does not pass a limit.
	DefaultLimit = 50
	// CuratedFetchLimit is the number of visible curated rows read per search.
	CuratedFetchLimit = 500

	// CacheTTL is the lifetime of a cached search response.
	CacheTTL = 24 * time.Hour
	// RateWindow is the sliding window of the per-client rate limiter.
	RateWindow = 60 * time.Second
	// RateMaxRequests is the number of requests allowed inside RateWindow.
	RateMaxRequests = 60
	// VocabularyRefreshInterval is the minimum age before dynamic terms are reloaded.
	VocabularyRefreshInterval = 2 * time.Minute
)
