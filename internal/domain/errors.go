package domain

import "errors"

var (
	// ErrRateLimited signals that a client exceeded its request window.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidRequest signals malformed search parameters.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInternal signals a fault inside the merge/rank/cache pipeline.
	ErrInternal = errors.New("search failed")
	// ErrMalformedCacheEntry signals a cached payload that could not be decoded.
	ErrMalformedCacheEntry = errors.New("malformed cache entry")
)
