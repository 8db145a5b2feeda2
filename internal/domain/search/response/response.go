// Package response defines the search payload and its cache status.
package response

import (
	"github.com/ChristinaDay/FabLab/internal/domain/job"
	"github.com/ChristinaDay/FabLab/internal/domain/search/request"
)

// CacheStatus tells the caller how the payload was produced.
type CacheStatus string

// Cache status values.
const (
	CacheHit    CacheStatus = "HIT"
	CacheMiss   CacheStatus = "MISS"
	CacheBypass CacheStatus = "BYPASS"
)

// Params echoes the normalized request.
type Params struct {
	Query       string `json:"query"`
	Location    string `json:"location"`
	Strict      bool   `json:"strict"`
	Limit       int    `json:"limit"`
	Page        int    `json:"page"`
	Radius      int    `json:"radius"`
	CuratedOnly bool   `json:"curated_only"`
}

// EchoParams builds the echo block for r.
func EchoParams(r request.Request) Params {
	return Params{
		Query:       r.Query(),
		Location:    r.Location(),
		Strict:      r.Strict(),
		Limit:       r.Limit(),
		Page:        r.Page(),
		Radius:      r.Radius(),
		CuratedOnly: r.CuratedOnly(),
	}
}

// Response is the cacheable search payload.
type Response struct {
	Jobs []job.Job `json:"jobs"`
	// TotalCount is the number of ranked results before paging.
	TotalCount int `json:"total_count"`
	// OriginalCount is the number of external results before any filtering.
	OriginalCount  int    `json:"original_count"`
	FilteredBefore int    `json:"filtered_before"`
	FilteredAfter  int    `json:"filtered_after"`
	Params         Params `json:"params"`
}

// Outcome pairs the encoded payload with how it was obtained.
// Body is the exact bytes sent to the client so HIT and MISS payloads are identical.
type Outcome struct {
	Body        []byte
	Response    Response
	CacheStatus CacheStatus
}
