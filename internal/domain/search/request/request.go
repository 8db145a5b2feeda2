// Package request holds the normalized job search parameters.
package request

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/ChristinaDay/FabLab/internal/domain"
	"github.com/ChristinaDay/FabLab/internal/domain/text"
)

// Input limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength    = 512
	MaxLocationLength = 256
	MaxRadius         = 500
	// MaxPage bounds the page number so Offset cannot overflow.
	MaxPage = 1000
)

// Input is the raw, unvalidated parameter set.
type Input struct {
	Query        string
	Location     string
	Strict       bool
	Limit        int
	Page         int
	Radius       int
	CuratedOnly  bool
	BypassCache  bool
	RefreshTerms bool
}

// Request is a validated search request.
type Request struct {
	query        string
	location     string
	strict       bool
	limit        int
	page         int
	radius       int
	curatedOnly  bool
	bypassCache  bool
	refreshTerms bool
}

// New validates and normalizes search parameters.
// Defaults: limit=50 capped at 200, page=1. Radius is advisory.
func New(in Input) (Request, error) {
	q := text.CollapseSpace(in.Query)
	loc := text.CollapseSpace(in.Location)
	if len(q) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}
	if len(loc) > MaxLocationLength {
		return Request{}, fmt.Errorf("%w: location too long (max %d chars)", domain.ErrInvalidRequest, MaxLocationLength)
	}
	if in.Radius < 0 || in.Radius > MaxRadius {
		return Request{}, fmt.Errorf("%w: radius must be between 0 and %d", domain.ErrInvalidRequest, MaxRadius)
	}

	limit := in.Limit
	if limit <= 0 {
		limit = domain.DefaultLimit
	}
	if limit > domain.MaxLimit {
		limit = domain.MaxLimit
	}
	page := in.Page
	if page <= 0 {
		page = 1
	}
	if page > MaxPage {
		return Request{}, fmt.Errorf("%w: page must be at most %d", domain.ErrInvalidRequest, MaxPage)
	}

	return Request{
		query:        q,
		location:     loc,
		strict:       in.Strict,
		limit:        limit,
		page:         page,
		radius:       in.Radius,
		curatedOnly:  in.CuratedOnly,
		bypassCache:  in.BypassCache,
		refreshTerms: in.RefreshTerms,
	}, nil
}

// Query returns the whitespace-normalized query.
func (r Request) Query() string { return r.query }

// Location returns the whitespace-normalized location.
func (r Request) Location() string { return r.location }

// Strict reports whether location must hard-match.
func (r Request) Strict() bool { return r.strict }

// Limit returns the page size.
func (r Request) Limit() int { return r.limit }

// Page returns the 1-based page number.
func (r Request) Page() int { return r.page }

// Offset returns the index of the first result on the page.
func (r Request) Offset() int { return (r.page - 1) * r.limit }

// Radius returns the advisory radius in miles.
func (r Request) Radius() int { return r.radius }

// CuratedOnly reports whether external providers are skipped.
func (r Request) CuratedOnly() bool { return r.curatedOnly }

// BypassCache reports whether the cache is neither read nor written.
func (r Request) BypassCache() bool { return r.bypassCache }

// RefreshTerms reports whether the relevance vocabulary must be reloaded first.
func (r Request) RefreshTerms() bool { return r.refreshTerms }

// CacheKey derives the response cache key. The vocabulary generation is part of the key
// so a term change invalidates older entries.
func (r Request) CacheKey(generation uint64) string {
	fields := []string{
		text.Fold(r.query),
		text.Fold(r.location),
		strconv.FormatBool(r.strict),
		strconv.Itoa(r.limit),
		strconv.Itoa(r.page),
		strconv.Itoa(r.radius),
		strconv.FormatBool(r.curatedOnly),
		strconv.FormatUint(generation, 10),
	}
	sum := sha256.Sum256([]byte(strings.Join(fields, "\x1f")))
	return "search:" + hex.EncodeToString(sum[:])
}
