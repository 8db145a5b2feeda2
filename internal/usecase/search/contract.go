package search

import (
	"context"

	"github.com/ChristinaDay/FabLab/internal/domain/job"
	"github.com/ChristinaDay/FabLab/internal/domain/provider"
	"github.com/ChristinaDay/FabLab/internal/usecase/relevance"
)

// Provider is one external job source. Search never fails; see provider.Result.
type Provider interface {
	Name() job.Source
	Search(ctx context.Context, query, location string) provider.Result
}

// CuratedReader reads moderated jobs.
type CuratedReader interface {
	ListVisibleJobs(ctx context.Context, limit int) ([]job.Job, error)
}

// Vocabulary supplies the relevance terms and their generation.
type Vocabulary interface {
	Current(ctx context.Context) relevance.Snapshot
	Refresh(ctx context.Context, force bool) relevance.Snapshot
}

// Cache stores encoded responses. Expired entries are reported as misses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
}

// RateLimiter admits or rejects a client request.
type RateLimiter interface {
	Allow(client string) error
}
