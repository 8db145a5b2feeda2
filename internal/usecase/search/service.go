// Package search runs the job search pipeline: provider fan-out, relevance filter,
// curated merge, ranking, paging and the response cache.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ChristinaDay/FabLab/internal/domain"
	"github.com/ChristinaDay/FabLab/internal/domain/job"
	"github.com/ChristinaDay/FabLab/internal/domain/provider"
	"github.com/ChristinaDay/FabLab/internal/domain/search/location"
	"github.com/ChristinaDay/FabLab/internal/domain/search/query"
	"github.com/ChristinaDay/FabLab/internal/domain/search/request"
	"github.com/ChristinaDay/FabLab/internal/domain/search/response"
	"github.com/ChristinaDay/FabLab/internal/logger"
	"github.com/ChristinaDay/FabLab/internal/metrics"
	"github.com/ChristinaDay/FabLab/internal/usecase/relevance"
)

// DefaultProviderTimeout bounds a single provider call.
const DefaultProviderTimeout = 10 * time.Second

// Config tunes the pipeline.
type Config struct {
	ProviderTimeout time.Duration
	CuratedLimit    int
}

// Service is the search pipeline. One instance per process owns the cache and limiter.
type Service struct {
	providers []Provider
	curated   CuratedReader
	vocab     Vocabulary
	cache     Cache
	limiter   RateLimiter
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a search service. curated can be nil.
func New(
	providers []Provider, curated CuratedReader, vocab Vocabulary,
	cache Cache, limiter RateLimiter, cfg Config, logger *zap.Logger,
) *Service {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = DefaultProviderTimeout
	}
	if cfg.CuratedLimit <= 0 {
		cfg.CuratedLimit = domain.CuratedFetchLimit
	}
	return &Service{
		providers: providers,
		curated:   curated,
		vocab:     vocab,
		cache:     cache,
		limiter:   limiter,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Search admits the client, serves a cached payload when possible, and otherwise runs
// the pipeline. Provider and curated-store failures only shrink the result.
func (s *Service) Search(ctx context.Context, client string, req request.Request) (response.Outcome, error) {
	if err := s.limiter.Allow(client); err != nil {
		metrics.RateLimitedTotal.Inc()
		return response.Outcome{}, fmt.Errorf("client %s: %w", client, err)
	}

	var snap relevance.Snapshot
	if req.RefreshTerms() {
		snap = s.vocab.Refresh(ctx, true)
	} else {
		snap = s.vocab.Current(ctx)
	}
	key := req.CacheKey(snap.Generation)

	if !req.BypassCache() {
		out, ok, err := s.lookup(ctx, key)
		if err != nil {
			return response.Outcome{}, err
		}
		if ok {
			metrics.SearchCacheTotal.WithLabelValues("hit").Inc()
			return out, nil
		}
	}

	resp := s.run(ctx, req, snap)
	body, err := json.Marshal(resp)
	if err != nil {
		return response.Outcome{}, fmt.Errorf("%w: encode response: %w", domain.ErrInternal, err)
	}

	status := response.CacheBypass
	if !req.BypassCache() {
		status = response.CacheMiss
		if err := s.cache.Set(ctx, key, body); err != nil {
			s.log(ctx).Warn("Failed to cache search response", zap.Error(err))
		}
	}
	metrics.SearchCacheTotal.WithLabelValues(lowerStatus(status)).Inc()

	return response.Outcome{Body: body, Response: resp, CacheStatus: status}, nil
}

// lookup returns a cached outcome. A store outage is a miss; an undecodable entry
// is deleted and reported as an internal fault.
func (s *Service) lookup(ctx context.Context, key string) (response.Outcome, bool, error) {
	payload, ok, err := s.cache.Get(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrMalformedCacheEntry) {
		s.log(ctx).Warn("Search cache unavailable", zap.Error(err))
		return response.Outcome{}, false, nil
	}
	if err == nil && !ok {
		return response.Outcome{}, false, nil
	}

	var resp response.Response
	if err == nil {
		err = json.Unmarshal(payload, &resp)
	}
	if err != nil {
		if delErr := s.cache.Delete(ctx, key); delErr != nil {
			s.log(ctx).Warn("Failed to drop malformed cache entry", zap.Error(delErr))
		}
		return response.Outcome{}, false, fmt.Errorf("%w: %w: %w", domain.ErrInternal, domain.ErrMalformedCacheEntry, err)
	}
	return response.Outcome{Body: payload, Response: resp, CacheStatus: response.CacheHit}, true, nil
}

func (s *Service) run(ctx context.Context, req request.Request, snap relevance.Snapshot) response.Response {
	results, curated := s.fetch(ctx, req)

	var external []job.Job
	for i, r := range results {
		name := zap.String("provider", string(s.providers[i].Name()))
		switch r.Status() {
		case provider.StatusOK:
		case provider.StatusSkipped:
			s.log(ctx).Debug("Provider skipped", name)
			continue
		default:
			s.log(ctx).Warn("Provider degraded", name, zap.Error(r.Cause()))
			continue
		}
		external = append(external, r.Jobs()...)
	}
	originalCount := len(external)

	filtered, stats := snap.Filter(job.KeepLinked(external))

	q := query.Parse(req.Query())
	now := s.now()
	matched := make([]job.Job, 0, len(curated))
	for _, j := range job.KeepLinked(curated) {
		if q.Matches(j.Title + " " + j.Description) {
			matched = append(matched, j.Normalize(now))
		}
	}

	ranked := Rank(Merge(filtered, matched), q, location.Normalize(req.Location()), req.Strict())

	return response.Response{
		Jobs:           paginate(ranked, req.Offset(), req.Limit()),
		TotalCount:     len(ranked),
		OriginalCount:  originalCount,
		FilteredBefore: stats.Before,
		FilteredAfter:  stats.After,
		Params:         response.EchoParams(req),
	}
}

// fetch calls every provider and the curated store concurrently. Results are indexed
// by provider position so completion order never affects the output.
func (s *Service) fetch(ctx context.Context, req request.Request) ([]provider.Result, []job.Job) {
	g, gctx := errgroup.WithContext(ctx)

	var results []provider.Result
	if !req.CuratedOnly() {
		results = make([]provider.Result, len(s.providers))
		for i, p := range s.providers {
			g.Go(func() error {
				pctx, cancel := context.WithTimeout(gctx, s.cfg.ProviderTimeout)
				defer cancel()
				results[i] = p.Search(pctx, req.Query(), req.Location())
				return nil
			})
		}
	}

	var curated []job.Job
	if s.curated != nil {
		g.Go(func() error {
			jobs, err := s.curated.ListVisibleJobs(gctx, s.cfg.CuratedLimit)
			if err != nil {
				metrics.CuratedErrorsTotal.Inc()
				s.log(ctx).Warn("Curated store read failed", zap.Error(err))
				return nil
			}
			curated = jobs
			return nil
		})
	}

	_ = g.Wait()
	return results, curated
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return logger.FromContextOr(ctx, s.logger)
}

func lowerStatus(st response.CacheStatus) string {
	switch st {
	case response.CacheHit:
		return "hit"
	case response.CacheMiss:
		return "miss"
	default:
		return "bypass"
	}
}
