// Package relevance keeps off-topic postings out of search results.
package relevance

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ChristinaDay/FabLab/internal/domain"
	"github.com/ChristinaDay/FabLab/internal/metrics"
)

// ReloadTimeout bounds one source-query load.
const ReloadTimeout = 5 * time.Second

// Config tunes the vocabulary.
type Config struct {
	RefreshInterval time.Duration
	// ExtraTerms are added to DefaultPositiveTerms.
	ExtraTerms []string
	// NegativeTerms are added to DefaultNegativeTerms.
	NegativeTerms []string
	// SourceQueries feed dynamic terms when no SourceQueryLister is configured.
	SourceQueries []string
}

// Snapshot is an immutable view of the vocabulary.
type Snapshot struct {
	Positive   []string
	Negative   []string
	Generation uint64
}

// Vocabulary holds the positive and negative term lists. Dynamic terms are derived
// from the active source queries and reloaded at most once per RefreshInterval.
type Vocabulary struct {
	lister   SourceQueryLister
	base     []string
	fallback []string
	negative []string
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	group singleflight.Group

	mu         sync.RWMutex
	positive   []string
	generation uint64
	loadedAt   time.Time
}

// NewVocabulary creates a vocabulary. lister may be nil.
func NewVocabulary(lister SourceQueryLister, cfg Config, logger *zap.Logger) *Vocabulary {
	interval := cfg.RefreshInterval
	if interval <= 0 {
		interval = domain.VocabularyRefreshInterval
	}
	base := union(DefaultPositiveTerms, cfg.ExtraTerms)
	v := &Vocabulary{
		lister:     lister,
		base:       base,
		fallback:   cfg.SourceQueries,
		negative:   union(DefaultNegativeTerms, cfg.NegativeTerms),
		interval:   interval,
		logger:     logger,
		now:        time.Now,
		positive:   base,
		generation: 1,
	}
	if lister == nil {
		v.positive = union(base, DeriveTerms(cfg.SourceQueries))
	}
	return v
}

// Current returns the vocabulary, reloading dynamic terms first if they are stale.
func (v *Vocabulary) Current(ctx context.Context) Snapshot {
	return v.Refresh(ctx, false)
}

// Refresh reloads dynamic terms when stale or when force is set. It never fails:
// a lister error leaves only the static terms in place.
func (v *Vocabulary) Refresh(ctx context.Context, force bool) Snapshot {
	if !force && !v.stale() {
		return v.snapshot()
	}
	_, _, _ = v.group.Do("refresh", func() (any, error) {
		// Every waiter shares this reload, not just the caller that started it.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ReloadTimeout)
		defer cancel()
		v.reload(rctx)
		return nil, nil
	})
	return v.snapshot()
}

func (v *Vocabulary) stale() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loadedAt.IsZero() || v.now().Sub(v.loadedAt) >= v.interval
}

func (v *Vocabulary) snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return Snapshot{Positive: v.positive, Negative: v.negative, Generation: v.generation}
}

func (v *Vocabulary) reload(ctx context.Context) {
	queries := v.fallback
	outcome := "ok"
	if v.lister != nil {
		q, err := v.lister.ListActiveSourceQueries(ctx)
		if err != nil {
			v.logger.Warn("Vocabulary refresh failed, using static terms", zap.Error(err))
			q = nil
			outcome = "fallback"
		}
		queries = q
	}
	next := union(v.base, DeriveTerms(queries))

	v.mu.Lock()
	changed := !sameTerms(v.positive, next)
	if changed {
		v.positive = next
		v.generation++
	}
	v.loadedAt = v.now()
	gen := v.generation
	v.mu.Unlock()

	metrics.VocabularyRefreshTotal.WithLabelValues(outcome).Inc()
	metrics.VocabularyGeneration.Set(float64(gen))
	if changed {
		v.logger.Info("Vocabulary updated",
			zap.Int("positive_terms", len(next)),
			zap.Uint64("generation", gen),
		)
	}
}

func sameTerms(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	for _, t := range b {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}
