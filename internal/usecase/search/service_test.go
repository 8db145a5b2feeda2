package search

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ChristinaDay/FabLab/internal/domain"
	"github.com/ChristinaDay/FabLab/internal/domain/job"
	"github.com/ChristinaDay/FabLab/internal/domain/provider"
	"github.com/ChristinaDay/FabLab/internal/domain/search/request"
	"github.com/ChristinaDay/FabLab/internal/domain/search/response"
	"github.com/ChristinaDay/FabLab/internal/logger"
	"github.com/ChristinaDay/FabLab/internal/usecase/relevance"
)

// --- Mocks ---

type mockProvider struct {
	name   job.Source
	jobs   []job.Job
	result *provider.Result
	delay  time.Duration
	calls  int
	mu     sync.Mutex
}

func (m *mockProvider) Name() job.Source { return m.name }

func (m *mockProvider) Search(ctx context.Context, _, _ string) provider.Result {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return provider.NewDegraded(m.name, ctx.Err())
		}
	}
	if m.result != nil {
		return *m.result
	}
	return provider.NewOK(m.name, m.jobs)
}

type mockCurated struct {
	jobs []job.Job
	err  error
}

func (m *mockCurated) ListVisibleJobs(_ context.Context, _ int) ([]job.Job, error) {
	out := make([]job.Job, len(m.jobs))
	copy(out, m.jobs)
	return out, m.err
}

type mockVocab struct {
	snap      relevance.Snapshot
	refreshed bool
}

func (m *mockVocab) Current(_ context.Context) relevance.Snapshot { return m.snap }

func (m *mockVocab) Refresh(_ context.Context, _ bool) relevance.Snapshot {
	m.refreshed = true
	m.snap.Generation++
	return m.snap
}

type mockCache struct {
	entries map[string][]byte
	getErr  error
	gets    int
	sets    int
	deleted []string
}

func newMockCache() *mockCache {
	return &mockCache{entries: map[string][]byte{}}
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.gets++
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	b, ok := m.entries[key]
	return b, ok, nil
}

func (m *mockCache) Set(_ context.Context, key string, payload []byte) error {
	m.sets++
	m.entries[key] = payload
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.entries, key)
	return nil
}

type mockLimiter struct {
	err     error
	clients []string
}

func (m *mockLimiter) Allow(client string) error {
	m.clients = append(m.clients, client)
	return m.err
}

// --- Helpers ---

func testSnapshot() relevance.Snapshot {
	return relevance.Snapshot{
		Positive:   []string{"welder", "welding", "fabricator", "metal fabricator"},
		Negative:   []string{"nurse", "cashier"},
		Generation: 1,
	}
}

type fixture struct {
	adzuna  *mockProvider
	jsearch *mockProvider
	curated *mockCurated
	vocab   *mockVocab
	cache   *mockCache
	limiter *mockLimiter
	cfg     Config
}

func newFixture() *fixture {
	return &fixture{
		adzuna:  &mockProvider{name: job.SourceAdzuna},
		jsearch: &mockProvider{name: job.SourceJSearch},
		curated: &mockCurated{},
		vocab:   &mockVocab{snap: testSnapshot()},
		cache:   newMockCache(),
		limiter: &mockLimiter{},
	}
}

func (f *fixture) service() *Service {
	return New(
		[]Provider{f.adzuna, f.jsearch}, f.curated, f.vocab,
		f.cache, f.limiter, f.cfg, zap.NewNop(),
	)
}

func mustRequest(t *testing.T, in request.Input) request.Request {
	t.Helper()
	r, err := request.New(in)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return r
}

func links(jobs []job.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.Link
	}
	return out
}

// --- Tests ---

func TestSearch_CuratedWelderOutranksExternalJobs(t *testing.T) {
	f := newFixture()
	f.adzuna.jobs = []job.Job{
		{
			Title: "Metal Fabricator", Company: "Shop A", Location: "",
			Description: "Shop floor role, day shift.", Link: "https://a.example/nowhere", Source: job.SourceAdzuna,
		},
		{
			Title: "Metal Fabricator", Company: "Shop B", Location: "Chicago, IL",
			Description: "Shop floor role, day shift.", Link: "https://a.example/chicago", Source: job.SourceAdzuna,
		},
	}
	f.curated.jobs = []job.Job{
		{
			Title: "TIG Welder", Company: "Bay Works", Location: "Austin, TX",
			Description: "Experienced welder for custom frames.", Link: "https://fablab.example/1",
			Source: job.SourceCurated, Curated: true,
		},
		{
			Title: "Painter", Company: "Bay Works", Location: "San Francisco, CA",
			Description: "Spray booth work.", Link: "https://fablab.example/2",
			Source: job.SourceCurated, Curated: true,
		},
	}

	req := mustRequest(t, request.Input{
		Query:    `welder OR "metal fabricator"`,
		Location: "San Francisco, CA",
	})
	out, err := f.service().Search(context.Background(), "1.2.3.4", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := links(out.Response.Jobs)
	want := []string{"https://fablab.example/1", "https://a.example/chicago", "https://a.example/nowhere"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, got[i], want[i])
		}
	}
	if out.CacheStatus != response.CacheMiss {
		t.Errorf("expected MISS, got %s", out.CacheStatus)
	}
	if out.Response.OriginalCount != 2 || out.Response.TotalCount != 3 {
		t.Errorf("counts: original=%d total=%d", out.Response.OriginalCount, out.Response.TotalCount)
	}
	if out.Response.Params.Location != "San Francisco, CA" {
		t.Errorf("params echo: %+v", out.Response.Params)
	}
}

func TestSearch_CacheHitReturnsIdenticalBody(t *testing.T) {
	f := newFixture()
	f.adzuna.jobs = []job.Job{{Title: "Welder", Link: "https://a.example/1", Source: job.SourceAdzuna}}
	svc := f.service()
	req := mustRequest(t, request.Input{Query: "welder"})

	first, err := svc.Search(context.Background(), "c", req)
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	second, err := svc.Search(context.Background(), "c", req)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}

	if second.CacheStatus != response.CacheHit {
		t.Errorf("expected HIT, got %s", second.CacheStatus)
	}
	if !bytes.Equal(first.Body, second.Body) {
		t.Error("cached body differs from the original")
	}
	if f.adzuna.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", f.adzuna.calls)
	}
}

func TestSearch_BypassSkipsCache(t *testing.T) {
	f := newFixture()
	req := mustRequest(t, request.Input{Query: "welder", BypassCache: true})

	out, err := f.service().Search(context.Background(), "c", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.CacheStatus != response.CacheBypass {
		t.Errorf("expected BYPASS, got %s", out.CacheStatus)
	}
	if f.cache.gets != 0 || f.cache.sets != 0 {
		t.Errorf("cache touched: gets=%d sets=%d", f.cache.gets, f.cache.sets)
	}
}

func TestSearch_MalformedEntryDeleted(t *testing.T) {
	f := newFixture()
	req := mustRequest(t, request.Input{Query: "welder"})
	key := req.CacheKey(f.vocab.snap.Generation)
	f.cache.entries[key] = []byte("{not json")

	_, err := f.service().Search(context.Background(), "c", req)
	if !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
	if len(f.cache.deleted) != 1 || f.cache.deleted[0] != key {
		t.Errorf("expected %s deleted, got %v", key, f.cache.deleted)
	}
}

func TestSearch_MalformedEntryFromStore(t *testing.T) {
	f := newFixture()
	f.cache.getErr = domain.ErrMalformedCacheEntry
	req := mustRequest(t, request.Input{Query: "welder"})

	_, err := f.service().Search(context.Background(), "c", req)
	if !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
	if len(f.cache.deleted) != 1 {
		t.Errorf("expected entry deleted, got %v", f.cache.deleted)
	}
}

func TestSearch_CacheOutageIsMiss(t *testing.T) {
	f := newFixture()
	f.cache.getErr = errors.New("connection refused")
	req := mustRequest(t, request.Input{Query: "welder"})

	out, err := f.service().Search(context.Background(), "c", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.CacheStatus != response.CacheMiss {
		t.Errorf("expected MISS, got %s", out.CacheStatus)
	}
}

func TestSearch_RateLimited(t *testing.T) {
	f := newFixture()
	f.limiter.err = domain.ErrRateLimited
	req := mustRequest(t, request.Input{Query: "welder"})

	_, err := f.service().Search(context.Background(), "9.9.9.9", req)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if f.adzuna.calls != 0 || f.cache.gets != 0 {
		t.Error("rejected request reached the pipeline")
	}
	if len(f.limiter.clients) != 1 || f.limiter.clients[0] != "9.9.9.9" {
		t.Errorf("limiter saw %v", f.limiter.clients)
	}
}

func TestSearch_DegradedProviderAbsorbed(t *testing.T) {
	f := newFixture()
	degraded := provider.NewDegraded(job.SourceAdzuna, errors.New("HTTP 503"))
	f.adzuna.result = &degraded
	f.jsearch.jobs = []job.Job{{Title: "Welder", Link: "https://j.example/1", Source: job.SourceJSearch}}

	out, err := f.service().Search(context.Background(), "c", mustRequest(t, request.Input{Query: "welder"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Response.Jobs) != 1 || out.Response.Jobs[0].Source != job.SourceJSearch {
		t.Errorf("unexpected jobs: %v", links(out.Response.Jobs))
	}
}

func TestSearch_DegradedProviderLogged(t *testing.T) {
	f := newFixture()
	degraded := provider.NewDegraded(job.SourceAdzuna, errors.New("HTTP 503"))
	f.adzuna.result = &degraded

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logger.ContextWithLogger(context.Background(), zap.New(core))
	if _, err := f.service().Search(ctx, "c", mustRequest(t, request.Input{Query: "welder"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := logs.FilterMessage("Provider degraded").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 degraded entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["provider"]; got != string(job.SourceAdzuna) {
		t.Errorf("provider field = %v", got)
	}
}

func TestSearch_ProviderTimeout(t *testing.T) {
	f := newFixture()
	f.cfg.ProviderTimeout = 20 * time.Millisecond
	f.adzuna.delay = time.Second
	f.adzuna.jobs = []job.Job{{Title: "Welder", Link: "https://a.example/slow", Source: job.SourceAdzuna}}
	f.jsearch.jobs = []job.Job{{Title: "Welder", Link: "https://j.example/fast", Source: job.SourceJSearch}}

	start := time.Now()
	out, err := f.service().Search(context.Background(), "c", mustRequest(t, request.Input{Query: "welder"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("search waited %v for a slow provider", elapsed)
	}
	got := links(out.Response.Jobs)
	if len(got) != 1 || got[0] != "https://j.example/fast" {
		t.Errorf("unexpected jobs: %v", got)
	}
}

func TestSearch_CuratedErrorAbsorbed(t *testing.T) {
	f := newFixture()
	f.curated.err = errors.New("db down")
	f.adzuna.jobs = []job.Job{{Title: "Welder", Link: "https://a.example/1", Source: job.SourceAdzuna}}

	out, err := f.service().Search(context.Background(), "c", mustRequest(t, request.Input{Query: "welder"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Response.Jobs) != 1 {
		t.Errorf("expected external job only, got %v", links(out.Response.Jobs))
	}
}

func TestSearch_NilCuratedReader(t *testing.T) {
	f := newFixture()
	f.adzuna.jobs = []job.Job{{Title: "Welder", Link: "https://a.example/1", Source: job.SourceAdzuna}}
	svc := New([]Provider{f.adzuna}, nil, f.vocab, f.cache, f.limiter, Config{}, zap.NewNop())

	out, err := svc.Search(context.Background(), "c", mustRequest(t, request.Input{Query: "welder"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Response.Jobs) != 1 {
		t.Errorf("got %v", links(out.Response.Jobs))
	}
}

func TestSearch_CuratedOnlySkipsProviders(t *testing.T) {
	f := newFixture()
	f.adzuna.jobs = []job.Job{{Title: "Welder", Link: "https://a.example/1", Source: job.SourceAdzuna}}
	f.curated.jobs = []job.Job{{Title: "Welder", Link: "https://fablab.example/1", Source: job.SourceCurated, Curated: true}}

	out, err := f.service().Search(context.Background(), "c",
		mustRequest(t, request.Input{Query: "welder", CuratedOnly: true}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.adzuna.calls != 0 || f.jsearch.calls != 0 {
		t.Error("providers called in curated-only mode")
	}
	if len(out.Response.Jobs) != 1 || !out.Response.Jobs[0].Curated {
		t.Errorf("got %v", links(out.Response.Jobs))
	}
}

func TestSearch_CuratedMustMatchQuery(t *testing.T) {
	f := newFixture()
	f.curated.jobs = []job.Job{
		{Title: "Welder", Link: "https://fablab.example/1", Curated: true, Source: job.SourceCurated},
		{Title: "Machinist", Link: "https://fablab.example/2", Curated: true, Source: job.SourceCurated},
	}

	out, err := f.service().Search(context.Background(), "c", mustRequest(t, request.Input{Query: "welder"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := links(out.Response.Jobs)
	if len(got) != 1 || got[0] != "https://fablab.example/1" {
		t.Errorf("got %v", got)
	}
}

func TestSearch_RelevanceFilterCounts(t *testing.T) {
	f := newFixture()
	f.adzuna.jobs = []job.Job{
		{Title: "Welder", Link: "https://a.example/1"},
		{Title: "Night Nurse", Link: "https://a.example/2"},
		{Title: "Welder", Link: ""},
	}

	out, err := f.service().Search(context.Background(), "c", mustRequest(t, request.Input{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := out.Response
	if r.OriginalCount != 3 || r.FilteredBefore != 2 || r.FilteredAfter != 1 {
		t.Errorf("counts: original=%d before=%d after=%d", r.OriginalCount, r.FilteredBefore, r.FilteredAfter)
	}
}

func TestSearch_DedupByLink(t *testing.T) {
	f := newFixture()
	shared := "https://shared.example/job"
	f.adzuna.jobs = []job.Job{{Title: "Welder", Link: shared, Source: job.SourceAdzuna}}
	f.jsearch.jobs = []job.Job{{Title: "Welder II", Link: shared, Source: job.SourceJSearch}}
	f.curated.jobs = []job.Job{{Title: "Welder (curated)", Link: shared, Source: job.SourceCurated, Curated: true}}

	out, err := f.service().Search(context.Background(), "c", mustRequest(t, request.Input{Query: "welder"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Response.Jobs) != 1 {
		t.Fatalf("expected 1 job, got %v", links(out.Response.Jobs))
	}
	got := out.Response.Jobs[0]
	if !got.Curated || got.Title != "Welder (curated)" || got.Source != job.SourceAdzuna {
		t.Errorf("unexpected merge result: %+v", got)
	}
}

func TestSearch_CuratedDescriptionTruncated(t *testing.T) {
	f := newFixture()
	f.curated.jobs = []job.Job{{
		Title: "Welder", Description: strings.Repeat("x", 3000),
		Link: "https://fablab.example/1", Curated: true, Source: job.SourceCurated,
	}}

	out, err := f.service().Search(context.Background(), "c", mustRequest(t, request.Input{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(out.Response.Jobs[0].Description); n != domain.MaxDescriptionLength {
		t.Errorf("expected %d chars, got %d", domain.MaxDescriptionLength, n)
	}
}

func TestSearch_Paging(t *testing.T) {
	f := newFixture()
	for _, l := range []string{"1", "2", "3", "4", "5"} {
		f.adzuna.jobs = append(f.adzuna.jobs, job.Job{Title: "Welder", Link: "https://a.example/" + l})
	}

	out, err := f.service().Search(context.Background(), "c",
		mustRequest(t, request.Input{Limit: 2, Page: 3}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := links(out.Response.Jobs)
	if len(got) != 1 || got[0] != "https://a.example/5" {
		t.Errorf("got %v", got)
	}
	if out.Response.TotalCount != 5 {
		t.Errorf("total: %d", out.Response.TotalCount)
	}
}

func TestSearch_RefreshTermsChangesKey(t *testing.T) {
	f := newFixture()
	svc := f.service()

	if _, err := svc.Search(context.Background(), "c", mustRequest(t, request.Input{Query: "welder"})); err != nil {
		t.Fatalf("first search: %v", err)
	}
	out, err := svc.Search(context.Background(), "c",
		mustRequest(t, request.Input{Query: "welder", RefreshTerms: true}))
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if !f.vocab.refreshed {
		t.Error("vocabulary not refreshed")
	}
	if out.CacheStatus != response.CacheMiss {
		t.Errorf("expected MISS after generation bump, got %s", out.CacheStatus)
	}
}
