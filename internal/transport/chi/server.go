// Package chi exposes the search pipeline over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ChristinaDay/FabLab/internal/domain"
	"github.com/ChristinaDay/FabLab/internal/domain/search/request"
	"github.com/ChristinaDay/FabLab/internal/logger"
	healthuc "github.com/ChristinaDay/FabLab/internal/usecase/health"
	"github.com/ChristinaDay/FabLab/internal/usecase/ratelimit"
	searchuc "github.com/ChristinaDay/FabLab/internal/usecase/search"
	"github.com/ChristinaDay/FabLab/internal/version"
)

// Error codes sent in ErrorResponse.
const (
	CodeBadRequest  = "bad_request"
	CodeRateLimited = "rate_limited"
	CodeInternal    = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// RetryAfterSeconds is set on 429 responses.
	RetryAfterSeconds int `json:"retry_after_seconds,omitempty"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

// SearchCheckParams echoes the debug check input.
type SearchCheckParams struct {
	Query    string `json:"q"`
	Location string `json:"location"`
	Strict   bool   `json:"strict"`
	Page     int    `json:"page"`
	Radius   int    `json:"radius"`
}

// SearchCheckResponse is the GET /api/debug/search-check body.
type SearchCheckResponse struct {
	OK         bool              `json:"ok"`
	Status     int               `json:"status"`
	XCache     string            `json:"x_cache"`
	DurationMS int64             `json:"duration_ms"`
	TotalCount int               `json:"total_count"`
	Params     SearchCheckParams `json:"params"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the search API.
type Server struct {
	search        *searchuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search *searchuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		search: search,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		rateLimitHandler,
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeBadRequest),
	}
	return s
}

// Mount registers the API routes on r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/api/jobs/search", s.SearchJobs)
	r.Get("/api/debug/search-check", s.SearchCheck)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// SearchJobs handles GET /api/jobs/search.
func (s *Server) SearchJobs(w http.ResponseWriter, r *http.Request) {
	in, err := searchInputFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request: "+err.Error())
		return
	}
	req, err := request.New(in)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	client := ClientID(r)
	ctx := logger.WithFields(r.Context(), zap.String("client", client))
	out, err := s.search.Search(ctx, client, req)
	if err != nil {
		s.handleDomainError(w, r.WithContext(ctx), err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", string(out.CacheStatus))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Body)
}

// SearchCheck handles GET /api/debug/search-check. It runs one search through the
// cache and reports how it was served instead of the jobs themselves.
func (s *Server) SearchCheck(w http.ResponseWriter, r *http.Request) {
	in, err := searchInputFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request: "+err.Error())
		return
	}
	resp := SearchCheckResponse{
		Status: http.StatusOK,
		XCache: "NONE",
		Params: SearchCheckParams{
			Query:    in.Query,
			Location: in.Location,
			Strict:   in.Strict,
			Page:     in.Page,
			Radius:   in.Radius,
		},
	}

	started := time.Now()
	req, err := request.New(in)
	if err == nil {
		var out searchOutcome
		out, err = s.runSearch(r, req)
		if err == nil {
			resp.XCache = out.cache
			resp.TotalCount = out.total
		}
	}
	resp.DurationMS = time.Since(started).Milliseconds()

	if err != nil {
		resp.Status = statusFor(err)
		logger.FromContextOr(r.Context(), s.logger).Warn("Search check failed", zap.Error(err))
	}
	resp.OK = resp.Status < http.StatusBadRequest
	writeJSON(w, http.StatusOK, resp)
}

type searchOutcome struct {
	cache string
	total int
}

func (s *Server) runSearch(r *http.Request, req request.Request) (searchOutcome, error) {
	out, err := s.search.Search(r.Context(), ClientID(r), req)
	if err != nil {
		return searchOutcome{}, err
	}
	return searchOutcome{cache: string(out.CacheStatus), total: out.Response.TotalCount}, nil
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Version: version.String(),
		Checks:  checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// ClientID identifies the caller for rate limiting: the first X-Forwarded-For hop,
// else the remote host.
func ClientID(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// searchInputFromQuery binds the query string. Short and long parameter names are
// both accepted; the long one wins.
func searchInputFromQuery(r *http.Request) (request.Input, error) {
	q := r.URL.Query()
	var in request.Input

	var err error
	if in.Query, err = bindAlias(q, "query", "q"); err != nil {
		return request.Input{}, err
	}
	if in.Location, err = bindAlias(q, "location", "loc"); err != nil {
		return request.Input{}, err
	}

	binds := []struct {
		name string
		dest any
	}{
		{"strict", &in.Strict},
		{"limit", &in.Limit},
		{"page", &in.Page},
		{"radius", &in.Radius},
		{"curated_only", &in.CuratedOnly},
		{"nocache", &in.BypassCache},
		{"refresh_terms", &in.RefreshTerms},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, false, b.name, q, b.dest); err != nil {
			return request.Input{}, err
		}
	}
	return in, nil
}

func bindAlias(q url.Values, names ...string) (string, error) {
	for _, name := range names {
		var v string
		if err := runtime.BindQueryParameter("form", true, false, name, q, &v); err != nil {
			return "", err
		}
		if strings.TrimSpace(v) != "" {
			return v, nil
		}
	}
	return "", nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidRequest) {
		// Validation messages name the offending parameter and nothing else.
		return err.Error()
	}
	sentinels := []error{
		domain.ErrRateLimited,
		domain.ErrInternal,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return domain.ErrInternal.Error()
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// rateLimitHandler handles ErrRateLimited with a Retry-After header.
func rateLimitHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrRateLimited) {
		return false
	}
	retry := int(domain.RateWindow / time.Second)
	var rle *ratelimit.Error
	if errors.As(err, &rle) {
		retry = retryAfterSeconds(rle.RetryAfter)
	}
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
		Code:              CodeRateLimited,
		Message:           msg,
		RetryAfterSeconds: retry,
	})
	return true
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, domain.ErrInternal.Error())
}
