// Package jobhttp is the shared HTTP plumbing of the job provider clients.
package jobhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/ChristinaDay/FabLab/internal/domain/job"
	"github.com/ChristinaDay/FabLab/internal/domain/provider"
	"github.com/ChristinaDay/FabLab/internal/metrics"
)

// Defaults.
const (
	DefaultTimeout   = 8 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (compatible; FabLabJobs/1.0)"
	maxBodyBytes     = 8 << 20
)

// ErrMissingCredentials marks a provider that was skipped because it is not configured.
var ErrMissingCredentials = errors.New("missing credentials")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("unexpected status %d", e.Code) }

// Config holds transport settings shared by every provider.
type Config struct {
	Timeout time.Duration
	// RequestsPerSecond throttles outbound calls to protect the provider quota. Zero disables it.
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
}

// Client performs throttled JSON GETs for one provider.
type Client struct {
	provider  job.Source
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// New creates a client for provider p.
func New(p job.Source, cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	c := &Client{
		provider:  p,
		http:      &http.Client{Timeout: timeout},
		userAgent: ua,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// GetJSON waits for the outbound limiter, issues a GET, and decodes a 2xx JSON body into out.
// Transport errors carry the URL without its query string, which may hold credentials.
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("outbound rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", redact(err))
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http GET: %w", redact(err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &StatusError{Code: resp.StatusCode}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// redact strips the query and userinfo from the URL of a *url.Error.
func redact(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	clean := *urlErr
	clean.URL = redactURL(urlErr.URL)
	return &clean
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<redacted>"
	}
	u.User = nil
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	return u.String()
}

// Observe records provider metrics for r and returns it unchanged.
func Observe(r provider.Result, start time.Time) provider.Result {
	p := string(r.Provider())
	metrics.ProviderRequestsTotal.WithLabelValues(p, string(r.Status())).Inc()
	if r.Status() != provider.StatusSkipped {
		metrics.ProviderRequestDuration.WithLabelValues(p).Observe(time.Since(start).Seconds())
	}
	metrics.ProviderJobsTotal.WithLabelValues(p).Add(float64(len(r.Jobs())))
	return r
}
