// Package adzuna is the job provider client for the Adzuna search API.
package adzuna

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ChristinaDay/FabLab/internal/domain/job"
	"github.com/ChristinaDay/FabLab/internal/domain/provider"
	"github.com/ChristinaDay/FabLab/internal/transport/jobhttp"
)

// Defaults.
const (
	DefaultBaseURL        = "https://api.adzuna.com"
	DefaultCountry        = "us"
	DefaultResultsPerPage = 100
)

// Config holds Adzuna credentials and request settings.
type Config struct {
	AppID          string
	AppKey         string
	Country        string
	BaseURL        string
	ResultsPerPage int
	HTTP           jobhttp.Config
}

// Client searches Adzuna. It never returns an error; failures come back as degraded results.
type Client struct {
	cfg    Config
	http   *jobhttp.Client
	logger *zap.Logger
	now    func() time.Time
}

// New creates an Adzuna client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Country == "" {
		cfg.Country = DefaultCountry
	}
	if cfg.ResultsPerPage <= 0 {
		cfg.ResultsPerPage = DefaultResultsPerPage
	}
	return &Client{
		cfg:    cfg,
		http:   jobhttp.New(job.SourceAdzuna, cfg.HTTP),
		logger: logger,
		now:    time.Now,
	}
}

// Name returns the provider tag.
func (c *Client) Name() job.Source { return job.SourceAdzuna }

// Search fetches the first result page for query and location.
func (c *Client) Search(ctx context.Context, query, location string) provider.Result {
	start := time.Now()
	if c.cfg.AppID == "" || c.cfg.AppKey == "" {
		return jobhttp.Observe(provider.NewSkipped(job.SourceAdzuna, jobhttp.ErrMissingCredentials), start)
	}

	var resp searchResponse
	if err := c.http.GetJSON(ctx, c.searchURL(query, location), nil, &resp); err != nil {
		c.logger.Warn("Adzuna search degraded", zap.Error(err))
		return jobhttp.Observe(provider.NewDegraded(job.SourceAdzuna, err), start)
	}

	now := c.now()
	jobs := make([]job.Job, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.RedirectURL == "" {
			continue
		}
		jobs = append(jobs, r.toDomain().Normalize(now))
	}
	return jobhttp.Observe(provider.NewOK(job.SourceAdzuna, jobs), start)
}

func (c *Client) searchURL(query, location string) string {
	params := url.Values{}
	params.Set("app_id", c.cfg.AppID)
	params.Set("app_key", c.cfg.AppKey)
	params.Set("results_per_page", strconv.Itoa(c.cfg.ResultsPerPage))
	if query != "" {
		params.Set("what", query)
	}
	if location != "" {
		params.Set("where", location)
	}
	return fmt.Sprintf("%s/v1/api/jobs/%s/search/1?%s", c.cfg.BaseURL, url.PathEscape(c.cfg.Country), params.Encode())
}

// searchResponse mirrors the Adzuna search response.
type searchResponse struct {
	Results []result `json:"results"`
}

type result struct {
	ID          json.RawMessage `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Company     struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
	RedirectURL string `json:"redirect_url"`
	Created     string `json:"created"`
}

func (r result) toDomain() job.Job {
	id := rawID(r.ID)
	if id == "" {
		id = r.RedirectURL
	}
	j := job.Job{
		ID:          id,
		Title:       r.Title,
		Company:     r.Company.DisplayName,
		Location:    r.Location.DisplayName,
		Description: r.Description,
		Link:        r.RedirectURL,
		Source:      job.SourceAdzuna,
	}
	if ts, err := time.Parse(time.RFC3339, r.Created); err == nil {
		j.PublishedAt = ts.UTC()
	}
	return j
}

// rawID accepts both string and numeric ids.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
