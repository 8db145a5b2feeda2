// Package jsearch is the job provider client for the JSearch API on RapidAPI.
package jsearch

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ChristinaDay/FabLab/internal/domain/job"
	"github.com/ChristinaDay/FabLab/internal/domain/provider"
	"github.com/ChristinaDay/FabLab/internal/domain/text"
	"github.com/ChristinaDay/FabLab/internal/transport/jobhttp"
)

// DefaultHost is the RapidAPI host of JSearch.
const DefaultHost = "jsearch.p.rapidapi.com"

const (
	highlightItems   = 3
	highlightItemSep = " • "
	highlightSep     = " | "
)

var highlightSections = []string{"Qualifications", "Responsibilities", "Benefits"}

// Config holds JSearch credentials and request settings.
type Config struct {
	APIKey string
	Host   string
	// BaseURL overrides https://{Host}.
	BaseURL string
	HTTP    jobhttp.Config
}

// Client searches JSearch. It never returns an error; failures come back as degraded results.
type Client struct {
	cfg    Config
	http   *jobhttp.Client
	logger *zap.Logger
	now    func() time.Time
}

// New creates a JSearch client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://" + cfg.Host
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:    cfg,
		http:   jobhttp.New(job.SourceJSearch, cfg.HTTP),
		logger: logger,
		now:    time.Now,
	}
}

// Name returns the provider tag.
func (c *Client) Name() job.Source { return job.SourceJSearch }

// Search fetches one page of results for query and location.
func (c *Client) Search(ctx context.Context, query, location string) provider.Result {
	start := time.Now()
	if c.cfg.APIKey == "" {
		return jobhttp.Observe(provider.NewSkipped(job.SourceJSearch, jobhttp.ErrMissingCredentials), start)
	}

	header := http.Header{}
	header.Set("X-RapidAPI-Key", c.cfg.APIKey)
	header.Set("X-RapidAPI-Host", c.cfg.Host)

	var resp searchResponse
	if err := c.http.GetJSON(ctx, c.searchURL(query, location), header, &resp); err != nil {
		c.logger.Warn("JSearch search degraded", zap.Error(err))
		return jobhttp.Observe(provider.NewDegraded(job.SourceJSearch, err), start)
	}

	now := c.now()
	jobs := make([]job.Job, 0, len(resp.Data))
	for _, d := range resp.Data {
		j := d.toDomain()
		if j.Link == "" {
			continue
		}
		jobs = append(jobs, j.Normalize(now))
	}
	return jobhttp.Observe(provider.NewOK(job.SourceJSearch, jobs), start)
}

func (c *Client) searchURL(query, location string) string {
	params := url.Values{}
	if query != "" {
		params.Set("query", query)
	}
	if location != "" {
		params.Set("location", location)
	}
	params.Set("page", "1")
	params.Set("num_pages", "1")
	return c.cfg.BaseURL + "/search?" + params.Encode()
}

// searchResponse mirrors the JSearch /search response.
type searchResponse struct {
	Data []item `json:"data"`
}

type item struct {
	JobID             string              `json:"job_id"`
	Title             string              `json:"job_title"`
	Employer          string              `json:"employer_name"`
	City              string              `json:"job_city"`
	Location          string              `json:"job_location"`
	Description       string              `json:"job_description"`
	ApplyLink         string              `json:"job_apply_link"`
	GoogleLink        string              `json:"job_google_link"`
	PostedAtUTC       string              `json:"job_posted_at_datetime_utc"`
	PostedAtTimestamp int64               `json:"job_posted_at_timestamp"`
	Highlights        map[string][]string `json:"job_highlights"`
}

func (it item) toDomain() job.Job {
	link := it.ApplyLink
	if link == "" {
		link = it.GoogleLink
	}
	loc := it.City
	if loc == "" {
		loc = it.Location
	}
	id := it.JobID
	if id == "" {
		id = link
	}
	return job.Job{
		ID:          id,
		Title:       it.Title,
		Company:     it.Employer,
		Location:    loc,
		Description: snippet(it.Highlights, it.Description),
		Link:        link,
		Source:      job.SourceJSearch,
		PublishedAt: it.postedAt(),
	}
}

func (it item) postedAt() time.Time {
	if ts, err := time.Parse(time.RFC3339, it.PostedAtUTC); err == nil {
		return ts.UTC()
	}
	if it.PostedAtTimestamp > 0 {
		return time.Unix(it.PostedAtTimestamp, 0).UTC()
	}
	return time.Time{}
}

// snippet collapses the highlight sections into one line, falling back to the description.
func snippet(highlights map[string][]string, description string) string {
	blocks := make([]string, 0, len(highlightSections))
	for _, key := range highlightSections {
		items := highlights[key]
		if len(items) == 0 {
			continue
		}
		if len(items) > highlightItems {
			items = items[:highlightItems]
		}
		blocks = append(blocks, strings.Join(items, highlightItemSep))
	}
	if s := strings.Join(blocks, highlightSep); s != "" {
		return s
	}
	return text.CollapseSpace(description)
}
