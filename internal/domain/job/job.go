// Package job defines the normalized job posting shared by every provider and the curated store.
package job

import (
	"time"

	"github.com/ChristinaDay/FabLab/internal/domain"
	"github.com/ChristinaDay/FabLab/internal/domain/text"
)

// Source is the provider tag attached to a job.
type Source string

// Known sources.
const (
	SourceAdzuna  Source = "adzuna"
	SourceJSearch Source = "jsearch"
	SourceCurated Source = "curated"
)

// IsProvider reports whether s names an external provider.
func (s Source) IsProvider() bool {
	return s == SourceAdzuna || s == SourceJSearch
}

// Job is a normalized posting. Link is the deduplication key.
type Job struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	Source      Source    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Curated     bool      `json:"curated"`
	Tags        []string  `json:"tags,omitempty"`
}

// Normalize collapses whitespace, bounds the description, and fills ID and PublishedAt.
func (j Job) Normalize(now time.Time) Job {
	j.Title = text.CollapseSpace(j.Title)
	j.Company = text.CollapseSpace(j.Company)
	j.Location = text.CollapseSpace(j.Location)
	j.Description = text.Truncate(text.CollapseSpace(j.Description), domain.MaxDescriptionLength)
	if j.PublishedAt.IsZero() {
		j.PublishedAt = now.UTC()
	}
	if j.ID == "" {
		j.ID = j.Link
	}
	return j
}

// Text returns the title, company and description joined for term matching.
func (j Job) Text() string {
	return j.Title + " " + j.Company + " " + j.Description
}

// LocationText returns the haystack used for location matching.
func (j Job) LocationText() string {
	return j.Location + " " + j.Description
}

// KeepLinked drops jobs without a link. The input slice is reused.
func KeepLinked(jobs []Job) []Job {
	out := jobs[:0]
	for _, j := range jobs {
		if j.Link != "" {
			out = append(out, j)
		}
	}
	return out
}
