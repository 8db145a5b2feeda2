package curated

import (
	"time"

	"github.com/ChristinaDay/FabLab/internal/domain/job"
)

type jobRow struct {
	ID          string
	Title       string
	Company     string
	Location    string
	Description string
	Link        string
	Source      string
	PublishedAt *time.Time
	Tags        []string
}

// toDomain marks the row curated. A stored provider tag is kept as attribution.
func (r jobRow) toDomain() job.Job {
	src := job.Source(r.Source)
	if !src.IsProvider() {
		src = job.SourceCurated
	}
	j := job.Job{
		ID:          r.ID,
		Title:       r.Title,
		Company:     r.Company,
		Location:    r.Location,
		Description: r.Description,
		Link:        r.Link,
		Source:      src,
		Curated:     true,
		Tags:        r.Tags,
	}
	if r.PublishedAt != nil {
		j.PublishedAt = r.PublishedAt.UTC()
	}
	return j
}
