// Package curated reads moderated jobs and provider source queries from Postgres.
package curated

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ChristinaDay/FabLab/internal/domain/job"
)

// querier is the consumer interface over pgxpool.Pool (ISP).
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const listVisibleJobsSQL = `
SELECT id::text, coalesce(title, ''), coalesce(company, ''), coalesce(location, ''),
       coalesce(description, ''), coalesce(link, ''), coalesce(source, ''),
       published_at, coalesce(tags, '{}')
FROM jobs
WHERE visible = true
ORDER BY published_at DESC NULLS LAST
LIMIT $1`

const listActiveSourceQueriesSQL = `
SELECT org
FROM job_sources
WHERE active = true AND type IN ('adzuna', 'jsearch') AND coalesce(org, '') <> ''
ORDER BY org`

// Repo implements the curated reader and the source query lister.
type Repo struct {
	db querier
}

// New creates a curated repository.
func New(db querier) *Repo {
	return &Repo{db: db}
}

// ListVisibleJobs returns up to limit published jobs, newest first.
func (r *Repo) ListVisibleJobs(ctx context.Context, limit int) ([]job.Job, error) {
	rows, err := r.db.Query(ctx, listVisibleJobsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query visible jobs: %w", err)
	}
	defer rows.Close()

	var jobs []job.Job
	for rows.Next() {
		var row jobRow
		if err := rows.Scan(
			&row.ID, &row.Title, &row.Company, &row.Location,
			&row.Description, &row.Link, &row.Source, &row.PublishedAt, &row.Tags,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// ListActiveSourceQueries returns the query strings of active provider sources.
func (r *Repo) ListActiveSourceQueries(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, listActiveSourceQueriesSQL)
	if err != nil {
		return nil, fmt.Errorf("query job sources: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var org string
		if err := rows.Scan(&org); err != nil {
			return nil, fmt.Errorf("scan job source: %w", err)
		}
		out = append(out, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job sources: %w", err)
	}
	return out, nil
}
