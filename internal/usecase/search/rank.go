package search

import (
	"sort"

	"github.com/ChristinaDay/FabLab/internal/domain/job"
	"github.com/ChristinaDay/FabLab/internal/domain/search/location"
	"github.com/ChristinaDay/FabLab/internal/domain/search/query"
)

// Ranking weights.
const (
	CuratedBoost    = 100
	QueryTermWeight = 1
)

// Rank orders jobs for display. Strict mode only drops jobs outside loc and keeps the
// merge order; otherwise jobs are scored and stably sorted, best first.
func Rank(jobs []job.Job, q query.Query, loc location.Location, strict bool) []job.Job {
	if strict {
		if loc.IsEmpty() {
			return jobs
		}
		kept := make([]job.Job, 0, len(jobs))
		for _, j := range jobs {
			if loc.Matches(j.LocationText()) {
				kept = append(kept, j)
			}
		}
		return kept
	}

	type scored struct {
		job   job.Job
		score int
	}
	items := make([]scored, len(jobs))
	for i, j := range jobs {
		items[i] = scored{job: j, score: Score(j, q, loc)}
	}
	// Curated jobs lead even if a long query pushes a plain job past CuratedBoost.
	sort.SliceStable(items, func(a, b int) bool {
		if items[a].job.Curated != items[b].job.Curated {
			return items[a].job.Curated
		}
		return items[a].score > items[b].score
	})

	out := make([]job.Job, len(items))
	for i, it := range items {
		out[i] = it.job
	}
	return out
}

// Score is the non-strict ranking score of j.
func Score(j job.Job, q query.Query, loc location.Location) int {
	s := loc.Score(j.LocationText()) + QueryTermWeight*q.CountMatches(j.Text())
	if j.Curated {
		s += CuratedBoost
	}
	return s
}

// paginate returns the page starting at offset, never nil.
func paginate(jobs []job.Job, offset, limit int) []job.Job {
	if offset < 0 || limit <= 0 || offset >= len(jobs) {
		return []job.Job{}
	}
	end := len(jobs)
	if limit < end-offset {
		end = offset + limit
	}
	return jobs[offset:end]
}
