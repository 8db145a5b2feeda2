package relevance

import (
	"strings"

	"github.com/ChristinaDay/FabLab/internal/domain/job"
	"github.com/ChristinaDay/FabLab/internal/domain/text"
	"github.com/ChristinaDay/FabLab/internal/metrics"
)

// Scoring weights.
const (
	PhraseWeight = 2
	WordWeight   = 1
	// StrongScore is the score at which a negative term no longer drops a job.
	StrongScore = 2
)

// Stats reports the filter input and output sizes.
type Stats struct {
	Before int
	After  int
}

// Score returns the positive score of j and whether a negative term occurs in it.
func (s Snapshot) Score(j job.Job) (score int, negative bool) {
	h := newHaystack(j.Text())
	for _, t := range s.Positive {
		if !h.has(t) {
			continue
		}
		if isPhrase(t) {
			score += PhraseWeight
		} else {
			score += WordWeight
		}
	}
	for _, t := range s.Negative {
		if h.has(t) {
			negative = true
			break
		}
	}
	return score, negative
}

// Keep reports whether j is on-topic. A negative term only drops weak matches.
func (s Snapshot) Keep(j job.Job) bool {
	score, negative := s.Score(j)
	if score <= 0 {
		return false
	}
	return !negative || score >= StrongScore
}

// Filter returns the on-topic jobs in their original order.
func (s Snapshot) Filter(jobs []job.Job) ([]job.Job, Stats) {
	kept := make([]job.Job, 0, len(jobs))
	for _, j := range jobs {
		if s.Keep(j) {
			kept = append(kept, j)
		}
	}
	metrics.RelevanceFilteredTotal.WithLabelValues("kept").Add(float64(len(kept)))
	metrics.RelevanceFilteredTotal.WithLabelValues("dropped").Add(float64(len(jobs) - len(kept)))
	return kept, Stats{Before: len(jobs), After: len(kept)}
}

// haystack indexes a folded text for term lookups. Single words match whole word parts,
// their plural forms, and any substring of a compound token such as "cnc-machinist".
type haystack struct {
	full      string
	parts     map[string]struct{}
	compounds []string
}

func newHaystack(s string) haystack {
	h := haystack{full: text.Fold(s), parts: map[string]struct{}{}}
	for _, w := range strings.Fields(h.full) {
		ps := text.Words(w)
		for _, p := range ps {
			h.parts[p] = struct{}{}
		}
		if len(ps) > 1 {
			h.compounds = append(h.compounds, w)
		}
	}
	return h
}

func (h haystack) has(term string) bool {
	if isPhrase(term) {
		return strings.Contains(h.full, term)
	}
	for _, v := range [...]string{term, term + "s", term + "es"} {
		if _, ok := h.parts[v]; ok {
			return true
		}
	}
	for _, c := range h.compounds {
		if strings.Contains(c, term) {
			return true
		}
	}
	return false
}
