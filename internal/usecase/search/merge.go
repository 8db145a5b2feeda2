package search

import "github.com/ChristinaDay/FabLab/internal/domain/job"

// Merge combines external and curated jobs keyed by link, external first.
// Links are compared verbatim; differently parameterized URLs stay separate.
func Merge(external, curated []job.Job) []job.Job {
	index := make(map[string]int, len(external)+len(curated))
	out := make([]job.Job, 0, len(external)+len(curated))

	add := func(j job.Job) {
		if j.Link == "" {
			return
		}
		if i, ok := index[j.Link]; ok {
			out[i] = mergeJob(out[i], j)
			return
		}
		index[j.Link] = len(out)
		out = append(out, j)
	}
	for _, j := range external {
		add(j)
	}
	for _, j := range curated {
		add(j)
	}
	return out
}

// mergeJob keeps curated metadata when exactly one side is curated, otherwise the first seen.
// Curated is sticky and a provider tag is preferred over "curated" as the source.
func mergeJob(existing, incoming job.Job) job.Job {
	winner, other := existing, incoming
	if incoming.Curated && !existing.Curated {
		winner, other = incoming, existing
	}

	merged := winner
	merged.Curated = existing.Curated || incoming.Curated
	merged.Source = preferProvider(existing.Source, incoming.Source)
	if len(merged.Tags) == 0 {
		merged.Tags = other.Tags
	}
	if merged.Location == "" {
		merged.Location = other.Location
	}
	return merged
}

func preferProvider(a, b job.Source) job.Source {
	switch {
	case a.IsProvider():
		return a
	case b.IsProvider():
		return b
	default:
		return job.SourceCurated
	}
}
