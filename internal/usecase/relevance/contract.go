package relevance

import "context"

// SourceQueryLister lists the queries of the active provider sources.
type SourceQueryLister interface {
	ListActiveSourceQueries(ctx context.Context) ([]string, error)
}
