package contract

import "context"

// FilterResult is the outcome of a catalog filter query, including which
// filters were actually applied and which were skipped as non-filterable.
type FilterResult struct {
	Rows    []map[string]any
	Applied map[string][]string
	Skipped []string
	Count   int
}

type ICatalogRepository interface {
	// Filter queries the incentives table. Only name, workload, and
	// incentive_type filter; other keys are reported as skipped. Values
	// within one field OR together; different fields AND together.
	Filter(ctx context.Context, fields map[string][]string, limit, offset int) (FilterResult, error)

	DistinctNames(ctx context.Context) ([]string, error)
	DistinctWorkloads(ctx context.Context) ([]string, error)
	SynonymsByKind(ctx context.Context, kind string) (map[string][]string, error)
}
