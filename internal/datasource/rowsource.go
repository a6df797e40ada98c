package datasource

import (
	"context"

	"go-reporting/internal/features/plan"
)

// RowSource is the narrow read interface the execution engine consumes. The
// surrounding storage layer owns the data; the reporting core only ever issues
// bounded, projected reads through this contract.
type RowSource interface {
	Query(ctx context.Context, entity string, predicates []plan.Predicate, projection []string, ordering []plan.Ordering, limit, offset int64) ([]map[string]interface{}, error)
}
