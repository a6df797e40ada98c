package plan

import (
	"go-reporting/internal/features/catalog"
	"go-reporting/internal/features/definition"
)

// Predicate is one compiled, typed filter ready for the row source.
type Predicate struct {
	Field string
	Type  catalog.FieldType
	Op    definition.Operator
	Value interface{}
	High  interface{} // upper bound, set only for between
}

// Ordering is one compiled sort term.
type Ordering struct {
	Field string
	Desc  bool
}

// Aggregate computes Fn over Field per group; Alias is the output column name.
type Aggregate struct {
	Field string
	Fn    definition.AggregateFn
	Alias string
}

// Page is the caller-requested result window.
type Page struct {
	Number int64 `json:"page"`
	Size   int64 `json:"page_size"`
}

// QueryPlan is a frozen snapshot of reporting intent: authorized, bounded, and
// carrying no reference back to the (possibly since-mutated) definition.
type QueryPlan struct {
	Entity            string
	DefinitionID      string
	DefinitionVersion int64

	Fields     []string
	Predicates []Predicate
	GroupBy    []string
	Aggregates []Aggregate
	OrderBy    []Ordering

	PageNumber int64
	PageSize   int64
}

// Grouped reports whether the plan produces aggregated output.
func (p *QueryPlan) Grouped() bool {
	return len(p.GroupBy) > 0 || len(p.Aggregates) > 0
}

// Offset is the number of rows skipped before the requested page.
func (p *QueryPlan) Offset() int64 {
	return (p.PageNumber - 1) * p.PageSize
}

// Columns returns the output column names in deterministic order.
func (p *QueryPlan) Columns() []string {
	if !p.Grouped() {
		return append([]string(nil), p.Fields...)
	}
	cols := append([]string(nil), p.GroupBy...)
	for _, a := range p.Aggregates {
		cols = append(cols, a.Alias)
	}
	return cols
}
