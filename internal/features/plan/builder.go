package plan

import (
	"fmt"
	"time"

	"go-reporting/internal/common/apperr"
	"go-reporting/internal/features/catalog"
	"go-reporting/internal/features/definition"
)

// DefaultPageSize is used when the caller requests no (or a non-positive)
// page size.
const DefaultPageSize = 50

// Builder compiles definitions into immutable query plans. It is pure and
// synchronous: no I/O, no locks, safe for concurrent use.
type Builder struct {
	Registry    *catalog.Registry
	MaxPageSize int64
}

func NewBuilder(registry *catalog.Registry, maxPageSize int64) *Builder {
	return &Builder{Registry: registry, MaxPageSize: maxPageSize}
}

// Build compiles def plus runtime filter overrides into a QueryPlan. The
// allowed set comes from the authorization gate; overrides may narrow the
// result but never widen access beyond it.
func (b *Builder) Build(def *definition.ReportDefinition, overrides []definition.Filter, page Page, allowed map[string]bool) (*QueryPlan, error) {
	entity, err := b.Registry.Entity(def.Entity)
	if err != nil {
		return nil, err
	}

	// 1. Intersect requested fields with the allowed set. Restricted fields
	// drop out silently; an empty result means the caller can see nothing the
	// definition selects, which is a validation failure, not a partial report.
	fields := make([]string, 0, len(def.Fields))
	for _, f := range def.Fields {
		if allowed[f] {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return nil, apperr.Validation("no selected field is visible to the caller")
	}

	// 2. Merge stored filters with runtime overrides.
	predicates := make([]Predicate, 0, len(def.Filters)+len(overrides))
	for _, f := range def.Filters {
		p, err := b.compileFilter(entity, f)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, p)
	}
	for _, f := range overrides {
		if !allowed[f.Field] {
			return nil, apperr.Validation("runtime filter on field '%s' is not permitted", f.Field)
		}
		p, err := b.compileFilter(entity, f)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, p)
	}

	qp := &QueryPlan{
		Entity:            def.Entity,
		DefinitionID:      def.ID.Hex(),
		DefinitionVersion: def.Version,
		Fields:            fields,
		Predicates:        predicates,
	}

	// 3. Grouping and aggregation.
	if def.Grouping != nil && (len(def.Grouping.GroupBy) > 0 || len(def.Grouping.Aggregates) > 0) {
		if err := b.compileGrouping(entity, def.Grouping, fields, qp); err != nil {
			return nil, err
		}
	}

	// 4. Pagination: out-of-range values are clamped, not rejected.
	qp.PageNumber = page.Number
	if qp.PageNumber < 1 {
		qp.PageNumber = 1
	}
	qp.PageSize = page.Size
	if qp.PageSize < 1 {
		qp.PageSize = DefaultPageSize
	}
	if qp.PageSize > b.MaxPageSize {
		qp.PageSize = b.MaxPageSize
	}

	// 5. Deterministic ordering so repeated pagination is stable.
	ordering, err := b.compileOrdering(def, qp)
	if err != nil {
		return nil, err
	}
	qp.OrderBy = ordering

	return qp, nil
}

func (b *Builder) compileFilter(entity *catalog.EntityDescriptor, f definition.Filter) (Predicate, error) {
	field, ok := entity.Field(f.Field)
	if !ok {
		return Predicate{}, apperr.Validation("unknown field '%s' on entity '%s'", f.Field, entity.Name)
	}
	if !field.Filterable {
		return Predicate{}, apperr.Validation("field '%s' is not filterable", f.Field)
	}
	if !definition.OperatorAllowed(field.Type, f.Operator) {
		return Predicate{}, apperr.Validation("operator '%s' is not valid for field '%s' (%s)", f.Operator, f.Field, field.Type)
	}

	p := Predicate{Field: f.Field, Type: field.Type, Op: f.Operator}

	if f.Operator == definition.OpBetween {
		bounds, ok := f.Value.([]interface{})
		if !ok || len(bounds) != 2 {
			return Predicate{}, apperr.Validation("between filter on field '%s' requires exactly two bounds", f.Field)
		}
		low, err := coerceValue(field.Type, bounds[0])
		if err != nil {
			return Predicate{}, apperr.Validation("field '%s': %v", f.Field, err)
		}
		high, err := coerceValue(field.Type, bounds[1])
		if err != nil {
			return Predicate{}, apperr.Validation("field '%s': %v", f.Field, err)
		}
		p.Value = low
		p.High = high
		return p, nil
	}

	value, err := coerceValue(field.Type, f.Value)
	if err != nil {
		return Predicate{}, apperr.Validation("field '%s': %v", f.Field, err)
	}
	p.Value = value
	return p, nil
}

func (b *Builder) compileGrouping(entity *catalog.EntityDescriptor, g *definition.Grouping, selected []string, qp *QueryPlan) error {
	groupSet := make(map[string]bool, len(g.GroupBy))
	for _, f := range g.GroupBy {
		if !entity.HasField(f) {
			return apperr.Validation("unknown grouping field '%s' on entity '%s'", f, entity.Name)
		}
		groupSet[f] = true
	}

	aggregated := make(map[string]bool, len(g.Aggregates))
	aggregates := make([]Aggregate, 0, len(g.Aggregates))
	for _, a := range g.Aggregates {
		if !definition.ValidAggregateFn(a.Fn) {
			return apperr.Validation("unsupported aggregate function '%s'", a.Fn)
		}
		if a.Fn == definition.AggCount && a.Field == "" {
			aggregates = append(aggregates, Aggregate{Fn: a.Fn, Alias: "count"})
			continue
		}
		field, ok := entity.Field(a.Field)
		if !ok {
			return apperr.Validation("unknown aggregate field '%s' on entity '%s'", a.Field, entity.Name)
		}
		if !field.Aggregatable {
			return apperr.Validation("field '%s' is not aggregatable", a.Field)
		}
		aggregated[a.Field] = true
		aggregates = append(aggregates, Aggregate{
			Field: a.Field,
			Fn:    a.Fn,
			Alias: fmt.Sprintf("%s_%s", a.Fn, a.Field),
		})
	}

	// A selected field that is neither grouped nor aggregated has no defined
	// value in grouped output.
	for _, f := range selected {
		if !groupSet[f] && !aggregated[f] {
			return apperr.Validation("selected field '%s' must be grouped or aggregated", f)
		}
	}

	qp.GroupBy = append([]string(nil), g.GroupBy...)
	qp.Aggregates = aggregates
	return nil
}

func (b *Builder) compileOrdering(def *definition.ReportDefinition, qp *QueryPlan) ([]Ordering, error) {
	columns := make(map[string]bool)
	for _, c := range qp.Columns() {
		columns[c] = true
	}

	if len(def.Sort) > 0 {
		ordering := make([]Ordering, 0, len(def.Sort)+len(qp.GroupBy)+1)
		sorted := make(map[string]bool, len(def.Sort))
		for _, s := range def.Sort {
			if !columns[s.Field] {
				return nil, apperr.Validation("sort field '%s' is not part of the result", s.Field)
			}
			ordering = append(ordering, Ordering{Field: s.Field, Desc: s.Desc})
			sorted[s.Field] = true
		}
		if qp.Grouped() {
			// Group keys are unique per group; appending them keeps the order
			// total when the declared sort ties (e.g. equal aggregate values).
			for _, f := range qp.GroupBy {
				if !sorted[f] {
					ordering = append(ordering, Ordering{Field: f})
				}
			}
		} else {
			ordering = append(ordering, Ordering{Field: "_id"})
		}
		return ordering, nil
	}

	if qp.Grouped() {
		// Group keys are unique, so they are their own stable tiebreaker.
		ordering := make([]Ordering, 0, len(qp.GroupBy))
		for _, f := range qp.GroupBy {
			ordering = append(ordering, Ordering{Field: f})
		}
		return ordering, nil
	}

	// First selected field ascending, entity identifier as tiebreaker.
	return []Ordering{{Field: qp.Fields[0]}, {Field: "_id"}}, nil
}

func coerceValue(t catalog.FieldType, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, fmt.Errorf("filter value must not be null")
	}
	switch t {
	case catalog.FieldTypeString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string value, got %T", v)
		}
		return s, nil
	case catalog.FieldTypeNumber:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int32:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
		return nil, fmt.Errorf("expected a numeric value, got %T", v)
	case catalog.FieldTypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected a boolean value, got %T", v)
		}
		return b, nil
	case catalog.FieldTypeDate:
		if ts, ok := v.(time.Time); ok {
			return ts, nil
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected a date string, got %T", v)
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts, nil
		}
		if ts, err := time.Parse("2006-01-02", s); err == nil {
			return ts, nil
		}
		return nil, fmt.Errorf("cannot parse '%s' as a date", s)
	}
	return nil, fmt.Errorf("unsupported field type '%s'", t)
}
