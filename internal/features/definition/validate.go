package definition

import (
	"go-reporting/internal/common/apperr"
	"go-reporting/internal/features/catalog"
)

// Validate checks a definition against the catalog: entity exists, every
// referenced field exists and satisfies its capability flags, every operator
// matches its field's semantic type. Violations name the offending field or
// operator so the author can fix the definition.
func Validate(registry *catalog.Registry, def *ReportDefinition) error {
	if def.Name == "" {
		return apperr.Validation("definition name is required")
	}

	entity, err := registry.Entity(def.Entity)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.Validation("unknown entity '%s'", def.Entity)
		}
		return err
	}

	if len(def.Fields) == 0 {
		return apperr.Validation("at least one field must be selected")
	}
	seen := make(map[string]bool, len(def.Fields))
	for _, f := range def.Fields {
		if !entity.HasField(f) {
			return apperr.Validation("unknown field '%s' on entity '%s'", f, def.Entity)
		}
		if seen[f] {
			return apperr.Validation("field '%s' is selected twice", f)
		}
		seen[f] = true
	}

	for _, f := range def.Filters {
		field, ok := entity.Field(f.Field)
		if !ok {
			return apperr.Validation("unknown filter field '%s' on entity '%s'", f.Field, def.Entity)
		}
		if !field.Filterable {
			return apperr.Validation("field '%s' is not filterable", f.Field)
		}
		if !OperatorAllowed(field.Type, f.Operator) {
			return apperr.Validation("operator '%s' is not valid for field '%s' (%s)", f.Operator, f.Field, field.Type)
		}
	}

	if def.Grouping != nil {
		if err := validateGrouping(entity, def); err != nil {
			return err
		}
	}

	for _, s := range def.Sort {
		if !entity.HasField(s.Field) && !aggregateAlias(def, s.Field) {
			return apperr.Validation("unknown sort field '%s'", s.Field)
		}
	}

	return nil
}

func validateGrouping(entity *catalog.EntityDescriptor, def *ReportDefinition) error {
	g := def.Grouping
	grouped := make(map[string]bool, len(g.GroupBy))
	for _, f := range g.GroupBy {
		if !entity.HasField(f) {
			return apperr.Validation("unknown grouping field '%s' on entity '%s'", f, def.Entity)
		}
		grouped[f] = true
	}

	aggregated := make(map[string]bool, len(g.Aggregates))
	for _, a := range g.Aggregates {
		if !ValidAggregateFn(a.Fn) {
			return apperr.Validation("unsupported aggregate function '%s'", a.Fn)
		}
		if a.Fn == AggCount && a.Field == "" {
			continue // bare row count needs no field
		}
		field, ok := entity.Field(a.Field)
		if !ok {
			return apperr.Validation("unknown aggregate field '%s' on entity '%s'", a.Field, def.Entity)
		}
		if !field.Aggregatable {
			return apperr.Validation("field '%s' is not aggregatable", a.Field)
		}
		aggregated[a.Field] = true
	}

	for _, f := range def.Fields {
		if !grouped[f] && !aggregated[f] {
			return apperr.Validation("selected field '%s' must be grouped or aggregated", f)
		}
	}
	return nil
}

func aggregateAlias(def *ReportDefinition, name string) bool {
	if def.Grouping == nil {
		return false
	}
	for _, a := range def.Grouping.Aggregates {
		if a.Fn == AggCount && a.Field == "" && name == "count" {
			return true
		}
		if name == string(a.Fn)+"_"+a.Field {
			return true
		}
	}
	return false
}
