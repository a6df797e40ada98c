package execution

import (
	"strings"

	"go-reporting/internal/features/definition"
	"go-reporting/internal/features/plan"
)

type accumulator struct {
	count int64
	sum   float64
	min   float64
	max   float64
	seen  bool
}

func (a *accumulator) add(v float64) {
	a.sum += v
	if !a.seen || v < a.min {
		a.min = v
	}
	if !a.seen || v > a.max {
		a.max = v
	}
	a.seen = true
}

func (a *accumulator) result(fn definition.AggregateFn) interface{} {
	switch fn {
	case definition.AggCount:
		return a.count
	case definition.AggSum:
		return a.sum
	case definition.AggAvg:
		if a.count == 0 {
			return float64(0)
		}
		return a.sum / float64(a.count)
	case definition.AggMin:
		if !a.seen {
			return nil
		}
		return a.min
	case definition.AggMax:
		if !a.seen {
			return nil
		}
		return a.max
	}
	return nil
}

// aggregateRows groups the materialized rows in memory and computes the
// requested aggregates, producing one output row per distinct group key.
func aggregateRows(rows []map[string]interface{}, groupBy []string, aggs []plan.Aggregate) []map[string]interface{} {
	type group struct {
		values map[string]interface{}
		accs   []*accumulator
	}

	groups := make(map[string]*group)
	order := []string{}

	for _, row := range rows {
		key := groupKey(row, groupBy)
		g, ok := groups[key]
		if !ok {
			g = &group{values: make(map[string]interface{}, len(groupBy)+len(aggs))}
			for _, f := range groupBy {
				g.values[f] = row[f]
			}
			g.accs = make([]*accumulator, len(aggs))
			for i := range aggs {
				g.accs[i] = &accumulator{}
			}
			groups[key] = g
			order = append(order, key)
		}

		for i, a := range aggs {
			g.accs[i].count++
			if a.Field == "" {
				continue // bare count
			}
			if v, ok := numericValue(row[a.Field]); ok {
				g.accs[i].add(v)
			} else {
				// Non-numeric values don't contribute to sum/min/max/avg,
				// and count should only reflect rows carrying the field.
				if _, present := row[a.Field]; !present {
					g.accs[i].count--
				}
			}
		}
	}

	out := make([]map[string]interface{}, 0, len(groups))
	for _, key := range order {
		g := groups[key]
		row := make(map[string]interface{}, len(g.values)+len(aggs))
		for k, v := range g.values {
			row[k] = v
		}
		for i, a := range aggs {
			row[a.Alias] = g.accs[i].result(a.Fn)
		}
		out = append(out, row)
	}
	return out
}

func groupKey(row map[string]interface{}, fields []string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, stringValue(row[f]))
	}
	return strings.Join(parts, "\x1f")
}
