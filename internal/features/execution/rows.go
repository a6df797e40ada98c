package execution

import (
	"fmt"
	"sort"
	"time"

	"go-reporting/internal/features/plan"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// normalizeValue converts driver-specific values into plain Go types so a
// snapshot reads the same regardless of which store produced the rows.
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.A:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case time.Time:
		return t.UTC()
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	}
	return v
}

func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func stringValue(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(normalizeValue(v))
}

// compareValues orders two cell values of the same column. Nil sorts first;
// mixed types fall back to their string form so the order is still total.
func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	if na, ok := numericValue(a); ok {
		if nb, ok := numericValue(b); ok {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			}
			return 0
		}
	}

	if ta, ok := normalizeValue(a).(time.Time); ok {
		if tb, ok := normalizeValue(b).(time.Time); ok {
			switch {
			case ta.Before(tb):
				return -1
			case ta.After(tb):
				return 1
			}
			return 0
		}
	}

	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case !ba && bb:
				return -1
			case ba && !bb:
				return 1
			}
			return 0
		}
	}

	sa, sb := stringValue(a), stringValue(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

func sortRows(rows []map[string]interface{}, ordering []plan.Ordering) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range ordering {
			c := compareValues(rows[i][o.Field], rows[j][o.Field])
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// snapshotFromRows freezes rows into column-aligned tuples.
func snapshotFromRows(columns []string, rows []map[string]interface{}) *Snapshot {
	snap := &Snapshot{
		Columns: append([]string(nil), columns...),
		Rows:    make([][]interface{}, 0, len(rows)),
	}
	for _, row := range rows {
		tuple := make([]interface{}, len(columns))
		for i, col := range columns {
			tuple[i] = normalizeValue(row[col])
		}
		snap.Rows = append(snap.Rows, tuple)
	}
	return snap
}
