package execution

import (
	"testing"
	"time"

	"go-reporting/internal/features/definition"
	"go-reporting/internal/features/plan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAggregateRows(t *testing.T) {
	rows := []map[string]interface{}{
		{"city": "Lima", "amount": 10.0, "qty": int64(2)},
		{"city": "Lima", "amount": 30.0, "qty": int64(4)},
		{"city": "Cusco", "amount": 5.0, "qty": int64(1)},
	}
	aggs := []plan.Aggregate{
		{Field: "amount", Fn: definition.AggSum, Alias: "sum_amount"},
		{Field: "amount", Fn: definition.AggAvg, Alias: "avg_amount"},
		{Field: "amount", Fn: definition.AggMin, Alias: "min_amount"},
		{Field: "qty", Fn: definition.AggMax, Alias: "max_qty"},
		{Fn: definition.AggCount, Alias: "count"},
	}

	out := aggregateRows(rows, []string{"city"}, aggs)
	require.Len(t, out, 2)

	byCity := map[string]map[string]interface{}{}
	for _, row := range out {
		byCity[row["city"].(string)] = row
	}

	lima := byCity["Lima"]
	require.NotNil(t, lima)
	assert.Equal(t, 40.0, lima["sum_amount"])
	assert.Equal(t, 20.0, lima["avg_amount"])
	assert.Equal(t, 10.0, lima["min_amount"])
	assert.Equal(t, 4.0, lima["max_qty"])
	assert.Equal(t, int64(2), lima["count"])

	cusco := byCity["Cusco"]
	require.NotNil(t, cusco)
	assert.Equal(t, 5.0, cusco["sum_amount"])
	assert.Equal(t, int64(1), cusco["count"])
}

func TestAggregateRowsSkipsMissingValues(t *testing.T) {
	rows := []map[string]interface{}{
		{"city": "Lima", "amount": 10.0},
		{"city": "Lima"}, // no amount recorded
	}
	aggs := []plan.Aggregate{
		{Field: "amount", Fn: definition.AggSum, Alias: "sum_amount"},
		{Field: "amount", Fn: definition.AggAvg, Alias: "avg_amount"},
	}

	out := aggregateRows(rows, []string{"city"}, aggs)
	require.Len(t, out, 1)
	assert.Equal(t, 10.0, out[0]["sum_amount"])
	assert.Equal(t, 10.0, out[0]["avg_amount"])
}

func TestAggregateRowsCompositeKey(t *testing.T) {
	rows := []map[string]interface{}{
		{"city": "Lima", "paid": true},
		{"city": "Lima", "paid": false},
		{"city": "Lima", "paid": true},
	}
	aggs := []plan.Aggregate{{Fn: definition.AggCount, Alias: "count"}}

	out := aggregateRows(rows, []string{"city", "paid"}, aggs)
	require.Len(t, out, 2)
}

func TestSortRows(t *testing.T) {
	rows := []map[string]interface{}{
		{"city": "Lima", "amount": 30.0},
		{"city": "Cusco", "amount": 10.0},
		{"city": "Lima", "amount": 10.0},
		{"city": nil, "amount": 99.0},
	}

	sortRows(rows, []plan.Ordering{{Field: "city"}, {Field: "amount", Desc: true}})

	assert.Nil(t, rows[0]["city"])
	assert.Equal(t, "Cusco", rows[1]["city"])
	assert.Equal(t, 30.0, rows[2]["amount"])
	assert.Equal(t, 10.0, rows[3]["amount"])
}

func TestSortRowsIsStable(t *testing.T) {
	rows := []map[string]interface{}{
		{"city": "Lima", "n": 1},
		{"city": "Lima", "n": 2},
		{"city": "Lima", "n": 3},
	}
	sortRows(rows, []plan.Ordering{{Field: "city"}})

	assert.Equal(t, 1, rows[0]["n"])
	assert.Equal(t, 2, rows[1]["n"])
	assert.Equal(t, 3, rows[2]["n"])
}

func TestCompareValues(t *testing.T) {
	earlier := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := earlier.AddDate(0, 1, 0)

	tests := []struct {
		name string
		a, b interface{}
		want int
	}{
		{"nil before value", nil, "x", -1},
		{"equal nils", nil, nil, 0},
		{"strings", "a", "b", -1},
		{"numbers across widths", int64(3), 2.5, 1},
		{"times", earlier, later, -1},
		{"mongo datetime", primitive.NewDateTimeFromTime(earlier), later, -1},
		{"bools", false, true, -1},
		{"equal numbers", 2.0, int64(2), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compareValues(tt.a, tt.b))
		})
	}
}

func TestSnapshotFromRowsNormalizes(t *testing.T) {
	oid := primitive.NewObjectID()
	ts := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	snap := snapshotFromRows([]string{"id", "when", "qty"}, []map[string]interface{}{
		{"id": oid, "when": primitive.NewDateTimeFromTime(ts), "qty": int32(7)},
	})

	require.Len(t, snap.Rows, 1)
	assert.Equal(t, oid.Hex(), snap.Rows[0][0])
	assert.Equal(t, ts, snap.Rows[0][1])
	assert.Equal(t, int64(7), snap.Rows[0][2])
}
