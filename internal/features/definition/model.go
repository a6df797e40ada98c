package definition

import (
	"time"

	"go-reporting/internal/features/catalog"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Operator is a filter comparison. The set a filter may use depends on the
// semantic type of the field it targets.
type Operator string

const (
	OpEquals         Operator = "eq"
	OpContains       Operator = "contains"
	OpStartsWith     Operator = "starts_with"
	OpGreaterThan    Operator = "gt"
	OpGreaterOrEqual Operator = "gte"
	OpLessThan       Operator = "lt"
	OpLessOrEqual    Operator = "lte"
	OpBetween        Operator = "between"
)

var operatorsByType = map[catalog.FieldType][]Operator{
	catalog.FieldTypeString:  {OpEquals, OpContains, OpStartsWith},
	catalog.FieldTypeNumber:  {OpEquals, OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual, OpBetween},
	catalog.FieldTypeDate:    {OpEquals, OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual, OpBetween},
	catalog.FieldTypeBoolean: {OpEquals},
}

// OperatorAllowed reports whether op is valid for fields of type t.
func OperatorAllowed(t catalog.FieldType, op Operator) bool {
	for _, allowed := range operatorsByType[t] {
		if allowed == op {
			return true
		}
	}
	return false
}

// AggregateFn is one of the supported aggregation functions.
type AggregateFn string

const (
	AggSum   AggregateFn = "sum"
	AggCount AggregateFn = "count"
	AggAvg   AggregateFn = "avg"
	AggMin   AggregateFn = "min"
	AggMax   AggregateFn = "max"
)

func ValidAggregateFn(fn AggregateFn) bool {
	switch fn {
	case AggSum, AggCount, AggAvg, AggMin, AggMax:
		return true
	}
	return false
}

// Filter is one declarative predicate. For OpBetween, Value holds a two-element
// slice [low, high]; every other operator takes a scalar.
type Filter struct {
	Field    string      `json:"field" bson:"field"`
	Operator Operator    `json:"operator" bson:"operator"`
	Value    interface{} `json:"value" bson:"value"`
}

// Aggregation computes fn over field per group.
type Aggregation struct {
	Field string      `json:"field" bson:"field"`
	Fn    AggregateFn `json:"fn" bson:"fn"`
}

// Grouping requests grouped output. Every selected field that is not
// aggregated must appear in GroupBy.
type Grouping struct {
	GroupBy    []string      `json:"group_by" bson:"group_by"`
	Aggregates []Aggregation `json:"aggregates" bson:"aggregates"`
}

// Sort is one ordering term.
type Sort struct {
	Field string `json:"field" bson:"field"`
	Desc  bool   `json:"desc" bson:"desc"`
}

// ReportDefinition is a saved, user-authored specification of what to report.
type ReportDefinition struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CompanyID   primitive.ObjectID `json:"company_id" bson:"company_id"`
	OwnerID     primitive.ObjectID `json:"owner_id" bson:"owner_id"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Entity      string             `json:"entity" bson:"entity"`
	Fields      []string           `json:"fields" bson:"fields"`
	Filters     []Filter           `json:"filters,omitempty" bson:"filters,omitempty"`
	Grouping    *Grouping          `json:"grouping,omitempty" bson:"grouping,omitempty"`
	Sort        []Sort             `json:"sort,omitempty" bson:"sort,omitempty"`
	Shared      bool               `json:"shared" bson:"shared"`
	Version     int64              `json:"version" bson:"version"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// Summary is the list-view projection of a definition.
type Summary struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	Name      string             `json:"name" bson:"name"`
	Entity    string             `json:"entity" bson:"entity"`
	OwnerID   primitive.ObjectID `json:"owner_id" bson:"owner_id"`
	Shared    bool               `json:"shared" bson:"shared"`
	Version   int64              `json:"version" bson:"version"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}
