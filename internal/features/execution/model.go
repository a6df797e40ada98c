package execution

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusTimedOut  Status = "timed_out"
	StatusFailed    Status = "failed"
)

// Snapshot is the materialized result of one execution. Rows are stored as
// ordered tuples aligned with Columns so repeated reads (and exports) see the
// exact same values in the exact same order.
type Snapshot struct {
	Columns []string        `json:"columns" bson:"columns"`
	Rows    [][]interface{} `json:"rows" bson:"rows"`
}

// ReportExecution is one run of a compiled plan. Once it leaves StatusRunning
// it is immutable; only the retention sweeper may later drop its snapshot.
type ReportExecution struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	DefinitionID      primitive.ObjectID `json:"definition_id" bson:"definition_id"`
	DefinitionVersion int64              `json:"definition_version" bson:"definition_version"`
	CompanyID         primitive.ObjectID `json:"company_id" bson:"company_id"`
	UserID            primitive.ObjectID `json:"user_id" bson:"user_id"`
	Entity            string             `json:"entity" bson:"entity"`
	Status            Status             `json:"status" bson:"status"`
	RowCount          int64              `json:"row_count" bson:"row_count"`
	Truncated         bool               `json:"truncated" bson:"truncated"`
	Error             string             `json:"error,omitempty" bson:"error,omitempty"`
	StartedAt         time.Time          `json:"started_at" bson:"started_at"`
	FinishedAt        *time.Time         `json:"finished_at,omitempty" bson:"finished_at,omitempty"`
	DurationMS        int64              `json:"duration_ms" bson:"duration_ms"`
	Snapshot          *Snapshot          `json:"snapshot,omitempty" bson:"snapshot,omitempty"`
	SnapshotExpired   bool               `json:"snapshot_expired,omitempty" bson:"snapshot_expired,omitempty"`
}

// Summary is the list-view projection of an execution, without the snapshot.
type Summary struct {
	ID                primitive.ObjectID `json:"id" bson:"_id"`
	DefinitionID      primitive.ObjectID `json:"definition_id" bson:"definition_id"`
	DefinitionVersion int64              `json:"definition_version" bson:"definition_version"`
	UserID            primitive.ObjectID `json:"user_id" bson:"user_id"`
	Entity            string             `json:"entity" bson:"entity"`
	Status            Status             `json:"status" bson:"status"`
	RowCount          int64              `json:"row_count" bson:"row_count"`
	Truncated         bool               `json:"truncated" bson:"truncated"`
	StartedAt         time.Time          `json:"started_at" bson:"started_at"`
	DurationMS        int64              `json:"duration_ms" bson:"duration_ms"`
}
