package audit

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Action string

const (
	ActionCreate  Action = "CREATE"
	ActionRead    Action = "READ"
	ActionUpdate  Action = "UPDATE"
	ActionDelete  Action = "DELETE"
	ActionExecute Action = "EXECUTE"
	ActionExport  Action = "EXPORT"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeDenied  Outcome = "DENIED"
	OutcomeError   Outcome = "ERROR"
)

// Entry is one immutable audit record. Entries are append-only: nothing in
// this service updates or deletes them.
type Entry struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CompanyID primitive.ObjectID `json:"company_id,omitempty" bson:"company_id,omitempty"`
	ActorID   string             `json:"actor_id" bson:"actor_id"`
	Action    Action             `json:"action" bson:"action"`
	TargetID  string             `json:"target_id" bson:"target_id"`
	Outcome   Outcome            `json:"outcome" bson:"outcome"`
	Detail    string             `json:"detail,omitempty" bson:"detail,omitempty"`
	Timestamp time.Time          `json:"timestamp" bson:"timestamp"`
}
