package execution

import (
	"context"
	"errors"
	"time"

	"go-reporting/internal/common/apperr"
	"go-reporting/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ExecutionRepository interface {
	Create(ctx context.Context, exec *ReportExecution) error
	// Finish records the terminal state of a running execution in one write.
	Finish(ctx context.Context, exec *ReportExecution) error
	Get(ctx context.Context, id primitive.ObjectID) (*ReportExecution, error)
	List(ctx context.Context, companyID primitive.ObjectID, userID *primitive.ObjectID, limit, offset int64) ([]Summary, error)
	// ExpireSnapshots drops result snapshots older than cutoff and returns how
	// many executions were affected. Execution metadata stays readable.
	ExpireSnapshots(ctx context.Context, cutoff time.Time) (int64, error)
}

type ExecutionRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewExecutionRepository(db *database.MongodbDB) ExecutionRepository {
	return &ExecutionRepositoryImpl{
		Collection: db.DB.Collection("report_executions"),
	}
}

func (r *ExecutionRepositoryImpl) Create(ctx context.Context, exec *ReportExecution) error {
	_, err := r.Collection.InsertOne(ctx, exec)
	return err
}

func (r *ExecutionRepositoryImpl) Finish(ctx context.Context, exec *ReportExecution) error {
	update := bson.M{
		"$set": bson.M{
			"status":      exec.Status,
			"row_count":   exec.RowCount,
			"truncated":   exec.Truncated,
			"error":       exec.Error,
			"finished_at": exec.FinishedAt,
			"duration_ms": exec.DurationMS,
			"snapshot":    exec.Snapshot,
		},
	}
	// Finish must never run against a context the caller already abandoned:
	// metadata is recorded even for timed-out runs.
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": exec.ID, "status": StatusRunning}, update)
	return err
}

func (r *ExecutionRepositoryImpl) Get(ctx context.Context, id primitive.ObjectID) (*ReportExecution, error) {
	var exec ReportExecution
	err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&exec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("execution '%s' not found", id.Hex())
	}
	if err != nil {
		return nil, err
	}
	return &exec, nil
}

func (r *ExecutionRepositoryImpl) List(ctx context.Context, companyID primitive.ObjectID, userID *primitive.ObjectID, limit, offset int64) ([]Summary, error) {
	query := bson.M{"company_id": companyID}
	if userID != nil {
		query["user_id"] = *userID
	}

	opts := options.Find().
		SetLimit(limit).
		SetSkip(offset).
		SetSort(bson.D{{Key: "started_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetProjection(bson.M{"snapshot": 0})

	cursor, err := r.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	summaries := []Summary{}
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *ExecutionRepositoryImpl) ExpireSnapshots(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.Collection.UpdateMany(ctx,
		bson.M{
			"finished_at": bson.M{"$lt": cutoff},
			"snapshot":    bson.M{"$ne": nil},
		},
		bson.M{
			"$unset": bson.M{"snapshot": ""},
			"$set":   bson.M{"snapshot_expired": true},
		},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
