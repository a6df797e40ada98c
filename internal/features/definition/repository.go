package definition

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

type DefinitionRepository interface {
	Create(ctx context.Context, def *ReportDefinition) error
	Get(ctx context.Context, id primitive.ObjectID) (*ReportDefinition, error)
	List(ctx context.Context, companyID primitive.ObjectID, ownerID *primitive.ObjectID, includeShared bool) ([]Summary, error)
	// Update persists def only when the stored version still equals
	// expectedVersion, bumping the version stamp in the same write.
	Update(ctx context.Context, def *ReportDefinition, expectedVersion int64) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type DefinitionRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewDefinitionRepository(db *database.MongodbDB) DefinitionRepository {
	return &DefinitionRepositoryImpl{
		Collection: db.DB.Collection("report_definitions"),
	}
}

func (r *DefinitionRepositoryImpl) Create(ctx context.Context, def *ReportDefinition) error {
	def.CreatedAt = time.Now()
	def.UpdatedAt = def.CreatedAt
	def.Version = 1
	_, err := r.Collection.InsertOne(ctx, def)
	return err
}

func (r *DefinitionRepositoryImpl) Get(ctx context.Context, id primitive.ObjectID) (*ReportDefinition, error) {
	var def ReportDefinition
	err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&def)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("definition '%s' not found", id.Hex())
	}
	if err != nil {
		return nil, err
	}
	return &def, nil
}

func (r *DefinitionRepositoryImpl) List(ctx context.Context, companyID primitive.ObjectID, ownerID *primitive.ObjectID, includeShared bool) ([]Summary, error) {
	query := bson.M{"company_id": companyID}
	if ownerID != nil {
		if includeShared {
			query["$or"] = []bson.M{
				{"owner_id": *ownerID},
				{"shared": true},
			}
		} else {
			query["owner_id"] = *ownerID
		}
	} else if !includeShared {
		// No owner filter and shared excluded: nothing to return by construction.
		return []Summary{}, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{
			"name": 1, "entity": 1, "owner_id": 1, "shared": 1, "version": 1, "updated_at": 1,
		})

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

func (r *DefinitionRepositoryImpl) Update(ctx context.Context, def *ReportDefinition, expectedVersion int64) error {
	def.UpdatedAt = time.Now()

	update := bson.M{
		"$set": bson.M{
			"name":        def.Name,
			"description": def.Description,
			"entity":      def.Entity,
			"fields":      def.Fields,
			"filters":     def.Filters,
			"grouping":    def.Grouping,
			"sort":        def.Sort,
			"shared":      def.Shared,
			"updated_at":  def.UpdatedAt,
		},
		"$inc": bson.M{"version": int64(1)},
	}

	res, err := r.Collection.UpdateOne(ctx, bson.M{"_id": def.ID, "version": expectedVersion}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Distinguish a stale version from a vanished definition.
		count, err := r.Collection.CountDocuments(ctx, bson.M{"_id": def.ID})
		if err != nil {
			return err
		}
		if count == 0 {
			return apperr.NotFound("definition '%s' not found", def.ID.Hex())
		}
		return apperr.Conflict("definition '%s' was modified concurrently (stale version %d)", def.ID.Hex(), expectedVersion)
	}
	def.Version = expectedVersion + 1
	return nil
}

func (r *DefinitionRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("definition '%s' not found", id.Hex())
	}
	return nil
}
