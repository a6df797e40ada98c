package datasource

import (
	"context"
	"regexp"

	"go-reporting/internal/database"
	"go-reporting/internal/features/definition"
	"go-reporting/internal/features/plan"
	"go-reporting/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRowSource reads entity rows from per-entity collections. Every query is
// additionally scoped to the calling company taken from the request context, so
// tenant isolation holds even if a predicate set is empty.
type MongoRowSource struct {
	DB *mongo.Database
}

func NewMongoRowSource(db *database.MongodbDB) RowSource {
	return &MongoRowSource{DB: db.DB}
}

func (s *MongoRowSource) Query(ctx context.Context, entity string, predicates []plan.Predicate, projection []string, ordering []plan.Ordering, limit, offset int64) ([]map[string]interface{}, error) {
	query := predicateQuery(predicates)

	if claims, ok := ctx.Value(utils.UserClaimsKey).(*utils.UserClaims); ok {
		if oid, err := primitive.ObjectIDFromHex(claims.CompanyID); err == nil {
			query["company_id"] = oid
		}
	}

	proj := bson.M{"_id": 1}
	for _, f := range projection {
		proj[f] = 1
	}

	sort := bson.D{}
	for _, o := range ordering {
		dir := 1
		if o.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: o.Field, Value: dir})
	}

	opts := options.Find().SetProjection(proj).SetLimit(limit).SetSkip(offset)
	if len(sort) > 0 {
		opts.SetSort(sort)
	}

	cursor, err := s.DB.Collection(entity).Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []map[string]interface{}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// predicateQuery translates compiled predicates into a bson filter document.
// Predicates on the same field are ANDed via $and to avoid clobbering keys.
func predicateQuery(predicates []plan.Predicate) bson.M {
	if len(predicates) == 0 {
		return bson.M{}
	}

	clauses := make([]bson.M, 0, len(predicates))
	for _, p := range predicates {
		clauses = append(clauses, predicateClause(p))
	}
	if len(clauses) == 1 {
		return clauses[0]
	}
	return bson.M{"$and": clauses}
}

func predicateClause(p plan.Predicate) bson.M {
	switch p.Op {
	case definition.OpEquals:
		return bson.M{p.Field: p.Value}
	case definition.OpContains:
		return bson.M{p.Field: bson.M{"$regex": primitive.Regex{Pattern: regexp.QuoteMeta(p.Value.(string)), Options: "i"}}}
	case definition.OpStartsWith:
		return bson.M{p.Field: bson.M{"$regex": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(p.Value.(string)), Options: "i"}}}
	case definition.OpGreaterThan:
		return bson.M{p.Field: bson.M{"$gt": p.Value}}
	case definition.OpGreaterOrEqual:
		return bson.M{p.Field: bson.M{"$gte": p.Value}}
	case definition.OpLessThan:
		return bson.M{p.Field: bson.M{"$lt": p.Value}}
	case definition.OpLessOrEqual:
		return bson.M{p.Field: bson.M{"$lte": p.Value}}
	case definition.OpBetween:
		return bson.M{p.Field: bson.M{"$gte": p.Value, "$lte": p.High}}
	default:
		// Unreachable for plans produced by the builder.
		return bson.M{p.Field: p.Value}
	}
}
