package authz

import (
	"context"

	"go-reporting/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Role carries field-level visibility restrictions. HiddenFields maps an entity
// name to the fields members of this role cannot see.
type Role struct {
	ID           primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	CompanyID    primitive.ObjectID  `json:"company_id" bson:"company_id"`
	Name         string              `json:"name" bson:"name"`
	HiddenFields map[string][]string `json:"hidden_fields,omitempty" bson:"hidden_fields,omitempty"`
}

type RoleRepository interface {
	FindByNames(ctx context.Context, companyID primitive.ObjectID, names []string) ([]Role, error)
}

type RoleRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewRoleRepository(db *database.MongodbDB) RoleRepository {
	return &RoleRepositoryImpl{
		Collection: db.DB.Collection("roles"),
	}
}

func (r *RoleRepositoryImpl) FindByNames(ctx context.Context, companyID primitive.ObjectID, names []string) ([]Role, error) {
	if len(names) == 0 {
		return []Role{}, nil
	}

	cursor, err := r.Collection.Find(ctx, bson.M{
		"company_id": companyID,
		"name":       bson.M{"$in": names},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var roles []Role
	if err := cursor.All(ctx, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}
