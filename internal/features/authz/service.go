package authz

import (
	"context"

	"go-reporting/internal/common/apperr"
	"go-reporting/internal/features/catalog"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthzService is the single authorization gate. Every read and mutating path
// goes through it, so the policy lives in one testable place instead of being
// scattered across handlers.
type AuthzService interface {
	// Authorize decides whether id may perform action on res. A nil res means
	// the action targets no existing definition (e.g. create, list).
	Authorize(ctx context.Context, id Identity, action Action, res *Resource) error
	// AllowedFields returns the subset of the entity's fields visible to id.
	// Restricted fields are excluded silently rather than failing the request.
	AllowedFields(ctx context.Context, id Identity, entity *catalog.EntityDescriptor) (map[string]bool, error)
}

type AuthzServiceImpl struct {
	RoleRepo RoleRepository
}

func NewAuthzService(roleRepo RoleRepository) AuthzService {
	return &AuthzServiceImpl{RoleRepo: roleRepo}
}

func (s *AuthzServiceImpl) Authorize(ctx context.Context, id Identity, action Action, res *Resource) error {
	if id.UserID == "" || id.CompanyID == "" {
		return apperr.Authorization("no authenticated identity")
	}

	if res == nil {
		// Create/list are scoped to the caller's own company by construction.
		return nil
	}

	// Reasons stay coarse: they must not reveal whether the target exists in
	// another company or who owns it.
	if res.CompanyID != id.CompanyID {
		return apperr.Authorization("definition is not accessible")
	}
	if res.OwnerID == id.UserID {
		return nil
	}
	if res.Shared && action.readOnly() {
		return nil
	}
	if res.Shared {
		return apperr.Authorization("shared definitions are read-only")
	}
	return apperr.Authorization("definition is not accessible")
}

func (s *AuthzServiceImpl) AllowedFields(ctx context.Context, id Identity, entity *catalog.EntityDescriptor) (map[string]bool, error) {
	allowed := make(map[string]bool, len(entity.Fields))
	for _, f := range entity.Fields {
		allowed[f.Name] = true
	}

	companyID, err := primitive.ObjectIDFromHex(id.CompanyID)
	if err != nil {
		return nil, apperr.Authorization("no authenticated identity")
	}

	roles, err := s.RoleRepo.FindByNames(ctx, companyID, id.Roles)
	if err != nil {
		return nil, err
	}

	// A field is hidden as soon as any of the caller's roles restricts it.
	for _, role := range roles {
		for _, field := range role.HiddenFields[entity.Name] {
			delete(allowed, field)
		}
	}

	return allowed, nil
}
