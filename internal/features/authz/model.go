package authz

import (
	"context"

	"go-reporting/internal/common/apperr"
	"go-reporting/pkg/utils"
)

// Action is the operation being authorized.
type Action string

const (
	ActionCreate  Action = "create"
	ActionRead    Action = "read"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionExecute Action = "execute"
	ActionExport  Action = "export"
)

// readOnly reports whether the action leaves the target unchanged. Shared
// definitions grant these to company members; mutation stays with the owner.
func (a Action) readOnly() bool {
	switch a {
	case ActionRead, ActionExecute, ActionExport:
		return true
	}
	return false
}

// Identity is the authenticated caller.
type Identity struct {
	UserID    string
	CompanyID string
	Roles     []string
}

// IdentityFromContext resolves the caller injected by the auth middleware.
func IdentityFromContext(ctx context.Context) (Identity, error) {
	claims, ok := ctx.Value(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok || claims.UserID == "" || claims.CompanyID == "" {
		return Identity{}, apperr.Authorization("no authenticated identity")
	}
	return Identity{
		UserID:    claims.UserID,
		CompanyID: claims.CompanyID,
		Roles:     claims.Roles,
	}, nil
}

// Resource describes the target of an authorization check without coupling the
// gate to the definition package.
type Resource struct {
	OwnerID   string
	CompanyID string
	Shared    bool
}
