package definition

import (
	"context"

	"go-reporting/internal/common/apperr"
	"go-reporting/internal/features/audit"
	"go-reporting/internal/features/authz"
	"go-reporting/internal/features/catalog"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DefinitionService interface {
	CreateDefinition(ctx context.Context, def *ReportDefinition) (*ReportDefinition, error)
	GetDefinition(ctx context.Context, id string) (*ReportDefinition, error)
	ListDefinitions(ctx context.Context, includeShared bool) ([]Summary, error)
	// UpdateDefinition applies patch only when version matches the stored
	// stamp; a mismatch returns ConflictError and nothing is written.
	UpdateDefinition(ctx context.Context, id string, version int64, patch *ReportDefinition) (*ReportDefinition, error)
	DeleteDefinition(ctx context.Context, id string) error
}

type DefinitionServiceImpl struct {
	Repo         DefinitionRepository
	Registry     *catalog.Registry
	AuthzService authz.AuthzService
	AuditService audit.AuditService
}

func NewDefinitionService(repo DefinitionRepository, registry *catalog.Registry, authzService authz.AuthzService, auditService audit.AuditService) DefinitionService {
	return &DefinitionServiceImpl{
		Repo:         repo,
		Registry:     registry,
		AuthzService: authzService,
		AuditService: auditService,
	}
}

// resource adapts a definition for the authorization gate.
func resource(def *ReportDefinition) *authz.Resource {
	return &authz.Resource{
		OwnerID:   def.OwnerID.Hex(),
		CompanyID: def.CompanyID.Hex(),
		Shared:    def.Shared,
	}
}

// record writes the audit entry for a mutating call. An append failure aborts
// the operation, so err is propagated even when the action itself succeeded.
func (s *DefinitionServiceImpl) record(ctx context.Context, action audit.Action, targetID string, opErr error) error {
	outcome := audit.OutcomeSuccess
	detail := ""
	if opErr != nil {
		detail = opErr.Error()
		if apperr.Is(opErr, apperr.KindAuthorization) {
			outcome = audit.OutcomeDenied
		} else {
			outcome = audit.OutcomeError
		}
	}
	if auditErr := s.AuditService.Record(ctx, action, targetID, outcome, detail); auditErr != nil {
		return apperr.Execution("audit append failed", auditErr)
	}
	return opErr
}

func (s *DefinitionServiceImpl) CreateDefinition(ctx context.Context, def *ReportDefinition) (*ReportDefinition, error) {
	identity, err := authz.IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.AuthzService.Authorize(ctx, identity, authz.ActionCreate, nil); err != nil {
		return nil, s.record(ctx, audit.ActionCreate, "", err)
	}

	if err := Validate(s.Registry, def); err != nil {
		return nil, s.record(ctx, audit.ActionCreate, "", err)
	}

	def.ID = primitive.NewObjectID()
	def.OwnerID, _ = primitive.ObjectIDFromHex(identity.UserID)
	def.CompanyID, _ = primitive.ObjectIDFromHex(identity.CompanyID)

	if err := s.Repo.Create(ctx, def); err != nil {
		return nil, s.record(ctx, audit.ActionCreate, def.ID.Hex(), err)
	}
	if err := s.record(ctx, audit.ActionCreate, def.ID.Hex(), nil); err != nil {
		return nil, err
	}
	return def, nil
}

func (s *DefinitionServiceImpl) GetDefinition(ctx context.Context, id string) (*ReportDefinition, error) {
	identity, err := authz.IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound("definition '%s' not found", id)
	}

	def, err := s.Repo.Get(ctx, oid)
	if err != nil {
		return nil, err
	}

	if authErr := s.AuthzService.Authorize(ctx, identity, authz.ActionRead, resource(def)); authErr != nil {
		// The denial goes to the audit trail so probing shows up there, but
		// the caller only ever learns that nothing was found.
		if err := s.record(ctx, audit.ActionRead, id, authErr); !apperr.Is(err, apperr.KindAuthorization) {
			return nil, err
		}
		return nil, apperr.NotFound("definition '%s' not found", id)
	}
	return def, nil
}

func (s *DefinitionServiceImpl) ListDefinitions(ctx context.Context, includeShared bool) ([]Summary, error) {
	identity, err := authz.IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.AuthzService.Authorize(ctx, identity, authz.ActionRead, nil); err != nil {
		return nil, err
	}

	companyID, _ := primitive.ObjectIDFromHex(identity.CompanyID)
	ownerID, _ := primitive.ObjectIDFromHex(identity.UserID)
	return s.Repo.List(ctx, companyID, &ownerID, includeShared)
}

func (s *DefinitionServiceImpl) UpdateDefinition(ctx context.Context, id string, version int64, patch *ReportDefinition) (*ReportDefinition, error) {
	identity, err := authz.IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound("definition '%s' not found", id)
	}

	existing, err := s.Repo.Get(ctx, oid)
	if err != nil {
		return nil, err
	}

	if err := s.AuthzService.Authorize(ctx, identity, authz.ActionUpdate, resource(existing)); err != nil {
		return nil, s.record(ctx, audit.ActionUpdate, id, err)
	}

	updated := *existing
	updated.Name = patch.Name
	updated.Description = patch.Description
	updated.Entity = patch.Entity
	updated.Fields = patch.Fields
	updated.Filters = patch.Filters
	updated.Grouping = patch.Grouping
	updated.Sort = patch.Sort
	updated.Shared = patch.Shared

	if err := Validate(s.Registry, &updated); err != nil {
		return nil, s.record(ctx, audit.ActionUpdate, id, err)
	}

	if err := s.Repo.Update(ctx, &updated, version); err != nil {
		return nil, s.record(ctx, audit.ActionUpdate, id, err)
	}
	if err := s.record(ctx, audit.ActionUpdate, id, nil); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *DefinitionServiceImpl) DeleteDefinition(ctx context.Context, id string) error {
	identity, err := authz.IdentityFromContext(ctx)
	if err != nil {
		return err
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.NotFound("definition '%s' not found", id)
	}

	existing, err := s.Repo.Get(ctx, oid)
	if err != nil {
		return err
	}

	if err := s.AuthzService.Authorize(ctx, identity, authz.ActionDelete, resource(existing)); err != nil {
		return s.record(ctx, audit.ActionDelete, id, err)
	}

	// Hard delete. Historical executions keep their own copy of everything
	// they need, so they stay readable after this.
	if err := s.Repo.Delete(ctx, oid); err != nil {
		return s.record(ctx, audit.ActionDelete, id, err)
	}
	return s.record(ctx, audit.ActionDelete, id, nil)
}
