package execution

import (
	"context"
	"errors"
	"time"

	"go-reporting/internal/common/apperr"
	"go-reporting/internal/config"
	"go-reporting/internal/datasource"
	"go-reporting/internal/features/audit"
	"go-reporting/internal/features/authz"
	"go-reporting/internal/features/catalog"
	"go-reporting/internal/features/definition"
	"go-reporting/internal/features/plan"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	queryAttempts  = 3
	retryBaseDelay = 100 * time.Millisecond
)

// ExecuteRequest carries the runtime knobs of one execution: extra filters
// that narrow the stored definition, and the requested result window.
type ExecuteRequest struct {
	Filters  []definition.Filter `json:"filters"`
	Page     int64               `json:"page"`
	PageSize int64               `json:"page_size"`
}

type ExecutionService interface {
	// ExecuteReport compiles and runs the definition synchronously, returning
	// the finished execution record including its snapshot.
	ExecuteReport(ctx context.Context, definitionID string, req ExecuteRequest) (*ReportExecution, error)
	GetExecution(ctx context.Context, id string) (*ReportExecution, error)
	ListExecutions(ctx context.Context, mineOnly bool, page, limit int64) ([]Summary, error)
}

type ExecutionServiceImpl struct {
	Repo        ExecutionRepository
	Definitions definition.DefinitionRepository
	Registry    *catalog.Registry
	AuthzSvc    authz.AuthzService
	AuditSvc    audit.AuditService
	Builder     *plan.Builder
	Rows        datasource.RowSource
	Limiter     *CompanyLimiter
	Config      *config.Config
	Logger      *zap.Logger
}

func NewExecutionService(
	repo ExecutionRepository,
	definitions definition.DefinitionRepository,
	registry *catalog.Registry,
	authzSvc authz.AuthzService,
	auditSvc audit.AuditService,
	builder *plan.Builder,
	rows datasource.RowSource,
	limiter *CompanyLimiter,
	cfg *config.Config,
	logger *zap.Logger,
) ExecutionService {
	return &ExecutionServiceImpl{
		Repo:        repo,
		Definitions: definitions,
		Registry:    registry,
		AuthzSvc:    authzSvc,
		AuditSvc:    auditSvc,
		Builder:     builder,
		Rows:        rows,
		Limiter:     limiter,
		Config:      cfg,
		Logger:      logger,
	}
}

// record writes the audit entry for an execution attempt. An append failure
// aborts the operation, so its error wins over opErr.
func (s *ExecutionServiceImpl) record(ctx context.Context, targetID string, opErr error) error {
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
	if auditErr := s.AuditSvc.Record(ctx, audit.ActionExecute, targetID, outcome, detail); auditErr != nil {
		return apperr.Execution("audit append failed", auditErr)
	}
	return opErr
}

func (s *ExecutionServiceImpl) ExecuteReport(ctx context.Context, definitionID string, req ExecuteRequest) (*ReportExecution, error) {
	identity, err := authz.IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}

	oid, err := primitive.ObjectIDFromHex(definitionID)
	if err != nil {
		return nil, apperr.NotFound("definition '%s' not found", definitionID)
	}

	def, err := s.Definitions.Get(ctx, oid)
	if err != nil {
		return nil, err
	}

	if authErr := s.AuthzSvc.Authorize(ctx, identity, authz.ActionExecute, &authz.Resource{
		OwnerID:   def.OwnerID.Hex(),
		CompanyID: def.CompanyID.Hex(),
		Shared:    def.Shared,
	}); authErr != nil {
		err := s.record(ctx, definitionID, authErr)
		if def.CompanyID.Hex() != identity.CompanyID && apperr.Is(err, apperr.KindAuthorization) {
			// Do not reveal that the definition exists in another company.
			err = apperr.NotFound("definition '%s' not found", definitionID)
		}
		return nil, err
	}

	entity, err := s.Registry.Entity(def.Entity)
	if err != nil {
		return nil, s.record(ctx, definitionID, err)
	}

	allowed, err := s.AuthzSvc.AllowedFields(ctx, identity, entity)
	if err != nil {
		return nil, s.record(ctx, definitionID, err)
	}

	qp, err := s.Builder.Build(def, req.Filters, plan.Page{Number: req.Page, Size: req.PageSize}, allowed)
	if err != nil {
		return nil, s.record(ctx, definitionID, err)
	}

	// The slot is taken before the run is recorded, so a queued execution
	// never shows up as running.
	if err := s.Limiter.Acquire(ctx, identity.CompanyID); err != nil {
		return nil, s.record(ctx, definitionID, apperr.Execution("execution slot unavailable", err))
	}
	defer s.Limiter.Release(identity.CompanyID)

	userID, _ := primitive.ObjectIDFromHex(identity.UserID)
	companyID, _ := primitive.ObjectIDFromHex(identity.CompanyID)

	exec := &ReportExecution{
		ID:                primitive.NewObjectID(),
		DefinitionID:      oid,
		DefinitionVersion: qp.DefinitionVersion,
		CompanyID:         companyID,
		UserID:            userID,
		Entity:            qp.Entity,
		Status:            StatusRunning,
		StartedAt:         time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, exec); err != nil {
		return nil, s.record(ctx, definitionID, apperr.Execution("recording execution failed", err))
	}

	runCtx, cancel := context.WithTimeout(ctx, s.Config.ExecutionTimeout)
	defer cancel()

	rows, truncated, runErr := s.runPlan(runCtx, qp)

	// The terminal write must survive the run context being done.
	finishCtx := context.WithoutCancel(ctx)
	now := time.Now().UTC()
	exec.FinishedAt = &now
	exec.DurationMS = now.Sub(exec.StartedAt).Milliseconds()

	if runErr != nil {
		var opErr error
		if errors.Is(runErr, context.DeadlineExceeded) {
			exec.Status = StatusTimedOut
			exec.Error = "execution exceeded the configured time budget"
			opErr = apperr.Timeout(exec.Error)
		} else {
			exec.Status = StatusFailed
			exec.Error = runErr.Error()
			opErr = apperr.Execution("report execution failed", runErr)
		}
		if err := s.Repo.Finish(finishCtx, exec); err != nil {
			s.Logger.Error("failed to persist terminal execution state",
				zap.String("execution", exec.ID.Hex()), zap.Error(err))
		}
		return nil, s.record(ctx, definitionID, opErr)
	}

	exec.Status = StatusCompleted
	exec.RowCount = int64(len(rows))
	exec.Truncated = truncated
	exec.Snapshot = snapshotFromRows(qp.Columns(), rows)

	if err := s.Repo.Finish(finishCtx, exec); err != nil {
		return nil, s.record(ctx, definitionID, apperr.Execution("persisting execution result failed", err))
	}
	if err := s.record(ctx, definitionID, nil); err != nil {
		return nil, err
	}
	return exec, nil
}

// runPlan materializes the plan's result rows. Flat plans push ordering and
// the page window down to the row source; grouped plans fetch the matching
// rows (bounded by the row cap) and aggregate in memory.
func (s *ExecutionServiceImpl) runPlan(ctx context.Context, qp *plan.QueryPlan) ([]map[string]interface{}, bool, error) {
	if !qp.Grouped() {
		// One extra row tells us whether the result continues past this page.
		rows, err := s.queryRows(ctx, qp.Entity, qp.Predicates, qp.Fields, qp.OrderBy, qp.PageSize+1, qp.Offset())
		if err != nil {
			return nil, false, err
		}
		truncated := int64(len(rows)) > qp.PageSize
		if truncated {
			rows = rows[:qp.PageSize]
		}
		return rows, truncated, nil
	}

	projection := append([]string(nil), qp.GroupBy...)
	seen := make(map[string]bool, len(projection))
	for _, f := range qp.GroupBy {
		seen[f] = true
	}
	for _, a := range qp.Aggregates {
		if a.Field != "" && !seen[a.Field] {
			projection = append(projection, a.Field)
			seen[a.Field] = true
		}
	}

	raw, err := s.queryRows(ctx, qp.Entity, qp.Predicates, projection, nil, s.Config.RowCap+1, 0)
	if err != nil {
		return nil, false, err
	}
	truncated := int64(len(raw)) > s.Config.RowCap
	if truncated {
		raw = raw[:s.Config.RowCap]
	}

	grouped := aggregateRows(raw, qp.GroupBy, qp.Aggregates)
	sortRows(grouped, qp.OrderBy)

	offset := qp.Offset()
	if offset >= int64(len(grouped)) {
		return []map[string]interface{}{}, truncated, nil
	}
	end := offset + qp.PageSize
	if end > int64(len(grouped)) {
		end = int64(len(grouped))
	}
	return grouped[offset:end], truncated, nil
}

// queryRows issues the read with a short bounded retry for transient storage
// failures. A done context is never retried.
func (s *ExecutionServiceImpl) queryRows(ctx context.Context, entity string, predicates []plan.Predicate, projection []string, ordering []plan.Ordering, limit, offset int64) ([]map[string]interface{}, error) {
	var lastErr error
	for attempt := 0; attempt < queryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBaseDelay << (attempt - 1)):
			}
		}

		rows, err := s.Rows.Query(ctx, entity, predicates, projection, ordering, limit, offset)
		if err == nil {
			return rows, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		s.Logger.Warn("row source query failed",
			zap.String("entity", entity),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return nil, lastErr
}

func (s *ExecutionServiceImpl) GetExecution(ctx context.Context, id string) (*ReportExecution, error) {
	identity, err := authz.IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound("execution '%s' not found", id)
	}

	exec, err := s.Repo.Get(ctx, oid)
	if err != nil {
		return nil, err
	}
	if exec.CompanyID.Hex() != identity.CompanyID {
		return nil, apperr.NotFound("execution '%s' not found", id)
	}
	return exec, nil
}

func (s *ExecutionServiceImpl) ListExecutions(ctx context.Context, mineOnly bool, page, limit int64) ([]Summary, error) {
	identity, err := authz.IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = plan.DefaultPageSize
	}
	if limit > s.Config.MaxPageSize {
		limit = s.Config.MaxPageSize
	}

	companyID, _ := primitive.ObjectIDFromHex(identity.CompanyID)
	var userID *primitive.ObjectID
	if mineOnly {
		uid, _ := primitive.ObjectIDFromHex(identity.UserID)
		userID = &uid
	}
	return s.Repo.List(ctx, companyID, userID, limit, (page-1)*limit)
}
