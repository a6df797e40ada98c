package execution

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-reporting/internal/common/apperr"
	"go-reporting/internal/config"
	"go-reporting/internal/features/audit"
	"go-reporting/internal/features/authz"
	"go-reporting/internal/features/catalog"
	"go-reporting/internal/features/definition"
	"go-reporting/internal/features/plan"
	"go-reporting/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeDefRepo struct {
	defs map[primitive.ObjectID]*definition.ReportDefinition
}

func (f *fakeDefRepo) Create(ctx context.Context, def *definition.ReportDefinition) error { return nil }
func (f *fakeDefRepo) Get(ctx context.Context, id primitive.ObjectID) (*definition.ReportDefinition, error) {
	def, ok := f.defs[id]
	if !ok {
		return nil, apperr.NotFound("definition '%s' not found", id.Hex())
	}
	copied := *def
	return &copied, nil
}
func (f *fakeDefRepo) List(ctx context.Context, companyID primitive.ObjectID, ownerID *primitive.ObjectID, includeShared bool) ([]definition.Summary, error) {
	return nil, nil
}
func (f *fakeDefRepo) Update(ctx context.Context, def *definition.ReportDefinition, expectedVersion int64) error {
	return nil
}
func (f *fakeDefRepo) Delete(ctx context.Context, id primitive.ObjectID) error { return nil }

type fakeExecRepo struct {
	mu       sync.Mutex
	created  []*ReportExecution
	finished []*ReportExecution
}

func (f *fakeExecRepo) Create(ctx context.Context, exec *ReportExecution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *exec
	f.created = append(f.created, &copied)
	return nil
}
func (f *fakeExecRepo) Finish(ctx context.Context, exec *ReportExecution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *exec
	f.finished = append(f.finished, &copied)
	return nil
}
func (f *fakeExecRepo) Get(ctx context.Context, id primitive.ObjectID) (*ReportExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.finished {
		if e.ID == id {
			copied := *e
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("execution '%s' not found", id.Hex())
}
func (f *fakeExecRepo) List(ctx context.Context, companyID primitive.ObjectID, userID *primitive.ObjectID, limit, offset int64) ([]Summary, error) {
	return nil, nil
}
func (f *fakeExecRepo) ExpireSnapshots(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeExecRepo) lastFinished(t *testing.T) *ReportExecution {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.finished)
	return f.finished[len(f.finished)-1]
}

type fakeAuthz struct {
	denyExecute bool
}

func (f *fakeAuthz) Authorize(ctx context.Context, id authz.Identity, action authz.Action, res *authz.Resource) error {
	if f.denyExecute && action == authz.ActionExecute {
		return apperr.Authorization("definition is not accessible")
	}
	return nil
}
func (f *fakeAuthz) AllowedFields(ctx context.Context, id authz.Identity, entity *catalog.EntityDescriptor) (map[string]bool, error) {
	allowed := make(map[string]bool, len(entity.Fields))
	for _, field := range entity.Fields {
		allowed[field.Name] = true
	}
	return allowed, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (f *fakeAudit) Record(ctx context.Context, action audit.Action, targetID string, outcome audit.Outcome, detail string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, audit.Entry{Action: action, TargetID: targetID, Outcome: outcome, Detail: detail})
	return nil
}
func (f *fakeAudit) ListEntries(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]audit.Entry, error) {
	return nil, nil
}

func (f *fakeAudit) last(t *testing.T) audit.Entry {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.entries)
	return f.entries[len(f.entries)-1]
}

type fakeRowSource struct {
	mu    sync.Mutex
	rows  []map[string]interface{}
	errs  []error // consumed per call before rows are returned
	block bool    // wait for ctx cancellation instead of answering

	calls       int
	lastLimit   int64
	lastOffset  int64
	lastOrder   []plan.Ordering
	lastPreds   []plan.Predicate
	lastProject []string
}

func (f *fakeRowSource) Query(ctx context.Context, entity string, predicates []plan.Predicate, projection []string, ordering []plan.Ordering, limit, offset int64) ([]map[string]interface{}, error) {
	f.mu.Lock()
	f.calls++
	f.lastLimit = limit
	f.lastOffset = offset
	f.lastOrder = ordering
	f.lastPreds = predicates
	f.lastProject = projection
	var err error
	if len(f.errs) > 0 {
		err = f.errs[0]
		f.errs = f.errs[1:]
	}
	block := f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	out := f.rows
	if offset < int64(len(out)) {
		out = out[offset:]
	} else {
		out = nil
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

type execFixture struct {
	service ExecutionService
	repo    *fakeExecRepo
	defs    *fakeDefRepo
	rows    *fakeRowSource
	audit   *fakeAudit
	authz   *fakeAuthz
	cfg     *config.Config

	userID    primitive.ObjectID
	companyID primitive.ObjectID
}

func newExecFixture(t *testing.T) *execFixture {
	t.Helper()

	cfg := &config.Config{
		MaxPageSize:        500,
		RowCap:             1000,
		ExecutionTimeout:   time.Second,
		CompanyConcurrency: 2,
	}
	registry := catalog.NewRegistry()

	f := &execFixture{
		repo:      &fakeExecRepo{},
		defs:      &fakeDefRepo{defs: map[primitive.ObjectID]*definition.ReportDefinition{}},
		rows:      &fakeRowSource{},
		audit:     &fakeAudit{},
		authz:     &fakeAuthz{},
		cfg:       cfg,
		userID:    primitive.NewObjectID(),
		companyID: primitive.NewObjectID(),
	}
	f.service = NewExecutionService(
		f.repo,
		f.defs,
		registry,
		f.authz,
		f.audit,
		plan.NewBuilder(registry, cfg.MaxPageSize),
		f.rows,
		NewCompanyLimiter(cfg.CompanyConcurrency),
		cfg,
		zap.NewNop(),
	)
	return f
}

func (f *execFixture) ctx() context.Context {
	return context.WithValue(context.Background(), utils.UserClaimsKey, &utils.UserClaims{
		UserID:    f.userID.Hex(),
		CompanyID: f.companyID.Hex(),
		Roles:     []string{"admin"},
	})
}

func (f *execFixture) addDefinition(def *definition.ReportDefinition) *definition.ReportDefinition {
	if def.ID.IsZero() {
		def.ID = primitive.NewObjectID()
	}
	def.OwnerID = f.userID
	def.CompanyID = f.companyID
	if def.Version == 0 {
		def.Version = 1
	}
	f.defs.defs[def.ID] = def
	return def
}

func limaCustomersDefinition() *definition.ReportDefinition {
	return &definition.ReportDefinition{
		Name:   "Lima customers",
		Entity: "customers",
		Fields: []string{"name", "city", "created_at"},
		Filters: []definition.Filter{
			{Field: "city", Operator: definition.OpEquals, Value: "Lima"},
		},
		Sort: []definition.Sort{{Field: "name"}},
	}
}

func TestExecuteReportFlat(t *testing.T) {
	f := newExecFixture(t)
	def := f.addDefinition(limaCustomersDefinition())

	created := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	f.rows.rows = []map[string]interface{}{
		{"name": "Andes Outfitters", "city": "Lima", "created_at": created},
		{"name": "Pacifico Foods", "city": "Lima", "created_at": created.AddDate(0, 0, 3)},
	}

	exec, err := f.service.ExecuteReport(f.ctx(), def.ID.Hex(), ExecuteRequest{})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, exec.Status)
	assert.Equal(t, def.ID, exec.DefinitionID)
	assert.Equal(t, int64(1), exec.DefinitionVersion)
	assert.Equal(t, int64(2), exec.RowCount)
	assert.False(t, exec.Truncated)
	require.NotNil(t, exec.FinishedAt)

	require.NotNil(t, exec.Snapshot)
	assert.Equal(t, []string{"name", "city", "created_at"}, exec.Snapshot.Columns)
	require.Len(t, exec.Snapshot.Rows, 2)
	assert.Equal(t, "Andes Outfitters", exec.Snapshot.Rows[0][0])
	assert.Equal(t, "Pacifico Foods", exec.Snapshot.Rows[1][0])

	// The filter and the deterministic ordering reach the row source.
	require.Len(t, f.rows.lastPreds, 1)
	assert.Equal(t, "city", f.rows.lastPreds[0].Field)
	assert.Equal(t, "Lima", f.rows.lastPreds[0].Value)
	assert.Equal(t, []plan.Ordering{{Field: "name"}, {Field: "_id"}}, f.rows.lastOrder)

	finished := f.repo.lastFinished(t)
	assert.Equal(t, StatusCompleted, finished.Status)

	entry := f.audit.last(t)
	assert.Equal(t, audit.ActionExecute, entry.Action)
	assert.Equal(t, audit.OutcomeSuccess, entry.Outcome)
}

func TestExecuteReportGrouped(t *testing.T) {
	f := newExecFixture(t)
	def := f.addDefinition(&definition.ReportDefinition{
		Name:   "Revenue by city",
		Entity: "sales",
		Fields: []string{"city", "total_amount"},
		Grouping: &definition.Grouping{
			GroupBy: []string{"city"},
			Aggregates: []definition.Aggregation{
				{Field: "total_amount", Fn: definition.AggSum},
			},
		},
	})

	f.rows.rows = []map[string]interface{}{
		{"city": "Lima", "total_amount": 1250.50},
		{"city": "Cusco", "total_amount": 430.25},
		{"city": "Lima", "total_amount": 2210.00},
		{"city": "Arequipa", "total_amount": 19400.00},
	}

	exec, err := f.service.ExecuteReport(f.ctx(), def.ID.Hex(), ExecuteRequest{})
	require.NoError(t, err)

	require.NotNil(t, exec.Snapshot)
	assert.Equal(t, []string{"city", "sum_total_amount"}, exec.Snapshot.Columns)
	require.Len(t, exec.Snapshot.Rows, 3)

	// One row per city, ordered by the group key.
	assert.Equal(t, []interface{}{"Arequipa", 19400.00}, exec.Snapshot.Rows[0])
	assert.Equal(t, []interface{}{"Cusco", 430.25}, exec.Snapshot.Rows[1])
	assert.Equal(t, []interface{}{"Lima", 3460.50}, exec.Snapshot.Rows[2])
}

func TestExecuteReportGroupedSortTiesBreakOnGroupKey(t *testing.T) {
	// All cities tie on the sorted aggregate; the group order must still be
	// the same no matter which order the store returns the rows in.
	groupedDef := func() *definition.ReportDefinition {
		return &definition.ReportDefinition{
			Name:   "Revenue by city",
			Entity: "sales",
			Fields: []string{"city", "total_amount"},
			Grouping: &definition.Grouping{
				GroupBy: []string{"city"},
				Aggregates: []definition.Aggregation{
					{Field: "total_amount", Fn: definition.AggSum},
				},
			},
			Sort: []definition.Sort{{Field: "sum_total_amount", Desc: true}},
		}
	}

	storageOrders := [][]map[string]interface{}{
		{
			{"city": "Lima", "total_amount": 100.0},
			{"city": "Cusco", "total_amount": 100.0},
			{"city": "Arequipa", "total_amount": 100.0},
		},
		{
			{"city": "Arequipa", "total_amount": 100.0},
			{"city": "Lima", "total_amount": 100.0},
			{"city": "Cusco", "total_amount": 100.0},
		},
	}

	var snapshots []*Snapshot
	for _, rows := range storageOrders {
		f := newExecFixture(t)
		def := f.addDefinition(groupedDef())
		f.rows.rows = rows

		exec, err := f.service.ExecuteReport(f.ctx(), def.ID.Hex(), ExecuteRequest{})
		require.NoError(t, err)
		require.NotNil(t, exec.Snapshot)
		snapshots = append(snapshots, exec.Snapshot)
	}

	assert.Equal(t, snapshots[0].Rows, snapshots[1].Rows)
	assert.Equal(t, [][]interface{}{
		{"Arequipa", 100.0},
		{"Cusco", 100.0},
		{"Lima", 100.0},
	}, snapshots[0].Rows)
}

func TestExecuteReportPageWindow(t *testing.T) {
	f := newExecFixture(t)
	def := f.addDefinition(limaCustomersDefinition())

	f.rows.rows = []map[string]interface{}{
		{"name": "A", "city": "Lima"},
		{"name": "B", "city": "Lima"},
		{"name": "C", "city": "Lima"},
	}

	exec, err := f.service.ExecuteReport(f.ctx(), def.ID.Hex(), ExecuteRequest{Page: 1, PageSize: 2})
	require.NoError(t, err)

	assert.Equal(t, int64(2), exec.RowCount)
	// A third row exists past this page.
	assert.True(t, exec.Truncated)
	// One row beyond the page is fetched to detect continuation.
	assert.Equal(t, int64(3), f.rows.lastLimit)
	assert.Equal(t, int64(0), f.rows.lastOffset)
}

func TestExecuteReportGroupedRowCap(t *testing.T) {
	f := newExecFixture(t)
	f.cfg.RowCap = 3
	def := f.addDefinition(&definition.ReportDefinition{
		Name:   "count by city",
		Entity: "sales",
		Fields: []string{"city"},
		Grouping: &definition.Grouping{
			GroupBy:    []string{"city"},
			Aggregates: []definition.Aggregation{{Fn: definition.AggCount}},
		},
	})

	f.rows.rows = []map[string]interface{}{
		{"city": "Lima"}, {"city": "Lima"}, {"city": "Cusco"}, {"city": "Cusco"}, {"city": "Arequipa"},
	}

	exec, err := f.service.ExecuteReport(f.ctx(), def.ID.Hex(), ExecuteRequest{})
	require.NoError(t, err)
	assert.True(t, exec.Truncated)
	// Only the capped prefix is aggregated.
	require.NotNil(t, exec.Snapshot)
	assert.Equal(t, []string{"city", "count"}, exec.Snapshot.Columns)
	assert.Len(t, exec.Snapshot.Rows, 2)
}

func TestExecuteReportTimeout(t *testing.T) {
	f := newExecFixture(t)
	f.cfg.ExecutionTimeout = 20 * time.Millisecond
	def := f.addDefinition(limaCustomersDefinition())
	f.rows.block = true

	_, err := f.service.ExecuteReport(f.ctx(), def.ID.Hex(), ExecuteRequest{})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindTimeout))

	finished := f.repo.lastFinished(t)
	assert.Equal(t, StatusTimedOut, finished.Status)
	assert.Nil(t, finished.Snapshot)
	assert.NotEmpty(t, finished.Error)

	entry := f.audit.last(t)
	assert.Equal(t, audit.OutcomeError, entry.Outcome)
}

func TestExecuteReportRetriesTransientFailures(t *testing.T) {
	f := newExecFixture(t)
	def := f.addDefinition(limaCustomersDefinition())

	f.rows.errs = []error{errors.New("connection reset"), errors.New("connection reset")}
	f.rows.rows = []map[string]interface{}{{"name": "A", "city": "Lima"}}

	exec, err := f.service.ExecuteReport(f.ctx(), def.ID.Hex(), ExecuteRequest{})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, exec.Status)
	assert.Equal(t, 3, f.rows.calls)
}

func TestExecuteReportFailsAfterRetriesExhausted(t *testing.T) {
	f := newExecFixture(t)
	def := f.addDefinition(limaCustomersDefinition())

	f.rows.errs = []error{
		errors.New("connection reset"),
		errors.New("connection reset"),
		errors.New("connection reset"),
	}

	_, err := f.service.ExecuteReport(f.ctx(), def.ID.Hex(), ExecuteRequest{})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindExecution))

	finished := f.repo.lastFinished(t)
	assert.Equal(t, StatusFailed, finished.Status)
	assert.Contains(t, finished.Error, "connection reset")
}

func TestExecuteReportDenied(t *testing.T) {
	f := newExecFixture(t)
	f.authz.denyExecute = true
	def := f.addDefinition(limaCustomersDefinition())

	_, err := f.service.ExecuteReport(f.ctx(), def.ID.Hex(), ExecuteRequest{})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	entry := f.audit.last(t)
	assert.Equal(t, audit.OutcomeDenied, entry.Outcome)
	// Nothing was run or persisted.
	assert.Empty(t, f.repo.created)
	assert.Zero(t, f.rows.calls)
}

func TestExecuteReportAuditFailureAborts(t *testing.T) {
	f := newExecFixture(t)
	def := f.addDefinition(limaCustomersDefinition())
	f.rows.rows = []map[string]interface{}{{"name": "A", "city": "Lima"}}
	f.audit.err = errors.New("audit store down")

	_, err := f.service.ExecuteReport(f.ctx(), def.ID.Hex(), ExecuteRequest{})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindExecution))
	assert.Contains(t, err.Error(), "audit append failed")
}

func TestExecuteReportUnknownDefinition(t *testing.T) {
	f := newExecFixture(t)

	_, err := f.service.ExecuteReport(f.ctx(), primitive.NewObjectID().Hex(), ExecuteRequest{})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.service.ExecuteReport(f.ctx(), "not-an-id", ExecuteRequest{})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGetExecutionScopedToCompany(t *testing.T) {
	f := newExecFixture(t)
	def := f.addDefinition(limaCustomersDefinition())
	f.rows.rows = []map[string]interface{}{{"name": "A", "city": "Lima"}}

	exec, err := f.service.ExecuteReport(f.ctx(), def.ID.Hex(), ExecuteRequest{})
	require.NoError(t, err)

	got, err := f.service.GetExecution(f.ctx(), exec.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, exec.ID, got.ID)

	// A caller from another company sees nothing, not a denial.
	otherCtx := context.WithValue(context.Background(), utils.UserClaimsKey, &utils.UserClaims{
		UserID:    primitive.NewObjectID().Hex(),
		CompanyID: primitive.NewObjectID().Hex(),
		Roles:     []string{"admin"},
	})
	_, err = f.service.GetExecution(otherCtx, exec.ID.Hex())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
