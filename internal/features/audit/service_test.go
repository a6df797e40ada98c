package audit

import (
	"context"
	"errors"
	"testing"

	"go-reporting/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeAuditRepo struct {
	created []Entry
	err     error
}

func (f *fakeAuditRepo) Create(ctx context.Context, entry Entry) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, entry)
	return nil
}

func (f *fakeAuditRepo) List(ctx context.Context, query bson.M, limit, offset int64) ([]Entry, error) {
	return nil, nil
}

func TestRecordCapturesIdentity(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := NewAuditService(repo, zap.NewNop())

	companyID := primitive.NewObjectID()
	ctx := context.WithValue(context.Background(), utils.UserClaimsKey, &utils.UserClaims{
		UserID:    "user-1",
		CompanyID: companyID.Hex(),
	})

	err := svc.Record(ctx, ActionExecute, "def-1", OutcomeSuccess, "")
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	entry := repo.created[0]
	assert.Equal(t, "user-1", entry.ActorID)
	assert.Equal(t, companyID, entry.CompanyID)
	assert.Equal(t, ActionExecute, entry.Action)
	assert.Equal(t, "def-1", entry.TargetID)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestRecordWithoutIdentityFallsBackToSystem(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := NewAuditService(repo, zap.NewNop())

	err := svc.Record(context.Background(), ActionDelete, "def-2", OutcomeError, "boom")
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	assert.Equal(t, "system", repo.created[0].ActorID)
}

func TestRecordPropagatesAppendFailure(t *testing.T) {
	repo := &fakeAuditRepo{err: errors.New("write concern failed")}
	svc := NewAuditService(repo, zap.NewNop())

	err := svc.Record(context.Background(), ActionCreate, "def-3", OutcomeSuccess, "")
	require.Error(t, err)
}
