package audit

import (
	"context"
	"time"

	"go-reporting/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type AuditService interface {
	// Record appends one entry for the calling identity. A returned error must
	// abort the surrounding mutating action: auditing is a compliance
	// requirement, not best-effort telemetry.
	Record(ctx context.Context, action Action, targetID string, outcome Outcome, detail string) error
	ListEntries(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]Entry, error)
}

type AuditServiceImpl struct {
	Repo   AuditRepository
	Logger *zap.Logger
}

func NewAuditService(repo AuditRepository, logger *zap.Logger) AuditService {
	return &AuditServiceImpl{
		Repo:   repo,
		Logger: logger,
	}
}

func (s *AuditServiceImpl) Record(ctx context.Context, action Action, targetID string, outcome Outcome, detail string) error {
	entry := Entry{
		ID:        primitive.NewObjectID(),
		ActorID:   "system",
		Action:    action,
		TargetID:  targetID,
		Outcome:   outcome,
		Detail:    detail,
		Timestamp: time.Now(),
	}

	if claims, ok := ctx.Value(utils.UserClaimsKey).(*utils.UserClaims); ok {
		entry.ActorID = claims.UserID
		if oid, err := primitive.ObjectIDFromHex(claims.CompanyID); err == nil {
			entry.CompanyID = oid
		}
	}

	if err := s.Repo.Create(ctx, entry); err != nil {
		s.Logger.Error("audit append failed",
			zap.String("action", string(action)),
			zap.String("target", targetID),
			zap.Error(err))
		return err
	}
	return nil
}

func (s *AuditServiceImpl) ListEntries(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]Entry, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	offset := (page - 1) * limit

	query := bson.M{}

	// Inspection is always company-scoped.
	if claims, ok := ctx.Value(utils.UserClaimsKey).(*utils.UserClaims); ok {
		if oid, err := primitive.ObjectIDFromHex(claims.CompanyID); err == nil {
			query["company_id"] = oid
		}
	}

	for k, v := range filters {
		if v == nil {
			continue
		}
		if str, ok := v.(string); ok && str == "" {
			continue
		}
		query[k] = v
	}

	return s.Repo.List(ctx, query, limit, offset)
}
