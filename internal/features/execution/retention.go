package execution

import (
	"context"
	"time"

	"go-reporting/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RetentionSweeper periodically drops result snapshots that outlived the
// configured retention window. Execution metadata is kept; only the bulky
// snapshot payload goes away.
type RetentionSweeper struct {
	Repo      ExecutionRepository
	Retention time.Duration
	Logger    *zap.Logger

	scheduler *cron.Cron
}

func NewRetentionSweeper(repo ExecutionRepository, cfg *config.Config, logger *zap.Logger) *RetentionSweeper {
	return &RetentionSweeper{
		Repo:      repo,
		Retention: cfg.SnapshotRetention,
		Logger:    logger,
	}
}

// Start schedules the nightly sweep. Safe to call once per process.
func (s *RetentionSweeper) Start() {
	s.scheduler = cron.New()
	s.scheduler.AddFunc("15 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.Logger.Error("snapshot retention sweep failed", zap.Error(err))
		}
	})
	s.scheduler.Start()
}

func (s *RetentionSweeper) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// Sweep expires snapshots finished before now minus the retention window.
func (s *RetentionSweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.Retention)
	n, err := s.Repo.ExpireSnapshots(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Logger.Info("expired report snapshots",
			zap.Int64("count", n),
			zap.Time("cutoff", cutoff))
	}
	return n, nil
}
