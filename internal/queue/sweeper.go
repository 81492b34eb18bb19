package queue

import (
	"context"

	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/config"
	"github.com/atum-helpdesk/atum/internal/repository"
)

// Sweeper returns RUNNING jobs with expired leases to PENDING. It runs
// on a cron schedule from the worker process.
type Sweeper struct {
	jobs   repository.JobRepository
	cfg    config.QueueConfig
	logger *zap.Logger
}

// NewSweeper builds the sweeper.
func NewSweeper(jobs repository.JobRepository, cfg config.QueueConfig, logger *zap.Logger) *Sweeper {
	return &Sweeper{jobs: jobs, cfg: cfg, logger: logger}
}

// Sweep requeues every stuck job once.
func (s *Sweeper) Sweep(ctx context.Context) {
	requeued, err := s.jobs.RequeueStuck(ctx, s.cfg.Lease())
	if err != nil {
		s.logger.Error("stuck-job sweep failed", zap.Error(err))
		return
	}
	if requeued > 0 {
		s.logger.Warn("requeued stuck jobs", zap.Int64("count", requeued))
	}
}
