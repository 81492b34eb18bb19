// Package queue runs the durable background-job workers. Jobs are leased
// from the database with SKIP LOCKED claims, executed under the
// originating tenant's bound transaction, and completed, retried with
// exponential backoff, or terminally failed.
package queue

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/config"
	"github.com/atum-helpdesk/atum/internal/domain"
	"github.com/atum-helpdesk/atum/internal/observability"
	"github.com/atum-helpdesk/atum/internal/repository"
	"github.com/atum-helpdesk/atum/internal/tenant"
)

// Handler executes one job type inside the job's tenant transaction.
type Handler interface {
	Type() domain.JobType
	Handle(ctx context.Context, tx pgx.Tx, job *domain.Job) error
}

// Registry maps job types to their handlers.
type Registry map[domain.JobType]Handler

// NewRegistry indexes handlers by type and rejects duplicates.
func NewRegistry(handlers ...Handler) (Registry, error) {
	registry := make(Registry, len(handlers))
	for _, h := range handlers {
		if _, exists := registry[h.Type()]; exists {
			return nil, fmt.Errorf("duplicate handler for job type %s", h.Type())
		}
		registry[h.Type()] = h
	}
	return registry, nil
}

// Pool runs a fixed number of worker loops over the shared queue.
type Pool struct {
	runner   *tenant.Runner
	jobs     repository.JobRepository
	registry Registry
	cfg      config.QueueConfig
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewPool builds a worker pool. The job repository must be bound to the
// pool, not a transaction: claims run outside tenant scope.
func NewPool(runner *tenant.Runner, jobs repository.JobRepository, registry Registry, cfg config.QueueConfig, logger *zap.Logger, metrics *observability.Metrics) *Pool {
	return &Pool{
		runner:   runner,
		jobs:     jobs,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run starts the configured number of workers and blocks until ctx is
// cancelled and all workers drained.
func (p *Pool) Run(ctx context.Context) {
	count := p.cfg.WorkerCount
	if count <= 0 {
		count = 1
	}
	host, _ := os.Hostname()

	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		workerID := fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.workerLoop(ctx, workerID)
		}()
	}
	wg.Wait()
}

// workerLoop claims and processes jobs until ctx ends. An empty queue
// backs the loop off exponentially from one second up to the configured
// idle maximum; any claimed job resets the backoff.
func (p *Pool) workerLoop(ctx context.Context, workerID string) {
	logger := p.logger.With(zap.String("worker_id", workerID))
	idle := time.Second
	idleMax := time.Duration(p.cfg.IdleBackoffMaxSec) * time.Second
	if idleMax <= 0 {
		idleMax = time.Minute
	}

	for {
		if ctx.Err() != nil {
			return
		}

		job, err := p.jobs.Claim(ctx, workerID)
		if err != nil {
			logger.Error("claim failed", zap.Error(err))
			if !sleep(ctx, idle) {
				return
			}
			continue
		}
		if job == nil {
			if !sleep(ctx, idle) {
				return
			}
			idle *= 2
			if idle > idleMax {
				idle = idleMax
			}
			continue
		}

		idle = time.Second
		p.process(ctx, logger, workerID, job)
	}
}

func (p *Pool) process(ctx context.Context, logger *zap.Logger, workerID string, job *domain.Job) {
	logger = logger.With(
		zap.String("job_id", job.ID),
		zap.String("job_type", string(job.Type)),
	)

	handler, ok := p.registry[job.Type]
	if !ok {
		p.finishFailure(ctx, logger, workerID, job, fmt.Errorf("no handler registered for %s", job.Type))
		return
	}

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	go p.heartbeat(heartbeatCtx, logger, workerID, job.ID)

	err := p.runHandler(ctx, handler, job)
	stopHeartbeat()

	if err != nil {
		p.finishFailure(ctx, logger, workerID, job, err)
		return
	}
	if err := p.jobs.Complete(ctx, job.ID, workerID); err != nil {
		logger.Error("complete failed, job may be re-delivered", zap.Error(err))
		return
	}
	p.metrics.JobsProcessed.WithLabelValues(string(job.Type), "done").Inc()
	logger.Info("job done")
}

// runHandler executes the handler inside a tenant-bound transaction when
// the job carries an organization, otherwise a system transaction. A
// handler panic is converted to a failure so the job can retry.
func (p *Pool) runHandler(ctx context.Context, handler Handler, job *domain.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	fn := func(ctx context.Context, tx pgx.Tx) error {
		return handler.Handle(ctx, tx, job)
	}
	if job.OrganizationID != nil {
		return p.runner.RunTx(ctx, tenant.System(*job.OrganizationID), fn)
	}
	return p.runner.RunSystemTx(ctx, fn)
}

func (p *Pool) finishFailure(ctx context.Context, logger *zap.Logger, workerID string, job *domain.Job, cause error) {
	retry := job.RetryCount < p.cfg.MaxRetries
	runAfter := time.Now().Add(Backoff(p.cfg.BaseBackoff(), job.RetryCount+1))

	if err := p.jobs.Fail(ctx, job.ID, workerID, cause.Error(), retry, runAfter); err != nil {
		logger.Error("recording job failure failed", zap.Error(err))
		return
	}
	if retry {
		p.metrics.JobsProcessed.WithLabelValues(string(job.Type), "retry").Inc()
		logger.Warn("job failed, retry scheduled",
			zap.Int("retry_count", job.RetryCount+1),
			zap.Time("run_after", runAfter),
			zap.Error(cause),
		)
		return
	}
	p.metrics.JobsProcessed.WithLabelValues(string(job.Type), "failed").Inc()
	p.metrics.JobsExhausted.Inc()
	logger.Error("job failed terminally", zap.Error(cause))
}

// heartbeat extends the lease at a third of its duration while the
// handler runs.
func (p *Pool) heartbeat(ctx context.Context, logger *zap.Logger, workerID, jobID string) {
	interval := p.cfg.Lease() / 3
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.jobs.Heartbeat(ctx, jobID, workerID); err != nil {
				logger.Warn("heartbeat failed", zap.Error(err))
				return
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
