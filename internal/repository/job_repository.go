package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// JobRepository owns the durable queue rows. The queue itself is not
// tenant-restricted: workers claim across organizations and bind the
// tenant context from the claimed row before running a handler.
type JobRepository interface {
	WithTx(tx pgx.Tx) JobRepository
	Enqueue(ctx context.Context, job *domain.Job) error
	Claim(ctx context.Context, workerID string) (*domain.Job, error)
	Heartbeat(ctx context.Context, jobID, workerID string) error
	Complete(ctx context.Context, jobID, workerID string) error
	Fail(ctx context.Context, jobID, workerID, lastError string, retry bool, runAfter time.Time) error
	RequeueStuck(ctx context.Context, lease time.Duration) (int64, error)
	AppendEvent(ctx context.Context, jobID, event string, detail *string) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	DeleteFinishedBefore(ctx context.Context, orgID string, cutoff time.Time) (int64, error)
}

type jobRepository struct {
	db Querier
}

// NewJobRepository instantiates the repository.
func NewJobRepository(db Querier) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) WithTx(tx pgx.Tx) JobRepository {
	return &jobRepository{db: tx}
}

const jobColumns = `id, organization_id, job_type, payload, status, priority, run_after,
	locked_by, locked_at, retry_count, last_error, created_at, updated_at`

func (r *jobRepository) Enqueue(ctx context.Context, job *domain.Job) error {
	if job.Status == "" {
		job.Status = domain.JobStatusPending
	}
	if job.Priority == "" {
		job.Priority = domain.TicketPriorityMedium
	}
	const query = `
        INSERT INTO job_queue (organization_id, job_type, payload, status, priority, run_after)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	if err := r.db.QueryRow(ctx, query,
		job.OrganizationID,
		job.Type,
		job.Payload,
		job.Status,
		job.Priority,
		job.RunAfter,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return err
	}
	return r.AppendEvent(ctx, job.ID, "enqueued", nil)
}

// Claim leases the highest-priority eligible pending job. SKIP LOCKED
// guarantees two concurrent claimers never observe the same row; a nil
// job with nil error means the queue is empty.
func (r *jobRepository) Claim(ctx context.Context, workerID string) (*domain.Job, error) {
	const query = `
        UPDATE job_queue SET status='RUNNING', locked_by=$1, locked_at=NOW(), updated_at=NOW()
        WHERE id = (
            SELECT id FROM job_queue
            WHERE status='PENDING' AND (run_after IS NULL OR run_after <= NOW())
            ORDER BY CASE priority
                WHEN 'URGENT' THEN 3
                WHEN 'HIGH' THEN 2
                WHEN 'MEDIUM' THEN 1
                ELSE 0 END DESC,
                created_at ASC
            LIMIT 1
            FOR UPDATE SKIP LOCKED)
        RETURNING ` + jobColumns
	job, err := scanJob(r.db.QueryRow(ctx, query, workerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.AppendEvent(ctx, job.ID, "claimed", &workerID); err != nil {
		return nil, err
	}
	return job, nil
}

func (r *jobRepository) Heartbeat(ctx context.Context, jobID, workerID string) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE job_queue SET locked_at=NOW(), updated_at=NOW() WHERE id=$1 AND locked_by=$2 AND status='RUNNING'`,
		jobID, workerID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *jobRepository) Complete(ctx context.Context, jobID, workerID string) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE job_queue SET status='DONE', updated_at=NOW() WHERE id=$1 AND locked_by=$2 AND status='RUNNING'`,
		jobID, workerID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return r.AppendEvent(ctx, jobID, "done", nil)
}

// Fail records the error and either re-schedules the job at runAfter or
// marks it terminally FAILED.
func (r *jobRepository) Fail(ctx context.Context, jobID, workerID, lastError string, retry bool, runAfter time.Time) error {
	var (
		cmd   string
		args  []any
		event string
	)
	if retry {
		cmd = `UPDATE job_queue SET status='PENDING', locked_by=NULL, locked_at=NULL,
			retry_count=retry_count+1, last_error=$3, run_after=$4, updated_at=NOW()
			WHERE id=$1 AND locked_by=$2 AND status='RUNNING'`
		args = []any{jobID, workerID, lastError, runAfter}
		event = "retry_scheduled"
	} else {
		cmd = `UPDATE job_queue SET status='FAILED', retry_count=retry_count+1, last_error=$3,
			updated_at=NOW()
			WHERE id=$1 AND locked_by=$2 AND status='RUNNING'`
		args = []any{jobID, workerID, lastError}
		event = "failed"
	}
	tag, err := r.db.Exec(ctx, cmd, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return r.AppendEvent(ctx, jobID, event, &lastError)
}

// RequeueStuck returns RUNNING rows whose lease expired back to PENDING,
// guarding against crashed workers.
func (r *jobRepository) RequeueStuck(ctx context.Context, lease time.Duration) (int64, error) {
	const query = `
        UPDATE job_queue SET status='PENDING', locked_by=NULL, locked_at=NULL,
            retry_count=retry_count+1, last_error='lease expired', updated_at=NOW()
        WHERE status='RUNNING' AND locked_at < NOW() - $1::interval`
	tag, err := r.db.Exec(ctx, query, lease.String())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *jobRepository) AppendEvent(ctx context.Context, jobID, event string, detail *string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO job_events (job_id, event, detail) VALUES ($1,$2,$3)`,
		jobID, event, detail)
	return err
}

func (r *jobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	return scanJob(r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM job_queue WHERE id=$1`, id))
}

// DeleteFinishedBefore removes DONE/FAILED rows older than the cutoff for
// one organization; used by retention cleanup.
func (r *jobRepository) DeleteFinishedBefore(ctx context.Context, orgID string, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM job_queue WHERE organization_id=$1 AND status IN ('DONE','FAILED') AND updated_at < $2`,
		orgID, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.OrganizationID,
		&job.Type,
		&job.Payload,
		&job.Status,
		&job.Priority,
		&job.RunAfter,
		&job.LockedBy,
		&job.LockedAt,
		&job.RetryCount,
		&job.LastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &job, nil
}
