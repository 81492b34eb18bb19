package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// RAGQueueRepository owns the indexing work queue, kept consistent with
// source tables by enqueue-on-write.
type RAGQueueRepository interface {
	WithTx(tx pgx.Tx) RAGQueueRepository
	Enqueue(ctx context.Context, item *domain.RAGIndexItem) error
	Claim(ctx context.Context) (*domain.RAGIndexItem, error)
	Complete(ctx context.Context, id string) error
	Fail(ctx context.Context, id, lastError string, maxAttempts int) error
}

type ragQueueRepository struct {
	db Querier
}

// NewRAGQueueRepository instantiates the repository.
func NewRAGQueueRepository(db Querier) RAGQueueRepository {
	return &ragQueueRepository{db: db}
}

func (r *ragQueueRepository) WithTx(tx pgx.Tx) RAGQueueRepository {
	return &ragQueueRepository{db: tx}
}

const ragQueueColumns = `id, organization_id, source_type, source_id, action, status, attempts, last_error, priority, created_at, updated_at`

// Enqueue is idempotent: a PENDING row for the same (org, source, action)
// coalesces instead of duplicating.
func (r *ragQueueRepository) Enqueue(ctx context.Context, item *domain.RAGIndexItem) error {
	if item.Status == "" {
		item.Status = domain.JobStatusPending
	}
	if item.Priority == "" {
		item.Priority = domain.TicketPriorityMedium
	}
	const query = `
        INSERT INTO rag_index_queue (organization_id, source_type, source_id, action, status, priority)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (organization_id, source_type, source_id, action) WHERE status='PENDING'
        DO UPDATE SET priority=EXCLUDED.priority, updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		item.OrganizationID,
		item.SourceType,
		item.SourceID,
		item.Action,
		item.Status,
		item.Priority,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
}

// Claim leases the next pending index item via SKIP LOCKED, mirroring the
// job-queue claim.
func (r *ragQueueRepository) Claim(ctx context.Context) (*domain.RAGIndexItem, error) {
	const query = `
        UPDATE rag_index_queue SET status='RUNNING', updated_at=NOW()
        WHERE id = (
            SELECT id FROM rag_index_queue
            WHERE status='PENDING'
            ORDER BY CASE priority
                WHEN 'URGENT' THEN 3
                WHEN 'HIGH' THEN 2
                WHEN 'MEDIUM' THEN 1
                ELSE 0 END DESC,
                created_at ASC
            LIMIT 1
            FOR UPDATE SKIP LOCKED)
        RETURNING ` + ragQueueColumns
	var item domain.RAGIndexItem
	if err := r.db.QueryRow(ctx, query).Scan(
		&item.ID,
		&item.OrganizationID,
		&item.SourceType,
		&item.SourceID,
		&item.Action,
		&item.Status,
		&item.Attempts,
		&item.LastError,
		&item.Priority,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *ragQueueRepository) Complete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE rag_index_queue SET status='DONE', updated_at=NOW() WHERE id=$1 AND status='RUNNING'`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Fail increments attempts; at maxAttempts the row becomes terminal FAILED
// with last_error retained, otherwise it returns to PENDING.
func (r *ragQueueRepository) Fail(ctx context.Context, id, lastError string, maxAttempts int) error {
	const query = `
        UPDATE rag_index_queue SET
            attempts = attempts + 1,
            last_error = $2,
            status = CASE WHEN attempts + 1 >= $3 THEN 'FAILED' ELSE 'PENDING' END,
            updated_at = NOW()
        WHERE id=$1 AND status='RUNNING'`
	cmd, err := r.db.Exec(ctx, query, id, lastError, maxAttempts)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
