package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// WebhookRepository persists tenant webhook registrations and delivery
// bookkeeping.
type WebhookRepository interface {
	WithTx(tx pgx.Tx) WebhookRepository
	Create(ctx context.Context, webhook *domain.Webhook) error
	Delete(ctx context.Context, orgID, id string) error
	ListActive(ctx context.Context, orgID string) ([]domain.Webhook, error)
	RecordSuccess(ctx context.Context, id string) error
	RecordFailure(ctx context.Context, id, reason string) error
}

type webhookRepository struct {
	db Querier
}

// NewWebhookRepository instantiates the repository.
func NewWebhookRepository(db Querier) WebhookRepository {
	return &webhookRepository{db: db}
}

func (r *webhookRepository) WithTx(tx pgx.Tx) WebhookRepository {
	return &webhookRepository{db: tx}
}

func (r *webhookRepository) Create(ctx context.Context, webhook *domain.Webhook) error {
	const query = `
        INSERT INTO webhooks (organization_id, url, secret, event_types, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		webhook.OrganizationID,
		webhook.URL,
		webhook.Secret,
		webhook.EventTypes,
		webhook.IsActive,
	).Scan(&webhook.ID, &webhook.CreatedAt, &webhook.UpdatedAt)
}

func (r *webhookRepository) Delete(ctx context.Context, orgID, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM webhooks WHERE organization_id=$1 AND id=$2`, orgID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *webhookRepository) ListActive(ctx context.Context, orgID string) ([]domain.Webhook, error) {
	const query = `
        SELECT id, organization_id, url, secret, event_types, is_active, failure_count,
               last_failure_reason, last_triggered_at, created_at, updated_at
        FROM webhooks WHERE organization_id=$1 AND is_active`
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Webhook
	for rows.Next() {
		var w domain.Webhook
		if err := rows.Scan(
			&w.ID,
			&w.OrganizationID,
			&w.URL,
			&w.Secret,
			&w.EventTypes,
			&w.IsActive,
			&w.FailureCount,
			&w.LastFailureReason,
			&w.LastTriggeredAt,
			&w.CreatedAt,
			&w.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func (r *webhookRepository) RecordSuccess(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE webhooks SET failure_count=0, last_failure_reason=NULL, last_triggered_at=NOW(), updated_at=NOW() WHERE id=$1`,
		id)
	return err
}

func (r *webhookRepository) RecordFailure(ctx context.Context, id, reason string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE webhooks SET failure_count=failure_count+1, last_failure_reason=$2, updated_at=NOW() WHERE id=$1`,
		id, reason)
	return err
}
