package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// SLAPolicyRepository persists SLA policies. Per-priority minute maps and
// the business schedule are stored as JSONB.
type SLAPolicyRepository interface {
	WithTx(tx pgx.Tx) SLAPolicyRepository
	Create(ctx context.Context, policy *domain.SLAPolicy) error
	GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error)
	ListActive(ctx context.Context, orgID string) ([]domain.SLAPolicy, error)
}

type slaPolicyRepository struct {
	db Querier
}

// NewSLAPolicyRepository instantiates the repository.
func NewSLAPolicyRepository(db Querier) SLAPolicyRepository {
	return &slaPolicyRepository{db: db}
}

func (r *slaPolicyRepository) WithTx(tx pgx.Tx) SLAPolicyRepository {
	return &slaPolicyRepository{db: tx}
}

func (r *slaPolicyRepository) Create(ctx context.Context, policy *domain.SLAPolicy) error {
	responseJSON, err := json.Marshal(policy.ResponseMinutes)
	if err != nil {
		return err
	}
	resolutionJSON, err := json.Marshal(policy.ResolutionMinutes)
	if err != nil {
		return err
	}
	var scheduleJSON []byte
	if policy.Schedule != nil {
		if scheduleJSON, err = json.Marshal(policy.Schedule); err != nil {
			return err
		}
	}
	escalationJSON, err := json.Marshal(policy.EscalationRules)
	if err != nil {
		return err
	}

	const query = `
        INSERT INTO sla_policies (organization_id, name, response_minutes, resolution_minutes, schedule, holidays, escalation_rules, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		policy.OrganizationID,
		policy.Name,
		responseJSON,
		resolutionJSON,
		scheduleJSON,
		policy.Holidays,
		escalationJSON,
		policy.IsActive,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
}

func (r *slaPolicyRepository) GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error) {
	const query = `
        SELECT id, organization_id, name, response_minutes, resolution_minutes, schedule, holidays, escalation_rules, is_active, created_at, updated_at
        FROM sla_policies WHERE id=$1`
	return scanPolicy(r.db.QueryRow(ctx, query, id))
}

func (r *slaPolicyRepository) ListActive(ctx context.Context, orgID string) ([]domain.SLAPolicy, error) {
	const query = `
        SELECT id, organization_id, name, response_minutes, resolution_minutes, schedule, holidays, escalation_rules, is_active, created_at, updated_at
        FROM sla_policies WHERE organization_id=$1 AND is_active ORDER BY name`
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAPolicy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *policy)
	}
	return result, rows.Err()
}

func scanPolicy(row pgx.Row) (*domain.SLAPolicy, error) {
	var (
		policy         domain.SLAPolicy
		responseJSON   []byte
		resolutionJSON []byte
		scheduleJSON   []byte
		escalationJSON []byte
	)
	if err := row.Scan(
		&policy.ID,
		&policy.OrganizationID,
		&policy.Name,
		&responseJSON,
		&resolutionJSON,
		&scheduleJSON,
		&policy.Holidays,
		&escalationJSON,
		&policy.IsActive,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(responseJSON, &policy.ResponseMinutes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(resolutionJSON, &policy.ResolutionMinutes); err != nil {
		return nil, err
	}
	if len(scheduleJSON) > 0 {
		policy.Schedule = &domain.BusinessSchedule{}
		if err := json.Unmarshal(scheduleJSON, policy.Schedule); err != nil {
			return nil, err
		}
	}
	if len(escalationJSON) > 0 {
		if err := json.Unmarshal(escalationJSON, &policy.EscalationRules); err != nil {
			return nil, err
		}
	}
	return &policy, nil
}
