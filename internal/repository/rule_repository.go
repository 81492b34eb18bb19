package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// RuleRepository persists automation rules.
type RuleRepository interface {
	WithTx(tx pgx.Tx) RuleRepository
	Create(ctx context.Context, rule *domain.Rule) error
	Update(ctx context.Context, rule *domain.Rule) error
	ListActiveByEvent(ctx context.Context, orgID string, eventType domain.RuleEventType) ([]domain.Rule, error)
	ListByOrg(ctx context.Context, orgID string) ([]domain.Rule, error)
}

type ruleRepository struct {
	db Querier
}

// NewRuleRepository instantiates the repository.
func NewRuleRepository(db Querier) RuleRepository {
	return &ruleRepository{db: db}
}

func (r *ruleRepository) WithTx(tx pgx.Tx) RuleRepository {
	return &ruleRepository{db: tx}
}

func (r *ruleRepository) Create(ctx context.Context, rule *domain.Rule) error {
	conditionsJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return err
	}
	actionsJSON, err := json.Marshal(rule.Actions)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO rules (organization_id, name, event_type, conditions, actions, execution_order, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		rule.OrganizationID,
		rule.Name,
		rule.EventType,
		conditionsJSON,
		actionsJSON,
		rule.ExecutionOrder,
		rule.IsActive,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

func (r *ruleRepository) Update(ctx context.Context, rule *domain.Rule) error {
	conditionsJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return err
	}
	actionsJSON, err := json.Marshal(rule.Actions)
	if err != nil {
		return err
	}
	const query = `
        UPDATE rules SET name=$1, event_type=$2, conditions=$3, actions=$4, execution_order=$5,
            is_active=$6, updated_at=NOW()
        WHERE id=$7 AND organization_id=$8`
	cmd, err := r.db.Exec(ctx, query,
		rule.Name,
		rule.EventType,
		conditionsJSON,
		actionsJSON,
		rule.ExecutionOrder,
		rule.IsActive,
		rule.ID,
		rule.OrganizationID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ruleRepository) ListActiveByEvent(ctx context.Context, orgID string, eventType domain.RuleEventType) ([]domain.Rule, error) {
	const query = `
        SELECT id, organization_id, name, event_type, conditions, actions, execution_order, is_active, created_at, updated_at
        FROM rules
        WHERE organization_id=$1 AND event_type=$2 AND is_active
        ORDER BY execution_order ASC, created_at ASC`
	rows, err := r.db.Query(ctx, query, orgID, eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func (r *ruleRepository) ListByOrg(ctx context.Context, orgID string) ([]domain.Rule, error) {
	const query = `
        SELECT id, organization_id, name, event_type, conditions, actions, execution_order, is_active, created_at, updated_at
        FROM rules WHERE organization_id=$1 ORDER BY execution_order ASC`
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func scanRules(rows pgx.Rows) ([]domain.Rule, error) {
	var result []domain.Rule
	for rows.Next() {
		var (
			rule           domain.Rule
			conditionsJSON []byte
			actionsJSON    []byte
		)
		if err := rows.Scan(
			&rule.ID,
			&rule.OrganizationID,
			&rule.Name,
			&rule.EventType,
			&conditionsJSON,
			&actionsJSON,
			&rule.ExecutionOrder,
			&rule.IsActive,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(conditionsJSON, &rule.Conditions); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(actionsJSON, &rule.Actions); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}
