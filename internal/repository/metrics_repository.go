package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// MetricsRepository aggregates per-org ticket metrics and persists
// snapshot rows.
type MetricsRepository interface {
	WithTx(tx pgx.Tx) MetricsRepository
	CreateSnapshot(ctx context.Context, snapshot *domain.MetricsSnapshot) error
	CountByStatus(ctx context.Context, orgID string) (map[string]int, error)
	CountByPriority(ctx context.Context, orgID string) (map[string]int, error)
	ResponsePercentiles(ctx context.Context, orgID string) (p50, p95 float64, err error)
	ResolutionPercentiles(ctx context.Context, orgID string) (p50, p95 float64, err error)
	SLACompliance(ctx context.Context, orgID string) (float64, error)
	LatestSnapshot(ctx context.Context, orgID string) (*domain.MetricsSnapshot, error)
}

type metricsRepository struct {
	db Querier
}

// NewMetricsRepository instantiates the repository.
func NewMetricsRepository(db Querier) MetricsRepository {
	return &metricsRepository{db: db}
}

func (r *metricsRepository) WithTx(tx pgx.Tx) MetricsRepository {
	return &metricsRepository{db: tx}
}

func (r *metricsRepository) CreateSnapshot(ctx context.Context, snapshot *domain.MetricsSnapshot) error {
	statusJSON, err := json.Marshal(snapshot.CountsByStatus)
	if err != nil {
		return err
	}
	priorityJSON, err := json.Marshal(snapshot.CountsByPriority)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO metrics_snapshots (organization_id, counts_by_status, counts_by_priority,
            first_response_p50_min, first_response_p95_min, resolution_p50_min, resolution_p95_min,
            sla_compliance_percent)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		snapshot.OrganizationID,
		statusJSON,
		priorityJSON,
		snapshot.FirstResponseP50Min,
		snapshot.FirstResponseP95Min,
		snapshot.ResolutionP50Min,
		snapshot.ResolutionP95Min,
		snapshot.SLACompliancePercent,
	).Scan(&snapshot.ID, &snapshot.CreatedAt)
}

func (r *metricsRepository) CountByStatus(ctx context.Context, orgID string) (map[string]int, error) {
	return r.countBy(ctx, `SELECT status, COUNT(*) FROM tickets WHERE organization_id=$1 GROUP BY status`, orgID)
}

func (r *metricsRepository) CountByPriority(ctx context.Context, orgID string) (map[string]int, error) {
	return r.countBy(ctx, `SELECT priority, COUNT(*) FROM tickets WHERE organization_id=$1 GROUP BY priority`, orgID)
}

func (r *metricsRepository) countBy(ctx context.Context, query, orgID string) (map[string]int, error) {
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

// ResponsePercentiles measures minutes from creation to acceptance.
func (r *metricsRepository) ResponsePercentiles(ctx context.Context, orgID string) (float64, float64, error) {
	const query = `
        SELECT COALESCE(percentile_cont(0.5) WITHIN GROUP (ORDER BY EXTRACT(EPOCH FROM accepted_at - created_at)/60), 0),
               COALESCE(percentile_cont(0.95) WITHIN GROUP (ORDER BY EXTRACT(EPOCH FROM accepted_at - created_at)/60), 0)
        FROM tickets WHERE organization_id=$1 AND accepted_at IS NOT NULL`
	var p50, p95 float64
	err := r.db.QueryRow(ctx, query, orgID).Scan(&p50, &p95)
	return p50, p95, err
}

// ResolutionPercentiles measures minutes from creation to resolution.
func (r *metricsRepository) ResolutionPercentiles(ctx context.Context, orgID string) (float64, float64, error) {
	const query = `
        SELECT COALESCE(percentile_cont(0.5) WITHIN GROUP (ORDER BY EXTRACT(EPOCH FROM resolved_at - created_at)/60), 0),
               COALESCE(percentile_cont(0.95) WITHIN GROUP (ORDER BY EXTRACT(EPOCH FROM resolved_at - created_at)/60), 0)
        FROM tickets WHERE organization_id=$1 AND resolved_at IS NOT NULL`
	var p50, p95 float64
	err := r.db.QueryRow(ctx, query, orgID).Scan(&p50, &p95)
	return p50, p95, err
}

// SLACompliance is the percentage of SLA-tracked tickets with no breach.
func (r *metricsRepository) SLACompliance(ctx context.Context, orgID string) (float64, error) {
	const query = `
        SELECT COALESCE(
            100.0 * COUNT(*) FILTER (WHERE NOT first_response_breached AND NOT resolution_breached)
                  / NULLIF(COUNT(*), 0), 100.0)
        FROM tickets WHERE organization_id=$1 AND sla_started_at IS NOT NULL`
	var pct float64
	err := r.db.QueryRow(ctx, query, orgID).Scan(&pct)
	return pct, err
}

func (r *metricsRepository) LatestSnapshot(ctx context.Context, orgID string) (*domain.MetricsSnapshot, error) {
	const query = `
        SELECT id, organization_id, counts_by_status, counts_by_priority, first_response_p50_min,
               first_response_p95_min, resolution_p50_min, resolution_p95_min, sla_compliance_percent, created_at
        FROM metrics_snapshots WHERE organization_id=$1 ORDER BY created_at DESC LIMIT 1`
	var (
		snapshot     domain.MetricsSnapshot
		statusJSON   []byte
		priorityJSON []byte
	)
	if err := r.db.QueryRow(ctx, query, orgID).Scan(
		&snapshot.ID,
		&snapshot.OrganizationID,
		&statusJSON,
		&priorityJSON,
		&snapshot.FirstResponseP50Min,
		&snapshot.FirstResponseP95Min,
		&snapshot.ResolutionP50Min,
		&snapshot.ResolutionP95Min,
		&snapshot.SLACompliancePercent,
		&snapshot.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(statusJSON, &snapshot.CountsByStatus); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(priorityJSON, &snapshot.CountsByPriority); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
