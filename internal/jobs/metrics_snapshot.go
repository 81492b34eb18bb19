package jobs

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// metricsSnapshotHandler aggregates per-org ticket metrics into a
// timestamped snapshot row.
type metricsSnapshotHandler struct {
	d Deps
}

func (h *metricsSnapshotHandler) Type() domain.JobType { return domain.JobTypeMetricsSnapshot }

func (h *metricsSnapshotHandler) Handle(ctx context.Context, tx pgx.Tx, job *domain.Job) error {
	orgID, err := requireOrg(job)
	if err != nil {
		return err
	}

	metrics := h.d.Metrics.WithTx(tx)
	byStatus, err := metrics.CountByStatus(ctx, orgID)
	if err != nil {
		return err
	}
	byPriority, err := metrics.CountByPriority(ctx, orgID)
	if err != nil {
		return err
	}
	responseP50, responseP95, err := metrics.ResponsePercentiles(ctx, orgID)
	if err != nil {
		return err
	}
	resolutionP50, resolutionP95, err := metrics.ResolutionPercentiles(ctx, orgID)
	if err != nil {
		return err
	}
	compliance, err := metrics.SLACompliance(ctx, orgID)
	if err != nil {
		return err
	}

	return metrics.CreateSnapshot(ctx, &domain.MetricsSnapshot{
		OrganizationID:       orgID,
		CountsByStatus:       byStatus,
		CountsByPriority:     byPriority,
		FirstResponseP50Min:  responseP50,
		FirstResponseP95Min:  responseP95,
		ResolutionP50Min:     resolutionP50,
		ResolutionP95Min:     resolutionP95,
		SLACompliancePercent: compliance,
	})
}
