package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// cleanupHandler enforces per-org retention: audit rows and finished
// queue rows older than the cutoff are deleted. Chain verification
// tolerates the gap before the earliest retained audit row.
type cleanupHandler struct {
	d Deps
}

func (h *cleanupHandler) Type() domain.JobType { return domain.JobTypeCleanupLogs }

func (h *cleanupHandler) Handle(ctx context.Context, tx pgx.Tx, job *domain.Job) error {
	orgID, err := requireOrg(job)
	if err != nil {
		return err
	}

	org, err := h.d.Orgs.WithTx(tx).GetByID(ctx, orgID)
	if err != nil {
		return err
	}
	days := org.Settings.IntSetting(domain.SettingRetentionDays, h.d.Cfg.Retention.DefaultDays)
	if days <= 0 {
		days = h.d.Cfg.Retention.DefaultDays
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	auditDeleted, err := h.d.Audit.WithTx(tx).DeleteBefore(ctx, orgID, cutoff)
	if err != nil {
		return err
	}
	jobsDeleted, err := h.d.Jobs.WithTx(tx).DeleteFinishedBefore(ctx, orgID, cutoff)
	if err != nil {
		return err
	}

	h.d.Logger.Info("retention cleanup finished",
		zap.String("organization_id", orgID),
		zap.Int("retention_days", days),
		zap.Int64("audit_rows_deleted", auditDeleted),
		zap.Int64("job_rows_deleted", jobsDeleted),
	)
	return nil
}
