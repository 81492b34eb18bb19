package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
	"github.com/atum-helpdesk/atum/internal/sla"
)

// slaPredictHandler estimates how close a ticket is to breaching its
// resolution target and stores the risk on the ticket row.
type slaPredictHandler struct {
	d Deps
}

func (h *slaPredictHandler) Type() domain.JobType { return domain.JobTypeSLAPredict }

func (h *slaPredictHandler) Handle(ctx context.Context, tx pgx.Tx, job *domain.Job) error {
	if _, err := requireOrg(job); err != nil {
		return err
	}
	payload, err := ticketPayload(job)
	if err != nil {
		return err
	}

	tickets := h.d.Tickets.WithTx(tx)
	ticket, err := tickets.GetByID(ctx, payload.TicketID)
	if err != nil {
		return fmt.Errorf("load ticket %s: %w", payload.TicketID, err)
	}
	if ticket.SLAPolicyID == nil || ticket.SLAStartedAt == nil || !ticket.Status.IsOpen() {
		return nil
	}

	policy, err := h.d.Policies.WithTx(tx).GetByID(ctx, *ticket.SLAPolicyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	budget := policy.ResolutionFor(ticket.Priority)
	if budget <= 0 {
		return nil
	}

	elapsed := sla.EffectiveElapsedMinutes(ticket, policy, time.Now())
	timeToBreach := budget - elapsed
	risk := clamp01(float64(elapsed) / float64(budget))

	ticket.TimeToBreachMinutes = &timeToBreach
	ticket.SLARiskScore = &risk
	return tickets.Update(ctx, ticket)
}
