package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/audit"
	"github.com/atum-helpdesk/atum/internal/config"
	"github.com/atum-helpdesk/atum/internal/domain"
	"github.com/atum-helpdesk/atum/internal/events"
	"github.com/atum-helpdesk/atum/internal/observability"
	"github.com/atum-helpdesk/atum/internal/repository"
	"github.com/atum-helpdesk/atum/internal/rules"
	"github.com/atum-helpdesk/atum/internal/sla"
	"github.com/atum-helpdesk/atum/internal/tenant"
	"github.com/atum-helpdesk/atum/internal/webhook"
)

const sweepBatchSize = 500

// SLADependencies bundles collaborators for the breach sweep.
type SLADependencies struct {
	Runner     TxRunner
	Tickets    repository.TicketRepository
	Policies   repository.SLAPolicyRepository
	Rules      repository.RuleRepository
	Audit      *audit.Writer
	Dispatcher events.Dispatcher
	Webhooks   *webhook.Dispatcher
	Metrics    *observability.Metrics
	Cfg        *config.Config
	Logger     *zap.Logger
}

// SLAService runs the periodic breach sweep over open tickets.
type SLAService struct {
	deps SLADependencies
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies) *SLAService {
	return &SLAService{deps: deps}
}

// Sweep scans open tickets with a running clock and flags newly breached
// targets. Each ticket is re-checked under its row lock so a concurrent
// status change cannot race the flag.
func (s *SLAService) Sweep(ctx context.Context) {
	candidates, err := s.deps.Tickets.ListOpenWithSLA(ctx, sweepBatchSize)
	if err != nil {
		s.deps.Logger.Error("listing tickets for sla sweep failed", zap.Error(err))
		return
	}

	now := time.Now().UTC()
	checked := 0
	for i := range candidates {
		candidate := candidates[i]
		if err := s.sweepTicket(ctx, candidate.OrganizationID, candidate.ID, now); err != nil {
			s.deps.Logger.Error("sla sweep for ticket failed",
				zap.String("ticket_id", candidate.ID),
				zap.Error(err),
			)
			continue
		}
		checked++
	}
	if len(candidates) > 0 {
		s.deps.Logger.Debug("sla sweep finished",
			zap.Int("candidates", len(candidates)),
			zap.Int("checked", checked),
		)
	}
}

func (s *SLAService) sweepTicket(ctx context.Context, orgID, ticketID string, now time.Time) error {
	var (
		ticket   *domain.Ticket
		breaches []sla.BreachKind
	)
	tc := tenant.System(orgID)

	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		tickets := s.deps.Tickets.WithTx(tx)

		var err error
		ticket, err = tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}

		policy, err := s.loadPolicy(ctx, tx, ticket)
		if err != nil {
			return err
		}
		breaches = sla.Evaluate(ticket, policy, now)
		if len(breaches) == 0 {
			return nil
		}

		for _, kind := range breaches {
			switch kind {
			case sla.BreachFirstResponse:
				ticket.FirstResponseBreached = true
			case sla.BreachResolution:
				ticket.ResolutionBreached = true
			}
			s.writeBreachAudit(ctx, tx, ticket, kind)
			if s.deps.Metrics != nil {
				s.deps.Metrics.SLABreaches.WithLabelValues(string(kind)).Inc()
			}
		}

		result := s.runBreachRules(ctx, tx, ticket)
		if result.ActionsApplied > 0 {
			s.deps.Logger.Info("breach rules mutated ticket",
				zap.String("ticket_id", ticket.ID),
				zap.Int("actions", result.ActionsApplied),
			)
		}
		return tickets.Update(ctx, ticket)
	})
	if err != nil {
		return err
	}

	for _, kind := range breaches {
		s.publishBreach(ctx, ticket, kind)
	}
	return nil
}

func (s *SLAService) loadPolicy(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket) (*domain.SLAPolicy, error) {
	if ticket.SLAPolicyID == nil {
		return nil, nil
	}
	policy, err := s.deps.Policies.WithTx(tx).GetByID(ctx, *ticket.SLAPolicyID)
	if err != nil {
		if pgxNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return policy, nil
}

func (s *SLAService) runBreachRules(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket) rules.Result {
	active, err := s.deps.Rules.WithTx(tx).ListActiveByEvent(ctx, ticket.OrganizationID, domain.RuleEventSLABreached)
	if err != nil {
		s.deps.Logger.Error("loading breach rules failed", zap.Error(err))
		return rules.Result{}
	}
	if len(active) == 0 {
		return rules.Result{}
	}
	engine := rules.NewEngine(s.deps.Audit.WithTx(tx), s.deps.Logger)
	return engine.Apply(ctx, active, ticket, nil)
}

func (s *SLAService) writeBreachAudit(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket, kind sla.BreachKind) {
	entry := &domain.AuditEntry{
		OrganizationID: ticket.OrganizationID,
		Action:         domain.AuditActionSLABreach,
		EntityType:     "ticket",
		EntityID:       ticket.ID,
		NewValues: map[string]any{
			"kind":     string(kind),
			"priority": string(ticket.Priority),
			"status":   string(ticket.Status),
		},
	}
	if err := s.deps.Audit.WithTx(tx).Append(ctx, entry); err != nil {
		s.deps.Logger.Error("writing breach audit entry failed",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err),
		)
	}
}

func (s *SLAService) publishBreach(ctx context.Context, ticket *domain.Ticket, kind sla.BreachKind) {
	var target time.Time
	switch kind {
	case sla.BreachFirstResponse:
		if ticket.SLAFirstResponseTarget != nil {
			target = *ticket.SLAFirstResponseTarget
		}
	case sla.BreachResolution:
		if ticket.SLAResolutionTarget != nil {
			target = *ticket.SLAResolutionTarget
		}
	}

	event := events.Event{
		ID:             uuid.NewString(),
		Type:           events.EventSLABreach,
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		Timestamp:      time.Now().UTC(),
		Payload: events.SLABreachPayload{
			Kind:            string(kind),
			Priority:        ticket.Priority,
			TargetAt:        target,
			EscalationLevel: ticket.EscalationLevel,
		},
	}
	if err := s.deps.Dispatcher.Publish(ctx, event); err != nil {
		s.deps.Logger.Warn("publishing breach event failed", zap.Error(err))
	}
	if s.deps.Webhooks != nil {
		s.deps.Webhooks.Dispatch(ctx, ticket.OrganizationID, string(events.EventSLABreach), event)
	}
}
