package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// TicketFilter captures staff search parameters.
type TicketFilter struct {
	RequesterID *string
	AssignedTo  *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	WithTx(tx pgx.Tx) TicketRepository
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListOpenWithSLA(ctx context.Context, limit int) ([]domain.Ticket, error)
}

type ticketRepository struct {
	db Querier
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(db Querier) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) WithTx(tx pgx.Tx) TicketRepository {
	return &ticketRepository{db: tx}
}

const ticketColumns = `id, organization_id, requester_id, assigned_to, accepted_by,
	subject, description, priority, status, tags, service_id, parent_ticket_id, is_duplicate_of,
	sla_policy_id, sla_started_at, sla_due_at, sla_first_response_target, sla_resolution_target,
	sla_paused_at, sla_paused_duration_seconds, first_response_breached, resolution_breached,
	ai_suggested_category, ai_suggested_priority, ai_confidence_score, sentiment_score,
	sla_risk_score, time_to_breach_minutes, escalation_level,
	created_at, updated_at, accepted_at, resolved_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (organization_id, requester_id, subject, description, priority, status, tags,
            service_id, parent_ticket_id, sla_policy_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.OrganizationID,
		ticket.RequesterID,
		ticket.Subject,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.Tags,
		ticket.ServiceID,
		ticket.ParentTicketID,
		ticket.SLAPolicyID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET assigned_to=$1, accepted_by=$2, subject=$3, description=$4, priority=$5,
            status=$6, tags=$7, sla_policy_id=$8, sla_started_at=$9, sla_due_at=$10,
            sla_first_response_target=$11, sla_resolution_target=$12, sla_paused_at=$13,
            sla_paused_duration_seconds=$14, first_response_breached=$15, resolution_breached=$16,
            ai_suggested_category=$17, ai_suggested_priority=$18, ai_confidence_score=$19,
            sentiment_score=$20, sla_risk_score=$21, time_to_breach_minutes=$22, escalation_level=$23,
            accepted_at=$24, resolved_at=$25, closed_at=$26,
            is_duplicate_of=$27, updated_at=NOW()
        WHERE id=$28`
	cmd, err := r.db.Exec(ctx, query,
		ticket.AssignedTo,
		ticket.AcceptedBy,
		ticket.Subject,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.Tags,
		ticket.SLAPolicyID,
		ticket.SLAStartedAt,
		ticket.SLADueAt,
		ticket.SLAFirstResponseTarget,
		ticket.SLAResolutionTarget,
		ticket.SLAPausedAt,
		ticket.SLAPausedDurationSeconds,
		ticket.FirstResponseBreached,
		ticket.ResolutionBreached,
		ticket.AISuggestedCategory,
		ticket.AISuggestedPriority,
		ticket.AIConfidenceScore,
		ticket.SentimentScore,
		ticket.SLARiskScore,
		ticket.TimeToBreachMinutes,
		ticket.EscalationLevel,
		ticket.AcceptedAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.IsDuplicateOf,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

// GetByIDForUpdate locks the ticket row, serializing concurrent
// transitions on the same ticket.
func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1 FOR UPDATE`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	row := r.db.QueryRow(ctx, query, arg)
	return scanTicket(row)
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(subject) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ListOpenWithSLA returns tickets eligible for the breach sweep: SLA
// started, not paused, not terminal or resolved.
func (r *ticketRepository) ListOpenWithSLA(ctx context.Context, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 500
	}
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE sla_started_at IS NOT NULL
          AND status NOT IN ('WAITING_CUSTOMER','RESOLVED','CLOSED','CANCELLED')
          AND NOT (first_response_breached AND resolution_breached)
        ORDER BY sla_resolution_target ASC NULLS LAST
        LIMIT %d`, ticketColumns, limit)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := row.Scan(
		&t.ID,
		&t.OrganizationID,
		&t.RequesterID,
		&t.AssignedTo,
		&t.AcceptedBy,
		&t.Subject,
		&t.Description,
		&t.Priority,
		&t.Status,
		&t.Tags,
		&t.ServiceID,
		&t.ParentTicketID,
		&t.IsDuplicateOf,
		&t.SLAPolicyID,
		&t.SLAStartedAt,
		&t.SLADueAt,
		&t.SLAFirstResponseTarget,
		&t.SLAResolutionTarget,
		&t.SLAPausedAt,
		&t.SLAPausedDurationSeconds,
		&t.FirstResponseBreached,
		&t.ResolutionBreached,
		&t.AISuggestedCategory,
		&t.AISuggestedPriority,
		&t.AIConfidenceScore,
		&t.SentimentScore,
		&t.SLARiskScore,
		&t.TimeToBreachMinutes,
		&t.EscalationLevel,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.AcceptedAt,
		&t.ResolvedAt,
		&t.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
