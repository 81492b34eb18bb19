package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// AIRepository persists AI-generated artifacts: triage rows, KB
// suggestions and expiring suggestions.
type AIRepository interface {
	WithTx(tx pgx.Tx) AIRepository
	CreateTriage(ctx context.Context, triage *domain.TicketTriage) error
	CreateKBSuggestion(ctx context.Context, suggestion *domain.KBSuggestion) error
	ListKBSuggestions(ctx context.Context, ticketID string) ([]domain.KBSuggestion, error)
	CreateSuggestion(ctx context.Context, suggestion *domain.AISuggestion) error
	ListSuggestions(ctx context.Context, ticketID string, now time.Time) ([]domain.AISuggestion, error)
}

type aiRepository struct {
	db Querier
}

// NewAIRepository instantiates the repository.
func NewAIRepository(db Querier) AIRepository {
	return &aiRepository{db: db}
}

func (r *aiRepository) WithTx(tx pgx.Tx) AIRepository {
	return &aiRepository{db: tx}
}

func (r *aiRepository) CreateTriage(ctx context.Context, triage *domain.TicketTriage) error {
	const query = `
        INSERT INTO ticket_ai_triage (organization_id, ticket_id, category, priority, sentiment_label, confidence)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		triage.OrganizationID,
		triage.TicketID,
		triage.Category,
		triage.Priority,
		triage.SentimentLabel,
		triage.Confidence,
	).Scan(&triage.ID, &triage.CreatedAt)
}

func (r *aiRepository) CreateKBSuggestion(ctx context.Context, suggestion *domain.KBSuggestion) error {
	const query = `
        INSERT INTO ticket_kb_suggestions (organization_id, ticket_id, article_id, title, relevance_score)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		suggestion.OrganizationID,
		suggestion.TicketID,
		suggestion.ArticleID,
		suggestion.Title,
		suggestion.RelevanceScore,
	).Scan(&suggestion.ID, &suggestion.CreatedAt)
}

func (r *aiRepository) ListKBSuggestions(ctx context.Context, ticketID string) ([]domain.KBSuggestion, error) {
	const query = `
        SELECT id, organization_id, ticket_id, article_id, title, relevance_score, created_at
        FROM ticket_kb_suggestions WHERE ticket_id=$1 ORDER BY relevance_score DESC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.KBSuggestion
	for rows.Next() {
		var s domain.KBSuggestion
		if err := rows.Scan(&s.ID, &s.OrganizationID, &s.TicketID, &s.ArticleID, &s.Title, &s.RelevanceScore, &s.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *aiRepository) CreateSuggestion(ctx context.Context, suggestion *domain.AISuggestion) error {
	const query = `
        INSERT INTO ai_suggestions (organization_id, ticket_id, type, content, confidence, metadata, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		suggestion.OrganizationID,
		suggestion.TicketID,
		suggestion.Type,
		suggestion.Content,
		suggestion.Confidence,
		suggestion.Metadata,
		suggestion.ExpiresAt,
	).Scan(&suggestion.ID, &suggestion.CreatedAt)
}

// ListSuggestions returns unexpired suggestions for a ticket.
func (r *aiRepository) ListSuggestions(ctx context.Context, ticketID string, now time.Time) ([]domain.AISuggestion, error) {
	const query = `
        SELECT id, organization_id, ticket_id, type, content, confidence, metadata, expires_at, created_at
        FROM ai_suggestions
        WHERE ticket_id=$1 AND (expires_at IS NULL OR expires_at > $2)
        ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, ticketID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AISuggestion
	for rows.Next() {
		var s domain.AISuggestion
		if err := rows.Scan(&s.ID, &s.OrganizationID, &s.TicketID, &s.Type, &s.Content, &s.Confidence, &s.Metadata, &s.ExpiresAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
