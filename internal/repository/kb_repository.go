package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// KBRepository persists knowledge-base articles.
type KBRepository interface {
	WithTx(tx pgx.Tx) KBRepository
	Create(ctx context.Context, article *domain.KBArticle) error
	Update(ctx context.Context, article *domain.KBArticle) error
	GetByID(ctx context.Context, id string) (*domain.KBArticle, error)
	ListPublished(ctx context.Context, orgID string, publicOnly bool, limit, offset int) ([]domain.KBArticle, error)
}

type kbRepository struct {
	db Querier
}

// NewKBRepository instantiates the repository.
func NewKBRepository(db Querier) KBRepository {
	return &kbRepository{db: db}
}

func (r *kbRepository) WithTx(tx pgx.Tx) KBRepository {
	return &kbRepository{db: tx}
}

const kbColumns = `id, organization_id, title, body, visibility, source_ticket_id, is_published, created_at, updated_at`

func (r *kbRepository) Create(ctx context.Context, article *domain.KBArticle) error {
	const query = `
        INSERT INTO kb_articles (organization_id, title, body, visibility, source_ticket_id, is_published)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		article.OrganizationID,
		article.Title,
		article.Body,
		article.Visibility,
		article.SourceTicketID,
		article.IsPublished,
	).Scan(&article.ID, &article.CreatedAt, &article.UpdatedAt)
}

func (r *kbRepository) Update(ctx context.Context, article *domain.KBArticle) error {
	const query = `
        UPDATE kb_articles SET title=$1, body=$2, visibility=$3, is_published=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.db.Exec(ctx, query,
		article.Title,
		article.Body,
		article.Visibility,
		article.IsPublished,
		article.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *kbRepository) GetByID(ctx context.Context, id string) (*domain.KBArticle, error) {
	return scanArticle(r.db.QueryRow(ctx, `SELECT `+kbColumns+` FROM kb_articles WHERE id=$1`, id))
}

func (r *kbRepository) ListPublished(ctx context.Context, orgID string, publicOnly bool, limit, offset int) ([]domain.KBArticle, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + kbColumns + ` FROM kb_articles WHERE organization_id=$1 AND is_published`
	if publicOnly {
		query += ` AND visibility='public'`
	}
	query += ` ORDER BY updated_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.KBArticle
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *article)
	}
	return result, rows.Err()
}

func scanArticle(row pgx.Row) (*domain.KBArticle, error) {
	var a domain.KBArticle
	if err := row.Scan(
		&a.ID,
		&a.OrganizationID,
		&a.Title,
		&a.Body,
		&a.Visibility,
		&a.SourceTicketID,
		&a.IsPublished,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}
