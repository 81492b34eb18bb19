package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// CommentRepository persists ticket comments and attachment records.
// Comments are append-only from the domain's view.
type CommentRepository interface {
	WithTx(tx pgx.Tx) CommentRepository
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error)
	ListResolutionComments(ctx context.Context, ticketID string) ([]domain.Comment, error)
	CreateAttachment(ctx context.Context, att *domain.AttachmentReference) error
	ListAttachments(ctx context.Context, commentID string) ([]domain.AttachmentReference, error)
}

type commentRepository struct {
	db Querier
}

// NewCommentRepository instantiates the repository.
func NewCommentRepository(db Querier) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) WithTx(tx pgx.Tx) CommentRepository {
	return &commentRepository{db: tx}
}

const commentColumns = `id, organization_id, ticket_id, author_id, content, is_internal, is_ai_generated, created_at`

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (organization_id, ticket_id, author_id, content, is_internal, is_ai_generated)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		comment.OrganizationID,
		comment.TicketID,
		comment.AuthorID,
		comment.Content,
		comment.IsInternal,
		comment.IsAIGenerated,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	var c domain.Comment
	err := r.db.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id=$1`, id).Scan(
		&c.ID,
		&c.OrganizationID,
		&c.TicketID,
		&c.AuthorID,
		&c.Content,
		&c.IsInternal,
		&c.IsAIGenerated,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE ticket_id=$1`
	if !includeInternal {
		query += ` AND NOT is_internal`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComments(rows)
}

// ListResolutionComments returns the public comments used when rendering
// a resolved ticket for indexing.
func (r *commentRepository) ListResolutionComments(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	const query = `
        SELECT ` + commentColumns + ` FROM comments
        WHERE ticket_id=$1 AND NOT is_internal
        ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComments(rows)
}

func (r *commentRepository) CreateAttachment(ctx context.Context, att *domain.AttachmentReference) error {
	const query = `
        INSERT INTO attachments (organization_id, comment_id, storage_key, file_name, mime_type, size_bytes, sha256)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		att.OrganizationID,
		att.CommentID,
		att.StorageKey,
		att.FileName,
		att.MimeType,
		att.SizeBytes,
		att.SHA256,
	).Scan(&att.ID, &att.CreatedAt)
}

func (r *commentRepository) ListAttachments(ctx context.Context, commentID string) ([]domain.AttachmentReference, error) {
	const query = `
        SELECT id, organization_id, comment_id, storage_key, file_name, mime_type, size_bytes, sha256, created_at
        FROM attachments WHERE comment_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, commentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AttachmentReference
	for rows.Next() {
		var att domain.AttachmentReference
		if err := rows.Scan(
			&att.ID,
			&att.OrganizationID,
			&att.CommentID,
			&att.StorageKey,
			&att.FileName,
			&att.MimeType,
			&att.SizeBytes,
			&att.SHA256,
			&att.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, att)
	}
	return result, rows.Err()
}

func scanComments(rows pgx.Rows) ([]domain.Comment, error) {
	var result []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(
			&c.ID,
			&c.OrganizationID,
			&c.TicketID,
			&c.AuthorID,
			&c.Content,
			&c.IsInternal,
			&c.IsAIGenerated,
			&c.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
