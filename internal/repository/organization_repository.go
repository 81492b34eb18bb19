package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// OrganizationRepository reads and mutates tenant roots. Organizations
// themselves are not row-level restricted; callers resolve them before a
// tenant context exists (login, job claim).
type OrganizationRepository interface {
	WithTx(tx pgx.Tx) OrganizationRepository
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Organization, error)
	ListActive(ctx context.Context) ([]domain.Organization, error)
	UpdateSettings(ctx context.Context, id string, settings map[string]any) error
}

type organizationRepository struct {
	db Querier
}

// NewOrganizationRepository instantiates the repository.
func NewOrganizationRepository(db Querier) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) WithTx(tx pgx.Tx) OrganizationRepository {
	return &organizationRepository{db: tx}
}

const orgColumns = `id, slug, name, settings, holidays, cidr_allowlist, is_active, created_at, updated_at`

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	return r.fetch(ctx, `SELECT `+orgColumns+` FROM organizations WHERE id=$1`, id)
}

func (r *organizationRepository) GetBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	return r.fetch(ctx, `SELECT `+orgColumns+` FROM organizations WHERE slug=$1`, slug)
}

func (r *organizationRepository) fetch(ctx context.Context, query string, arg any) (*domain.Organization, error) {
	var org domain.Organization
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&org.ID,
		&org.Slug,
		&org.Name,
		&org.Settings,
		&org.Holidays,
		&org.CIDRAllowlist,
		&org.IsActive,
		&org.CreatedAt,
		&org.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) ListActive(ctx context.Context) ([]domain.Organization, error) {
	rows, err := r.db.Query(ctx, `SELECT `+orgColumns+` FROM organizations WHERE is_active ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Organization
	for rows.Next() {
		var org domain.Organization
		if err := rows.Scan(
			&org.ID,
			&org.Slug,
			&org.Name,
			&org.Settings,
			&org.Holidays,
			&org.CIDRAllowlist,
			&org.IsActive,
			&org.CreatedAt,
			&org.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, org)
	}
	return result, rows.Err()
}

func (r *organizationRepository) UpdateSettings(ctx context.Context, id string, settings map[string]any) error {
	cmd, err := r.db.Exec(ctx, `UPDATE organizations SET settings=$1, updated_at=NOW() WHERE id=$2`, settings, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
