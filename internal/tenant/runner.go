package tenant

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Runner opens tenant-bound transactions. Every transaction sets the
// session-local variables the row-level-security policies read, so a
// handler that forgets its tenant scope cannot see tenant rows at all.
type Runner struct {
	pool *pgxpool.Pool
}

// NewRunner wraps a pool.
func NewRunner(pool *pgxpool.Pool) *Runner {
	return &Runner{pool: pool}
}

// Pool exposes the underlying pool for non-tenant work (migrations,
// system-wide sweeps over the queue).
func (r *Runner) Pool() *pgxpool.Pool {
	return r.pool
}

// RunTx runs fn inside a transaction with app.current_org/current_user/
// current_role set via set_config(..., true), which scopes the values to
// the transaction. SET LOCAL itself cannot take bind parameters.
func (r *Runner) RunTx(ctx context.Context, tc Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tenant tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := bind(ctx, tx, tc); err != nil {
		return err
	}
	if err := fn(WithContext(ctx, tc), tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RunSystemTx runs fn in a transaction with no tenant binding. Only
// non-tenant tables (job_queue claim scans, rag_config) are visible
// through it.
func (r *Runner) RunSystemTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin system tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func bind(ctx context.Context, tx pgx.Tx, tc Context) error {
	userID := ""
	if tc.UserID != nil {
		userID = *tc.UserID
	}
	_, err := tx.Exec(ctx,
		`SELECT set_config('app.current_org', $1, true),
		        set_config('app.current_user', $2, true),
		        set_config('app.current_role', $3, true)`,
		tc.OrgID, userID, string(tc.Role))
	if err != nil {
		return fmt.Errorf("bind tenant context: %w", err)
	}
	return nil
}
