package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// LoginAttemptRepository tracks failed logins per (ip, username) for the
// lockout policy. Not tenant-restricted: lockout is checked before any
// tenant context exists.
type LoginAttemptRepository interface {
	WithTx(tx pgx.Tx) LoginAttemptRepository
	Get(ctx context.Context, ip, username string) (*domain.LoginAttempt, error)
	RecordFailure(ctx context.Context, ip, username string, maxAttempts int, lockout time.Duration) (*domain.LoginAttempt, error)
	ClearForIP(ctx context.Context, ip string) error
}

type loginAttemptRepository struct {
	db Querier
}

// NewLoginAttemptRepository instantiates the repository.
func NewLoginAttemptRepository(db Querier) LoginAttemptRepository {
	return &loginAttemptRepository{db: db}
}

func (r *loginAttemptRepository) WithTx(tx pgx.Tx) LoginAttemptRepository {
	return &loginAttemptRepository{db: tx}
}

func (r *loginAttemptRepository) Get(ctx context.Context, ip, username string) (*domain.LoginAttempt, error) {
	var attempt domain.LoginAttempt
	err := r.db.QueryRow(ctx,
		`SELECT ip, username, fail_count, last_attempt_at, locked_until
         FROM login_attempts WHERE ip=$1 AND username=$2`,
		ip, username,
	).Scan(&attempt.IP, &attempt.Username, &attempt.FailCount, &attempt.LastAttemptAt, &attempt.LockedUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}

// RecordFailure upserts the counter; reaching maxAttempts sets
// locked_until to now + lockout.
func (r *loginAttemptRepository) RecordFailure(ctx context.Context, ip, username string, maxAttempts int, lockout time.Duration) (*domain.LoginAttempt, error) {
	const query = `
        INSERT INTO login_attempts (ip, username, fail_count, last_attempt_at)
        VALUES ($1,$2,1,NOW())
        ON CONFLICT (ip, username) DO UPDATE SET
            fail_count = login_attempts.fail_count + 1,
            last_attempt_at = NOW(),
            locked_until = CASE WHEN login_attempts.fail_count + 1 >= $3
                THEN NOW() + $4::interval ELSE login_attempts.locked_until END
        RETURNING ip, username, fail_count, last_attempt_at, locked_until`
	var attempt domain.LoginAttempt
	if err := r.db.QueryRow(ctx, query, ip, username, maxAttempts, lockout.String()).Scan(
		&attempt.IP,
		&attempt.Username,
		&attempt.FailCount,
		&attempt.LastAttemptAt,
		&attempt.LockedUntil,
	); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// ClearForIP removes attempt records after a successful login.
func (r *loginAttemptRepository) ClearForIP(ctx context.Context, ip string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM login_attempts WHERE ip=$1`, ip)
	return err
}
