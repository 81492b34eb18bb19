package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/audit"
	"github.com/atum-helpdesk/atum/internal/auth"
	"github.com/atum-helpdesk/atum/internal/config"
	"github.com/atum-helpdesk/atum/internal/domain"
	"github.com/atum-helpdesk/atum/internal/persistence"
	"github.com/atum-helpdesk/atum/internal/repository"
	apperrors "github.com/atum-helpdesk/atum/pkg/util"
)

// AuthDependencies bundles collaborators for the auth service. Redis is
// optional; without it every lockout check hits the attempts table.
type AuthDependencies struct {
	Users    repository.UserRepository
	Orgs     repository.OrganizationRepository
	Attempts repository.LoginAttemptRepository
	Audit    *audit.Writer
	Tokens   *auth.TokenManager
	Redis    *persistence.Redis
	Cfg      *config.Config
	Logger   *zap.Logger
}

// AuthService issues and refreshes token pairs.
type AuthService struct {
	deps AuthDependencies
}

// NewAuthService constructs the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{deps: deps}
}

// TokenPair is the login/refresh response.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	User             *domain.User
}

// Login verifies credentials within an organization. Failed attempts are
// counted per (ip, email); once the limit is reached further logins from
// that pair are rejected until the lockout window passes. Timing is kept
// uniform between unknown users and wrong passwords.
func (s *AuthService) Login(ctx context.Context, orgSlug, email, password, clientIP string) (*TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}

	if s.lockedFastPath(ctx, clientIP, email) {
		return nil, apperrors.NewRateLimited(s.deps.Cfg.Auth.LockoutMinutes)
	}

	now := time.Now().UTC()
	attempt, err := s.deps.Attempts.Get(ctx, clientIP, email)
	if err != nil && !pgxNoRows(err) {
		return nil, apperrors.ToDomainError(err)
	}
	if attempt.Locked(now) {
		remaining := int(time.Until(*attempt.LockedUntil).Minutes()) + 1
		return nil, apperrors.NewRateLimited(remaining)
	}

	org, err := s.deps.Orgs.GetBySlug(ctx, orgSlug)
	if err != nil {
		if pgxNoRows(err) {
			return nil, s.recordFailure(ctx, clientIP, email, "")
		}
		return nil, apperrors.ToDomainError(err)
	}
	if !org.IsActive {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	user, err := s.deps.Users.GetByEmail(ctx, org.ID, email)
	if err != nil {
		if pgxNoRows(err) {
			// Burn a comparison so unknown emails cost the same as
			// wrong passwords.
			_ = auth.ComparePassword("$2a$12$invalidinvalidinvalidinvalidinvalidinvalidinvalidinval", password)
			return nil, s.recordFailure(ctx, clientIP, email, org.ID)
		}
		return nil, apperrors.ToDomainError(err)
	}
	if !user.IsActive || auth.PasswordDisabled(user.PasswordHash) {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, s.recordFailure(ctx, clientIP, email, org.ID)
	}

	if err := s.deps.Attempts.ClearForIP(ctx, clientIP); err != nil {
		s.deps.Logger.Warn("clearing login attempts failed",
			zap.String("ip", clientIP),
			zap.Error(err),
		)
	}
	if s.deps.Redis != nil {
		s.deps.Redis.Client.Del(ctx, lockoutKey(clientIP, email))
	}
	return s.issuePair(user)
}

// Refresh exchanges a valid refresh token for a new pair. The user is
// reloaded so deactivation and tenant moves invalidate old tokens.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.deps.Tokens.ParseToken(refreshToken)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid refresh token")
	}
	if claims.Kind != auth.TokenKindRefresh {
		return nil, apperrors.NewUnauthorized("refresh requires a refresh token")
	}

	user, err := s.deps.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if pgxNoRows(err) {
			return nil, apperrors.NewUnauthorized("invalid refresh token")
		}
		return nil, apperrors.ToDomainError(err)
	}
	if !user.IsActive || user.OrganizationID != claims.OrganizationID {
		return nil, apperrors.NewUnauthorized("invalid refresh token")
	}
	return s.issuePair(user)
}

func (s *AuthService) issuePair(user *domain.User) (*TokenPair, error) {
	access, accessExp, err := s.deps.Tokens.GenerateToken(user, auth.TokenKindAccess)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	refresh, refreshExp, err := s.deps.Tokens.GenerateToken(user, auth.TokenKindRefresh)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		User:             user,
	}, nil
}

// lockedFastPath consults the redis failure counter so locked-out pairs
// never reach the database. Redis errors fall through to the table check.
func (s *AuthService) lockedFastPath(ctx context.Context, clientIP, email string) bool {
	if s.deps.Redis == nil {
		return false
	}
	count, err := s.deps.Redis.Client.Get(ctx, lockoutKey(clientIP, email)).Int()
	if err != nil {
		return false
	}
	return count >= s.deps.Cfg.Auth.MaxLoginAttempts
}

func lockoutKey(clientIP, email string) string {
	return "lockout:" + clientIP + ":" + email
}

// recordFailure bumps the counter and returns the uniform auth error, or
// the rate-limit error on the attempt that crosses the threshold.
func (s *AuthService) recordFailure(ctx context.Context, clientIP, email, orgID string) error {
	lockout := time.Duration(s.deps.Cfg.Auth.LockoutMinutes) * time.Minute
	if s.deps.Redis != nil {
		key := lockoutKey(clientIP, email)
		if count, err := s.deps.Redis.Client.Incr(ctx, key).Result(); err == nil && count == 1 {
			s.deps.Redis.Client.Expire(ctx, key, lockout)
		}
	}
	attempt, err := s.deps.Attempts.RecordFailure(ctx, clientIP, email, s.deps.Cfg.Auth.MaxLoginAttempts, lockout)
	if err != nil {
		s.deps.Logger.Error("recording login failure failed",
			zap.String("ip", clientIP),
			zap.Error(err),
		)
		return apperrors.NewUnauthorized("invalid credentials")
	}
	if attempt.Locked(time.Now().UTC()) {
		if orgID != "" {
			entry := &domain.AuditEntry{
				OrganizationID: orgID,
				Action:         domain.AuditActionLoginLockout,
				EntityType:     "login",
				EntityID:       email,
				NewValues: map[string]any{
					"ip":         clientIP,
					"fail_count": attempt.FailCount,
				},
			}
			if auditErr := s.deps.Audit.Append(ctx, entry); auditErr != nil {
				s.deps.Logger.Error("writing lockout audit entry failed", zap.Error(auditErr))
			}
		}
		return apperrors.NewRateLimited(s.deps.Cfg.Auth.LockoutMinutes)
	}
	return apperrors.NewUnauthorized("invalid credentials")
}
