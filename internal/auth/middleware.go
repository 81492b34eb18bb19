package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
	"github.com/atum-helpdesk/atum/internal/repository"
	"github.com/atum-helpdesk/atum/internal/tenant"
	apperrors "github.com/atum-helpdesk/atum/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller together with the tenant
// scope every downstream query must run under.
type Principal struct {
	User   *domain.User
	Tenant tenant.Context
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens       *TokenManager
	users        repository.UserRepository
	degradedMode bool
}

// NewAuthMiddleware constructs middleware. With degradedMode set,
// requests that yield no tenant context are rejected outright.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, degradedMode bool) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, degradedMode: degradedMode}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		if m.degradedMode {
			return apperrors.NewOrgContextMissing()
		}
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	if claims.Kind != TokenKindAccess {
		return apperrors.NewUnauthorized("refresh token not accepted here")
	}

	user, err := m.users.GetByID(c.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.ToDomainError(err)
	}
	if !user.IsActive {
		return apperrors.NewUnauthorized("account deactivated")
	}
	if user.OrganizationID != claims.OrganizationID {
		// Stale token after a user moved tenants; never honor its org.
		return apperrors.NewUnauthorized("invalid token")
	}

	userID := user.ID
	principal := &Principal{
		User: user,
		Tenant: tenant.Context{
			OrgID:  user.OrganizationID,
			UserID: &userID,
			Role:   user.Role,
		},
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// RequirePrincipal extracts the principal or fails per degraded-mode
// policy.
func RequirePrincipal(c *fiber.Ctx) (*Principal, error) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewOrgContextMissing()
	}
	return principal, nil
}
