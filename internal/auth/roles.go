package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atum-helpdesk/atum/internal/domain"
	apperrors "github.com/atum-helpdesk/atum/pkg/util"
)

// RequireRole ensures the caller sits at or above the minimum role.
func RequireRole(minimum domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.User.Role.AtLeast(minimum) {
			return apperrors.NewInsufficientRole(c.Path(), string(minimum))
		}
		return c.Next()
	}
}

// RequireStaff ensures the caller holds an internal operator role.
func RequireStaff() fiber.Handler {
	return RequireRole(domain.RoleAgent)
}
