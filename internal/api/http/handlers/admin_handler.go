package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/atum-helpdesk/atum/internal/api/dto"
	"github.com/atum-helpdesk/atum/internal/auth"
	"github.com/atum-helpdesk/atum/internal/service"
	apperrors "github.com/atum-helpdesk/atum/pkg/util"
)

// AdminHandler exposes tenant administration: settings, rules, SLA
// policies, webhooks and audit verification.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// UpdateSettings handles PATCH /api/v1/admin/settings.
func (h *AdminHandler) UpdateSettings(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	org, err := h.admin.UpdateSettings(c.UserContext(), principal.Tenant, req.Settings)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"settings": org.Settings}})
}

// CreateRule handles POST /api/v1/admin/rules.
func (h *AdminHandler) CreateRule(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	rule, err := h.admin.CreateRule(c.UserContext(), principal.Tenant, service.RuleInput{
		Name:           req.Name,
		EventType:      req.EventType,
		Conditions:     req.Conditions,
		Actions:        req.Actions,
		ExecutionOrder: req.ExecutionOrder,
		IsActive:       req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromRule(rule)})
}

// UpdateRule handles PUT /api/v1/admin/rules/:id.
func (h *AdminHandler) UpdateRule(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	rule, err := h.admin.UpdateRule(c.UserContext(), principal.Tenant, c.Params("id"), service.RuleInput{
		Name:           req.Name,
		EventType:      req.EventType,
		Conditions:     req.Conditions,
		Actions:        req.Actions,
		ExecutionOrder: req.ExecutionOrder,
		IsActive:       req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromRule(rule)})
}

// ListRules handles GET /api/v1/admin/rules.
func (h *AdminHandler) ListRules(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}

	rules, err := h.admin.ListRules(c.UserContext(), principal.Tenant)
	if err != nil {
		return err
	}
	out := make([]dto.RuleResponse, 0, len(rules))
	for i := range rules {
		out = append(out, dto.FromRule(&rules[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// CreateSLAPolicy handles POST /api/v1/admin/sla-policies.
func (h *AdminHandler) CreateSLAPolicy(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SLAPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	policy, err := h.admin.CreateSLAPolicy(c.UserContext(), principal.Tenant, service.SLAPolicyInput{
		Name:              req.Name,
		ResponseMinutes:   req.ResponseMinutes,
		ResolutionMinutes: req.ResolutionMinutes,
		Schedule:          req.Schedule,
		Holidays:          req.Holidays,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": policy})
}

// ListSLAPolicies handles GET /api/v1/admin/sla-policies.
func (h *AdminHandler) ListSLAPolicies(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}

	policies, err := h.admin.ListSLAPolicies(c.UserContext(), principal.Tenant)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": policies})
}

// CreateWebhook handles POST /api/v1/webhooks.
func (h *AdminHandler) CreateWebhook(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.WebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	hook, err := h.admin.CreateWebhook(c.UserContext(), principal.Tenant, service.WebhookInput{
		URL:        req.URL,
		Secret:     req.Secret,
		EventTypes: req.EventTypes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromWebhook(hook)})
}

// DeleteWebhook handles DELETE /api/v1/webhooks/:id.
func (h *AdminHandler) DeleteWebhook(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.admin.DeleteWebhook(c.UserContext(), principal.Tenant, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListWebhooks handles GET /api/v1/webhooks.
func (h *AdminHandler) ListWebhooks(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}

	hooks, err := h.admin.ListWebhooks(c.UserContext(), principal.Tenant)
	if err != nil {
		return err
	}
	out := make([]dto.WebhookResponse, 0, len(hooks))
	for i := range hooks {
		out = append(out, dto.FromWebhook(&hooks[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// VerifyAudit handles GET /api/v1/admin/audit/verify.
func (h *AdminHandler) VerifyAudit(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}

	var from, to time.Time
	if raw := c.Query("from"); raw != "" {
		from, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return apperrors.NewValidationError("from must be RFC3339", nil)
		}
	}
	if raw := c.Query("to"); raw != "" {
		to, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return apperrors.NewValidationError("to must be RFC3339", nil)
		}
	}

	result, err := h.admin.VerifyAudit(c.UserContext(), principal.Tenant, from, to, c.QueryInt("limit", 1000))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuditVerifyResponse{
		Status:  result.Status(),
		Checked: result.Checked,
	}})
}

// Metrics handles GET /api/v1/metrics.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}

	snapshot, err := h.admin.LatestMetrics(c.UserContext(), principal.Tenant)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromMetricsSnapshot(snapshot)})
}
