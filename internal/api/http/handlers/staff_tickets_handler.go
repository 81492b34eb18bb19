package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atum-helpdesk/atum/internal/api/dto"
	"github.com/atum-helpdesk/atum/internal/auth"
	"github.com/atum-helpdesk/atum/internal/service"
	apperrors "github.com/atum-helpdesk/atum/pkg/util"
)

// StaffTicketsHandler exposes the internal ticket operations.
type StaffTicketsHandler struct {
	tickets *service.TicketService
}

// NewStaffTicketsHandler constructs handler.
func NewStaffTicketsHandler(tickets *service.TicketService) *StaffTicketsHandler {
	return &StaffTicketsHandler{tickets: tickets}
}

// Accept handles POST /api/v1/internal/tickets/:id/accept.
func (h *StaffTicketsHandler) Accept(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}

	ticket, err := h.tickets.Accept(c.UserContext(), principal.Tenant, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicketSummary(ticket)})
}

// Assign handles POST /api/v1/internal/tickets/:id/assign.
func (h *StaffTicketsHandler) Assign(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AssigneeID == "" {
		return apperrors.NewValidationError("assignee_id is required", nil)
	}

	ticket, err := h.tickets.Assign(c.UserContext(), principal.Tenant, c.Params("id"), req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicketSummary(ticket)})
}

// Status handles POST /api/v1/internal/tickets/:id/status.
func (h *StaffTicketsHandler) Status(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.StatusChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status is required", nil)
	}

	ticket, err := h.tickets.ChangeStatus(c.UserContext(), principal.Tenant, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicketSummary(ticket)})
}

// Priority handles POST /api/v1/internal/tickets/:id/priority.
func (h *StaffTicketsHandler) Priority(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.PriorityChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Priority == "" {
		return apperrors.NewValidationError("priority is required", nil)
	}

	ticket, err := h.tickets.ChangePriority(c.UserContext(), principal.Tenant, c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicketSummary(ticket)})
}
