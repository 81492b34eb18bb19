package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/atum-helpdesk/atum/internal/api/dto"
	"github.com/atum-helpdesk/atum/internal/auth"
	"github.com/atum-helpdesk/atum/internal/domain"
	"github.com/atum-helpdesk/atum/internal/repository"
	"github.com/atum-helpdesk/atum/internal/service"
	apperrors "github.com/atum-helpdesk/atum/pkg/util"
)

// TicketsHandler exposes the customer-facing ticket endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets}
}

// Create handles POST /api/v1/tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.tickets.Create(c.UserContext(), principal.Tenant, service.TicketCreateInput{
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    req.Priority,
		Tags:        req.Tags,
		ServiceID:   req.ServiceID,
		RequesterID: req.RequesterID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromTicketSummary(ticket)})
}

// List handles GET /api/v1/tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}

	filter, err := parseTicketFilter(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.List(c.UserContext(), principal.Tenant, filter)
	if err != nil {
		return err
	}

	summaries := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		summaries = append(summaries, dto.FromTicketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": summaries})
}

// Get handles GET /api/v1/tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}

	ticket, comments, err := h.tickets.Get(c.UserContext(), principal.Tenant, c.Params("id"))
	if err != nil {
		return err
	}
	staffView := principal.User.Role.IsStaff()
	return c.JSON(fiber.Map{"data": dto.FromTicketDetail(ticket, comments, staffView)})
}

// Comment handles POST /api/v1/tickets/:id/comments.
func (h *TicketsHandler) Comment(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	comment, err := h.tickets.AddComment(c.UserContext(), principal.Tenant, service.CommentCreateInput{
		TicketID:   c.Params("id"),
		Content:    req.Content,
		IsInternal: req.IsInternal,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CommentResponse{
		ID:         comment.ID,
		AuthorID:   comment.AuthorID,
		Content:    comment.Content,
		IsInternal: comment.IsInternal,
		CreatedAt:  comment.CreatedAt,
	}})
}

// Close handles POST /api/v1/tickets/:id/close. Customers may close their
// own resolved tickets.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}

	ticket, err := h.tickets.ChangeStatus(c.UserContext(), principal.Tenant, c.Params("id"), domain.TicketStatusClosed)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicketSummary(ticket)})
}

func parseTicketFilter(c *fiber.Ctx) (repository.TicketFilter, error) {
	filter := repository.TicketFilter{
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}

	for _, raw := range splitQuery(c.Query("status")) {
		status := domain.TicketStatus(strings.ToUpper(raw))
		switch status {
		case domain.TicketStatusNew, domain.TicketStatusAccepted, domain.TicketStatusAssigned,
			domain.TicketStatusInProgress, domain.TicketStatusWaitingCustomer,
			domain.TicketStatusResolved, domain.TicketStatusClosed, domain.TicketStatusCancelled:
			filter.Statuses = append(filter.Statuses, status)
		default:
			return filter, apperrors.NewValidationError("unknown status filter", map[string]any{"status": raw})
		}
	}
	for _, raw := range splitQuery(c.Query("priority")) {
		priority := domain.TicketPriority(strings.ToUpper(raw))
		switch priority {
		case domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh, domain.TicketPriorityUrgent:
			filter.Priorities = append(filter.Priorities, priority)
		default:
			return filter, apperrors.NewValidationError("unknown priority filter", map[string]any{"priority": raw})
		}
	}
	if term := strings.TrimSpace(c.Query("q")); term != "" {
		filter.SearchTerm = &term
	}
	if assignee := strings.TrimSpace(c.Query("assigned_to")); assignee != "" {
		filter.AssignedTo = &assignee
	}
	if from := c.Query("created_from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return filter, apperrors.NewValidationError("created_from must be RFC3339", nil)
		}
		filter.CreatedFrom = &t
	}
	if to := c.Query("created_to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return filter, apperrors.NewValidationError("created_to must be RFC3339", nil)
		}
		filter.CreatedTo = &t
	}
	return filter, nil
}

func splitQuery(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Attach handles POST /api/v1/tickets/:id/comments/:commentID/attachments.
func (h *TicketsHandler) Attach(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AttachmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	att, err := h.tickets.AddAttachment(c.UserContext(), principal.Tenant, service.AttachmentInput{
		TicketID:   c.Params("id"),
		CommentID:  c.Params("commentID"),
		StorageKey: req.StorageKey,
		FileName:   req.FileName,
		MimeType:   req.MimeType,
		SizeBytes:  req.SizeBytes,
		SHA256:     req.SHA256,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromAttachment(att)})
}
