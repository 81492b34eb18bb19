package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/atum-helpdesk/atum/internal/api/dto"
	"github.com/atum-helpdesk/atum/internal/email"
	apperrors "github.com/atum-helpdesk/atum/pkg/util"
)

// EmailHandler receives parsed inbound mail from the relay process.
type EmailHandler struct {
	ingestor *email.Ingestor
}

// NewEmailHandler constructs handler.
func NewEmailHandler(ingestor *email.Ingestor) *EmailHandler {
	return &EmailHandler{ingestor: ingestor}
}

// Inbound handles POST /api/v1/email/inbound.
func (h *EmailHandler) Inbound(c *fiber.Ctx) error {
	var req dto.InboundEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Organization == "" {
		return apperrors.NewValidationError("organization is required", nil)
	}

	ticket, err := h.ingestor.Ingest(c.UserContext(), email.InboundMessage{
		OrgSlug:     req.Organization,
		FromAddress: req.From,
		FromName:    req.FromName,
		Subject:     req.Subject,
		Body:        req.Body,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromTicketSummary(ticket)})
}
