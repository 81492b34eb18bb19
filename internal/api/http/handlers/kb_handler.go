package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/atum-helpdesk/atum/internal/api/dto"
	"github.com/atum-helpdesk/atum/internal/auth"
	"github.com/atum-helpdesk/atum/internal/service"
	apperrors "github.com/atum-helpdesk/atum/pkg/util"
)

// KBHandler exposes knowledge-base articles.
type KBHandler struct {
	kb *service.KBService
}

// NewKBHandler constructs handler.
func NewKBHandler(kb *service.KBService) *KBHandler {
	return &KBHandler{kb: kb}
}

// List handles GET /api/v1/kb.
func (h *KBHandler) List(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}

	articles, err := h.kb.ListPublished(c.UserContext(), principal.Tenant, c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	out := make([]dto.KBArticleResponse, 0, len(articles))
	for i := range articles {
		out = append(out, dto.FromKBArticle(&articles[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get handles GET /api/v1/kb/:id.
func (h *KBHandler) Get(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}

	article, err := h.kb.Get(c.UserContext(), principal.Tenant, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromKBArticle(article)})
}

// Create handles POST /api/v1/kb.
func (h *KBHandler) Create(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.KBArticleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	article, err := h.kb.Create(c.UserContext(), principal.Tenant, service.KBArticleInput{
		Title:          req.Title,
		Body:           req.Body,
		Visibility:     req.Visibility,
		SourceTicketID: req.SourceTicketID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromKBArticle(article)})
}

// Update handles PUT /api/v1/kb/:id.
func (h *KBHandler) Update(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.KBArticleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	article, err := h.kb.Update(c.UserContext(), principal.Tenant, c.Params("id"), service.KBArticleInput{
		Title:          req.Title,
		Body:           req.Body,
		Visibility:     req.Visibility,
		SourceTicketID: req.SourceTicketID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromKBArticle(article)})
}

// Publish handles POST /api/v1/kb/:id/publish.
func (h *KBHandler) Publish(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.KBPublishRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	article, err := h.kb.Publish(c.UserContext(), principal.Tenant, c.Params("id"), req.Published)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromKBArticle(article)})
}
