package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atum-helpdesk/atum/internal/api/dto"
	"github.com/atum-helpdesk/atum/internal/auth"
	"github.com/atum-helpdesk/atum/internal/service"
	apperrors "github.com/atum-helpdesk/atum/pkg/util"
)

// SearchHandler exposes knowledge retrieval.
type SearchHandler struct {
	search *service.SearchService
}

// NewSearchHandler constructs handler.
func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// Search handles POST /api/v1/rag/search.
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	principal, err := auth.RequirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.search.Search(c.UserContext(), principal.Tenant, req.Query, req.TopK, req.GraphDepth)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromSearchResult(result)})
}
