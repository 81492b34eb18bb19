package dto

import (
	"time"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// KBArticleRequest payload.
type KBArticleRequest struct {
	Title          string               `json:"title"`
	Body           string               `json:"body"`
	Visibility     domain.RAGVisibility `json:"visibility"`
	SourceTicketID *string              `json:"source_ticket_id"`
}

// KBPublishRequest payload.
type KBPublishRequest struct {
	Published bool `json:"published"`
}

// KBArticleResponse mirrors the stored article.
type KBArticleResponse struct {
	ID             string               `json:"id"`
	Title          string               `json:"title"`
	Body           string               `json:"body"`
	Visibility     domain.RAGVisibility `json:"visibility"`
	SourceTicketID *string              `json:"source_ticket_id"`
	IsPublished    bool                 `json:"is_published"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// FromKBArticle maps an article to its response shape.
func FromKBArticle(a *domain.KBArticle) KBArticleResponse {
	return KBArticleResponse{
		ID:             a.ID,
		Title:          a.Title,
		Body:           a.Body,
		Visibility:     a.Visibility,
		SourceTicketID: a.SourceTicketID,
		IsPublished:    a.IsPublished,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}
