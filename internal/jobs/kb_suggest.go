package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
	"github.com/atum-helpdesk/atum/internal/rag"
)

// kbSuggestHandler attaches relevant knowledge-base articles to a ticket
// via the retriever, restricted to kb sources at agent visibility.
type kbSuggestHandler struct {
	d Deps
}

func (h *kbSuggestHandler) Type() domain.JobType { return domain.JobTypeKBSuggestions }

func (h *kbSuggestHandler) Handle(ctx context.Context, tx pgx.Tx, job *domain.Job) error {
	orgID, err := requireOrg(job)
	if err != nil {
		return err
	}
	payload, err := ticketPayload(job)
	if err != nil {
		return err
	}

	ticket, err := h.d.Tickets.WithTx(tx).GetByID(ctx, payload.TicketID)
	if err != nil {
		return fmt.Errorf("load ticket %s: %w", payload.TicketID, err)
	}

	result, err := h.d.Retriever.Search(ctx, h.d.RAGStore.WithTx(tx), h.d.RAGGraph.WithTx(tx), rag.SearchRequest{
		OrgID:       orgID,
		Query:       ticket.Subject + "\n" + ticket.Description,
		Role:        domain.RoleAgent,
		TopK:        h.d.Cfg.RAG.TopK,
		GraphDepth:  0,
		SourceTypes: []domain.RAGSourceType{domain.RAGSourceKB},
	})
	if err != nil {
		return err
	}

	aiStore := h.d.AIStore.WithTx(tx)
	for _, hit := range result.Hits {
		suggestion := &domain.KBSuggestion{
			OrganizationID: orgID,
			TicketID:       ticket.ID,
			ArticleID:      hit.SourceID,
			Title:          hit.Title,
			RelevanceScore: hit.Score,
		}
		if err := aiStore.CreateKBSuggestion(ctx, suggestion); err != nil {
			return err
		}
	}
	return nil
}
