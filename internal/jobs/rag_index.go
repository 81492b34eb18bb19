package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// ragIndexHandler bridges the general queue to the indexing queue: the
// actual chunk/embed pipeline runs in the dedicated indexing worker, so
// this handler only records the work item, idempotently.
type ragIndexHandler struct {
	d Deps
}

func (h *ragIndexHandler) Type() domain.JobType { return domain.JobTypeRAGIndex }

// ragIndexPayload is the payload for rag_index jobs.
type ragIndexPayload struct {
	SourceType domain.RAGSourceType `json:"source_type"`
	SourceID   string               `json:"source_id"`
	Action     domain.RAGIndexAction `json:"action"`
}

func (h *ragIndexHandler) Handle(ctx context.Context, tx pgx.Tx, job *domain.Job) error {
	orgID, err := requireOrg(job)
	if err != nil {
		return err
	}

	var payload ragIndexPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode rag_index payload: %w", err)
	}
	if payload.SourceID == "" || payload.SourceType == "" {
		return fmt.Errorf("rag_index payload lacks source identity")
	}
	if payload.Action == "" {
		payload.Action = domain.RAGIndexUpsert
	}

	return h.d.RAGQueue.WithTx(tx).Enqueue(ctx, &domain.RAGIndexItem{
		OrganizationID: orgID,
		SourceType:     payload.SourceType,
		SourceID:       payload.SourceID,
		Action:         payload.Action,
		Priority:       job.Priority,
	})
}
