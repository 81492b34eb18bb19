// Package jobs implements the typed handlers executed by the queue
// worker pool. Every handler runs inside the job's tenant-bound
// transaction; the commit happens after the handler returns and before
// the queue row is marked DONE.
package jobs

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/ai"
	"github.com/atum-helpdesk/atum/internal/audit"
	"github.com/atum-helpdesk/atum/internal/config"
	"github.com/atum-helpdesk/atum/internal/domain"
	"github.com/atum-helpdesk/atum/internal/queue"
	"github.com/atum-helpdesk/atum/internal/rag"
	"github.com/atum-helpdesk/atum/internal/repository"
)

// Deps bundles everything the handlers share. Repositories must be
// pool-bound; handlers rebind them to the job transaction.
type Deps struct {
	Tickets   repository.TicketRepository
	Comments  repository.CommentRepository
	Orgs      repository.OrganizationRepository
	Policies  repository.SLAPolicyRepository
	AIStore   repository.AIRepository
	Metrics   repository.MetricsRepository
	Jobs      repository.JobRepository
	RAGQueue  repository.RAGQueueRepository
	RAGStore  repository.RAGRepository
	RAGGraph  repository.RAGGraphRepository
	Audit     *audit.Writer
	Inference ai.Inference
	Retriever *rag.Retriever
	Cfg       *config.Config
	Logger    *zap.Logger
}

// NewRegistry wires all handlers into a queue registry.
func NewRegistry(d Deps) (queue.Registry, error) {
	return queue.NewRegistry(
		&triageHandler{d},
		&kbSuggestHandler{d},
		&smartReplyHandler{d},
		&sentimentHandler{d},
		&slaPredictHandler{d},
		&metricsSnapshotHandler{d},
		&cleanupHandler{d},
		&ragIndexHandler{d},
	)
}

// PeriodicJob builds the queue row for a scheduler-driven per-org job
// such as metrics snapshots or retention cleanup.
func PeriodicJob(orgID, jobType string) *domain.Job {
	org := orgID
	return &domain.Job{
		OrganizationID: &org,
		Type:           domain.JobType(jobType),
		Payload:        json.RawMessage(`{}`),
		Status:         domain.JobStatusPending,
		Priority:       domain.TicketPriorityLow,
	}
}

// ticketPayload decodes the common ticket-scoped job payload.
func ticketPayload(job *domain.Job) (domain.TicketJobPayload, error) {
	var payload domain.TicketJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return payload, fmt.Errorf("decode payload for %s: %w", job.Type, err)
	}
	if payload.TicketID == "" {
		return payload, fmt.Errorf("payload for %s lacks ticket_id", job.Type)
	}
	return payload, nil
}

func requireOrg(job *domain.Job) (string, error) {
	if job.OrganizationID == nil || *job.OrganizationID == "" {
		return "", fmt.Errorf("%s job requires an organization", job.Type)
	}
	return *job.OrganizationID, nil
}
