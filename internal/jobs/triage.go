package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// triageHandler classifies a ticket with the inference endpoint and
// records the suggestion on the ticket row.
type triageHandler struct {
	d Deps
}

func (h *triageHandler) Type() domain.JobType { return domain.JobTypeTicketTriage }

const triagePrompt = `You are a helpdesk triage assistant. Classify the support ticket below.
Respond with a JSON object: {"category": string, "priority": "LOW"|"MEDIUM"|"HIGH"|"URGENT",
"sentiment": "positive"|"neutral"|"negative"|"angry", "confidence": number between 0 and 1}.

Subject: %s

Description:
%s`

func (h *triageHandler) Handle(ctx context.Context, tx pgx.Tx, job *domain.Job) error {
	orgID, err := requireOrg(job)
	if err != nil {
		return err
	}
	payload, err := ticketPayload(job)
	if err != nil {
		return err
	}

	tickets := h.d.Tickets.WithTx(tx)
	ticket, err := tickets.GetByID(ctx, payload.TicketID)
	if err != nil {
		return fmt.Errorf("load ticket %s: %w", payload.TicketID, err)
	}

	var result struct {
		Category   string  `json:"category"`
		Priority   string  `json:"priority"`
		Sentiment  string  `json:"sentiment"`
		Confidence float64 `json:"confidence"`
	}
	prompt := fmt.Sprintf(triagePrompt, ticket.Subject, ticket.Description)
	if err := h.d.Inference.GenerateJSON(ctx, prompt, &result); err != nil {
		return err
	}

	priority := normalizePriority(result.Priority, ticket.Priority)
	triage := &domain.TicketTriage{
		OrganizationID: orgID,
		TicketID:       ticket.ID,
		Category:       result.Category,
		Priority:       priority,
		SentimentLabel: strings.ToLower(result.Sentiment),
		Confidence:     clamp01(result.Confidence),
	}
	if err := h.d.AIStore.WithTx(tx).CreateTriage(ctx, triage); err != nil {
		return err
	}

	ticket.AISuggestedCategory = &triage.Category
	ticket.AISuggestedPriority = &priority
	ticket.AIConfidenceScore = &triage.Confidence
	if err := tickets.Update(ctx, ticket); err != nil {
		return err
	}

	return h.d.Audit.WithTx(tx).Append(ctx, &domain.AuditEntry{
		OrganizationID: orgID,
		Action:         domain.AuditActionAITriageGenerated,
		EntityType:     "ticket",
		EntityID:       ticket.ID,
		NewValues: map[string]any{
			"category":   triage.Category,
			"priority":   string(priority),
			"sentiment":  triage.SentimentLabel,
			"confidence": triage.Confidence,
		},
	})
}

func normalizePriority(raw string, fallback domain.TicketPriority) domain.TicketPriority {
	switch domain.TicketPriority(strings.ToUpper(strings.TrimSpace(raw))) {
	case domain.TicketPriorityLow:
		return domain.TicketPriorityLow
	case domain.TicketPriorityMedium:
		return domain.TicketPriorityMedium
	case domain.TicketPriorityHigh:
		return domain.TicketPriorityHigh
	case domain.TicketPriorityUrgent:
		return domain.TicketPriorityUrgent
	default:
		return fallback
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
