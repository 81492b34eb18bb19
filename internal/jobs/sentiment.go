package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// sentimentHandler scores ticket sentiment and, when the organization
// opted in, escalates tickets whose customers are clearly unhappy.
type sentimentHandler struct {
	d Deps
}

func (h *sentimentHandler) Type() domain.JobType { return domain.JobTypeSentiment }

const sentimentPrompt = `Score the sentiment of this support ticket. Respond with a JSON object:
{"label": "positive"|"neutral"|"negative"|"angry", "score": number between -1 and 1,
"escalation_score": number between 0 and 1}.

Subject: %s

Description:
%s`

func (h *sentimentHandler) Handle(ctx context.Context, tx pgx.Tx, job *domain.Job) error {
	orgID, err := requireOrg(job)
	if err != nil {
		return err
	}
	payload, err := ticketPayload(job)
	if err != nil {
		return err
	}

	tickets := h.d.Tickets.WithTx(tx)
	ticket, err := tickets.GetByIDForUpdate(ctx, payload.TicketID)
	if err != nil {
		return fmt.Errorf("load ticket %s: %w", payload.TicketID, err)
	}

	var result struct {
		Label           string  `json:"label"`
		Score           float64 `json:"score"`
		EscalationScore float64 `json:"escalation_score"`
	}
	prompt := fmt.Sprintf(sentimentPrompt, ticket.Subject, ticket.Description)
	if err := h.d.Inference.GenerateJSON(ctx, prompt, &result); err != nil {
		return err
	}

	ticket.SentimentScore = &result.Score
	if err := h.d.AIStore.WithTx(tx).CreateSuggestion(ctx, &domain.AISuggestion{
		OrganizationID: orgID,
		TicketID:       ticket.ID,
		Type:           domain.AISuggestionSentiment,
		Content:        result.Label,
		Confidence:     clamp01(result.EscalationScore),
		Metadata: map[string]any{
			"score":            result.Score,
			"escalation_score": result.EscalationScore,
		},
	}); err != nil {
		return err
	}

	escalated, err := h.maybeEscalate(ctx, tx, orgID, ticket, result.Label, result.EscalationScore)
	if err != nil {
		return err
	}
	if err := tickets.Update(ctx, ticket); err != nil {
		return err
	}
	if escalated {
		return h.d.Audit.WithTx(tx).Append(ctx, &domain.AuditEntry{
			OrganizationID: orgID,
			Action:         domain.AuditActionSentimentAutoEscalated,
			EntityType:     "ticket",
			EntityID:       ticket.ID,
			NewValues: map[string]any{
				"label":            result.Label,
				"escalation_score": result.EscalationScore,
				"escalation_level": ticket.EscalationLevel,
			},
		})
	}
	return nil
}

func (h *sentimentHandler) maybeEscalate(ctx context.Context, tx pgx.Tx, orgID string, ticket *domain.Ticket, label string, escalationScore float64) (bool, error) {
	if label != "negative" && label != "angry" {
		return false, nil
	}

	org, err := h.d.Orgs.WithTx(tx).GetByID(ctx, orgID)
	if err != nil {
		return false, err
	}
	if !org.Settings.BoolSetting(domain.SettingAutoEscalateNegativeSentiment, false) {
		return false, nil
	}
	threshold := org.Settings.FloatSetting(domain.SettingAutoEscalateThreshold, 0.7)
	if escalationScore < threshold {
		return false, nil
	}

	ticket.Priority = domain.TicketPriorityUrgent
	ticket.EscalationLevel++
	return true, nil
}
