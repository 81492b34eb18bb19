package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// smartReplyExpiry bounds how long a draft stays usable; the ticket moves
// on and the draft goes stale.
const smartReplyExpiry = 30 * time.Minute

type smartReplyHandler struct {
	d Deps
}

func (h *smartReplyHandler) Type() domain.JobType { return domain.JobTypeSmartReply }

const smartReplyPrompt = `You are a support agent drafting a reply to the customer. Use a helpful,
professional tone. Respond with a JSON object: {"reply": string, "confidence": number between 0 and 1}.

Subject: %s

Description:
%s

Recent public conversation:
%s`

func (h *smartReplyHandler) Handle(ctx context.Context, tx pgx.Tx, job *domain.Job) error {
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
	comments, err := h.d.Comments.WithTx(tx).ListByTicket(ctx, ticket.ID, false)
	if err != nil {
		return err
	}

	var convo strings.Builder
	start := 0
	if len(comments) > 6 {
		start = len(comments) - 6
	}
	for _, comment := range comments[start:] {
		convo.WriteString("- ")
		convo.WriteString(comment.Content)
		convo.WriteString("\n")
	}

	var result struct {
		Reply      string  `json:"reply"`
		Confidence float64 `json:"confidence"`
	}
	prompt := fmt.Sprintf(smartReplyPrompt, ticket.Subject, ticket.Description, convo.String())
	if err := h.d.Inference.GenerateJSON(ctx, prompt, &result); err != nil {
		return err
	}
	if strings.TrimSpace(result.Reply) == "" {
		return fmt.Errorf("model produced an empty reply")
	}

	expires := time.Now().Add(smartReplyExpiry)
	return h.d.AIStore.WithTx(tx).CreateSuggestion(ctx, &domain.AISuggestion{
		OrganizationID: orgID,
		TicketID:       ticket.ID,
		Type:           domain.AISuggestionSmartReply,
		Content:        result.Reply,
		Confidence:     clamp01(result.Confidence),
		ExpiresAt:      &expires,
	})
}
