package dto

import (
	"time"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Tags        []string              `json:"tags"`
	ServiceID   *string               `json:"service_id"`
	RequesterID *string               `json:"requester_id"`
}

// CommentRequest payload.
type CommentRequest struct {
	Content    string `json:"content"`
	IsInternal bool   `json:"is_internal"`
}

// StatusChangeRequest payload.
type StatusChangeRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// PriorityChangeRequest payload.
type PriorityChangeRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// AssignRequest payload.
type AssignRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// TicketSummary is the list-view shape.
type TicketSummary struct {
	ID              string                `json:"id"`
	Subject         string                `json:"subject"`
	Status          domain.TicketStatus   `json:"status"`
	Priority        domain.TicketPriority `json:"priority"`
	Tags            []string              `json:"tags"`
	AssignedTo      *string               `json:"assigned_to"`
	EscalationLevel int                   `json:"escalation_level"`
	SLADueAt        *time.Time            `json:"sla_due_at"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// SLAStatus is the due/breach view embedded in the detail response.
type SLAStatus struct {
	StartedAt             *time.Time `json:"started_at"`
	FirstResponseTarget   *time.Time `json:"first_response_target"`
	ResolutionTarget      *time.Time `json:"resolution_target"`
	PausedAt              *time.Time `json:"paused_at"`
	FirstResponseBreached bool       `json:"first_response_breached"`
	ResolutionBreached    bool       `json:"resolution_breached"`
}

// TicketDetailResponse is the single-ticket shape with its thread.
type TicketDetailResponse struct {
	ID              string                `json:"id"`
	RequesterID     string                `json:"requester_id"`
	AssignedTo      *string               `json:"assigned_to"`
	Subject         string                `json:"subject"`
	Description     string                `json:"description"`
	Status          domain.TicketStatus   `json:"status"`
	Priority        domain.TicketPriority `json:"priority"`
	Tags            []string              `json:"tags"`
	EscalationLevel int                   `json:"escalation_level"`
	SLA             SLAStatus             `json:"sla"`
	Suggestions     *TriageSuggestion     `json:"ai_suggestions,omitempty"`
	Comments        []CommentResponse     `json:"comments"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	ResolvedAt      *time.Time            `json:"resolved_at"`
	ClosedAt        *time.Time            `json:"closed_at"`
}

// TriageSuggestion surfaces AI triage output to staff.
type TriageSuggestion struct {
	Category   *string                `json:"category"`
	Priority   *domain.TicketPriority `json:"priority"`
	Confidence *float64               `json:"confidence"`
	Sentiment  *float64               `json:"sentiment"`
}

// CommentResponse is one thread entry.
type CommentResponse struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	Content    string    `json:"content"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// FromTicketSummary maps a ticket to its list shape.
func FromTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:              t.ID,
		Subject:         t.Subject,
		Status:          t.Status,
		Priority:        t.Priority,
		Tags:            t.Tags,
		AssignedTo:      t.AssignedTo,
		EscalationLevel: t.EscalationLevel,
		SLADueAt:        t.SLADueAt,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// FromTicketDetail maps a ticket and its thread. Staff views include the
// AI triage block; customer views do not.
func FromTicketDetail(t *domain.Ticket, comments []domain.Comment, staffView bool) TicketDetailResponse {
	resp := TicketDetailResponse{
		ID:              t.ID,
		RequesterID:     t.RequesterID,
		AssignedTo:      t.AssignedTo,
		Subject:         t.Subject,
		Description:     t.Description,
		Status:          t.Status,
		Priority:        t.Priority,
		Tags:            t.Tags,
		EscalationLevel: t.EscalationLevel,
		SLA: SLAStatus{
			StartedAt:             t.SLAStartedAt,
			FirstResponseTarget:   t.SLAFirstResponseTarget,
			ResolutionTarget:      t.SLAResolutionTarget,
			PausedAt:              t.SLAPausedAt,
			FirstResponseBreached: t.FirstResponseBreached,
			ResolutionBreached:    t.ResolutionBreached,
		},
		Comments:   make([]CommentResponse, 0, len(comments)),
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
		ResolvedAt: t.ResolvedAt,
		ClosedAt:   t.ClosedAt,
	}
	if staffView {
		resp.Suggestions = &TriageSuggestion{
			Category:   t.AISuggestedCategory,
			Priority:   t.AISuggestedPriority,
			Confidence: t.AIConfidenceScore,
			Sentiment:  t.SentimentScore,
		}
	}
	for _, c := range comments {
		resp.Comments = append(resp.Comments, CommentResponse{
			ID:         c.ID,
			AuthorID:   c.AuthorID,
			Content:    c.Content,
			IsInternal: c.IsInternal,
			CreatedAt:  c.CreatedAt,
		})
	}
	return resp
}

// AttachmentRequest records an already-uploaded file on a comment.
type AttachmentRequest struct {
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
	SHA256     string `json:"sha256"`
}

// AttachmentResponse is one stored attachment record.
type AttachmentResponse struct {
	ID        string    `json:"id"`
	CommentID string    `json:"comment_id"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	SHA256    string    `json:"sha256"`
	CreatedAt time.Time `json:"created_at"`
}

// FromAttachment maps an attachment record to its response shape.
func FromAttachment(att *domain.AttachmentReference) AttachmentResponse {
	return AttachmentResponse{
		ID:        att.ID,
		CommentID: att.CommentID,
		FileName:  att.FileName,
		MimeType:  att.MimeType,
		SizeBytes: att.SizeBytes,
		SHA256:    att.SHA256,
		CreatedAt: att.CreatedAt,
	}
}
