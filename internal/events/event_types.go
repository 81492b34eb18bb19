package events

import (
	"time"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketAccepted        EventType = "ticket_accepted"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketCommentAdded    EventType = "ticket_comment_added"
	EventTicketResolved        EventType = "ticket_resolved"
	EventTicketClosed          EventType = "ticket_closed"
	EventSLABreach             EventType = "sla_breach"
	EventSLAEscalated          EventType = "sla_escalated"
	EventKBArticlePublished    EventType = "kb_article_published"
)

// Actor identifies who caused an event; nil UserID means the system.
type Actor struct {
	UserID *string     `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services. OrganizationID is
// always set; handlers must never cross it.
type Event struct {
	ID             string      `json:"id"`
	Type           EventType   `json:"type"`
	OrganizationID string      `json:"organization_id"`
	TicketID       string      `json:"ticket_id,omitempty"`
	Actor          Actor       `json:"actor"`
	Timestamp      time.Time   `json:"timestamp"`
	Payload        interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Subject     string                `json:"subject"`
	Priority    domain.TicketPriority `json:"priority"`
	RequesterID string                `json:"requester_id"`
	Source      string                `json:"source,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID string `json:"assignee_id"`
	AssignedBy string `json:"assigned_by"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	AuthorID    string `json:"author_id"`
	IsInternal  bool   `json:"is_internal"`
	BodyPreview string `json:"body_preview"`
}

// SLABreachPayload payload.
type SLABreachPayload struct {
	Kind            string                `json:"kind"`
	Priority        domain.TicketPriority `json:"priority"`
	TargetAt        time.Time             `json:"target_at"`
	EscalationLevel int                   `json:"escalation_level"`
}

// KBArticlePublishedPayload payload.
type KBArticlePublishedPayload struct {
	ArticleID string `json:"article_id"`
	Title     string `json:"title"`
}
