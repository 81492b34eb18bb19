package domain

import "time"

// GenesisHash seeds each organization's audit chain.
const GenesisHash = "GENESIS"

// AuditEntry is one row of the per-organization hash-chained log.
type AuditEntry struct {
	ID             string
	OrganizationID string
	UserID         *string
	Action         string
	EntityType     string
	EntityID       string
	OldValues      map[string]any
	NewValues      map[string]any
	CreatedAt      time.Time
	PrevHash       string
	RowHash        string
}

// Audit actions written by the core.
const (
	AuditActionSLABreach              = "sla_breach"
	AuditActionRuleExecution          = "rule_execution"
	AuditActionRuleExecutionSkipped   = "rule_execution_skipped"
	AuditActionAITriageGenerated      = "ai_triage_generated"
	AuditActionSentimentAutoEscalated = "sentiment_auto_escalated"
	AuditActionTicketStatusChanged    = "ticket_status_changed"
	AuditActionTicketAccepted         = "ticket_accepted"
	AuditActionTicketAssigned         = "ticket_assigned"
	AuditActionTicketCreated          = "ticket_created"
	AuditActionTicketPriorityChanged  = "ticket_priority_changed"
	AuditActionCommentAdded           = "comment_added"
	AuditActionLoginLockout           = "login_lockout"
)
