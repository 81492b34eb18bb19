package domain

import "time"

// RuleEventType enumerates events that trigger automation rules.
type RuleEventType string

const (
	RuleEventTicketCreate        RuleEventType = "ticket_create"
	RuleEventTicketUpdate        RuleEventType = "ticket_update"
	RuleEventTicketStatusChanged RuleEventType = "ticket_status_changed"
	RuleEventCommentAdded        RuleEventType = "comment_added"
	RuleEventSLABreachWarning    RuleEventType = "sla_breach_warning"
	RuleEventSLABreached         RuleEventType = "sla_breached"
)

// RuleActionType enumerates supported rule actions.
type RuleActionType string

const (
	RuleActionSetPriority RuleActionType = "set_priority"
	RuleActionAssignTo    RuleActionType = "assign_to"
	RuleActionAddTag      RuleActionType = "add_tag"
	RuleActionSetStatus   RuleActionType = "set_status"
	RuleActionEscalate    RuleActionType = "escalate"
)

// RuleAction is one ordered action within a rule.
type RuleAction struct {
	Type  RuleActionType `json:"type"`
	Value string         `json:"value"`
}

// Rule is an event-driven automation: equality conditions over ticket
// fields, plus an ordered action list.
type Rule struct {
	ID             string
	OrganizationID string
	Name           string
	EventType      RuleEventType
	Conditions     map[string]string
	Actions        []RuleAction
	ExecutionOrder int
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
