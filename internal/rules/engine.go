// Package rules evaluates event-driven automation rules against tickets.
// Rules run synchronously inside the triggering event's transaction; the
// caller persists the mutated ticket once after all rules ran.
package rules

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/audit"
	"github.com/atum-helpdesk/atum/internal/domain"
)

// Engine matches rules and applies their actions to an in-memory ticket.
type Engine struct {
	auditWriter *audit.Writer
	logger      *zap.Logger
}

// NewEngine builds a rule engine over an audit writer.
func NewEngine(auditWriter *audit.Writer, logger *zap.Logger) *Engine {
	return &Engine{auditWriter: auditWriter, logger: logger}
}

// Result summarizes what a rule run changed.
type Result struct {
	MatchedRules    int
	ActionsApplied  int
	ActionsSkipped  int
	PriorityChanged bool
	StatusChanged   bool
}

// Apply evaluates the rules in order against the ticket. Rules whose
// conditions do not match are skipped; an evaluator error counts as
// non-matching. Action failures are isolated per rule.
func (e *Engine) Apply(ctx context.Context, rules []domain.Rule, ticket *domain.Ticket, actorID *string) Result {
	var result Result
	for _, rule := range rules {
		if !rule.IsActive || rule.OrganizationID != ticket.OrganizationID {
			continue
		}
		matched, err := e.matches(rule, ticket)
		if err != nil {
			e.logger.Warn("rule condition evaluation failed, treating as non-matching",
				zap.String("rule_id", rule.ID),
				zap.Error(err),
			)
			continue
		}
		if !matched {
			continue
		}
		result.MatchedRules++
		e.runActions(ctx, rule, ticket, actorID, &result)
	}
	return result
}

func (e *Engine) runActions(ctx context.Context, rule domain.Rule, ticket *domain.Ticket, actorID *string, result *Result) {
	for _, action := range rule.Actions {
		applied, err := e.applyAction(action, ticket, result)
		if err != nil {
			result.ActionsSkipped++
			e.logger.Warn("rule action skipped",
				zap.String("rule_id", rule.ID),
				zap.String("action", string(action.Type)),
				zap.String("ticket_id", ticket.ID),
				zap.Error(err),
			)
			e.writeAudit(ctx, domain.AuditActionRuleExecutionSkipped, rule, ticket, actorID, action, err.Error())
			continue
		}
		if applied {
			result.ActionsApplied++
		}
		e.writeAudit(ctx, domain.AuditActionRuleExecution, rule, ticket, actorID, action, "applied")
	}
}

func (e *Engine) applyAction(action domain.RuleAction, ticket *domain.Ticket, result *Result) (bool, error) {
	switch action.Type {
	case domain.RuleActionSetPriority:
		priority := domain.TicketPriority(strings.ToUpper(action.Value))
		switch priority {
		case domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh, domain.TicketPriorityUrgent:
		default:
			return false, fmt.Errorf("unknown priority %q", action.Value)
		}
		if ticket.Priority != priority {
			ticket.Priority = priority
			result.PriorityChanged = true
		}
		return true, nil

	case domain.RuleActionAssignTo:
		if action.Value == "" {
			return false, fmt.Errorf("assign_to requires a user id")
		}
		assignee := action.Value
		ticket.AssignedTo = &assignee
		if ticket.Status == domain.TicketStatusAccepted {
			ticket.Status = domain.TicketStatusAssigned
			result.StatusChanged = true
		}
		return true, nil

	case domain.RuleActionAddTag:
		if action.Value == "" {
			return false, fmt.Errorf("add_tag requires a tag")
		}
		for _, tag := range ticket.Tags {
			if strings.EqualFold(tag, action.Value) {
				return false, nil
			}
		}
		ticket.Tags = append(ticket.Tags, action.Value)
		return true, nil

	case domain.RuleActionSetStatus:
		next := domain.TicketStatus(strings.ToUpper(action.Value))
		if !domain.CanTransition(ticket.Status, next) {
			return false, fmt.Errorf("transition %s -> %s not allowed", ticket.Status, next)
		}
		ticket.Status = next
		result.StatusChanged = true
		return true, nil

	case domain.RuleActionEscalate:
		level, err := strconv.Atoi(action.Value)
		if err != nil || level < 0 {
			return false, fmt.Errorf("invalid escalation level %q", action.Value)
		}
		if level > ticket.EscalationLevel {
			ticket.EscalationLevel = level
			return true, nil
		}
		return false, nil

	default:
		return false, fmt.Errorf("unknown action type %q", action.Type)
	}
}

// matches checks every condition as a case-insensitive equality against
// the named ticket field. Unknown fields are evaluator errors.
func (e *Engine) matches(rule domain.Rule, ticket *domain.Ticket) (bool, error) {
	for field, expected := range rule.Conditions {
		actual, err := fieldValue(ticket, field)
		if err != nil {
			return false, err
		}
		if !strings.EqualFold(actual, expected) {
			return false, nil
		}
	}
	return true, nil
}

func fieldValue(ticket *domain.Ticket, field string) (string, error) {
	switch strings.ToLower(field) {
	case "status":
		return string(ticket.Status), nil
	case "priority":
		return string(ticket.Priority), nil
	case "subject":
		return ticket.Subject, nil
	case "requester_id":
		return ticket.RequesterID, nil
	case "assigned_to":
		if ticket.AssignedTo == nil {
			return "", nil
		}
		return *ticket.AssignedTo, nil
	case "service_id":
		if ticket.ServiceID == nil {
			return "", nil
		}
		return *ticket.ServiceID, nil
	case "escalation_level":
		return strconv.Itoa(ticket.EscalationLevel), nil
	default:
		return "", fmt.Errorf("unknown ticket field %q", field)
	}
}

func (e *Engine) writeAudit(ctx context.Context, auditAction string, rule domain.Rule, ticket *domain.Ticket, actorID *string, action domain.RuleAction, outcome string) {
	conditions := make(map[string]any, len(rule.Conditions))
	for k, v := range rule.Conditions {
		conditions[k] = v
	}
	entry := &domain.AuditEntry{
		OrganizationID: ticket.OrganizationID,
		UserID:         actorID,
		Action:         auditAction,
		EntityType:     "ticket",
		EntityID:       ticket.ID,
		OldValues:      conditions,
		NewValues: map[string]any{
			"rule_id":      rule.ID,
			"rule_name":    rule.Name,
			"action_type":  string(action.Type),
			"action_value": action.Value,
			"outcome":      outcome,
		},
	}
	if err := e.auditWriter.Append(ctx, entry); err != nil {
		e.logger.Error("failed to write rule execution audit entry",
			zap.String("rule_id", rule.ID),
			zap.Error(err),
		)
	}
}
