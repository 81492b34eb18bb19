package rules

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/audit"
	"github.com/atum-helpdesk/atum/internal/domain"
)

// recordingDB satisfies repository.Querier enough for the audit writer:
// it acknowledges the advisory lock, reports an empty chain, and records
// every inserted entry's action.
type recordingDB struct {
	inserted []string
}

func (d *recordingDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (d *recordingDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (d *recordingDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if strings.Contains(sql, "INSERT INTO audit_log") {
		d.inserted = append(d.inserted, args[2].(string))
		return fakeRow{}
	}
	return fakeRow{err: pgx.ErrNoRows}
}

type fakeRow struct {
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 1 {
		if id, ok := dest[0].(*string); ok {
			*id = "audit-1"
		}
	}
	return nil
}

func newTestEngine() (*Engine, *recordingDB) {
	db := &recordingDB{}
	return NewEngine(audit.NewWriter(db), zap.NewNop()), db
}

func ticketFixture() *domain.Ticket {
	return &domain.Ticket{
		ID:             "ticket-1",
		OrganizationID: "org-1",
		RequesterID:    "user-1",
		Subject:        "printer on fire",
		Priority:       domain.TicketPriorityMedium,
		Status:         domain.TicketStatusNew,
	}
}

func TestApplyMatchingRuleMutatesTicket(t *testing.T) {
	engine, db := newTestEngine()
	ticket := ticketFixture()
	rules := []domain.Rule{{
		ID:             "rule-1",
		OrganizationID: "org-1",
		EventType:      domain.RuleEventTicketCreate,
		Conditions:     map[string]string{"priority": "medium"},
		Actions: []domain.RuleAction{
			{Type: domain.RuleActionSetPriority, Value: "urgent"},
			{Type: domain.RuleActionAddTag, Value: "hot"},
		},
		IsActive: true,
	}}

	result := engine.Apply(context.Background(), rules, ticket, nil)

	assert.Equal(t, 1, result.MatchedRules)
	assert.Equal(t, 2, result.ActionsApplied)
	assert.True(t, result.PriorityChanged)
	assert.Equal(t, domain.TicketPriorityUrgent, ticket.Priority)
	assert.Equal(t, []string{"hot"}, ticket.Tags)
	require.Len(t, db.inserted, 2)
	assert.Equal(t, domain.AuditActionRuleExecution, db.inserted[0])
}

func TestApplyConditionMismatchSkipsRule(t *testing.T) {
	engine, db := newTestEngine()
	ticket := ticketFixture()
	rules := []domain.Rule{{
		ID:             "rule-1",
		OrganizationID: "org-1",
		Conditions:     map[string]string{"priority": "urgent"},
		Actions:        []domain.RuleAction{{Type: domain.RuleActionAddTag, Value: "never"}},
		IsActive:       true,
	}}

	result := engine.Apply(context.Background(), rules, ticket, nil)

	assert.Zero(t, result.MatchedRules)
	assert.Empty(t, ticket.Tags)
	assert.Empty(t, db.inserted)
}

func TestApplyUnknownConditionFieldIsNonMatching(t *testing.T) {
	engine, _ := newTestEngine()
	ticket := ticketFixture()
	rules := []domain.Rule{{
		ID:             "rule-1",
		OrganizationID: "org-1",
		Conditions:     map[string]string{"no_such_field": "x"},
		Actions:        []domain.RuleAction{{Type: domain.RuleActionAddTag, Value: "never"}},
		IsActive:       true,
	}}

	result := engine.Apply(context.Background(), rules, ticket, nil)
	assert.Zero(t, result.MatchedRules)
}

func TestApplyIllegalTransitionSkippedWithWarningAudit(t *testing.T) {
	engine, db := newTestEngine()
	ticket := ticketFixture() // NEW

	rules := []domain.Rule{{
		ID:             "rule-1",
		OrganizationID: "org-1",
		Conditions:     map[string]string{"status": "new"},
		Actions: []domain.RuleAction{
			{Type: domain.RuleActionSetStatus, Value: "resolved"},
			{Type: domain.RuleActionAddTag, Value: "still-runs"},
		},
		IsActive: true,
	}}

	result := engine.Apply(context.Background(), rules, ticket, nil)

	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.Equal(t, 1, result.ActionsSkipped)
	assert.Equal(t, 1, result.ActionsApplied, "later actions still run")
	require.Len(t, db.inserted, 2)
	assert.Equal(t, domain.AuditActionRuleExecutionSkipped, db.inserted[0])
}

func TestApplyAddTagIdempotent(t *testing.T) {
	engine, _ := newTestEngine()
	ticket := ticketFixture()
	ticket.Tags = []string{"VIP"}

	rules := []domain.Rule{{
		ID:             "rule-1",
		OrganizationID: "org-1",
		Actions:        []domain.RuleAction{{Type: domain.RuleActionAddTag, Value: "vip"}},
		IsActive:       true,
	}}

	result := engine.Apply(context.Background(), rules, ticket, nil)

	assert.Equal(t, []string{"VIP"}, ticket.Tags)
	assert.Zero(t, result.ActionsApplied, "duplicate tag is a no-op")
}

func TestApplyAssignToPromotesAcceptedToAssigned(t *testing.T) {
	engine, _ := newTestEngine()
	ticket := ticketFixture()
	ticket.Status = domain.TicketStatusAccepted

	rules := []domain.Rule{{
		ID:             "rule-1",
		OrganizationID: "org-1",
		Actions:        []domain.RuleAction{{Type: domain.RuleActionAssignTo, Value: "agent-7"}},
		IsActive:       true,
	}}

	engine.Apply(context.Background(), rules, ticket, nil)

	require.NotNil(t, ticket.AssignedTo)
	assert.Equal(t, "agent-7", *ticket.AssignedTo)
	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
}

func TestApplyEscalateOnlyRaisesLevel(t *testing.T) {
	engine, _ := newTestEngine()
	ticket := ticketFixture()
	ticket.EscalationLevel = 2

	rules := []domain.Rule{{
		ID:             "rule-1",
		OrganizationID: "org-1",
		Actions: []domain.RuleAction{
			{Type: domain.RuleActionEscalate, Value: "1"},
			{Type: domain.RuleActionEscalate, Value: "3"},
		},
		IsActive: true,
	}}

	engine.Apply(context.Background(), rules, ticket, nil)
	assert.Equal(t, 3, ticket.EscalationLevel)
}

func TestApplySkipsInactiveAndForeignOrgRules(t *testing.T) {
	engine, _ := newTestEngine()
	ticket := ticketFixture()

	rules := []domain.Rule{
		{ID: "rule-1", OrganizationID: "org-1", IsActive: false,
			Actions: []domain.RuleAction{{Type: domain.RuleActionAddTag, Value: "a"}}},
		{ID: "rule-2", OrganizationID: "org-2", IsActive: true,
			Actions: []domain.RuleAction{{Type: domain.RuleActionAddTag, Value: "b"}}},
	}

	result := engine.Apply(context.Background(), rules, ticket, nil)
	assert.Zero(t, result.MatchedRules)
	assert.Empty(t, ticket.Tags)
}
