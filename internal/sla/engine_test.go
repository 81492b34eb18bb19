package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atum-helpdesk/atum/internal/domain"
)

func testPolicy() *domain.SLAPolicy {
	return &domain.SLAPolicy{
		ID:             "policy-1",
		OrganizationID: "org-1",
		ResponseMinutes: map[domain.TicketPriority]int{
			domain.TicketPriorityHigh:   60,
			domain.TicketPriorityMedium: 240,
		},
		ResolutionMinutes: map[domain.TicketPriority]int{
			domain.TicketPriorityHigh:   480,
			domain.TicketPriorityMedium: 1440,
		},
		IsActive: true,
	}
}

func TestStartClockDerivesBothTargets(t *testing.T) {
	policy := testPolicy()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{Priority: domain.TicketPriorityHigh, Status: domain.TicketStatusAccepted}

	StartClock(ticket, policy, now)

	require.NotNil(t, ticket.SLAStartedAt)
	require.NotNil(t, ticket.SLAFirstResponseTarget)
	require.NotNil(t, ticket.SLAResolutionTarget)
	assert.True(t, now.Add(60*time.Minute).Equal(*ticket.SLAFirstResponseTarget))
	assert.True(t, now.Add(480*time.Minute).Equal(*ticket.SLAResolutionTarget))
	assert.Equal(t, ticket.SLAResolutionTarget, ticket.SLADueAt)
}

func TestStartClockIdempotent(t *testing.T) {
	policy := testPolicy()
	first := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{Priority: domain.TicketPriorityHigh}

	StartClock(ticket, policy, first)
	StartClock(ticket, policy, first.Add(time.Hour))

	assert.True(t, first.Equal(*ticket.SLAStartedAt))
}

func TestPauseResumeAccumulatesDuration(t *testing.T) {
	started := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{SLAStartedAt: &started}

	Pause(ticket, started.Add(2*time.Hour))
	require.NotNil(t, ticket.SLAPausedAt)

	// Pausing again while paused keeps the original mark.
	Pause(ticket, started.Add(3*time.Hour))
	assert.True(t, started.Add(2*time.Hour).Equal(*ticket.SLAPausedAt))

	Resume(ticket, started.Add(4*time.Hour))
	assert.Nil(t, ticket.SLAPausedAt)
	assert.Equal(t, int64(2*3600), ticket.SLAPausedDurationSeconds)

	// Resume without a pause is a no-op.
	Resume(ticket, started.Add(5*time.Hour))
	assert.Equal(t, int64(2*3600), ticket.SLAPausedDurationSeconds)
}

// A 480-minute resolution budget with a 120-minute customer wait breaches
// only once 600 wall minutes have passed: the paused span does not count.
func TestBreachShiftsByPausedTime(t *testing.T) {
	policy := testPolicy()
	started := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	accepted := started
	ticket := &domain.Ticket{
		Priority:   domain.TicketPriorityHigh,
		Status:     domain.TicketStatusInProgress,
		AcceptedAt: &accepted,
	}
	StartClock(ticket, policy, started)

	Pause(ticket, started.Add(60*time.Minute))
	ticket.Status = domain.TicketStatusWaitingCustomer
	assert.Empty(t, Evaluate(ticket, policy, started.Add(500*time.Minute)),
		"paused tickets are never evaluated")

	Resume(ticket, started.Add(180*time.Minute))
	ticket.Status = domain.TicketStatusInProgress

	assert.Empty(t, Evaluate(ticket, policy, started.Add(599*time.Minute)))

	breaches := Evaluate(ticket, policy, started.Add(600*time.Minute))
	assert.Equal(t, []BreachKind{BreachResolution}, breaches)
}

func TestEvaluateFirstResponseOnlyBeforeAcceptance(t *testing.T) {
	policy := testPolicy()
	started := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{
		Priority: domain.TicketPriorityHigh,
		Status:   domain.TicketStatusNew,
	}
	StartClock(ticket, policy, started)

	breaches := Evaluate(ticket, policy, started.Add(61*time.Minute))
	assert.Equal(t, []BreachKind{BreachFirstResponse}, breaches)

	accepted := started.Add(62 * time.Minute)
	ticket.AcceptedAt = &accepted
	ticket.Status = domain.TicketStatusAccepted
	breaches = Evaluate(ticket, policy, started.Add(90*time.Minute))
	assert.Empty(t, breaches)
}

func TestEvaluateSkipsFlaggedAndClosed(t *testing.T) {
	policy := testPolicy()
	started := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{
		Priority:           domain.TicketPriorityHigh,
		Status:             domain.TicketStatusInProgress,
		ResolutionBreached: true,
	}
	accepted := started
	ticket.AcceptedAt = &accepted
	StartClock(ticket, policy, started)

	assert.Empty(t, Evaluate(ticket, policy, started.Add(1000*time.Minute)))

	ticket.ResolutionBreached = false
	ticket.Status = domain.TicketStatusClosed
	assert.Empty(t, Evaluate(ticket, policy, started.Add(1000*time.Minute)))
}

func TestReprioritizeProjectsRemainderFromNow(t *testing.T) {
	policy := testPolicy()
	started := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	accepted := started
	ticket := &domain.Ticket{
		Priority:   domain.TicketPriorityMedium,
		Status:     domain.TicketStatusInProgress,
		AcceptedAt: &accepted,
	}
	StartClock(ticket, policy, started)

	// 100 minutes in, escalate to HIGH: 480-100 = 380 remain from now.
	now := started.Add(100 * time.Minute)
	ticket.Priority = domain.TicketPriorityHigh
	Reprioritize(ticket, policy, now)

	require.NotNil(t, ticket.SLAResolutionTarget)
	assert.True(t, now.Add(380*time.Minute).Equal(*ticket.SLAResolutionTarget))
}

func TestReprioritizeExhaustedBudgetTargetsNow(t *testing.T) {
	policy := testPolicy()
	started := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	accepted := started
	ticket := &domain.Ticket{
		Priority:   domain.TicketPriorityMedium,
		Status:     domain.TicketStatusInProgress,
		AcceptedAt: &accepted,
	}
	StartClock(ticket, policy, started)

	// More minutes consumed than the new budget allows.
	now := started.Add(500 * time.Minute)
	ticket.Priority = domain.TicketPriorityHigh
	Reprioritize(ticket, policy, now)

	require.NotNil(t, ticket.SLAResolutionTarget)
	assert.True(t, now.Equal(*ticket.SLAResolutionTarget))
}

func TestRemainingDisplayMinutesClampsAtZero(t *testing.T) {
	assert.Equal(t, 40, RemainingDisplayMinutes(100, 60))
	assert.Equal(t, 0, RemainingDisplayMinutes(100, 160))
}
