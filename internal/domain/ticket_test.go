package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionHappyPath(t *testing.T) {
	path := []TicketStatus{
		TicketStatusNew,
		TicketStatusAccepted,
		TicketStatusAssigned,
		TicketStatusInProgress,
		TicketStatusWaitingCustomer,
		TicketStatusInProgress,
		TicketStatusResolved,
		TicketStatusClosed,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, CanTransition(path[i], path[i+1]),
			"%s -> %s should be allowed", path[i], path[i+1])
	}
}

func TestCanTransitionReopen(t *testing.T) {
	assert.True(t, CanTransition(TicketStatusResolved, TicketStatusInProgress))
	assert.False(t, CanTransition(TicketStatusClosed, TicketStatusInProgress))
}

func TestCanTransitionRejectsSkips(t *testing.T) {
	assert.False(t, CanTransition(TicketStatusNew, TicketStatusResolved))
	assert.False(t, CanTransition(TicketStatusNew, TicketStatusInProgress))
	assert.False(t, CanTransition(TicketStatusAccepted, TicketStatusResolved))
	assert.False(t, CanTransition(TicketStatusInProgress, TicketStatusCancelled))
	assert.False(t, CanTransition(TicketStatusWaitingCustomer, TicketStatusClosed))
}

func TestTerminalStatesAllowNothing(t *testing.T) {
	all := []TicketStatus{
		TicketStatusNew, TicketStatusAccepted, TicketStatusAssigned,
		TicketStatusInProgress, TicketStatusWaitingCustomer,
		TicketStatusResolved, TicketStatusClosed, TicketStatusCancelled,
	}
	for _, next := range all {
		assert.False(t, CanTransition(TicketStatusClosed, next))
		assert.False(t, CanTransition(TicketStatusCancelled, next))
	}
	assert.True(t, TicketStatusClosed.IsTerminal())
	assert.True(t, TicketStatusCancelled.IsTerminal())
	assert.False(t, TicketStatusResolved.IsTerminal())
}

func TestIsOpen(t *testing.T) {
	assert.True(t, TicketStatusNew.IsOpen())
	assert.True(t, TicketStatusWaitingCustomer.IsOpen())
	assert.False(t, TicketStatusResolved.IsOpen())
	assert.False(t, TicketStatusClosed.IsOpen())
	assert.False(t, TicketStatusCancelled.IsOpen())
}

func TestPriorityRankOrdering(t *testing.T) {
	assert.Greater(t, PriorityRank(TicketPriorityUrgent), PriorityRank(TicketPriorityHigh))
	assert.Greater(t, PriorityRank(TicketPriorityHigh), PriorityRank(TicketPriorityMedium))
	assert.Greater(t, PriorityRank(TicketPriorityMedium), PriorityRank(TicketPriorityLow))
}
