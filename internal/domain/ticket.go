package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew             TicketStatus = "NEW"
	TicketStatusAccepted        TicketStatus = "ACCEPTED"
	TicketStatusAssigned        TicketStatus = "ASSIGNED"
	TicketStatusInProgress      TicketStatus = "IN_PROGRESS"
	TicketStatusWaitingCustomer TicketStatus = "WAITING_CUSTOMER"
	TicketStatusResolved        TicketStatus = "RESOLVED"
	TicketStatusClosed          TicketStatus = "CLOSED"
	TicketStatusCancelled       TicketStatus = "CANCELLED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// PriorityRank orders priorities for queue ordering; higher is more urgent.
func PriorityRank(p TicketPriority) int {
	switch p {
	case TicketPriorityUrgent:
		return 3
	case TicketPriorityHigh:
		return 2
	case TicketPriorityMedium:
		return 1
	default:
		return 0
	}
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusNew:             {TicketStatusAccepted, TicketStatusCancelled},
	TicketStatusAccepted:        {TicketStatusAssigned, TicketStatusInProgress, TicketStatusCancelled},
	TicketStatusAssigned:        {TicketStatusInProgress, TicketStatusCancelled},
	TicketStatusInProgress:      {TicketStatusWaitingCustomer, TicketStatusResolved},
	TicketStatusWaitingCustomer: {TicketStatusInProgress, TicketStatusResolved},
	TicketStatusResolved:        {TicketStatusClosed, TicketStatusInProgress},
	TicketStatusClosed:          {},
	TicketStatusCancelled:       {},
}

// CanTransition reports whether the state machine allows current -> next.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions leave the status.
func (s TicketStatus) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// IsOpen reports whether the ticket still counts toward SLA evaluation.
func (s TicketStatus) IsOpen() bool {
	switch s {
	case TicketStatusResolved, TicketStatusClosed, TicketStatusCancelled:
		return false
	}
	return true
}

// Ticket is the central aggregate for support requests.
type Ticket struct {
	ID             string
	OrganizationID string

	RequesterID string
	AssignedTo  *string
	AcceptedBy  *string

	Subject        string
	Description    string
	Priority       TicketPriority
	Status         TicketStatus
	Tags           []string
	ServiceID      *string
	ParentTicketID *string
	IsDuplicateOf  *string

	SLAPolicyID              *string
	SLAStartedAt             *time.Time
	SLADueAt                 *time.Time
	SLAFirstResponseTarget   *time.Time
	SLAResolutionTarget      *time.Time
	SLAPausedAt              *time.Time
	SLAPausedDurationSeconds int64
	FirstResponseBreached    bool
	ResolutionBreached       bool

	AISuggestedCategory *string
	AISuggestedPriority *TicketPriority
	AIConfidenceScore   *float64
	SentimentScore      *float64
	SLARiskScore        *float64
	TimeToBreachMinutes *int
	EscalationLevel     int

	CreatedAt  time.Time
	UpdatedAt  time.Time
	AcceptedAt *time.Time
	ResolvedAt *time.Time
	ClosedAt   *time.Time
}
