package sla

import (
	"time"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// BreachKind identifies which target breached.
type BreachKind string

const (
	BreachFirstResponse BreachKind = "first_response"
	BreachResolution    BreachKind = "resolution"
)

// StartClock initializes SLA state on first acceptance: sets
// sla_started_at and derives both targets from the policy for the
// ticket's current priority. No-op when the clock already runs or no
// policy is attached.
func StartClock(ticket *domain.Ticket, policy *domain.SLAPolicy, now time.Time) {
	if ticket.SLAStartedAt != nil || policy == nil {
		return
	}
	started := now
	ticket.SLAStartedAt = &started
	applyTargets(ticket, policy, started)
}

func applyTargets(ticket *domain.Ticket, policy *domain.SLAPolicy, from time.Time) {
	if minutes := policy.ResponseFor(ticket.Priority); minutes > 0 {
		target := AddBusinessMinutes(from, minutes, policy.Schedule, policy.Holidays)
		ticket.SLAFirstResponseTarget = &target
	}
	if minutes := policy.ResolutionFor(ticket.Priority); minutes > 0 {
		target := AddBusinessMinutes(from, minutes, policy.Schedule, policy.Holidays)
		ticket.SLAResolutionTarget = &target
		ticket.SLADueAt = &target
	}
}

// Reprioritize re-derives the resolution target after an explicit
// priority change: the minutes already consumed count against the new
// budget, and the remainder is projected forward from now. Targets are
// never re-derived for any other reason.
func Reprioritize(ticket *domain.Ticket, policy *domain.SLAPolicy, now time.Time) {
	if ticket.SLAStartedAt == nil || policy == nil {
		return
	}
	elapsed := EffectiveElapsedMinutes(ticket, policy, now)

	if budget := policy.ResponseFor(ticket.Priority); budget > 0 && ticket.AcceptedAt == nil {
		remaining := budget - elapsed
		if remaining < 0 {
			remaining = 0
		}
		target := AddBusinessMinutes(now, remaining, policy.Schedule, policy.Holidays)
		ticket.SLAFirstResponseTarget = &target
	}
	if budget := policy.ResolutionFor(ticket.Priority); budget > 0 {
		remaining := budget - elapsed
		if remaining < 0 {
			remaining = 0
		}
		target := AddBusinessMinutes(now, remaining, policy.Schedule, policy.Holidays)
		ticket.SLAResolutionTarget = &target
		ticket.SLADueAt = &target
	}
}

// Pause marks the clock stopped on entry to WAITING_CUSTOMER.
func Pause(ticket *domain.Ticket, now time.Time) {
	if ticket.SLAStartedAt == nil || ticket.SLAPausedAt != nil {
		return
	}
	paused := now
	ticket.SLAPausedAt = &paused
}

// Resume accumulates the paused interval on exit from WAITING_CUSTOMER.
func Resume(ticket *domain.Ticket, now time.Time) {
	if ticket.SLAPausedAt == nil {
		return
	}
	ticket.SLAPausedDurationSeconds += int64(now.Sub(*ticket.SLAPausedAt) / time.Second)
	ticket.SLAPausedAt = nil
}

// EffectiveElapsedMinutes is business-minutes since the clock started,
// minus accumulated pauses and any open pause.
func EffectiveElapsedMinutes(ticket *domain.Ticket, policy *domain.SLAPolicy, now time.Time) int {
	if ticket.SLAStartedAt == nil {
		return 0
	}
	var schedule *domain.BusinessSchedule
	var holidays []time.Time
	if policy != nil {
		schedule = policy.Schedule
		holidays = policy.Holidays
	}
	elapsed := BusinessMinutesBetween(*ticket.SLAStartedAt, now, schedule, holidays)
	elapsed -= int(ticket.SLAPausedDurationSeconds / 60)
	if ticket.SLAPausedAt != nil {
		elapsed -= int(now.Sub(*ticket.SLAPausedAt) / time.Minute)
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed
}

// RemainingDisplayMinutes clamps negative remaining time to zero for
// presentation. Breach decisions never use this.
func RemainingDisplayMinutes(budget, elapsed int) int {
	remaining := budget - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Evaluate reports targets that breached as of now but are not yet
// flagged on the ticket. A ticket without a policy is never evaluated.
func Evaluate(ticket *domain.Ticket, policy *domain.SLAPolicy, now time.Time) []BreachKind {
	if policy == nil || ticket.SLAStartedAt == nil || !ticket.Status.IsOpen() {
		return nil
	}
	if ticket.Status == domain.TicketStatusWaitingCustomer {
		return nil
	}

	elapsed := EffectiveElapsedMinutes(ticket, policy, now)
	var breaches []BreachKind

	if !ticket.FirstResponseBreached && ticket.AcceptedAt == nil {
		if budget := policy.ResponseFor(ticket.Priority); budget > 0 && elapsed >= budget {
			breaches = append(breaches, BreachFirstResponse)
		}
	}
	if !ticket.ResolutionBreached {
		if budget := policy.ResolutionFor(ticket.Priority); budget > 0 && elapsed >= budget {
			breaches = append(breaches, BreachResolution)
		}
	}
	return breaches
}
