package domain

import "time"

// DayWindow is a single weekday's open/close pair in local wall-clock
// minutes from midnight. A nil window means closed all day.
type DayWindow struct {
	OpenMinute  int
	CloseMinute int
}

// BusinessSchedule describes per-weekday working windows in a timezone.
// Weekday indexing follows time.Weekday (Sunday = 0).
type BusinessSchedule struct {
	Timezone string
	Days     [7]*DayWindow
}

// SLAPolicy holds per-priority response and resolution minutes for one
// organization, with an optional business-hours schedule.
type SLAPolicy struct {
	ID                string
	OrganizationID    string
	Name              string
	ResponseMinutes   map[TicketPriority]int
	ResolutionMinutes map[TicketPriority]int
	Schedule          *BusinessSchedule
	Holidays          []time.Time
	EscalationRules   []EscalationRule
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EscalationRule raises escalation level when a breach threshold passes.
type EscalationRule struct {
	ThresholdPercent int
	EscalateToLevel  int
	NotifyRole       Role
}

// ResponseFor returns response minutes for a priority, 0 when unset.
func (p *SLAPolicy) ResponseFor(priority TicketPriority) int {
	if p == nil {
		return 0
	}
	return p.ResponseMinutes[priority]
}

// ResolutionFor returns resolution minutes for a priority, 0 when unset.
func (p *SLAPolicy) ResolutionFor(priority TicketPriority) int {
	if p == nil {
		return 0
	}
	return p.ResolutionMinutes[priority]
}
