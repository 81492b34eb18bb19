package domain

import "time"

// Webhook is a tenant-registered outbound endpoint. EventTypes may contain
// "*" to subscribe to everything.
type Webhook struct {
	ID                string
	OrganizationID    string
	URL               string
	Secret            string
	EventTypes        []string
	IsActive          bool
	FailureCount      int
	LastFailureReason *string
	LastTriggeredAt   *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Matches reports whether the webhook subscribes to the event type.
func (w *Webhook) Matches(eventType string) bool {
	for _, t := range w.EventTypes {
		if t == "*" || t == eventType {
			return true
		}
	}
	return false
}
