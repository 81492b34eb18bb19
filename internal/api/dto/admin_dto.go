package dto

import (
	"time"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// WebhookRequest payload.
type WebhookRequest struct {
	URL        string   `json:"url"`
	Secret     string   `json:"secret"`
	EventTypes []string `json:"event_types"`
}

// WebhookResponse omits the secret.
type WebhookResponse struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	EventTypes      []string   `json:"event_types"`
	IsActive        bool       `json:"is_active"`
	FailureCount    int        `json:"failure_count"`
	LastTriggeredAt *time.Time `json:"last_triggered_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

// FromWebhook maps a webhook to its response shape.
func FromWebhook(w *domain.Webhook) WebhookResponse {
	return WebhookResponse{
		ID:              w.ID,
		URL:             w.URL,
		EventTypes:      w.EventTypes,
		IsActive:        w.IsActive,
		FailureCount:    w.FailureCount,
		LastTriggeredAt: w.LastTriggeredAt,
		CreatedAt:       w.CreatedAt,
	}
}

// RuleRequest payload.
type RuleRequest struct {
	Name           string               `json:"name"`
	EventType      domain.RuleEventType `json:"event_type"`
	Conditions     map[string]string    `json:"conditions"`
	Actions        []domain.RuleAction  `json:"actions"`
	ExecutionOrder int                  `json:"execution_order"`
	IsActive       bool                 `json:"is_active"`
}

// RuleResponse mirrors the stored rule.
type RuleResponse struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	EventType      domain.RuleEventType `json:"event_type"`
	Conditions     map[string]string    `json:"conditions"`
	Actions        []domain.RuleAction  `json:"actions"`
	ExecutionOrder int                  `json:"execution_order"`
	IsActive       bool                 `json:"is_active"`
}

// FromRule maps a rule to its response shape.
func FromRule(r *domain.Rule) RuleResponse {
	return RuleResponse{
		ID:             r.ID,
		Name:           r.Name,
		EventType:      r.EventType,
		Conditions:     r.Conditions,
		Actions:        r.Actions,
		ExecutionOrder: r.ExecutionOrder,
		IsActive:       r.IsActive,
	}
}

// SLAPolicyRequest payload.
type SLAPolicyRequest struct {
	Name              string                        `json:"name"`
	ResponseMinutes   map[domain.TicketPriority]int `json:"response_minutes"`
	ResolutionMinutes map[domain.TicketPriority]int `json:"resolution_minutes"`
	Schedule          *domain.BusinessSchedule      `json:"schedule"`
	Holidays          []time.Time                   `json:"holidays"`
}

// SettingsRequest is a partial update of org settings; null deletes a key.
type SettingsRequest struct {
	Settings map[string]any `json:"settings"`
}

// AuditVerifyResponse reports a chain verification run.
type AuditVerifyResponse struct {
	Status  string `json:"status"`
	Checked int    `json:"checked"`
}

// MetricsResponse is the latest persisted per-org metrics snapshot.
type MetricsResponse struct {
	CountsByStatus       map[string]int `json:"counts_by_status"`
	CountsByPriority     map[string]int `json:"counts_by_priority"`
	FirstResponseP50Min  float64        `json:"first_response_p50_min"`
	FirstResponseP95Min  float64        `json:"first_response_p95_min"`
	ResolutionP50Min     float64        `json:"resolution_p50_min"`
	ResolutionP95Min     float64        `json:"resolution_p95_min"`
	SLACompliancePercent float64        `json:"sla_compliance_percent"`
	CreatedAt            time.Time      `json:"created_at"`
}

// FromMetricsSnapshot maps a snapshot to its response shape.
func FromMetricsSnapshot(s *domain.MetricsSnapshot) MetricsResponse {
	return MetricsResponse{
		CountsByStatus:       s.CountsByStatus,
		CountsByPriority:     s.CountsByPriority,
		FirstResponseP50Min:  s.FirstResponseP50Min,
		FirstResponseP95Min:  s.FirstResponseP95Min,
		ResolutionP50Min:     s.ResolutionP50Min,
		ResolutionP95Min:     s.ResolutionP95Min,
		SLACompliancePercent: s.SLACompliancePercent,
		CreatedAt:            s.CreatedAt,
	}
}
