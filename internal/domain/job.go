package domain

import (
	"encoding/json"
	"time"
)

// JobType enumerates background work kinds handled by the worker pool.
type JobType string

const (
	JobTypeTicketTriage    JobType = "ticket_triage"
	JobTypeKBSuggestions   JobType = "kb_suggestions"
	JobTypeSmartReply      JobType = "smart_reply"
	JobTypeSLAPredict      JobType = "sla_predict"
	JobTypeSentiment       JobType = "sentiment_analysis"
	JobTypeMetricsSnapshot JobType = "metrics_snapshot"
	JobTypeCleanupLogs     JobType = "cleanup_logs"
	JobTypeRAGIndex        JobType = "rag_index"
)

// JobStatus enumerates queue row states.
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusDone    JobStatus = "DONE"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is one row in the durable queue. OrganizationID is nil for system
// jobs; only the claiming worker may mutate a RUNNING row.
type Job struct {
	ID             string
	OrganizationID *string
	Type           JobType
	Payload        json.RawMessage
	Status         JobStatus
	Priority       TicketPriority
	RunAfter       *time.Time
	LockedBy       *string
	LockedAt       *time.Time
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// JobEvent is an append-only trace entry for one job.
type JobEvent struct {
	ID        string
	JobID     string
	Event     string
	Detail    *string
	CreatedAt time.Time
}

// TicketJobPayload is the common payload for ticket-scoped jobs.
type TicketJobPayload struct {
	TicketID string `json:"ticket_id"`
}
