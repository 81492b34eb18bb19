package domain

import "time"

// TicketTriage stores one AI triage result for a ticket.
type TicketTriage struct {
	ID             string
	OrganizationID string
	TicketID       string
	Category       string
	Priority       TicketPriority
	SentimentLabel string
	Confidence     float64
	CreatedAt      time.Time
}

// KBSuggestion links a ticket to a relevant knowledge-base article.
type KBSuggestion struct {
	ID             string
	OrganizationID string
	TicketID       string
	ArticleID      string
	Title          string
	RelevanceScore float64
	CreatedAt      time.Time
}

// AISuggestionType enumerates generated artifact kinds.
type AISuggestionType string

const (
	AISuggestionSmartReply AISuggestionType = "smart_reply"
	AISuggestionSentiment  AISuggestionType = "sentiment_analysis"
)

// AISuggestion is a generated artifact attached to a ticket, optionally
// expiring (smart replies go stale quickly).
type AISuggestion struct {
	ID             string
	OrganizationID string
	TicketID       string
	Type           AISuggestionType
	Content        string
	Confidence     float64
	Metadata       map[string]any
	ExpiresAt      *time.Time
	CreatedAt      time.Time
}

// KBArticle is a knowledge-base entry; indexable RAG source.
type KBArticle struct {
	ID             string
	OrganizationID string
	Title          string
	Body           string
	Visibility     RAGVisibility
	SourceTicketID *string
	IsPublished    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MetricsSnapshot is one per-org aggregate row written by the snapshot job.
type MetricsSnapshot struct {
	ID                   string
	OrganizationID       string
	CountsByStatus       map[string]int
	CountsByPriority     map[string]int
	FirstResponseP50Min  float64
	FirstResponseP95Min  float64
	ResolutionP50Min     float64
	ResolutionP95Min     float64
	SLACompliancePercent float64
	CreatedAt            time.Time
}
