package domain

import "time"

// RAGSourceType enumerates indexable source tables.
type RAGSourceType string

const (
	RAGSourceKB      RAGSourceType = "kb"
	RAGSourceTicket  RAGSourceType = "ticket"
	RAGSourceAsset   RAGSourceType = "asset"
	RAGSourceProblem RAGSourceType = "problem"
	RAGSourceChange  RAGSourceType = "change"
)

// RAGVisibility gates who may retrieve a document.
type RAGVisibility string

const (
	RAGVisibilityPublic   RAGVisibility = "public"
	RAGVisibilityInternal RAGVisibility = "internal"
)

// RAGDocument is the indexed representation of one source row, unique per
// (org, source_type, source_id).
type RAGDocument struct {
	ID             string
	OrganizationID string
	SourceType     RAGSourceType
	SourceID       string
	Title          string
	Visibility     RAGVisibility
	Metadata       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RAGChunk is one embedded text window of a document.
type RAGChunk struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Content    string
	Embedding  []float32
	TokenCount int
}

// RAGIndexAction enumerates index-queue actions.
type RAGIndexAction string

const (
	RAGIndexUpsert RAGIndexAction = "upsert"
	RAGIndexDelete RAGIndexAction = "delete"
)

// RAGIndexItem is one row of the indexing work queue.
type RAGIndexItem struct {
	ID             string
	OrganizationID string
	SourceType     RAGSourceType
	SourceID       string
	Action         RAGIndexAction
	Status         JobStatus
	Attempts       int
	LastError      *string
	Priority       TicketPriority
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RAGEdgeType enumerates typed relationships in the graph overlay.
type RAGEdgeType string

const (
	RAGEdgeRelatesTo     RAGEdgeType = "relates_to"
	RAGEdgeDuplicateOf   RAGEdgeType = "duplicate_of"
	RAGEdgeUsesAsset     RAGEdgeType = "uses_asset"
	RAGEdgeBelongsService RAGEdgeType = "belongs_service"
	RAGEdgeSolves        RAGEdgeType = "solves"
	RAGEdgeMentionedTag  RAGEdgeType = "mentioned_tag"
	RAGEdgeLinkedProblem RAGEdgeType = "linked_problem"
	RAGEdgeLinkedChange  RAGEdgeType = "linked_change"
)

// RAGNode is a graph vertex keyed by (org, node_type, node_id).
type RAGNode struct {
	ID             string
	OrganizationID string
	NodeType       RAGSourceType
	NodeID         string
	Label          string
	CreatedAt      time.Time
}

// RAGEdge is a directed, weighted, typed graph edge.
type RAGEdge struct {
	ID             string
	OrganizationID string
	FromNodeID     string
	ToNodeID       string
	EdgeType       RAGEdgeType
	Weight         float64
	CreatedAt      time.Time
}

// RAGConfig pins deployment-wide retrieval parameters, notably the
// embedding dimension vector writes are validated against.
type RAGConfig struct {
	EmbedDim       int
	EmbeddingModel string
	UpdatedAt      time.Time
}
