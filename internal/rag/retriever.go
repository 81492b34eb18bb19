package rag

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/ai"
	"github.com/atum-helpdesk/atum/internal/config"
	"github.com/atum-helpdesk/atum/internal/domain"
	"github.com/atum-helpdesk/atum/internal/observability"
	"github.com/atum-helpdesk/atum/internal/repository"
)

// SearchRequest carries one retrieval call. Role decides the visible
// source types; customers only ever see public KB content.
type SearchRequest struct {
	OrgID      string
	Query      string
	Role       domain.Role
	TopK       int
	GraphDepth int
	// SourceTypes narrows retrieval below the role-derived set when
	// non-empty; types the role cannot see are dropped.
	SourceTypes []domain.RAGSourceType
}

// GraphPanel is the side-panel neighborhood around the top results; it is
// returned alongside the ranked hits, never mixed into them.
type GraphPanel struct {
	Nodes []domain.RAGNode `json:"nodes"`
	Edges []domain.RAGEdge `json:"edges"`
}

// SearchResult is the retrieval response. Degraded is set when the
// embedding client failed and only keyword candidates were consulted.
type SearchResult struct {
	Hits     []repository.SearchHit
	Degraded bool
	Graph    GraphPanel
}

// Retriever runs hybrid vector+keyword retrieval with graph expansion.
type Retriever struct {
	embedder ai.Inference
	cfg      config.RAGConfig
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewRetriever builds the retriever.
func NewRetriever(embedder ai.Inference, cfg config.RAGConfig, logger *zap.Logger, metrics *observability.Metrics) *Retriever {
	return &Retriever{embedder: embedder, cfg: cfg, logger: logger, metrics: metrics}
}

// Search executes retrieval against repositories bound to the caller's
// tenant transaction. An empty index returns empty results, never an
// error.
func (r *Retriever) Search(ctx context.Context, ragRepo repository.RAGRepository, graphRepo repository.RAGGraphRepository, req SearchRequest) (*SearchResult, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = r.cfg.TopK
	}
	sourceTypes, publicOnly := visibleSources(req.Role)
	if len(req.SourceTypes) > 0 {
		sourceTypes = restrictSources(sourceTypes, req.SourceTypes)
		if len(sourceTypes) == 0 {
			return &SearchResult{}, nil
		}
	}

	var (
		vectorHits []repository.SearchHit
		degraded   bool
	)
	embedding, err := r.embedder.Embed(ctx, req.Query)
	if err != nil {
		degraded = true
		r.logger.Warn("embedding failed, keyword-only retrieval",
			zap.String("organization_id", req.OrgID),
			zap.Error(err),
		)
	} else {
		vectorHits, err = ragRepo.VectorSearch(ctx, req.OrgID, embedding, sourceTypes, publicOnly, 2*topK, r.cfg.HNSWEfSearch)
		if err != nil {
			return nil, err
		}
	}

	keywordHits, err := ragRepo.KeywordSearch(ctx, req.OrgID, strings.TrimSpace(req.Query), sourceTypes, publicOnly, 2*topK)
	if err != nil {
		return nil, err
	}

	hits := MergeHits(vectorHits, keywordHits, topK)

	mode := "hybrid"
	if degraded {
		mode = "degraded"
	}
	if r.metrics != nil {
		r.metrics.RAGSearches.WithLabelValues(mode).Inc()
	}

	result := &SearchResult{Hits: hits, Degraded: degraded}
	depth := req.GraphDepth
	if depth <= 0 {
		depth = r.cfg.GraphDepth
	}
	if depth > 0 && len(hits) > 0 {
		result.Graph = r.expandGraph(ctx, graphRepo, req.OrgID, hits, depth)
	}
	return result, nil
}

// expandGraph collects the bounded neighborhood around the top three
// results. Graph failures degrade to an empty panel; retrieval itself
// already succeeded.
func (r *Retriever) expandGraph(ctx context.Context, graphRepo repository.RAGGraphRepository, orgID string, hits []repository.SearchHit, depth int) GraphPanel {
	var panel GraphPanel
	seenNodes := make(map[string]bool)
	seenEdges := make(map[string]bool)

	top := hits
	if len(top) > 3 {
		top = top[:3]
	}
	for _, hit := range top {
		node, err := graphRepo.GetNode(ctx, orgID, hit.SourceType, hit.SourceID)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				r.logger.Warn("graph node lookup failed", zap.Error(err))
			}
			continue
		}
		nodes, edges, err := graphRepo.Neighborhood(ctx, orgID, node.ID, depth)
		if err != nil {
			r.logger.Warn("graph expansion failed", zap.Error(err))
			continue
		}
		for _, n := range nodes {
			if !seenNodes[n.ID] {
				seenNodes[n.ID] = true
				panel.Nodes = append(panel.Nodes, n)
			}
		}
		for _, e := range edges {
			if !seenEdges[e.ID] {
				seenEdges[e.ID] = true
				panel.Edges = append(panel.Edges, e)
			}
		}
	}
	return panel
}

// MergeHits unions candidates by (source_type, source_id), keeping the
// highest score per source, then ranks descending and truncates to topK.
// Vector candidates win ties so their chunk content is preferred over the
// zero-scored keyword match for the same source.
func MergeHits(vectorHits, keywordHits []repository.SearchHit, topK int) []repository.SearchHit {
	type sourceKey struct {
		sourceType domain.RAGSourceType
		sourceID   string
	}
	best := make(map[sourceKey]repository.SearchHit)
	order := make([]sourceKey, 0, len(vectorHits)+len(keywordHits))

	for _, hit := range append(append([]repository.SearchHit{}, vectorHits...), keywordHits...) {
		key := sourceKey{hit.SourceType, hit.SourceID}
		existing, seen := best[key]
		if !seen {
			best[key] = hit
			order = append(order, key)
			continue
		}
		if hit.Score > existing.Score {
			best[key] = hit
		}
	}

	merged := make([]repository.SearchHit, 0, len(order))
	for _, key := range order {
		merged = append(merged, best[key])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}

// restrictSources intersects the requested source types with the
// visible set, preserving the requested order.
func restrictSources(visible, requested []domain.RAGSourceType) []domain.RAGSourceType {
	allowed := make(map[domain.RAGSourceType]bool, len(visible))
	for _, t := range visible {
		allowed[t] = true
	}
	var out []domain.RAGSourceType
	for _, t := range requested {
		if allowed[t] {
			out = append(out, t)
		}
	}
	return out
}

// visibleSources maps the caller's role to retrievable source types.
func visibleSources(role domain.Role) (types []domain.RAGSourceType, publicOnly bool) {
	if role.IsStaff() {
		return []domain.RAGSourceType{
			domain.RAGSourceKB,
			domain.RAGSourceTicket,
			domain.RAGSourceAsset,
			domain.RAGSourceProblem,
			domain.RAGSourceChange,
		}, false
	}
	return []domain.RAGSourceType{domain.RAGSourceKB}, true
}
