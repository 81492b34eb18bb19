package dto

import (
	"github.com/atum-helpdesk/atum/internal/domain"
	"github.com/atum-helpdesk/atum/internal/rag"
)

// SearchRequest payload.
type SearchRequest struct {
	Query      string `json:"query"`
	TopK       int    `json:"top_k"`
	GraphDepth int    `json:"graph_depth"`
}

// SearchHitResponse is one ranked retrieval result.
type SearchHitResponse struct {
	SourceType domain.RAGSourceType `json:"source_type"`
	SourceID   string               `json:"source_id"`
	Title      string               `json:"title"`
	Snippet    string               `json:"snippet"`
	Score      float64              `json:"score"`
}

// SearchResponse carries hits, graph context and the degraded flag.
type SearchResponse struct {
	Hits     []SearchHitResponse `json:"hits"`
	Degraded bool                `json:"degraded"`
	Graph    rag.GraphPanel      `json:"graph"`
}

// FromSearchResult maps a retrieval run to its response shape.
func FromSearchResult(result *rag.SearchResult) SearchResponse {
	resp := SearchResponse{
		Hits:     make([]SearchHitResponse, 0, len(result.Hits)),
		Degraded: result.Degraded,
		Graph:    result.Graph,
	}
	for _, hit := range result.Hits {
		resp.Hits = append(resp.Hits, SearchHitResponse{
			SourceType: hit.SourceType,
			SourceID:   hit.SourceID,
			Title:      hit.Title,
			Snippet:    snippet(hit.Content, 280),
			Score:      hit.Score,
		})
	}
	return resp
}

func snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}
