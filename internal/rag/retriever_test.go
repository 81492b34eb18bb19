package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/config"
	"github.com/atum-helpdesk/atum/internal/domain"
	"github.com/atum-helpdesk/atum/internal/repository"
)

func hit(sourceType domain.RAGSourceType, sourceID string, score float64) repository.SearchHit {
	return repository.SearchHit{
		SourceType: sourceType,
		SourceID:   sourceID,
		Title:      sourceID,
		Score:      score,
	}
}

func TestMergeHitsUnionsBySource(t *testing.T) {
	vector := []repository.SearchHit{
		hit(domain.RAGSourceKB, "kb-1", 0.91),
		hit(domain.RAGSourceTicket, "t-1", 0.72),
	}
	keyword := []repository.SearchHit{
		hit(domain.RAGSourceKB, "kb-1", 0), // same source, lower score
		hit(domain.RAGSourceKB, "kb-2", 0),
	}

	merged := MergeHits(vector, keyword, 5)

	require.Len(t, merged, 3)
	assert.Equal(t, "kb-1", merged[0].SourceID)
	assert.Equal(t, 0.91, merged[0].Score, "vector score survives the union")
	assert.Equal(t, "t-1", merged[1].SourceID)
	assert.Equal(t, "kb-2", merged[2].SourceID)
}

func TestMergeHitsTruncatesToTopK(t *testing.T) {
	vector := []repository.SearchHit{
		hit(domain.RAGSourceKB, "a", 0.9),
		hit(domain.RAGSourceKB, "b", 0.8),
		hit(domain.RAGSourceKB, "c", 0.7),
	}

	merged := MergeHits(vector, nil, 2)

	require.Len(t, merged, 2)
	assert.Equal(t, "a", merged[0].SourceID)
	assert.Equal(t, "b", merged[1].SourceID)
}

func TestMergeHitsKeywordOnlyKeepsRecencyOrder(t *testing.T) {
	// Degraded mode: all scores are zero, so the repository's
	// recency ordering must survive the stable sort.
	keyword := []repository.SearchHit{
		hit(domain.RAGSourceKB, "newest", 0),
		hit(domain.RAGSourceKB, "older", 0),
		hit(domain.RAGSourceTicket, "oldest", 0),
	}

	merged := MergeHits(nil, keyword, 3)

	require.Len(t, merged, 3)
	assert.Equal(t, "newest", merged[0].SourceID)
	assert.Equal(t, "older", merged[1].SourceID)
	assert.Equal(t, "oldest", merged[2].SourceID)
}

func TestMergeHitsEmptyInputs(t *testing.T) {
	assert.Empty(t, MergeHits(nil, nil, 5))
}

type fixedEmbedder struct{}

func (fixedEmbedder) Generate(context.Context, string) (string, error) { return "", nil }
func (fixedEmbedder) GenerateJSON(context.Context, string, any) error  { return nil }
func (fixedEmbedder) Embed(context.Context, string) ([]float32, error) { return []float32{0.5}, nil }
func (fixedEmbedder) EmbedBatch(_ context.Context, in []string) ([][]float32, error) {
	out := make([][]float32, len(in))
	for i := range in {
		out[i] = []float32{0.5}
	}
	return out, nil
}

// candidateRAGRepo serves a fixed candidate list, honoring the
// source-type restriction the way the SQL predicates would.
type candidateRAGRepo struct {
	repository.RAGRepository
	candidates []repository.SearchHit
}

func (r *candidateRAGRepo) filter(types []domain.RAGSourceType) []repository.SearchHit {
	allowed := make(map[domain.RAGSourceType]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	var out []repository.SearchHit
	for _, c := range r.candidates {
		if allowed[c.SourceType] {
			out = append(out, c)
		}
	}
	return out
}

func (r *candidateRAGRepo) VectorSearch(_ context.Context, _ string, _ []float32, sourceTypes []domain.RAGSourceType, _ bool, _, _ int) ([]repository.SearchHit, error) {
	return r.filter(sourceTypes), nil
}

func (r *candidateRAGRepo) KeywordSearch(_ context.Context, _, _ string, _ []domain.RAGSourceType, _ bool, _ int) ([]repository.SearchHit, error) {
	return nil, nil
}

func TestSearchSourceTypeRestriction(t *testing.T) {
	repo := &candidateRAGRepo{candidates: []repository.SearchHit{
		hit(domain.RAGSourceTicket, "t-1", 0.95),
		hit(domain.RAGSourceKB, "kb-1", 0.60),
	}}
	retriever := NewRetriever(fixedEmbedder{}, config.RAGConfig{TopK: 1}, zap.NewNop(), nil)

	// Unrestricted agent search: the ticket hit wins the single slot.
	result, err := retriever.Search(context.Background(), repo, nil, SearchRequest{
		OrgID: "org-1",
		Query: "printer jam",
		Role:  domain.RoleAgent,
		TopK:  1,
	})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "t-1", result.Hits[0].SourceID)

	// Restricted to kb, the lower-scored article is not crowded out.
	result, err = retriever.Search(context.Background(), repo, nil, SearchRequest{
		OrgID:       "org-1",
		Query:       "printer jam",
		Role:        domain.RoleAgent,
		TopK:        1,
		SourceTypes: []domain.RAGSourceType{domain.RAGSourceKB},
	})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "kb-1", result.Hits[0].SourceID)
}

func TestSearchRestrictionCannotWidenVisibility(t *testing.T) {
	repo := &candidateRAGRepo{candidates: []repository.SearchHit{
		hit(domain.RAGSourceTicket, "t-1", 0.95),
	}}
	retriever := NewRetriever(fixedEmbedder{}, config.RAGConfig{TopK: 5}, zap.NewNop(), nil)

	// A customer requesting ticket sources ends up with nothing
	// retrievable at all.
	result, err := retriever.Search(context.Background(), repo, nil, SearchRequest{
		OrgID:       "org-1",
		Query:       "printer jam",
		Role:        domain.RoleCustomer,
		SourceTypes: []domain.RAGSourceType{domain.RAGSourceTicket},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
	assert.False(t, result.Degraded)
}

func TestRestrictSources(t *testing.T) {
	visible := []domain.RAGSourceType{domain.RAGSourceKB, domain.RAGSourceTicket}

	assert.Equal(t,
		[]domain.RAGSourceType{domain.RAGSourceKB},
		restrictSources(visible, []domain.RAGSourceType{domain.RAGSourceKB}))
	assert.Equal(t,
		[]domain.RAGSourceType{domain.RAGSourceTicket, domain.RAGSourceKB},
		restrictSources(visible, []domain.RAGSourceType{domain.RAGSourceTicket, domain.RAGSourceAsset, domain.RAGSourceKB}))
	assert.Empty(t, restrictSources([]domain.RAGSourceType{domain.RAGSourceKB}, []domain.RAGSourceType{domain.RAGSourceAsset}))
}

func TestVisibleSourcesByRole(t *testing.T) {
	types, publicOnly := visibleSources(domain.RoleCustomer)
	assert.Equal(t, []domain.RAGSourceType{domain.RAGSourceKB}, types)
	assert.True(t, publicOnly)

	types, publicOnly = visibleSources(domain.RoleAgent)
	assert.Len(t, types, 5)
	assert.False(t, publicOnly)
}
