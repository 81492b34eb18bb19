package service

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/rag"
	"github.com/atum-helpdesk/atum/internal/repository"
	"github.com/atum-helpdesk/atum/internal/tenant"
	apperrors "github.com/atum-helpdesk/atum/pkg/util"
)

// SearchDependencies bundles collaborators for retrieval.
type SearchDependencies struct {
	Runner    TxRunner
	RAG       repository.RAGRepository
	Graph     repository.RAGGraphRepository
	Retriever *rag.Retriever
	Logger    *zap.Logger
}

// SearchService exposes tenant-scoped knowledge retrieval.
type SearchService struct {
	deps SearchDependencies
}

// NewSearchService constructs the service.
func NewSearchService(deps SearchDependencies) *SearchService {
	return &SearchService{deps: deps}
}

// Search runs hybrid retrieval under the caller's tenant transaction.
// Visibility follows the caller's role: customers only see published
// public knowledge-base articles.
func (s *SearchService) Search(ctx context.Context, tc tenant.Context, query string, topK, graphDepth int) (*rag.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("query is required", nil)
	}
	if len([]rune(query)) > 2000 {
		return nil, apperrors.NewValidationError("query too long", map[string]any{"max_runes": 2000})
	}

	var result *rag.SearchResult
	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		result, err = s.deps.Retriever.Search(ctx,
			s.deps.RAG.WithTx(tx),
			s.deps.Graph.WithTx(tx),
			rag.SearchRequest{
				OrgID:      tc.OrgID,
				Query:      query,
				Role:       tc.Role,
				TopK:       topK,
				GraphDepth: graphDepth,
			})
		return err
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return result, nil
}
