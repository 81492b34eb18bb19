package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// SearchHit is one retrieval candidate: a chunk plus its document identity
// and a similarity score in [0,1].
type SearchHit struct {
	DocumentID string
	SourceType domain.RAGSourceType
	SourceID   string
	Title      string
	Visibility domain.RAGVisibility
	ChunkIndex int
	Content    string
	Score      float64
}

// RAGRepository persists documents, chunks and the deployment rag_config
// row, and serves vector and keyword candidate queries.
type RAGRepository interface {
	WithTx(tx pgx.Tx) RAGRepository
	UpsertDocument(ctx context.Context, doc *domain.RAGDocument) error
	DeleteDocument(ctx context.Context, orgID string, sourceType domain.RAGSourceType, sourceID string) error
	DeleteChunks(ctx context.Context, documentID string) error
	InsertChunk(ctx context.Context, chunk *domain.RAGChunk) error
	VectorSearch(ctx context.Context, orgID string, embedding []float32, sourceTypes []domain.RAGSourceType, publicOnly bool, limit, efSearch int) ([]SearchHit, error)
	KeywordSearch(ctx context.Context, orgID, term string, sourceTypes []domain.RAGSourceType, publicOnly bool, limit int) ([]SearchHit, error)
	GetConfig(ctx context.Context) (*domain.RAGConfig, error)
}

type ragRepository struct {
	db Querier
}

// NewRAGRepository instantiates the repository.
func NewRAGRepository(db Querier) RAGRepository {
	return &ragRepository{db: db}
}

func (r *ragRepository) WithTx(tx pgx.Tx) RAGRepository {
	return &ragRepository{db: tx}
}

func (r *ragRepository) UpsertDocument(ctx context.Context, doc *domain.RAGDocument) error {
	const query = `
        INSERT INTO rag_documents (organization_id, source_type, source_id, title, visibility, metadata)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (organization_id, source_type, source_id)
        DO UPDATE SET title=EXCLUDED.title, visibility=EXCLUDED.visibility, metadata=EXCLUDED.metadata, updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		doc.OrganizationID,
		doc.SourceType,
		doc.SourceID,
		doc.Title,
		doc.Visibility,
		doc.Metadata,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
}

// DeleteDocument tombstones a document; chunks cascade via FK.
func (r *ragRepository) DeleteDocument(ctx context.Context, orgID string, sourceType domain.RAGSourceType, sourceID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM rag_documents WHERE organization_id=$1 AND source_type=$2 AND source_id=$3`,
		orgID, sourceType, sourceID)
	return err
}

func (r *ragRepository) DeleteChunks(ctx context.Context, documentID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM rag_chunks WHERE document_id=$1`, documentID)
	return err
}

func (r *ragRepository) InsertChunk(ctx context.Context, chunk *domain.RAGChunk) error {
	const query = `
        INSERT INTO rag_chunks (document_id, chunk_index, content, embedding, token_count)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		chunk.DocumentID,
		chunk.ChunkIndex,
		chunk.Content,
		pgvector.NewVector(chunk.Embedding),
		chunk.TokenCount,
	).Scan(&chunk.ID)
}

// VectorSearch ranks chunks by cosine similarity under the HNSW index.
func (r *ragRepository) VectorSearch(ctx context.Context, orgID string, embedding []float32, sourceTypes []domain.RAGSourceType, publicOnly bool, limit, efSearch int) ([]SearchHit, error) {
	if efSearch > 0 {
		if _, err := r.db.Exec(ctx, fmt.Sprintf(`SET LOCAL hnsw.ef_search = %d`, efSearch)); err != nil {
			return nil, err
		}
	}
	query := `
        SELECT d.id, d.source_type, d.source_id, d.title, d.visibility, c.chunk_index, c.content,
               1 - (c.embedding <=> $1) AS score
        FROM rag_chunks c
        JOIN rag_documents d ON d.id = c.document_id
        WHERE d.organization_id = $2 AND d.source_type = ANY($3)`
	if publicOnly {
		query += ` AND d.visibility = 'public'`
	}
	query += ` ORDER BY c.embedding <=> $1 LIMIT $4`

	rows, err := r.db.Query(ctx, query, pgvector.NewVector(embedding), orgID, sourceTypeStrings(sourceTypes), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHits(rows)
}

// KeywordSearch matches case-insensitive substrings, newest sources first.
// Keyword hits carry no similarity; score is 0 and the merge keeps any
// vector score for the same source.
func (r *ragRepository) KeywordSearch(ctx context.Context, orgID, term string, sourceTypes []domain.RAGSourceType, publicOnly bool, limit int) ([]SearchHit, error) {
	query := `
        SELECT d.id, d.source_type, d.source_id, d.title, d.visibility, c.chunk_index, c.content,
               0::float8 AS score
        FROM rag_chunks c
        JOIN rag_documents d ON d.id = c.document_id
        WHERE d.organization_id = $1 AND d.source_type = ANY($2) AND c.content ILIKE $3`
	if publicOnly {
		query += ` AND d.visibility = 'public'`
	}
	query += ` ORDER BY d.updated_at DESC LIMIT $4`

	rows, err := r.db.Query(ctx, query, orgID, sourceTypeStrings(sourceTypes), "%"+escapeLike(term)+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHits(rows)
}

func (r *ragRepository) GetConfig(ctx context.Context) (*domain.RAGConfig, error) {
	var cfg domain.RAGConfig
	err := r.db.QueryRow(ctx,
		`SELECT embed_dim, embedding_model, updated_at FROM rag_config LIMIT 1`,
	).Scan(&cfg.EmbedDim, &cfg.EmbeddingModel, &cfg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// escapeLike escapes the LIKE metacharacters so user terms match
// literally instead of as wildcards.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func sourceTypeStrings(types []domain.RAGSourceType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func scanHits(rows pgx.Rows) ([]SearchHit, error) {
	var result []SearchHit
	for rows.Next() {
		var hit SearchHit
		if err := rows.Scan(
			&hit.DocumentID,
			&hit.SourceType,
			&hit.SourceID,
			&hit.Title,
			&hit.Visibility,
			&hit.ChunkIndex,
			&hit.Content,
			&hit.Score,
		); err != nil {
			return nil, err
		}
		result = append(result, hit)
	}
	return result, rows.Err()
}
