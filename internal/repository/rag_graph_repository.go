package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// RAGGraphRepository maintains the typed graph overlay linking tenant
// entities, and serves bounded-depth neighborhood queries.
type RAGGraphRepository interface {
	WithTx(tx pgx.Tx) RAGGraphRepository
	EnsureNode(ctx context.Context, node *domain.RAGNode) error
	UpsertEdge(ctx context.Context, edge *domain.RAGEdge) error
	GetNode(ctx context.Context, orgID string, nodeType domain.RAGSourceType, nodeID string) (*domain.RAGNode, error)
	Neighborhood(ctx context.Context, orgID, nodeID string, depth int) ([]domain.RAGNode, []domain.RAGEdge, error)
	HasPath(ctx context.Context, orgID, fromNodeID, toNodeID string, edgeTypes []domain.RAGEdgeType) (bool, error)
}

type ragGraphRepository struct {
	db Querier
}

// NewRAGGraphRepository instantiates the repository.
func NewRAGGraphRepository(db Querier) RAGGraphRepository {
	return &ragGraphRepository{db: db}
}

func (r *ragGraphRepository) WithTx(tx pgx.Tx) RAGGraphRepository {
	return &ragGraphRepository{db: tx}
}

func (r *ragGraphRepository) EnsureNode(ctx context.Context, node *domain.RAGNode) error {
	const query = `
        INSERT INTO rag_nodes (organization_id, node_type, node_id, label)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (organization_id, node_type, node_id)
        DO UPDATE SET label=EXCLUDED.label
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		node.OrganizationID,
		node.NodeType,
		node.NodeID,
		node.Label,
	).Scan(&node.ID, &node.CreatedAt)
}

func (r *ragGraphRepository) UpsertEdge(ctx context.Context, edge *domain.RAGEdge) error {
	const query = `
        INSERT INTO rag_edges (organization_id, from_node_id, to_node_id, edge_type, weight)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (organization_id, from_node_id, to_node_id, edge_type)
        DO UPDATE SET weight=EXCLUDED.weight
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		edge.OrganizationID,
		edge.FromNodeID,
		edge.ToNodeID,
		edge.EdgeType,
		edge.Weight,
	).Scan(&edge.ID, &edge.CreatedAt)
}

func (r *ragGraphRepository) GetNode(ctx context.Context, orgID string, nodeType domain.RAGSourceType, nodeID string) (*domain.RAGNode, error) {
	var node domain.RAGNode
	err := r.db.QueryRow(ctx,
		`SELECT id, organization_id, node_type, node_id, label, created_at
         FROM rag_nodes WHERE organization_id=$1 AND node_type=$2 AND node_id=$3`,
		orgID, nodeType, nodeID,
	).Scan(&node.ID, &node.OrganizationID, &node.NodeType, &node.NodeID, &node.Label, &node.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// Neighborhood walks edges breadth-first up to depth hops in both
// directions via a recursive CTE, same-org only.
func (r *ragGraphRepository) Neighborhood(ctx context.Context, orgID, nodeID string, depth int) ([]domain.RAGNode, []domain.RAGEdge, error) {
	if depth <= 0 {
		depth = 2
	}
	const query = `
        WITH RECURSIVE walk(node_id, depth) AS (
            SELECT $2::uuid, 0
            UNION
            SELECT CASE WHEN e.from_node_id = w.node_id THEN e.to_node_id ELSE e.from_node_id END, w.depth + 1
            FROM rag_edges e
            JOIN walk w ON w.node_id IN (e.from_node_id, e.to_node_id)
            WHERE e.organization_id = $1 AND w.depth < $3
        )
        SELECT DISTINCT n.id, n.organization_id, n.node_type, n.node_id, n.label, n.created_at
        FROM rag_nodes n
        JOIN walk w ON w.node_id = n.id
        WHERE n.organization_id = $1`
	rows, err := r.db.Query(ctx, query, orgID, nodeID, depth)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var nodes []domain.RAGNode
	ids := make([]string, 0)
	for rows.Next() {
		var node domain.RAGNode
		if err := rows.Scan(&node.ID, &node.OrganizationID, &node.NodeType, &node.NodeID, &node.Label, &node.CreatedAt); err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, node)
		ids = append(ids, node.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(ids) == 0 {
		return nodes, nil, nil
	}

	edgeRows, err := r.db.Query(ctx,
		`SELECT id, organization_id, from_node_id, to_node_id, edge_type, weight, created_at
         FROM rag_edges
         WHERE organization_id=$1 AND from_node_id = ANY($2) AND to_node_id = ANY($2)`,
		orgID, ids)
	if err != nil {
		return nil, nil, err
	}
	defer edgeRows.Close()

	var edges []domain.RAGEdge
	for edgeRows.Next() {
		var edge domain.RAGEdge
		if err := edgeRows.Scan(&edge.ID, &edge.OrganizationID, &edge.FromNodeID, &edge.ToNodeID, &edge.EdgeType, &edge.Weight, &edge.CreatedAt); err != nil {
			return nil, nil, err
		}
		edges = append(edges, edge)
	}
	return nodes, edges, edgeRows.Err()
}

// HasPath reports whether toNodeID is reachable from fromNodeID along the
// given edge types; used to refuse hierarchical relationship cycles.
func (r *ragGraphRepository) HasPath(ctx context.Context, orgID, fromNodeID, toNodeID string, edgeTypes []domain.RAGEdgeType) (bool, error) {
	types := make([]string, len(edgeTypes))
	for i, t := range edgeTypes {
		types[i] = string(t)
	}
	const query = `
        WITH RECURSIVE walk(node_id) AS (
            SELECT $2::uuid
            UNION
            SELECT e.to_node_id
            FROM rag_edges e
            JOIN walk w ON w.node_id = e.from_node_id
            WHERE e.organization_id = $1 AND e.edge_type = ANY($4)
        )
        SELECT EXISTS (SELECT 1 FROM walk WHERE node_id = $3)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, orgID, fromNodeID, toNodeID, types).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
