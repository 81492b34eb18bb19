package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/ai"
	"github.com/atum-helpdesk/atum/internal/config"
	"github.com/atum-helpdesk/atum/internal/domain"
	"github.com/atum-helpdesk/atum/internal/repository"
	"github.com/atum-helpdesk/atum/internal/tenant"
)

// errSourceGone marks a source row that vanished between enqueue and
// processing; the document is tombstoned instead of re-indexed.
var errSourceGone = errors.New("source row no longer exists")

// Indexer drains the rag_index_queue: it renders canonical text for a
// source row, chunks and embeds it, and keeps the graph overlay current.
type Indexer struct {
	runner   *tenant.Runner
	queue    repository.RAGQueueRepository
	rag      repository.RAGRepository
	graph    repository.RAGGraphRepository
	tickets  repository.TicketRepository
	comments repository.CommentRepository
	kb       repository.KBRepository
	embedder ai.Inference
	cfg      config.RAGConfig
	logger   *zap.Logger
}

// NewIndexer builds the indexer; all repositories must be pool-bound,
// they are rebound per item.
func NewIndexer(
	runner *tenant.Runner,
	queue repository.RAGQueueRepository,
	ragRepo repository.RAGRepository,
	graph repository.RAGGraphRepository,
	tickets repository.TicketRepository,
	comments repository.CommentRepository,
	kb repository.KBRepository,
	embedder ai.Inference,
	cfg config.RAGConfig,
	logger *zap.Logger,
) *Indexer {
	return &Indexer{
		runner:   runner,
		queue:    queue,
		rag:      ragRepo,
		graph:    graph,
		tickets:  tickets,
		comments: comments,
		kb:       kb,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run polls the index queue until ctx ends, idling with a capped backoff
// when the queue is empty.
func (ix *Indexer) Run(ctx context.Context) {
	idle := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		item, err := ix.queue.Claim(ctx)
		if err != nil {
			ix.logger.Error("index queue claim failed", zap.Error(err))
			item = nil
		}
		if item == nil {
			timer := time.NewTimer(idle)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			idle *= 2
			if idle > 30*time.Second {
				idle = 30 * time.Second
			}
			continue
		}

		idle = time.Second
		if err := ix.ProcessItem(ctx, item); err != nil {
			ix.logger.Warn("index item failed",
				zap.String("item_id", item.ID),
				zap.String("source_type", string(item.SourceType)),
				zap.String("source_id", item.SourceID),
				zap.Error(err),
			)
			if failErr := ix.queue.Fail(ctx, item.ID, err.Error(), ix.cfg.MaxAttempts); failErr != nil {
				ix.logger.Error("recording index failure failed", zap.Error(failErr))
			}
			continue
		}
		if err := ix.queue.Complete(ctx, item.ID); err != nil {
			ix.logger.Error("completing index item failed", zap.Error(err))
		}
	}
}

// ProcessItem runs one index action inside the item's tenant transaction.
func (ix *Indexer) ProcessItem(ctx context.Context, item *domain.RAGIndexItem) error {
	return ix.runner.RunTx(ctx, tenant.System(item.OrganizationID), func(ctx context.Context, tx pgx.Tx) error {
		ragRepo := ix.rag.WithTx(tx)

		if item.Action == domain.RAGIndexDelete {
			return ragRepo.DeleteDocument(ctx, item.OrganizationID, item.SourceType, item.SourceID)
		}

		source, err := ix.loadSource(ctx, tx, item)
		if errors.Is(err, errSourceGone) {
			return ragRepo.DeleteDocument(ctx, item.OrganizationID, item.SourceType, item.SourceID)
		}
		if err != nil {
			return err
		}

		doc := &domain.RAGDocument{
			OrganizationID: item.OrganizationID,
			SourceType:     item.SourceType,
			SourceID:       item.SourceID,
			Title:          source.title,
			Visibility:     source.visibility,
			Metadata:       source.metadata,
		}
		if err := ragRepo.UpsertDocument(ctx, doc); err != nil {
			return err
		}
		if err := ragRepo.DeleteChunks(ctx, doc.ID); err != nil {
			return err
		}

		if err := ix.embedChunks(ctx, ragRepo, doc, source.text); err != nil {
			return err
		}
		return ix.maintainGraph(ctx, tx, item, source)
	})
}

func (ix *Indexer) embedChunks(ctx context.Context, ragRepo repository.RAGRepository, doc *domain.RAGDocument, text string) error {
	chunks := SplitText(text, ix.cfg.ChunkSize, ix.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return nil
	}

	inputs := make([]string, len(chunks))
	for i, chunk := range chunks {
		inputs[i] = chunk.Content
	}
	vectors, err := ix.embedder.EmbedBatch(ctx, inputs)
	if err != nil {
		return err
	}

	ragCfg, err := ragRepo.GetConfig(ctx)
	if err != nil {
		return fmt.Errorf("load rag_config: %w", err)
	}
	for i, chunk := range chunks {
		if len(vectors[i]) != ragCfg.EmbedDim {
			return fmt.Errorf("embedding dimension %d does not match configured %d", len(vectors[i]), ragCfg.EmbedDim)
		}
		row := &domain.RAGChunk{
			DocumentID: doc.ID,
			ChunkIndex: chunk.Index,
			Content:    chunk.Content,
			Embedding:  vectors[i],
			TokenCount: chunk.TokenCount,
		}
		if err := ragRepo.InsertChunk(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// sourceText is the canonical rendering of one indexable source row.
type sourceText struct {
	title      string
	text       string
	visibility domain.RAGVisibility
	metadata   map[string]any

	ticket  *domain.Ticket
	article *domain.KBArticle
}

func (ix *Indexer) loadSource(ctx context.Context, tx pgx.Tx, item *domain.RAGIndexItem) (*sourceText, error) {
	switch item.SourceType {
	case domain.RAGSourceTicket:
		return ix.loadTicket(ctx, tx, item.SourceID)
	case domain.RAGSourceKB:
		return ix.loadArticle(ctx, tx, item.SourceID)
	default:
		return nil, fmt.Errorf("source type %s has no indexable table", item.SourceType)
	}
}

// loadTicket renders subject, description and resolution comments only;
// internal discussion never enters the index.
func (ix *Indexer) loadTicket(ctx context.Context, tx pgx.Tx, ticketID string) (*sourceText, error) {
	ticket, err := ix.tickets.WithTx(tx).GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errSourceGone
		}
		return nil, err
	}

	var b strings.Builder
	b.WriteString(ticket.Subject)
	b.WriteString("\n\n")
	b.WriteString(ticket.Description)

	comments, err := ix.comments.WithTx(tx).ListResolutionComments(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	for _, comment := range comments {
		b.WriteString("\n\n")
		b.WriteString(comment.Content)
	}

	return &sourceText{
		title:      ticket.Subject,
		text:       b.String(),
		visibility: domain.RAGVisibilityInternal,
		metadata: map[string]any{
			"status":   string(ticket.Status),
			"priority": string(ticket.Priority),
		},
		ticket: ticket,
	}, nil
}

func (ix *Indexer) loadArticle(ctx context.Context, tx pgx.Tx, articleID string) (*sourceText, error) {
	article, err := ix.kb.WithTx(tx).GetByID(ctx, articleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errSourceGone
		}
		return nil, err
	}
	if !article.IsPublished {
		return nil, errSourceGone
	}
	return &sourceText{
		title:      article.Title,
		text:       article.Title + "\n\n" + article.Body,
		visibility: article.Visibility,
		metadata:   map[string]any{"published": article.IsPublished},
		article:    article,
	}, nil
}

// maintainGraph keeps the overlay current: ticket nodes get
// mentioned_tag edges for their tags, KB nodes get solves edges back to
// the ticket they grew out of.
func (ix *Indexer) maintainGraph(ctx context.Context, tx pgx.Tx, item *domain.RAGIndexItem, source *sourceText) error {
	graph := ix.graph.WithTx(tx)

	node := &domain.RAGNode{
		OrganizationID: item.OrganizationID,
		NodeType:       item.SourceType,
		NodeID:         item.SourceID,
		Label:          source.title,
	}
	if err := graph.EnsureNode(ctx, node); err != nil {
		return err
	}

	switch {
	case source.ticket != nil:
		for _, tag := range source.ticket.Tags {
			tagNode := &domain.RAGNode{
				OrganizationID: item.OrganizationID,
				NodeType:       domain.RAGSourceAsset,
				NodeID:         "tag:" + strings.ToLower(tag),
				Label:          tag,
			}
			if err := graph.EnsureNode(ctx, tagNode); err != nil {
				return err
			}
			edge := &domain.RAGEdge{
				OrganizationID: item.OrganizationID,
				FromNodeID:     node.ID,
				ToNodeID:       tagNode.ID,
				EdgeType:       domain.RAGEdgeMentionedTag,
				Weight:         1,
			}
			if err := graph.UpsertEdge(ctx, edge); err != nil {
				return err
			}
		}

	case source.article != nil && source.article.SourceTicketID != nil:
		// Reuse the ticket node when it already exists so its label is
		// not clobbered.
		ticketNode, err := graph.GetNode(ctx, item.OrganizationID, domain.RAGSourceTicket, *source.article.SourceTicketID)
		if errors.Is(err, pgx.ErrNoRows) {
			ticketNode = &domain.RAGNode{
				OrganizationID: item.OrganizationID,
				NodeType:       domain.RAGSourceTicket,
				NodeID:         *source.article.SourceTicketID,
				Label:          source.title,
			}
			err = graph.EnsureNode(ctx, ticketNode)
		}
		if err != nil {
			return err
		}
		edge := &domain.RAGEdge{
			OrganizationID: item.OrganizationID,
			FromNodeID:     ticketNode.ID,
			ToNodeID:       node.ID,
			EdgeType:       domain.RAGEdgeSolves,
			Weight:         1,
		}
		if err := graph.UpsertEdge(ctx, edge); err != nil {
			return err
		}
	}
	return nil
}
