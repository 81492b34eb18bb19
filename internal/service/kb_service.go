package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/config"
	"github.com/atum-helpdesk/atum/internal/domain"
	"github.com/atum-helpdesk/atum/internal/events"
	"github.com/atum-helpdesk/atum/internal/repository"
	"github.com/atum-helpdesk/atum/internal/tenant"
	"github.com/atum-helpdesk/atum/internal/webhook"
	apperrors "github.com/atum-helpdesk/atum/pkg/util"
)

// KBDependencies bundles collaborators for knowledge-base articles.
type KBDependencies struct {
	Runner     TxRunner
	KB         repository.KBRepository
	RAGQueue   repository.RAGQueueRepository
	Dispatcher events.Dispatcher
	Webhooks   *webhook.Dispatcher
	Cfg        *config.Config
	Logger     *zap.Logger
}

// KBService manages knowledge-base articles and their index lifecycle.
type KBService struct {
	deps KBDependencies
}

// NewKBService constructs the service.
func NewKBService(deps KBDependencies) *KBService {
	return &KBService{deps: deps}
}

// KBArticleInput carries article fields on create and update.
type KBArticleInput struct {
	Title          string
	Body           string
	Visibility     domain.RAGVisibility
	SourceTicketID *string
}

// Create stores a draft article. Drafts are never indexed or retrievable.
func (s *KBService) Create(ctx context.Context, tc tenant.Context, input KBArticleInput) (*domain.KBArticle, error) {
	if !tc.Role.IsStaff() {
		return nil, apperrors.NewInsufficientRole("create article", string(domain.RoleAgent))
	}
	article, err := articleFromInput(tc.OrgID, input)
	if err != nil {
		return nil, err
	}

	err = s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		return s.deps.KB.WithTx(tx).Create(ctx, article)
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return article, nil
}

// Update edits an article. A published article is re-queued for indexing
// so retrieval never serves stale chunks for long.
func (s *KBService) Update(ctx context.Context, tc tenant.Context, articleID string, input KBArticleInput) (*domain.KBArticle, error) {
	if !tc.Role.IsStaff() {
		return nil, apperrors.NewInsufficientRole("update article", string(domain.RoleAgent))
	}
	updated, err := articleFromInput(tc.OrgID, input)
	if err != nil {
		return nil, err
	}

	var article *domain.KBArticle
	err = s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		kb := s.deps.KB.WithTx(tx)

		var err error
		article, err = kb.GetByID(ctx, articleID)
		if err != nil {
			if pgxNoRows(err) {
				return apperrors.NewNotFound("article", nil)
			}
			return err
		}

		if article.OrganizationID != tc.OrgID {
			return apperrors.NewNotFound("article", nil)
		}

		article.Title = updated.Title
		article.Body = updated.Body
		article.Visibility = updated.Visibility
		article.SourceTicketID = updated.SourceTicketID
		article.UpdatedAt = time.Now().UTC()
		if err := kb.Update(ctx, article); err != nil {
			return err
		}

		if article.IsPublished && s.deps.Cfg.RAG.Enabled {
			return s.enqueueIndex(ctx, tx, article, domain.RAGIndexUpsert)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return article, nil
}

// Publish flips the article live and enqueues indexing; unpublishing
// removes it from the index instead.
func (s *KBService) Publish(ctx context.Context, tc tenant.Context, articleID string, publish bool) (*domain.KBArticle, error) {
	if !tc.Role.IsStaff() {
		return nil, apperrors.NewInsufficientRole("publish article", string(domain.RoleAgent))
	}

	var article *domain.KBArticle
	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		kb := s.deps.KB.WithTx(tx)

		var err error
		article, err = kb.GetByID(ctx, articleID)
		if err != nil {
			if pgxNoRows(err) {
				return apperrors.NewNotFound("article", nil)
			}
			return err
		}
		if article.OrganizationID != tc.OrgID {
			return apperrors.NewNotFound("article", nil)
		}
		if article.IsPublished == publish {
			return nil
		}

		article.IsPublished = publish
		article.UpdatedAt = time.Now().UTC()
		if err := kb.Update(ctx, article); err != nil {
			return err
		}

		if !s.deps.Cfg.RAG.Enabled {
			return nil
		}
		action := domain.RAGIndexUpsert
		if !publish {
			action = domain.RAGIndexDelete
		}
		return s.enqueueIndex(ctx, tx, article, action)
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}

	if publish {
		s.publishEvent(ctx, tc, article)
	}
	return article, nil
}

// ListPublished returns live articles; customers only see public ones.
func (s *KBService) ListPublished(ctx context.Context, tc tenant.Context, limit, offset int) ([]domain.KBArticle, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	publicOnly := !tc.Role.IsStaff()

	var articles []domain.KBArticle
	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		articles, err = s.deps.KB.WithTx(tx).ListPublished(ctx, tc.OrgID, publicOnly, limit, offset)
		return err
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return articles, nil
}

// Get returns one article. Customers only see published public articles.
func (s *KBService) Get(ctx context.Context, tc tenant.Context, articleID string) (*domain.KBArticle, error) {
	var article *domain.KBArticle
	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		article, err = s.deps.KB.WithTx(tx).GetByID(ctx, articleID)
		if err != nil {
			if pgxNoRows(err) {
				return apperrors.NewNotFound("article", nil)
			}
			return err
		}
		if article.OrganizationID != tc.OrgID {
			return apperrors.NewNotFound("article", nil)
		}
		if !tc.Role.IsStaff() && (!article.IsPublished || article.Visibility != domain.RAGVisibilityPublic) {
			return apperrors.NewNotFound("article", nil)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return article, nil
}

func (s *KBService) enqueueIndex(ctx context.Context, tx pgx.Tx, article *domain.KBArticle, action domain.RAGIndexAction) error {
	return s.deps.RAGQueue.WithTx(tx).Enqueue(ctx, &domain.RAGIndexItem{
		OrganizationID: article.OrganizationID,
		SourceType:     domain.RAGSourceKB,
		SourceID:       article.ID,
		Action:         action,
		Status:         domain.JobStatusPending,
		Priority:       domain.TicketPriorityMedium,
	})
}

func (s *KBService) publishEvent(ctx context.Context, tc tenant.Context, article *domain.KBArticle) {
	event := events.Event{
		ID:             uuid.NewString(),
		Type:           events.EventKBArticlePublished,
		OrganizationID: tc.OrgID,
		Actor:          events.Actor{UserID: tc.UserID, Role: tc.Role},
		Timestamp:      time.Now().UTC(),
		Payload: events.KBArticlePublishedPayload{
			ArticleID: article.ID,
			Title:     article.Title,
		},
	}
	if err := s.deps.Dispatcher.Publish(ctx, event); err != nil {
		s.deps.Logger.Warn("publishing kb event failed", zap.Error(err))
	}
	if s.deps.Webhooks != nil {
		s.deps.Webhooks.Dispatch(ctx, tc.OrgID, string(events.EventKBArticlePublished), event)
	}
}

func articleFromInput(orgID string, input KBArticleInput) (*domain.KBArticle, error) {
	title := strings.TrimSpace(input.Title)
	body := strings.TrimSpace(input.Body)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if body == "" {
		return nil, apperrors.NewValidationError("body is required", nil)
	}
	visibility := input.Visibility
	switch visibility {
	case domain.RAGVisibilityPublic, domain.RAGVisibilityInternal:
	case "":
		visibility = domain.RAGVisibilityInternal
	default:
		return nil, apperrors.NewValidationError("unknown visibility", map[string]any{"visibility": string(input.Visibility)})
	}
	return &domain.KBArticle{
		OrganizationID: orgID,
		Title:          title,
		Body:           body,
		Visibility:     visibility,
		SourceTicketID: input.SourceTicketID,
	}, nil
}
