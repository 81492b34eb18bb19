package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/domain"
	"github.com/atum-helpdesk/atum/internal/repository"
	"github.com/atum-helpdesk/atum/internal/tenant"
)

type stubKBRepo struct {
	repository.KBRepository
	article *domain.KBArticle
}

func (s *stubKBRepo) WithTx(pgx.Tx) repository.KBRepository { return s }

func (s *stubKBRepo) GetByID(_ context.Context, id string) (*domain.KBArticle, error) {
	if s.article == nil || s.article.ID != id {
		return nil, pgx.ErrNoRows
	}
	copied := *s.article
	return &copied, nil
}

func foreignKBService() *KBService {
	return NewKBService(KBDependencies{
		Runner: passthroughRunner{},
		KB: &stubKBRepo{article: &domain.KBArticle{
			ID:             "kb-1",
			OrganizationID: "org-a",
			Title:          "Reset a password",
			Body:           "Steps.",
			Visibility:     domain.RAGVisibilityPublic,
			IsPublished:    true,
		}},
		Logger: zap.NewNop(),
	})
}

func agentCtx(orgID string) tenant.Context {
	userID := "agent-1"
	return tenant.Context{OrgID: orgID, UserID: &userID, Role: domain.RoleAgent}
}

func TestKBUpdateForeignOrgArticleReadsAsNotFound(t *testing.T) {
	svc := foreignKBService()

	_, err := svc.Update(context.Background(), agentCtx("org-b"), "kb-1", KBArticleInput{
		Title:      "Edited",
		Body:       "Edited body.",
		Visibility: domain.RAGVisibilityPublic,
	})

	requireNotFound(t, err)
}

func TestKBPublishForeignOrgArticleReadsAsNotFound(t *testing.T) {
	svc := foreignKBService()

	_, err := svc.Publish(context.Background(), agentCtx("org-b"), "kb-1", false)

	requireNotFound(t, err)
}

func TestKBGetForeignOrgArticleReadsAsNotFound(t *testing.T) {
	svc := foreignKBService()

	_, err := svc.Get(context.Background(), agentCtx("org-b"), "kb-1")

	requireNotFound(t, err)
}
