package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/audit"
	"github.com/atum-helpdesk/atum/internal/domain"
	"github.com/atum-helpdesk/atum/internal/repository"
	"github.com/atum-helpdesk/atum/internal/tenant"
	apperrors "github.com/atum-helpdesk/atum/pkg/util"
)

// AdminDependencies bundles collaborators for tenant administration.
type AdminDependencies struct {
	Runner   TxRunner
	Orgs     repository.OrganizationRepository
	Rules    repository.RuleRepository
	Policies repository.SLAPolicyRepository
	Webhooks repository.WebhookRepository
	Metrics  repository.MetricsRepository
	Audit    *audit.Writer
	Logger   *zap.Logger
}

// AdminService covers org settings, automation rules, SLA policies,
// webhook registration and audit verification. Every operation requires
// the admin role; handlers enforce that before calling in.
type AdminService struct {
	deps AdminDependencies
}

// NewAdminService constructs the service.
func NewAdminService(deps AdminDependencies) *AdminService {
	return &AdminService{deps: deps}
}

// UpdateSettings merges the given keys into the organization settings.
func (s *AdminService) UpdateSettings(ctx context.Context, tc tenant.Context, patch map[string]any) (*domain.Organization, error) {
	if len(patch) == 0 {
		return nil, apperrors.NewValidationError("no settings given", nil)
	}

	var org *domain.Organization
	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		orgs := s.deps.Orgs.WithTx(tx)

		var err error
		org, err = orgs.GetByID(ctx, tc.OrgID)
		if err != nil {
			return err
		}
		if org.Settings == nil {
			org.Settings = domain.Settings{}
		}
		for key, value := range patch {
			if value == nil {
				delete(org.Settings, key)
				continue
			}
			org.Settings[key] = value
		}
		return orgs.UpdateSettings(ctx, org.ID, org.Settings)
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return org, nil
}

// RuleInput carries rule fields on create and update.
type RuleInput struct {
	Name           string
	EventType      domain.RuleEventType
	Conditions     map[string]string
	Actions        []domain.RuleAction
	ExecutionOrder int
	IsActive       bool
}

// CreateRule validates and stores an automation rule.
func (s *AdminService) CreateRule(ctx context.Context, tc tenant.Context, input RuleInput) (*domain.Rule, error) {
	rule, err := ruleFromInput(tc.OrgID, input)
	if err != nil {
		return nil, err
	}
	err = s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		return s.deps.Rules.WithTx(tx).Create(ctx, rule)
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return rule, nil
}

// UpdateRule replaces an existing rule's definition.
func (s *AdminService) UpdateRule(ctx context.Context, tc tenant.Context, ruleID string, input RuleInput) (*domain.Rule, error) {
	rule, err := ruleFromInput(tc.OrgID, input)
	if err != nil {
		return nil, err
	}
	rule.ID = ruleID
	err = s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.deps.Rules.WithTx(tx).Update(ctx, rule); err != nil {
			if pgxNoRows(err) {
				return apperrors.NewNotFound("rule", nil)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return rule, nil
}

// ListRules returns every rule of the organization in execution order.
func (s *AdminService) ListRules(ctx context.Context, tc tenant.Context) ([]domain.Rule, error) {
	var rules []domain.Rule
	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		rules, err = s.deps.Rules.WithTx(tx).ListByOrg(ctx, tc.OrgID)
		return err
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return rules, nil
}

// SLAPolicyInput carries policy fields on create.
type SLAPolicyInput struct {
	Name              string
	ResponseMinutes   map[domain.TicketPriority]int
	ResolutionMinutes map[domain.TicketPriority]int
	Schedule          *domain.BusinessSchedule
	Holidays          []time.Time
}

// CreateSLAPolicy validates and stores an SLA policy.
func (s *AdminService) CreateSLAPolicy(ctx context.Context, tc tenant.Context, input SLAPolicyInput) (*domain.SLAPolicy, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	for priority, minutes := range input.ResponseMinutes {
		if minutes < 0 {
			return nil, apperrors.NewValidationError("response minutes must be non-negative", map[string]any{"priority": string(priority)})
		}
	}
	for priority, minutes := range input.ResolutionMinutes {
		if minutes < 0 {
			return nil, apperrors.NewValidationError("resolution minutes must be non-negative", map[string]any{"priority": string(priority)})
		}
	}
	if input.Schedule != nil {
		if _, err := time.LoadLocation(input.Schedule.Timezone); err != nil {
			return nil, apperrors.NewValidationError("unknown timezone", map[string]any{"timezone": input.Schedule.Timezone})
		}
	}

	policy := &domain.SLAPolicy{
		OrganizationID:    tc.OrgID,
		Name:              name,
		ResponseMinutes:   input.ResponseMinutes,
		ResolutionMinutes: input.ResolutionMinutes,
		Schedule:          input.Schedule,
		Holidays:          input.Holidays,
		IsActive:          true,
	}
	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		return s.deps.Policies.WithTx(tx).Create(ctx, policy)
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return policy, nil
}

// ListSLAPolicies returns the organization's active policies.
func (s *AdminService) ListSLAPolicies(ctx context.Context, tc tenant.Context) ([]domain.SLAPolicy, error) {
	var policies []domain.SLAPolicy
	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		policies, err = s.deps.Policies.WithTx(tx).ListActive(ctx, tc.OrgID)
		return err
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return policies, nil
}

// WebhookInput carries a webhook registration.
type WebhookInput struct {
	URL        string
	Secret     string
	EventTypes []string
}

// CreateWebhook registers an outbound endpoint.
func (s *AdminService) CreateWebhook(ctx context.Context, tc tenant.Context, input WebhookInput) (*domain.Webhook, error) {
	parsed, err := url.Parse(input.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, apperrors.NewValidationError("url must be an absolute http(s) URL", nil)
	}
	if len(input.Secret) < 16 {
		return nil, apperrors.NewValidationError("secret must be at least 16 characters", nil)
	}
	if len(input.EventTypes) == 0 {
		return nil, apperrors.NewValidationError("at least one event type is required", nil)
	}

	hook := &domain.Webhook{
		OrganizationID: tc.OrgID,
		URL:            input.URL,
		Secret:         input.Secret,
		EventTypes:     input.EventTypes,
		IsActive:       true,
	}
	err = s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		return s.deps.Webhooks.WithTx(tx).Create(ctx, hook)
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return hook, nil
}

// DeleteWebhook removes an endpoint registration.
func (s *AdminService) DeleteWebhook(ctx context.Context, tc tenant.Context, webhookID string) error {
	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.deps.Webhooks.WithTx(tx).Delete(ctx, tc.OrgID, webhookID); err != nil {
			if pgxNoRows(err) {
				return apperrors.NewNotFound("webhook", nil)
			}
			return err
		}
		return nil
	})
	return apperrors.ToDomainError(err)
}

// ListWebhooks returns the organization's active endpoints.
func (s *AdminService) ListWebhooks(ctx context.Context, tc tenant.Context) ([]domain.Webhook, error) {
	var hooks []domain.Webhook
	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		hooks, err = s.deps.Webhooks.WithTx(tx).ListActive(ctx, tc.OrgID)
		return err
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return hooks, nil
}

// LatestMetrics returns the most recent per-org metrics snapshot written
// by the hourly snapshot job.
func (s *AdminService) LatestMetrics(ctx context.Context, tc tenant.Context) (*domain.MetricsSnapshot, error) {
	var snapshot *domain.MetricsSnapshot
	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		snapshot, err = s.deps.Metrics.WithTx(tx).LatestSnapshot(ctx, tc.OrgID)
		if err != nil {
			if pgxNoRows(err) {
				return apperrors.NewNotFound("metrics snapshot", nil)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return snapshot, nil
}

// VerifyAudit re-computes the organization's hash chain over a time range.
func (s *AdminService) VerifyAudit(ctx context.Context, tc tenant.Context, from, to time.Time, limit int) (*audit.VerifyResult, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	var result audit.VerifyResult
	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		entries, err := s.deps.Audit.WithTx(tx).ListRange(ctx, tc.OrgID, from, to, limit)
		if err != nil {
			return err
		}
		result = audit.VerifyChain(entries)
		return nil
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return &result, nil
}

func ruleFromInput(orgID string, input RuleInput) (*domain.Rule, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	switch input.EventType {
	case domain.RuleEventTicketCreate, domain.RuleEventTicketUpdate, domain.RuleEventTicketStatusChanged,
		domain.RuleEventCommentAdded, domain.RuleEventSLABreachWarning, domain.RuleEventSLABreached:
	default:
		return nil, apperrors.NewValidationError("unknown event type", map[string]any{"event_type": string(input.EventType)})
	}
	if len(input.Actions) == 0 {
		return nil, apperrors.NewValidationError("at least one action is required", nil)
	}
	for _, action := range input.Actions {
		switch action.Type {
		case domain.RuleActionSetPriority, domain.RuleActionAssignTo, domain.RuleActionAddTag,
			domain.RuleActionSetStatus, domain.RuleActionEscalate:
		default:
			return nil, apperrors.NewValidationError("unknown action type", map[string]any{"action_type": string(action.Type)})
		}
	}
	return &domain.Rule{
		OrganizationID: orgID,
		Name:           name,
		EventType:      input.EventType,
		Conditions:     input.Conditions,
		Actions:        input.Actions,
		ExecutionOrder: input.ExecutionOrder,
		IsActive:       input.IsActive,
	}, nil
}
