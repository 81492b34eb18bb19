// Package service implements the application use-cases on top of the
// repositories. Every mutating operation runs in one tenant-bound
// transaction; events and webhooks fire only after commit.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/audit"
	"github.com/atum-helpdesk/atum/internal/config"
	"github.com/atum-helpdesk/atum/internal/domain"
	"github.com/atum-helpdesk/atum/internal/events"
	"github.com/atum-helpdesk/atum/internal/repository"
	"github.com/atum-helpdesk/atum/internal/rules"
	"github.com/atum-helpdesk/atum/internal/sla"
	"github.com/atum-helpdesk/atum/internal/tenant"
	"github.com/atum-helpdesk/atum/internal/webhook"
	apperrors "github.com/atum-helpdesk/atum/pkg/util"
)

// TxRunner opens tenant-bound transactions; satisfied by tenant.Runner.
type TxRunner interface {
	RunTx(ctx context.Context, tc tenant.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

// TicketDependencies bundles everything the ticket service needs.
type TicketDependencies struct {
	Runner     TxRunner
	Tickets    repository.TicketRepository
	Comments   repository.CommentRepository
	Users      repository.UserRepository
	Orgs       repository.OrganizationRepository
	Policies   repository.SLAPolicyRepository
	Rules      repository.RuleRepository
	Jobs       repository.JobRepository
	RAGQueue   repository.RAGQueueRepository
	Audit      *audit.Writer
	Dispatcher events.Dispatcher
	Webhooks   *webhook.Dispatcher
	Cfg        *config.Config
	Logger     *zap.Logger
}

// TicketService drives the ticket lifecycle.
type TicketService struct {
	deps TicketDependencies
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{deps: deps}
}

// TicketCreateInput carries the fields a caller may set on creation.
type TicketCreateInput struct {
	Subject     string
	Description string
	Priority    domain.TicketPriority
	Tags        []string
	ServiceID   *string
	// RequesterID lets staff open tickets on a customer's behalf.
	// Customers always become the requester themselves.
	RequesterID *string
}

// CommentCreateInput carries a new thread entry.
type CommentCreateInput struct {
	TicketID   string
	Content    string
	IsInternal bool
}

// Create opens a ticket in NEW, attaches the organization's default SLA
// policy when one is configured, runs creation rules and enqueues the
// AI analysis jobs.
func (s *TicketService) Create(ctx context.Context, tc tenant.Context, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", nil)
	}
	if description == "" {
		return nil, apperrors.NewValidationError("description is required", nil)
	}

	priority := input.Priority
	switch priority {
	case domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh, domain.TicketPriorityUrgent:
	case "":
		priority = domain.TicketPriorityMedium
	default:
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(input.Priority)})
	}

	requesterID := ""
	if tc.UserID != nil {
		requesterID = *tc.UserID
	}
	if input.RequesterID != nil && *input.RequesterID != requesterID {
		if !tc.Role.IsStaff() {
			return nil, apperrors.NewForbidden("only staff may open tickets on behalf of others")
		}
		requesterID = *input.RequesterID
	}
	if requesterID == "" {
		return nil, apperrors.NewValidationError("requester is required", nil)
	}

	now := time.Now().UTC()
	ticket := &domain.Ticket{
		OrganizationID: tc.OrgID,
		RequesterID:    requesterID,
		Subject:        subject,
		Description:    description,
		Priority:       priority,
		Status:         domain.TicketStatusNew,
		Tags:           input.Tags,
		ServiceID:      input.ServiceID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		tickets := s.deps.Tickets.WithTx(tx)

		if requesterID != "" {
			requester, err := s.deps.Users.WithTx(tx).GetByID(ctx, requesterID)
			if err != nil {
				if pgxNoRows(err) {
					return apperrors.NewNotFound("requester", nil)
				}
				return err
			}
			if requester.OrganizationID != tc.OrgID {
				return apperrors.NewNotFound("requester", nil)
			}
		}

		org, err := s.deps.Orgs.WithTx(tx).GetByID(ctx, tc.OrgID)
		if err != nil {
			return err
		}
		clockStarted := false
		if policyID := org.Settings.StringSetting(domain.SettingDefaultSLAPolicyID, ""); policyID != "" {
			ticket.SLAPolicyID = &policyID
			policy, err := s.loadPolicy(ctx, tx, ticket)
			if err != nil {
				return err
			}
			// The clock runs from creation; acceptance satisfies the
			// first-response target.
			sla.StartClock(ticket, policy, now)
			clockStarted = ticket.SLAStartedAt != nil
		}

		if err := tickets.Create(ctx, ticket); err != nil {
			return err
		}

		s.writeAudit(ctx, tx, tc, domain.AuditActionTicketCreated, ticket.ID, nil, map[string]any{
			"subject":  ticket.Subject,
			"priority": string(ticket.Priority),
			"status":   string(ticket.Status),
		})

		result := s.runRules(ctx, tx, tc, domain.RuleEventTicketCreate, ticket)
		if clockStarted || result.ActionsApplied > 0 {
			if err := tickets.Update(ctx, ticket); err != nil {
				return err
			}
		}

		for _, jobType := range []domain.JobType{
			domain.JobTypeTicketTriage,
			domain.JobTypeSentiment,
			domain.JobTypeKBSuggestions,
		} {
			if err := s.enqueueTicketJob(ctx, tx, ticket, jobType); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}

	s.publish(ctx, tc, events.EventTicketCreated, ticket, events.TicketCreatedPayload{
		Subject:     ticket.Subject,
		Priority:    ticket.Priority,
		RequesterID: ticket.RequesterID,
	})
	return ticket, nil
}

// Accept moves a NEW ticket to ACCEPTED and starts the SLA clock. Only
// managers and above may accept. Concurrent accepts serialize on the row
// lock; the loser observes a non-NEW status and fails.
func (s *TicketService) Accept(ctx context.Context, tc tenant.Context, ticketID string) (*domain.Ticket, error) {
	if !tc.Role.AtLeast(domain.RoleManager) {
		return nil, apperrors.NewInsufficientRole("accept ticket", string(domain.RoleManager))
	}
	if tc.UserID == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	var ticket *domain.Ticket
	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		tickets := s.deps.Tickets.WithTx(tx)

		var err error
		ticket, err = tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			if pgxNoRows(err) {
				return apperrors.NewNotFound("ticket", nil)
			}
			return err
		}
		if ticket.OrganizationID != tc.OrgID {
			return apperrors.NewNotFound("ticket", nil)
		}
		if ticket.Status != domain.TicketStatusNew {
			return apperrors.NewIllegalTransition(string(ticket.Status), string(domain.TicketStatusAccepted))
		}

		now := time.Now().UTC()
		acceptedBy := *tc.UserID
		ticket.Status = domain.TicketStatusAccepted
		ticket.AcceptedBy = &acceptedBy
		ticket.AcceptedAt = &now
		ticket.UpdatedAt = now

		policy, err := s.loadPolicy(ctx, tx, ticket)
		if err != nil {
			return err
		}
		sla.StartClock(ticket, policy, now)

		if err := tickets.Update(ctx, ticket); err != nil {
			return err
		}

		s.writeAudit(ctx, tx, tc, domain.AuditActionTicketAccepted, ticket.ID,
			map[string]any{"status": string(domain.TicketStatusNew)},
			map[string]any{"status": string(ticket.Status), "accepted_by": acceptedBy})

		s.applyRulesAndPersist(ctx, tx, tc, domain.RuleEventTicketStatusChanged, ticket)
		return nil
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}

	s.publish(ctx, tc, events.EventTicketAccepted, ticket, events.TicketStatusChangedPayload{
		OldStatus: domain.TicketStatusNew,
		NewStatus: ticket.Status,
	})
	return ticket, nil
}

// Assign hands the ticket to an agent. The assignee must be staff in the
// same organization. Status moves to ASSIGNED unless work already started.
func (s *TicketService) Assign(ctx context.Context, tc tenant.Context, ticketID, assigneeID string) (*domain.Ticket, error) {
	if !tc.Role.AtLeast(domain.RoleManager) {
		return nil, apperrors.NewInsufficientRole("assign ticket", string(domain.RoleManager))
	}

	var (
		ticket *domain.Ticket
		from   domain.TicketStatus
	)
	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		tickets := s.deps.Tickets.WithTx(tx)

		assignee, err := s.deps.Users.WithTx(tx).GetByID(ctx, assigneeID)
		if err != nil {
			if pgxNoRows(err) {
				return apperrors.NewNotFound("assignee", nil)
			}
			return err
		}
		if assignee.OrganizationID != tc.OrgID || !assignee.Role.IsStaff() {
			return apperrors.NewValidationError("assignee must be staff in the same organization", nil)
		}

		ticket, err = tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			if pgxNoRows(err) {
				return apperrors.NewNotFound("ticket", nil)
			}
			return err
		}
		if ticket.OrganizationID != tc.OrgID {
			return apperrors.NewNotFound("ticket", nil)
		}
		from = ticket.Status

		switch ticket.Status {
		case domain.TicketStatusInProgress:
			// Reassignment mid-work keeps the status.
		case domain.TicketStatusAssigned:
		case domain.TicketStatusAccepted:
			ticket.Status = domain.TicketStatusAssigned
		default:
			return apperrors.NewIllegalTransition(string(ticket.Status), string(domain.TicketStatusAssigned))
		}

		ticket.AssignedTo = &assigneeID
		ticket.UpdatedAt = time.Now().UTC()
		if err := tickets.Update(ctx, ticket); err != nil {
			return err
		}

		s.writeAudit(ctx, tx, tc, domain.AuditActionTicketAssigned, ticket.ID,
			map[string]any{"status": string(from)},
			map[string]any{"status": string(ticket.Status), "assigned_to": assigneeID})

		s.applyRulesAndPersist(ctx, tx, tc, domain.RuleEventTicketUpdate, ticket)
		return nil
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}

	s.publish(ctx, tc, events.EventTicketAssigned, ticket, events.TicketAssignedPayload{
		AssigneeID: assigneeID,
		AssignedBy: derefUser(tc),
	})
	return ticket, nil
}

// ChangeStatus applies one state-machine transition with its side
// effects: SLA pause/resume around WAITING_CUSTOMER, resolution and
// close timestamps, and the RAG index enqueue on resolve.
func (s *TicketService) ChangeStatus(ctx context.Context, tc tenant.Context, ticketID string, next domain.TicketStatus) (*domain.Ticket, error) {
	switch next {
	case domain.TicketStatusAccepted, domain.TicketStatusAssigned:
		if !tc.Role.AtLeast(domain.RoleManager) {
			return nil, apperrors.NewInsufficientRole("set status "+string(next), string(domain.RoleManager))
		}
	case domain.TicketStatusNew:
		return nil, apperrors.NewValidationError("tickets cannot return to NEW", nil)
	}

	var (
		ticket *domain.Ticket
		from   domain.TicketStatus
	)
	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		tickets := s.deps.Tickets.WithTx(tx)

		var err error
		ticket, err = tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			if pgxNoRows(err) {
				return apperrors.NewNotFound("ticket", nil)
			}
			return err
		}
		if ticket.OrganizationID != tc.OrgID {
			return apperrors.NewNotFound("ticket", nil)
		}
		from = ticket.Status

		if !tc.Role.IsStaff() && ticket.RequesterID != derefUser(tc) {
			return apperrors.NewNotFound("ticket", nil)
		}
		if !domain.CanTransition(from, next) {
			return apperrors.NewIllegalTransition(string(from), string(next))
		}

		now := time.Now().UTC()
		if from == domain.TicketStatusWaitingCustomer {
			sla.Resume(ticket, now)
		}

		ticket.Status = next
		ticket.UpdatedAt = now

		switch next {
		case domain.TicketStatusWaitingCustomer:
			sla.Pause(ticket, now)
		case domain.TicketStatusResolved:
			ticket.ResolvedAt = &now
			if s.deps.Cfg.RAG.Enabled && s.deps.Cfg.RAG.IndexOnTicketResolve {
				if err := s.enqueueRAGIndex(ctx, tx, ticket); err != nil {
					return err
				}
			}
		case domain.TicketStatusClosed:
			ticket.ClosedAt = &now
		}

		if err := tickets.Update(ctx, ticket); err != nil {
			return err
		}

		s.writeAudit(ctx, tx, tc, domain.AuditActionTicketStatusChanged, ticket.ID,
			map[string]any{"status": string(from)},
			map[string]any{"status": string(next)})

		s.applyRulesAndPersist(ctx, tx, tc, domain.RuleEventTicketStatusChanged, ticket)
		return nil
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}

	eventType := events.EventTicketStatusChanged
	switch next {
	case domain.TicketStatusResolved:
		eventType = events.EventTicketResolved
	case domain.TicketStatusClosed:
		eventType = events.EventTicketClosed
	}
	s.publish(ctx, tc, eventType, ticket, events.TicketStatusChangedPayload{
		OldStatus: from,
		NewStatus: ticket.Status,
	})
	return ticket, nil
}

// ChangePriority re-derives the remaining SLA targets from the minutes
// already consumed, so a priority bump never grants a fresh budget.
func (s *TicketService) ChangePriority(ctx context.Context, tc tenant.Context, ticketID string, priority domain.TicketPriority) (*domain.Ticket, error) {
	if !tc.Role.IsStaff() {
		return nil, apperrors.NewInsufficientRole("change priority", string(domain.RoleAgent))
	}
	switch priority {
	case domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh, domain.TicketPriorityUrgent:
	default:
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(priority)})
	}

	var (
		ticket *domain.Ticket
		from   domain.TicketPriority
	)
	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		tickets := s.deps.Tickets.WithTx(tx)

		var err error
		ticket, err = tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			if pgxNoRows(err) {
				return apperrors.NewNotFound("ticket", nil)
			}
			return err
		}
		if ticket.OrganizationID != tc.OrgID {
			return apperrors.NewNotFound("ticket", nil)
		}
		from = ticket.Priority
		if from == priority {
			return nil
		}

		now := time.Now().UTC()
		ticket.Priority = priority
		ticket.UpdatedAt = now

		policy, err := s.loadPolicy(ctx, tx, ticket)
		if err != nil {
			return err
		}
		sla.Reprioritize(ticket, policy, now)

		if err := tickets.Update(ctx, ticket); err != nil {
			return err
		}

		s.writeAudit(ctx, tx, tc, domain.AuditActionTicketPriorityChanged, ticket.ID,
			map[string]any{"priority": string(from)},
			map[string]any{"priority": string(priority)})

		if err := s.enqueueTicketJob(ctx, tx, ticket, domain.JobTypeSLAPredict); err != nil {
			return err
		}

		s.applyRulesAndPersist(ctx, tx, tc, domain.RuleEventTicketUpdate, ticket)
		return nil
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}

	if from != ticket.Priority {
		s.publish(ctx, tc, events.EventTicketPriorityChanged, ticket, events.TicketPriorityChangedPayload{
			OldPriority: from,
			NewPriority: ticket.Priority,
		})
	}
	return ticket, nil
}

// AddComment appends to the thread. Comments never drive status; internal
// notes require staff. Customer comments feed the sentiment and
// smart-reply jobs.
func (s *TicketService) AddComment(ctx context.Context, tc tenant.Context, input CommentCreateInput) (*domain.Comment, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.NewValidationError("content is required", nil)
	}
	if input.IsInternal && !tc.Role.IsStaff() {
		return nil, apperrors.NewInsufficientRole("internal comment", string(domain.RoleAgent))
	}
	if tc.UserID == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	comment := &domain.Comment{
		OrganizationID: tc.OrgID,
		TicketID:       input.TicketID,
		AuthorID:       *tc.UserID,
		Content:        content,
		IsInternal:     input.IsInternal,
		CreatedAt:      time.Now().UTC(),
	}

	var ticket *domain.Ticket
	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		ticket, err = s.deps.Tickets.WithTx(tx).GetByID(ctx, input.TicketID)
		if err != nil {
			if pgxNoRows(err) {
				return apperrors.NewNotFound("ticket", nil)
			}
			return err
		}
		if ticket.OrganizationID != tc.OrgID {
			return apperrors.NewNotFound("ticket", nil)
		}
		if !tc.Role.IsStaff() && ticket.RequesterID != *tc.UserID {
			return apperrors.NewNotFound("ticket", nil)
		}
		if ticket.Status == domain.TicketStatusClosed || ticket.Status == domain.TicketStatusCancelled {
			return apperrors.NewConflict("ticket is closed", nil)
		}

		if err := s.deps.Comments.WithTx(tx).Create(ctx, comment); err != nil {
			return err
		}

		s.writeAudit(ctx, tx, tc, domain.AuditActionCommentAdded, ticket.ID, nil, map[string]any{
			"comment_id":  comment.ID,
			"is_internal": comment.IsInternal,
		})

		if !comment.IsInternal && !tc.Role.IsStaff() {
			if err := s.enqueueTicketJob(ctx, tx, ticket, domain.JobTypeSentiment); err != nil {
				return err
			}
			if err := s.enqueueTicketJob(ctx, tx, ticket, domain.JobTypeSmartReply); err != nil {
				return err
			}
		}

		s.applyRulesAndPersist(ctx, tx, tc, domain.RuleEventCommentAdded, ticket)
		return nil
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}

	s.publish(ctx, tc, events.EventTicketCommentAdded, ticket, events.TicketCommentAddedPayload{
		CommentID:   comment.ID,
		AuthorID:    comment.AuthorID,
		IsInternal:  comment.IsInternal,
		BodyPreview: preview(comment.Content, 120),
	})
	return comment, nil
}

// AttachmentInput records an uploaded file against a comment. The upload
// I/O happens before this call; only the metadata contract lives here.
type AttachmentInput struct {
	TicketID   string
	CommentID  string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	SHA256     string
}

// AddAttachment validates and stores an attachment record on a comment.
func (s *TicketService) AddAttachment(ctx context.Context, tc tenant.Context, input AttachmentInput) (*domain.AttachmentReference, error) {
	if tc.UserID == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if input.StorageKey == "" || input.FileName == "" || input.SHA256 == "" {
		return nil, apperrors.NewValidationError("storage_key, file_name and sha256 are required", nil)
	}
	if input.SizeBytes <= 0 || input.SizeBytes > s.deps.Cfg.Upload.MaxUploadBytes {
		return nil, apperrors.NewValidationError("file size out of bounds", map[string]any{
			"max_bytes": s.deps.Cfg.Upload.MaxUploadBytes,
		})
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(input.FileName)), ".")
	allowed := false
	for _, candidate := range s.deps.Cfg.Upload.AllowedExtensions {
		if ext == strings.ToLower(candidate) {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperrors.NewValidationError("file extension not allowed", map[string]any{"extension": ext})
	}

	att := &domain.AttachmentReference{
		OrganizationID: tc.OrgID,
		CommentID:      input.CommentID,
		StorageKey:     input.StorageKey,
		FileName:       input.FileName,
		MimeType:       input.MimeType,
		SizeBytes:      input.SizeBytes,
		SHA256:         input.SHA256,
	}
	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		comments := s.deps.Comments.WithTx(tx)
		comment, err := comments.GetByID(ctx, input.CommentID)
		if err != nil {
			if pgxNoRows(err) {
				return apperrors.NewNotFound("comment", nil)
			}
			return err
		}
		if comment.OrganizationID != tc.OrgID || comment.TicketID != input.TicketID {
			return apperrors.NewNotFound("comment", nil)
		}
		if comment.IsInternal && !tc.Role.IsStaff() {
			return apperrors.NewNotFound("comment", nil)
		}

		ticket, err := s.deps.Tickets.WithTx(tx).GetByID(ctx, input.TicketID)
		if err != nil {
			if pgxNoRows(err) {
				return apperrors.NewNotFound("ticket", nil)
			}
			return err
		}
		if ticket.OrganizationID != tc.OrgID {
			return apperrors.NewNotFound("ticket", nil)
		}
		if !tc.Role.IsStaff() && ticket.RequesterID != *tc.UserID {
			return apperrors.NewNotFound("ticket", nil)
		}
		if ticket.Status == domain.TicketStatusClosed || ticket.Status == domain.TicketStatusCancelled {
			return apperrors.NewConflict("ticket is closed", nil)
		}

		return comments.CreateAttachment(ctx, att)
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return att, nil
}

// Get returns one ticket with its thread. Customers only see their own
// tickets and never internal notes; a foreign ticket reads as not found.
func (s *TicketService) Get(ctx context.Context, tc tenant.Context, ticketID string) (*domain.Ticket, []domain.Comment, error) {
	var (
		ticket   *domain.Ticket
		comments []domain.Comment
	)
	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		ticket, err = s.deps.Tickets.WithTx(tx).GetByID(ctx, ticketID)
		if err != nil {
			if pgxNoRows(err) {
				return apperrors.NewNotFound("ticket", nil)
			}
			return err
		}
		if ticket.OrganizationID != tc.OrgID {
			return apperrors.NewNotFound("ticket", nil)
		}
		if !tc.Role.IsStaff() && ticket.RequesterID != derefUser(tc) {
			return apperrors.NewNotFound("ticket", nil)
		}
		comments, err = s.deps.Comments.WithTx(tx).ListByTicket(ctx, ticketID, tc.Role.IsStaff())
		return err
	})
	if err != nil {
		return nil, nil, apperrors.ToDomainError(err)
	}
	return ticket, comments, nil
}

// List returns tickets matching the filter. Customers are pinned to their
// own tickets regardless of the filter they send.
func (s *TicketService) List(ctx context.Context, tc tenant.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if !tc.Role.IsStaff() {
		userID := derefUser(tc)
		filter.RequesterID = &userID
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	var tickets []domain.Ticket
	err := s.deps.Runner.RunTx(ctx, tc, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		tickets, err = s.deps.Tickets.WithTx(tx).ListWithFilter(ctx, filter)
		return err
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return tickets, nil
}

// applyRulesAndPersist runs event rules against the ticket and persists
// once when anything matched.
func (s *TicketService) applyRulesAndPersist(ctx context.Context, tx pgx.Tx, tc tenant.Context, eventType domain.RuleEventType, ticket *domain.Ticket) {
	result := s.runRules(ctx, tx, tc, eventType, ticket)
	if result.ActionsApplied == 0 {
		return
	}
	ticket.UpdatedAt = time.Now().UTC()
	if err := s.deps.Tickets.WithTx(tx).Update(ctx, ticket); err != nil {
		s.deps.Logger.Error("persisting rule mutations failed",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err),
		)
	}
}

func (s *TicketService) runRules(ctx context.Context, tx pgx.Tx, tc tenant.Context, eventType domain.RuleEventType, ticket *domain.Ticket) rules.Result {
	active, err := s.deps.Rules.WithTx(tx).ListActiveByEvent(ctx, tc.OrgID, eventType)
	if err != nil {
		s.deps.Logger.Error("loading rules failed",
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
		return rules.Result{}
	}
	if len(active) == 0 {
		return rules.Result{}
	}
	engine := rules.NewEngine(s.deps.Audit.WithTx(tx), s.deps.Logger)
	return engine.Apply(ctx, active, ticket, tc.UserID)
}

func (s *TicketService) loadPolicy(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket) (*domain.SLAPolicy, error) {
	if ticket.SLAPolicyID == nil {
		return nil, nil
	}
	policy, err := s.deps.Policies.WithTx(tx).GetByID(ctx, *ticket.SLAPolicyID)
	if err != nil {
		if pgxNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	// A policy id pointing into another organization is treated as unset.
	if policy.OrganizationID != ticket.OrganizationID {
		return nil, nil
	}
	return policy, nil
}

func (s *TicketService) enqueueTicketJob(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket, jobType domain.JobType) error {
	payload, err := json.Marshal(domain.TicketJobPayload{TicketID: ticket.ID})
	if err != nil {
		return err
	}
	orgID := ticket.OrganizationID
	return s.deps.Jobs.WithTx(tx).Enqueue(ctx, &domain.Job{
		OrganizationID: &orgID,
		Type:           jobType,
		Payload:        payload,
		Status:         domain.JobStatusPending,
		Priority:       ticket.Priority,
	})
}

func (s *TicketService) enqueueRAGIndex(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket) error {
	return s.deps.RAGQueue.WithTx(tx).Enqueue(ctx, &domain.RAGIndexItem{
		OrganizationID: ticket.OrganizationID,
		SourceType:     domain.RAGSourceTicket,
		SourceID:       ticket.ID,
		Action:         domain.RAGIndexUpsert,
		Status:         domain.JobStatusPending,
		Priority:       ticket.Priority,
	})
}

func (s *TicketService) writeAudit(ctx context.Context, tx pgx.Tx, tc tenant.Context, action, ticketID string, oldValues, newValues map[string]any) {
	entry := &domain.AuditEntry{
		OrganizationID: tc.OrgID,
		UserID:         tc.UserID,
		Action:         action,
		EntityType:     "ticket",
		EntityID:       ticketID,
		OldValues:      oldValues,
		NewValues:      newValues,
	}
	if err := s.deps.Audit.WithTx(tx).Append(ctx, entry); err != nil {
		s.deps.Logger.Error("writing audit entry failed",
			zap.String("action", action),
			zap.String("ticket_id", ticketID),
			zap.Error(err),
		)
	}
}

// publish runs after commit: event handlers first, then webhook fan-out.
func (s *TicketService) publish(ctx context.Context, tc tenant.Context, eventType events.EventType, ticket *domain.Ticket, payload any) {
	event := events.Event{
		ID:             uuid.NewString(),
		Type:           eventType,
		OrganizationID: tc.OrgID,
		TicketID:       ticket.ID,
		Actor:          events.Actor{UserID: tc.UserID, Role: tc.Role},
		Timestamp:      time.Now().UTC(),
		Payload:        payload,
	}
	if err := s.deps.Dispatcher.Publish(ctx, event); err != nil {
		s.deps.Logger.Warn("publishing event failed",
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
	}
	if s.deps.Webhooks != nil {
		s.deps.Webhooks.Dispatch(ctx, tc.OrgID, string(eventType), event)
	}
}

func preview(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}

func derefUser(tc tenant.Context) string {
	if tc.UserID == nil {
		return ""
	}
	return *tc.UserID
}

func pgxNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
