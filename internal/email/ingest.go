// Package email turns inbound mail into tickets. The wire plumbing
// (IMAP polling, MIME parsing) stays outside; this is the seam it calls.
package email

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/atum-helpdesk/atum/internal/auth"
	"github.com/atum-helpdesk/atum/internal/domain"
	"github.com/atum-helpdesk/atum/internal/repository"
	"github.com/atum-helpdesk/atum/internal/service"
	"github.com/atum-helpdesk/atum/internal/tenant"
	apperrors "github.com/atum-helpdesk/atum/pkg/util"
)

// InboundMessage is one parsed email handed to the ingestor.
type InboundMessage struct {
	OrgSlug     string
	FromAddress string
	FromName    string
	Subject     string
	Body        string
}

// Ingestor resolves senders to users and opens tickets on their behalf.
type Ingestor struct {
	runner  *tenant.Runner
	orgs    repository.OrganizationRepository
	users   repository.UserRepository
	tickets *service.TicketService
	logger  *zap.Logger
}

// NewIngestor constructs the ingestor.
func NewIngestor(runner *tenant.Runner, orgs repository.OrganizationRepository, users repository.UserRepository, tickets *service.TicketService, logger *zap.Logger) *Ingestor {
	return &Ingestor{runner: runner, orgs: orgs, users: users, tickets: tickets, logger: logger}
}

// Ingest opens a ticket for the sender, provisioning a customer account
// when the address is unknown. Provisioned accounts carry the disabled
// password sentinel and can never log in until a password is set.
func (i *Ingestor) Ingest(ctx context.Context, msg InboundMessage) (*domain.Ticket, error) {
	address := strings.ToLower(strings.TrimSpace(msg.FromAddress))
	if address == "" || !strings.Contains(address, "@") {
		return nil, apperrors.NewValidationError("sender address is required", nil)
	}
	subject := strings.TrimSpace(msg.Subject)
	if subject == "" {
		subject = "(no subject)"
	}
	body := strings.TrimSpace(msg.Body)
	if body == "" {
		body = "(empty message)"
	}

	org, err := i.orgs.GetBySlug(ctx, msg.OrgSlug)
	if err != nil {
		if pgxNoRows(err) {
			return nil, apperrors.NewNotFound("organization", nil)
		}
		return nil, apperrors.ToDomainError(err)
	}
	if !org.IsActive {
		return nil, apperrors.NewNotFound("organization", nil)
	}

	user, err := i.resolveSender(ctx, org.ID, address, msg.FromName)
	if err != nil {
		return nil, err
	}

	userID := user.ID
	tc := tenant.Context{OrgID: org.ID, UserID: &userID, Role: user.Role}
	ticket, err := i.tickets.Create(ctx, tc, service.TicketCreateInput{
		Subject:     subject,
		Description: body,
	})
	if err != nil {
		return nil, err
	}
	i.logger.Info("ticket created from email",
		zap.String("organization_id", org.ID),
		zap.String("ticket_id", ticket.ID),
		zap.String("sender", address),
	)
	return ticket, nil
}

// resolveSender finds the sender's account or provisions one. Two
// concurrent ingests of the same new sender race on the unique email
// index; the loser re-reads the winner's row.
func (i *Ingestor) resolveSender(ctx context.Context, orgID, address, name string) (*domain.User, error) {
	var user *domain.User
	err := i.runner.RunTx(ctx, tenant.System(orgID), func(ctx context.Context, tx pgx.Tx) error {
		users := i.users.WithTx(tx)

		var err error
		user, err = users.GetByEmail(ctx, orgID, address)
		if err == nil {
			return nil
		}
		if !pgxNoRows(err) {
			return err
		}

		if name == "" {
			name = address[:strings.Index(address, "@")]
		}
		user = &domain.User{
			OrganizationID: orgID,
			Email:          address,
			Name:           name,
			PasswordHash:   auth.DisabledPasswordHash(),
			Role:           domain.RoleCustomer,
			IsActive:       true,
			EmailVerified:  true,
		}
		return users.Create(ctx, user)
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	if !user.IsActive {
		return nil, apperrors.NewForbidden("sender account is deactivated")
	}
	return user, nil
}

func pgxNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
