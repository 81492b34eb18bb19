package tenant

import (
	"context"

	"github.com/atum-helpdesk/atum/internal/domain"
	apperrors "github.com/atum-helpdesk/atum/pkg/util"
)

type contextKey struct{}

// Context identifies the tenant on whose behalf work runs. It is carried
// explicitly on context.Context and bound to the database session inside
// every transaction; it is never stored globally.
type Context struct {
	OrgID  string
	UserID *string
	Role   domain.Role
}

// System builds the context a system-scoped job runs under for a given
// organization (full privileges, no acting user).
func System(orgID string) Context {
	return Context{OrgID: orgID, Role: domain.RoleAdmin}
}

// WithContext attaches the tenant context to ctx.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext extracts the tenant context, if present.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(contextKey{}).(Context)
	return tc, ok
}

// Require extracts the tenant context or fails with ORG_CONTEXT_MISSING.
func Require(ctx context.Context) (Context, error) {
	tc, ok := FromContext(ctx)
	if !ok || tc.OrgID == "" {
		return Context{}, apperrors.NewOrgContextMissing()
	}
	return tc, nil
}
