package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atum-helpdesk/atum/internal/domain"
	apperrors "github.com/atum-helpdesk/atum/pkg/util"
)

func TestContextRoundTrip(t *testing.T) {
	userID := "user-1"
	tc := Context{OrgID: "org-1", UserID: &userID, Role: domain.RoleManager}

	ctx := WithContext(context.Background(), tc)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, tc, got)
}

func TestRequireMissingContext(t *testing.T) {
	_, err := Require(context.Background())

	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "ORG_CONTEXT_MISSING", domainErr.Code)
}

func TestRequireEmptyOrg(t *testing.T) {
	ctx := WithContext(context.Background(), Context{})

	_, err := Require(ctx)
	assert.Error(t, err)
}

func TestSystemContext(t *testing.T) {
	tc := System("org-9")

	assert.Equal(t, "org-9", tc.OrgID)
	assert.Nil(t, tc.UserID)
	assert.Equal(t, domain.RoleAdmin, tc.Role)
}
