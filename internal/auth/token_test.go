package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atum-helpdesk/atum/internal/domain"
)

func testUser() *domain.User {
	return &domain.User{
		ID:             "user-1",
		OrganizationID: "org-1",
		Email:          "agent@example.com",
		Role:           domain.RoleAgent,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60, 7)

	token, expiresAt, err := tm.GenerateToken(testUser(), TokenKindAccess)
	require.NoError(t, err)
	assert.False(t, expiresAt.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "org-1", claims.OrganizationID)
	assert.Equal(t, domain.RoleAgent, claims.Role)
	assert.Equal(t, TokenKindAccess, claims.Kind)
}

func TestTokenKindPreserved(t *testing.T) {
	tm := NewTokenManager("test-secret", 60, 7)

	token, _, err := tm.GenerateToken(testUser(), TokenKindRefresh)
	require.NoError(t, err)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, TokenKindRefresh, claims.Kind)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", 60, 7)
	verifier := NewTokenManager("secret-b", 60, 7)

	token, _, err := issuer.GenerateToken(testUser(), TokenKindAccess)
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.Error(t, err)
}

func TestTokenRequiresOrganizationClaim(t *testing.T) {
	tm := NewTokenManager("test-secret", 60, 7)
	user := testUser()
	user.OrganizationID = ""

	token, _, err := tm.GenerateToken(user, TokenKindAccess)
	require.NoError(t, err)

	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", 60, 7)

	_, err := tm.ParseToken("not.a.token")
	assert.Error(t, err)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2!", 4)
	require.NoError(t, err)

	assert.NoError(t, ComparePassword(hash, "hunter2!"))
	assert.Error(t, ComparePassword(hash, "hunter3!"))
}

func TestDisabledPasswordNeverMatches(t *testing.T) {
	sentinel := DisabledPasswordHash()

	assert.True(t, PasswordDisabled(sentinel))
	assert.Error(t, ComparePassword(sentinel, ""))
	assert.Error(t, ComparePassword(sentinel, sentinel))
}
