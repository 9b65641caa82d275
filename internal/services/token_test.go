package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanbantask/accounts-backend/internal/models"
)

func testUser() *models.User {
	return &models.User{
		ID:       uuid.New(),
		Username: "alice",
		Email:    "a@x.com",
	}
}

func TestTokenIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer(newTestConfig())
	user := testUser()

	token, err := issuer.Issue(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id, "a freshly issued token must verify to the same user id")
}

func TestTokenVerify_Expired(t *testing.T) {
	issuer := NewTokenIssuer(newTestConfig())

	token, err := issuer.issueWithExpiry(testUser(), -time.Minute)
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerify_WrongSecret(t *testing.T) {
	issuer := NewTokenIssuer(newTestConfig())

	token, err := issuer.Issue(testUser())
	require.NoError(t, err)

	other := newTestConfig()
	other.JWTSecret = "a-different-secret"
	_, err = NewTokenIssuer(other).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerify_Malformed(t *testing.T) {
	issuer := NewTokenIssuer(newTestConfig())

	for _, raw := range []string{"", "garbage", "a.b.c"} {
		_, err := issuer.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, "input %q", raw)
	}
}

func TestNewOAuthState_Unique(t *testing.T) {
	a, err := NewOAuthState()
	require.NoError(t, err)
	b, err := NewOAuthState()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
