package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kanbantask/accounts-backend/internal/dto"
)

func TestRegister_Success(t *testing.T) {
	svc := NewAuthService(newTestDB(t), testBcryptCost)
	ctx := context.Background()

	user, err := svc.Register(ctx, &dto.RegisterRequest{
		Username: "Alice", Email: "A@x.com", Password: "pw1",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", user.Username, "username should be normalized to lower case")
	assert.Equal(t, "a@x.com", user.Email, "email should be normalized to lower case")
	assert.False(t, user.IsAdmin)
	assert.False(t, user.IsGoogleUser)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("pw1")))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := NewAuthService(newTestDB(t), testBcryptCost)
	ctx := context.Background()

	_, err := svc.Register(ctx, &dto.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "pw1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &dto.RegisterRequest{Username: "bob", Email: "a@x.com", Password: "pw2"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	// Case-insensitive
	_, err = svc.Register(ctx, &dto.RegisterRequest{Username: "carol", Email: "A@X.COM", Password: "pw3"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc := NewAuthService(newTestDB(t), testBcryptCost)
	ctx := context.Background()

	_, err := svc.Register(ctx, &dto.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "pw1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &dto.RegisterRequest{Username: "ALICE", Email: "b@x.com", Password: "pw2"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegister_MissingFields(t *testing.T) {
	svc := NewAuthService(newTestDB(t), testBcryptCost)

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{Username: "alice", Email: "a@x.com"})
	assert.Error(t, err)
}

func TestLogin_Success(t *testing.T) {
	svc := NewAuthService(newTestDB(t), testBcryptCost)
	ctx := context.Background()

	created, err := svc.Register(ctx, &dto.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "pw1"})
	require.NoError(t, err)

	user, err := svc.Login(ctx, &dto.LoginRequest{Email: "a@x.com", Password: "pw1"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	svc := NewAuthService(newTestDB(t), testBcryptCost)
	ctx := context.Background()

	_, err := svc.Register(ctx, &dto.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "pw1"})
	require.NoError(t, err)

	_, wrongPw := svc.Login(ctx, &dto.LoginRequest{Email: "a@x.com", Password: "wrong"})
	_, noUser := svc.Login(ctx, &dto.LoginRequest{Email: "nobody@x.com", Password: "pw1"})

	assert.ErrorIs(t, wrongPw, ErrInvalidCredentials)
	assert.ErrorIs(t, noUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPw, noUser, "unknown email and wrong password must look identical")
}

func TestLogin_OAuthOnlyAccountRejected(t *testing.T) {
	svc := NewAuthService(newTestDB(t), testBcryptCost)
	ctx := context.Background()

	_, err := svc.ResolveGoogle(ctx, &GoogleProfile{ID: "g-1", Email: "a@x.com", Name: "Alice"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "a@x.com", Password: ""})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResolveGoogle_Idempotent(t *testing.T) {
	svc := NewAuthService(newTestDB(t), testBcryptCost)
	ctx := context.Background()

	profile := &GoogleProfile{ID: "g-123", Email: "a@x.com", Name: "Alice Smith", Picture: "https://img/a.png"}

	first, err := svc.ResolveGoogle(ctx, profile)
	require.NoError(t, err)
	second, err := svc.ResolveGoogle(ctx, profile)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "same external id must resolve to the same user")
	assert.Equal(t, "alicesmith", first.Username, "username derives from display name, whitespace stripped")
	assert.True(t, first.IsGoogleUser)
	assert.Empty(t, first.Password)
}

func TestResolveGoogle_LinksExistingLocalAccount(t *testing.T) {
	svc := NewAuthService(newTestDB(t), testBcryptCost)
	ctx := context.Background()

	local, err := svc.Register(ctx, &dto.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "pw1"})
	require.NoError(t, err)

	linked, err := svc.ResolveGoogle(ctx, &GoogleProfile{ID: "g-123", Email: "A@x.com", Name: "Alice", Picture: "https://img/a.png"})
	require.NoError(t, err)

	assert.Equal(t, local.ID, linked.ID, "email match must enrich, not duplicate")
	require.NotNil(t, linked.GoogleID)
	assert.Equal(t, "g-123", *linked.GoogleID)
	assert.True(t, linked.IsGoogleUser)
	assert.NotEmpty(t, linked.Password, "linking must keep the local password hash")

	// Local login still works after linking.
	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "a@x.com", Password: "pw1"})
	assert.NoError(t, err)
}

func TestResolveGoogle_UsernameCollisionDisambiguated(t *testing.T) {
	svc := NewAuthService(newTestDB(t), testBcryptCost)
	ctx := context.Background()

	_, err := svc.Register(ctx, &dto.RegisterRequest{Username: "alice", Email: "alice@local.com", Password: "pw1"})
	require.NoError(t, err)

	u2, err := svc.ResolveGoogle(ctx, &GoogleProfile{ID: "g-1", Email: "one@g.com", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice2", u2.Username)

	u3, err := svc.ResolveGoogle(ctx, &GoogleProfile{ID: "g-2", Email: "two@g.com", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice3", u3.Username)
}

func TestResolveGoogle_UsernameFallsBackToEmailLocalPart(t *testing.T) {
	svc := NewAuthService(newTestDB(t), testBcryptCost)

	user, err := svc.ResolveGoogle(context.Background(), &GoogleProfile{ID: "g-1", Email: "Some.One@g.com"})
	require.NoError(t, err)
	assert.Equal(t, "some.one", user.Username)
}

func TestLoginGoogleEmail(t *testing.T) {
	svc := NewAuthService(newTestDB(t), testBcryptCost)
	ctx := context.Background()

	user, created, err := svc.LoginGoogleEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "a", user.Username)
	assert.True(t, user.IsGoogleUser)

	again, created, err := svc.LoginGoogleEmail(ctx, "A@X.com")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)
}

func TestLoginGoogleEmail_EmptyEmail(t *testing.T) {
	svc := NewAuthService(newTestDB(t), testBcryptCost)

	_, _, err := svc.LoginGoogleEmail(context.Background(), "  ")
	assert.Error(t, err)
}

func TestDeriveUsername(t *testing.T) {
	assert.Equal(t, "alicesmith", deriveUsername("Alice Smith", "a@x.com"))
	assert.Equal(t, "a", deriveUsername("", "a@x.com"))
	assert.Equal(t, "a", deriveUsername("   ", "A@x.com"))
}
