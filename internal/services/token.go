package services

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kanbantask/accounts-backend/internal/config"
	"github.com/kanbantask/accounts-backend/internal/models"
)

// SessionCookie is the cookie that carries the session token.
const SessionCookie = "jwt"

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenIssuer mints and verifies stateless HS256 session tokens. Tokens are
// never stored server-side; invalidation is solely by expiry.
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
	secure bool
}

func NewTokenIssuer(cfg *config.Config) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(cfg.JWTSecret),
		expiry: cfg.TokenExpiry,
		secure: cfg.Production(),
	}
}

// Issue signs a token embedding the user's identity, expiring TokenExpiry
// (24h by default) from now.
func (t *TokenIssuer) Issue(user *models.User) (string, error) {
	return t.issueWithExpiry(user, t.expiry)
}

func (t *TokenIssuer) issueWithExpiry(user *models.User, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      user.ID.String(),
		"email":    user.Email,
		"is_admin": user.IsAdmin,
		"iat":      now.Unix(),
		"exp":      now.Add(expiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify checks signature and expiry and returns the embedded user id.
// Any failure collapses to ErrInvalidToken.
func (t *TokenIssuer) Verify(raw string) (uuid.UUID, error) {
	token, err := jwt.Parse(raw, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}

	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

// AttachCookie sets the HTTP-only session cookie on the response. The raw
// token is still returned to callers that relay it in a JSON body instead.
func (t *TokenIssuer) AttachCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Expires:  time.Now().Add(t.expiry),
		HTTPOnly: true,
		Secure:   t.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}

// ClearCookie overwrites the session cookie with an already-expired one.
// Tokens already distributed to other channels stay valid until expiry.
func (t *TokenIssuer) ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   t.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}
