package handlers

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kanbantask/accounts-backend/internal/dto"
	"github.com/kanbantask/accounts-backend/internal/services"
)

// oauthStateCookie binds the consent redirect to its callback.
const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	authService *services.AuthService
	tokens      *services.TokenIssuer
	google      *services.GoogleOAuth
}

func NewAuthHandler(authService *services.AuthService, tokens *services.TokenIssuer, google *services.GoogleOAuth) *AuthHandler {
	return &AuthHandler{authService: authService, tokens: tokens, google: google}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	user, err := h.authService.Register(c.UserContext(), &req)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) || errors.Is(err, services.ErrUsernameTaken) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		if strings.Contains(err.Error(), "required") {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		// The record is saved but no credential went out; the caller retries
		// the whole login.
		slog.Error("token signing failed", "user_id", user.ID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	h.tokens.AttachCookie(c, token)

	return c.Status(fiber.StatusCreated).JSON(dto.NewUserResponse(user))
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	user, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		slog.Error("token signing failed", "user_id", user.ID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	h.tokens.AttachCookie(c, token)

	return c.JSON(dto.NewUserResponse(user))
}

// LoginGoogle is the simplified email-only confirmation path.
func (h *AuthHandler) LoginGoogle(c *fiber.Ctx) error {
	var req dto.GoogleLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	if strings.TrimSpace(req.Email) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Email is required",
		})
	}

	user, created, err := h.authService.LoginGoogleEmail(c.UserContext(), req.Email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		slog.Error("token signing failed", "user_id", user.ID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	h.tokens.AttachCookie(c, token)

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(dto.NewUserResponse(user))
}

// GoogleRedirect starts the OAuth dance: a random state nonce is bound to
// the browser via a short-lived cookie, then the caller is sent to the
// consent page.
func (h *AuthHandler) GoogleRedirect(c *fiber.Ctx) error {
	state, err := services.NewOAuthState()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})

	return c.Redirect(h.google.AuthURL(state), fiber.StatusTemporaryRedirect)
}

// GoogleCallback completes the dance: state check, code exchange, identity
// resolution, token issue. The identity is returned as JSON (the session
// cookie is also set), never embedded in a redirect URL.
func (h *AuthHandler) GoogleCallback(c *fiber.Ctx) error {
	state := c.Query("state")
	if state == "" || state != c.Cookies(oauthStateCookie) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid OAuth state",
		})
	}
	c.Cookie(&fiber.Cookie{
		Name:    oauthStateCookie,
		Value:   "",
		Expires: time.Unix(0, 0),
		Path:    "/",
	})

	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Missing authorization code",
		})
	}

	profile, err := h.google.Exchange(c.UserContext(), code)
	if err != nil {
		if errors.Is(err, services.ErrEmailNotVerified) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		slog.Error("google code exchange failed", "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Google sign-in failed",
		})
	}

	user, err := h.authService.ResolveGoogle(c.UserContext(), profile)
	if err != nil {
		slog.Error("google identity resolution failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		slog.Error("token signing failed", "user_id", user.ID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	h.tokens.AttachCookie(c, token)

	return c.JSON(dto.AuthResponse{Token: token, User: dto.NewUserResponse(user)})
}

// Logout clears the session cookie. Tokens already handed to other channels
// remain valid until they expire.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.tokens.ClearCookie(c)
	return c.JSON(dto.MessageResponse{Message: "Logged out successfully"})
}
