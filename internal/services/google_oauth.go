package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/kanbantask/accounts-backend/internal/config"
)

var ErrEmailNotVerified = errors.New("google account email is not verified")

// GoogleProfile is the externally-verified identity returned by Google after
// a successful code exchange.
type GoogleProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleOAuth implements the two-step authorization-code flow:
// AuthURL produces the consent redirect, Exchange turns the callback code
// into a verified profile.
type GoogleOAuth struct {
	oauth       *oauth2.Config
	userInfoURL string
}

func NewGoogleOAuth(cfg *config.Config) *GoogleOAuth {
	return &GoogleOAuth{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
	}
}

// AuthURL returns the Google consent page URL carrying the CSRF state.
func (g *GoogleOAuth) AuthURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

// Exchange trades the authorization code for tokens and fetches the user's
// profile. Profiles whose email Google has not verified are rejected, since
// email is the join key for account linking.
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (*GoogleProfile, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	resp, err := g.oauth.Client(ctx, token).Get(g.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode)
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode google profile: %w", err)
	}

	if !profile.VerifiedEmail {
		return nil, ErrEmailNotVerified
	}
	return &profile, nil
}

// NewOAuthState returns a random hex nonce used to bind the redirect and the
// callback of one OAuth attempt.
func NewOAuthState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
