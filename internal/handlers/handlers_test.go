package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kanbantask/accounts-backend/internal/config"
	"github.com/kanbantask/accounts-backend/internal/handlers"
	"github.com/kanbantask/accounts-backend/internal/models"
	"github.com/kanbantask/accounts-backend/internal/routes"
	"github.com/kanbantask/accounts-backend/internal/services"
)

const testBcryptCost = 4

// newTestApp wires the real route table against an in-memory database.
func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	cfg := &config.Config{
		JWTSecret:          "test-secret",
		TokenExpiry:        24 * time.Hour,
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		GoogleRedirectURL:  "http://localhost/api/users/auth/google/callback",
		Environment:        "test",
	}

	authService := services.NewAuthService(db, testBcryptCost)
	userService := services.NewUserService(db, testBcryptCost)
	tokenIssuer := services.NewTokenIssuer(cfg)
	googleOAuth := services.NewGoogleOAuth(cfg)

	app := fiber.New()
	routes.Setup(app, cfg, db,
		handlers.NewAuthHandler(authService, tokenIssuer, googleOAuth),
		handlers.NewUserHandler(userService),
		handlers.NewHealthHandler(),
	)
	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func decodeInto(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, ck := range resp.Cookies() {
		if ck.Name == services.SessionCookie {
			return ck
		}
	}
	return nil
}

func register(t *testing.T, app *fiber.App, username, email, password string) (map[string]interface{}, *http.Cookie) {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/users/register", fiber.Map{
		"username": username, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	ck := sessionCookie(resp)
	require.NotNil(t, ck, "register must set the session cookie")
	return decode(t, resp), ck
}
