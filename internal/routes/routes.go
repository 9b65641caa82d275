package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"

	"github.com/kanbantask/accounts-backend/internal/config"
	"github.com/kanbantask/accounts-backend/internal/handlers"
	"github.com/kanbantask/accounts-backend/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	users := api.Group("/users")

	// Credential endpoints get a stricter limit: 10 req/min per IP
	authLimiter := limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
	users.Post("/register", authLimiter, authHandler.Register)
	users.Post("/login", authLimiter, authHandler.Login)
	users.Post("/login-google", authLimiter, authHandler.LoginGoogle)
	users.Post("/logout", authHandler.Logout)

	// Delegated OAuth dance
	users.Get("/auth/google", authHandler.GoogleRedirect)
	users.Get("/auth/google/callback", authHandler.GoogleCallback)

	// Self-service (token required)
	users.Get("/profile", middleware.JWTProtected(cfg), userHandler.GetProfile)
	users.Put("/profile", middleware.JWTProtected(cfg), userHandler.UpdateProfile)

	// Admin surface. The /:id routes are registered last so the static
	// paths above keep winning the match.
	admin := users.Group("", middleware.JWTProtected(cfg), middleware.AdminRequired(db, cfg))
	admin.Get("/search", userHandler.Search)
	admin.Get("/:id", userHandler.GetUserByID)
	admin.Put("/:id", userHandler.UpdateUserByID)
	admin.Delete("/:id", userHandler.DeleteUserByID)
}
