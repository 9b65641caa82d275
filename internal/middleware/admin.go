package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/kanbantask/accounts-backend/internal/authctx"
	"github.com/kanbantask/accounts-backend/internal/config"
	"github.com/kanbantask/accounts-backend/internal/dto"
	"github.com/kanbantask/accounts-backend/internal/models"
)

// AdminRequired gates privileged routes. It must run after JWTProtected.
// A caller passes if:
// 1. their email is on the config bootstrap allowlist, or
// 2. their record carries the is_admin flag.
func AdminRequired(db *gorm.DB, cfg *config.Config) fiber.Handler {
	adminEmails := parseCSV(cfg.AdminEmails)

	return func(c *fiber.Ctx) error {
		userID, err := authctx.UserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		if contains(adminEmails, authctx.Email(c)) {
			return c.Next()
		}

		// The admin flag is read from the record, not the claims, so a
		// demotion takes effect before the token expires.
		var user models.User
		if err := db.WithContext(c.UserContext()).First(&user, "id = ?", userID).Error; err == nil {
			if user.IsAdmin {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Admin access required",
		})
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
