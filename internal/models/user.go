package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the canonical identity record. Username and email are stored
// lower-cased by the service layer, so the unique indexes are effectively
// case-insensitive and double as the last line of defense against two
// concurrent registrations racing past the existence check.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"size:100;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password     string    `json:"-"` // bcrypt hash; empty for pure-OAuth accounts
	GoogleID     *string   `gorm:"size:255;uniqueIndex" json:"-"`
	Image        *string   `gorm:"size:512" json:"image,omitempty"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"isAdmin"`
	IsGoogleUser bool      `gorm:"not null;default:false" json:"isGoogleUser"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
