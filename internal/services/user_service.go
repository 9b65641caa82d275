package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kanbantask/accounts-backend/internal/dto"
	"github.com/kanbantask/accounts-backend/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrCannotDeleteAdmin = errors.New("you can't delete an admin")
)

// UserService carries the account operations: self-service profile
// read/update and the admin-only search/get/update/delete surface.
type UserService struct {
	db         *gorm.DB
	bcryptCost int
}

func NewUserService(db *gorm.DB, bcryptCost int) *UserService {
	return &UserService{db: db, bcryptCost: bcryptCost}
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// UpdateProfile applies a partial self-service update. Username and email
// changes are re-validated for uniqueness against other records; a new
// password is re-hashed.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, req *dto.UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.applyIdentityPatch(ctx, user, req.Username, req.Email); err != nil {
		return nil, err
	}

	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = string(hash)
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Search returns users whose email contains the given substring,
// case-insensitively. Emails are stored lower-cased, so lowering the needle
// suffices. LIKE wildcards in the needle are escaped so it matches
// literally.
func (s *UserService) Search(ctx context.Context, emailSubstring string) ([]models.User, error) {
	var users []models.User
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(emailSubstring))) + "%"
	if err := s.db.WithContext(ctx).Where("email LIKE ? ESCAPE '\\'", pattern).Order("email").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// AdminUpdate applies an admin patch to an arbitrary record; it is the only
// path allowed to toggle the admin flag.
func (s *UserService) AdminUpdate(ctx context.Context, id uuid.UUID, req *dto.AdminUpdateUserRequest) (*models.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.applyIdentityPatch(ctx, user, req.Username, req.Email); err != nil {
		return nil, err
	}
	if req.IsAdmin != nil {
		user.IsAdmin = *req.IsAdmin
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a non-admin user. The row is gone for good, so the email
// and username become registrable again. Admin records cannot be deleted
// through this path; demote them first.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin {
		return ErrCannotDeleteAdmin
	}
	if err := s.db.WithContext(ctx).Delete(user).Error; err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (s *UserService) applyIdentityPatch(ctx context.Context, user *models.User, username, email string) error {
	if username != "" {
		username = strings.ToLower(strings.TrimSpace(username))
		if taken, err := recordExists(s.db.WithContext(ctx), "username", username, user.ID); err != nil {
			return err
		} else if taken {
			return ErrUsernameTaken
		}
		user.Username = username
	}
	if email != "" {
		email = strings.ToLower(strings.TrimSpace(email))
		if taken, err := recordExists(s.db.WithContext(ctx), "email", email, user.ID); err != nil {
			return err
		} else if taken {
			return ErrEmailTaken
		}
		user.Email = email
	}
	return nil
}

func (s *UserService) save(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}
