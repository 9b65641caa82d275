package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kanbantask/accounts-backend/internal/dto"
	"github.com/kanbantask/accounts-backend/internal/models"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// AuthService resolves authentication attempts (local credentials or a
// verified Google profile) to exactly one canonical user record.
type AuthService struct {
	db         *gorm.DB
	bcryptCost int
}

func NewAuthService(db *gorm.DB, bcryptCost int) *AuthService {
	return &AuthService{db: db, bcryptCost: bcryptCost}
}

// Register creates a local account. Email and username are normalized to
// lower case, so uniqueness is case-insensitive.
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*models.User, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" || email == "" || req.Password == "" {
		return nil, errors.New("username, email and password are required")
	}

	if taken, err := s.emailTaken(ctx, email, uuid.Nil); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrEmailTaken
	}
	if taken, err := s.usernameTaken(ctx, username, uuid.Nil); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:       uuid.New(),
		Username: username,
		Email:    email,
		Password: string(hash),
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// The unique indexes close the check-then-create race; surface the
		// loser of the race as a conflict, not a 500.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.whichConflict(ctx, email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// Login resolves local credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*models.User, error) {
	var user models.User
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}

	// Pure-OAuth accounts carry no hash and cannot log in locally.
	if user.Password == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// ResolveGoogle finds-or-creates the single user for a verified Google
// profile. Lookup order: google_id (stable), then email. An email match that
// lacks a google_id is enriched in place — an account-linking event, not a
// new account.
func (s *AuthService) ResolveGoogle(ctx context.Context, profile *GoogleProfile) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("google_id = ?", profile.ID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up google user: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(profile.Email))
	err = s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		if user.GoogleID == nil {
			updates := map[string]interface{}{
				"google_id":      profile.ID,
				"is_google_user": true,
			}
			if profile.Picture != "" {
				updates["image"] = profile.Picture
			}
			if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
				return nil, fmt.Errorf("failed to link google account: %w", err)
			}
			googleID := profile.ID
			user.GoogleID = &googleID
			user.IsGoogleUser = true
			if profile.Picture != "" {
				picture := profile.Picture
				user.Image = &picture
			}
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}

	username, err := s.uniqueUsername(ctx, deriveUsername(profile.Name, email))
	if err != nil {
		return nil, err
	}

	googleID := profile.ID
	user = models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		GoogleID:     &googleID,
		IsGoogleUser: true,
	}
	if profile.Picture != "" {
		picture := profile.Picture
		user.Image = &picture
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create google user: %w", err)
	}
	return &user, nil
}

// LoginGoogleEmail is the simplified confirmation path: the client already
// completed the Google flow and presents only the email. Returns the user
// and whether a new record was created.
func (s *AuthService) LoginGoogleEmail(ctx context.Context, email string) (*models.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, false, errors.New("email is required")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up user by email: %w", err)
	}

	username, err := s.uniqueUsername(ctx, deriveUsername("", email))
	if err != nil {
		return nil, false, err
	}

	user = models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		IsGoogleUser: true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create google user: %w", err)
	}
	return &user, true, nil
}

// deriveUsername builds a username from the display name (whitespace
// stripped, lower-cased) or, when no usable name exists, the email local
// part.
func deriveUsername(displayName, email string) string {
	name := strings.ToLower(strings.Join(strings.Fields(displayName), ""))
	if name != "" {
		return name
	}
	return strings.ToLower(strings.SplitN(email, "@", 2)[0])
}

// uniqueUsername disambiguates a derived username deterministically by
// appending 2, 3, ... until a free one is found.
func (s *AuthService) uniqueUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 2; ; i++ {
		taken, err := s.usernameTaken(ctx, candidate, uuid.Nil)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(i)
	}
}

func (s *AuthService) emailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	return recordExists(s.db.WithContext(ctx), "email", email, exclude)
}

func (s *AuthService) usernameTaken(ctx context.Context, username string, exclude uuid.UUID) (bool, error) {
	return recordExists(s.db.WithContext(ctx), "username", username, exclude)
}

func recordExists(db *gorm.DB, column, value string, exclude uuid.UUID) (bool, error) {
	var count int64
	q := db.Model(&models.User{}).Where(column+" = ?", value)
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check %s uniqueness: %w", column, err)
	}
	return count > 0, nil
}

func (s *AuthService) whichConflict(ctx context.Context, email string) error {
	if taken, err := s.emailTaken(ctx, email, uuid.Nil); err == nil && taken {
		return ErrEmailTaken
	}
	return ErrUsernameTaken
}
