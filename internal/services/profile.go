package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"alalim-backend/internal/models"
	"alalim-backend/internal/repository"
)

type profileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.UserProfile, error)
	Update(ctx context.Context, user *models.UserProfile) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetSettings(ctx context.Context, userID uuid.UUID) (*models.AppSettings, error)
	UpdateSettings(ctx context.Context, s *models.AppSettings) error
}

// ProfileService manages the signed-in profile and its display settings.
type ProfileService struct {
	users profileStore
}

func NewProfileService(users profileStore) *ProfileService {
	return &ProfileService{users: users}
}

func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Message: "User not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Update applies the set fields. An empty email or avatar clears it.
func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, req models.UpdateProfileRequest) (*models.UserProfile, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]string)
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		switch {
		case name == "":
			fields["name"] = "Name is required"
		case len(name) > 100:
			fields["name"] = "Name must be at most 100 characters"
		default:
			user.Name = name
		}
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		switch {
		case email == "":
			user.Email = nil
		case !emailRegex.MatchString(email):
			fields["email"] = "Invalid email format"
		default:
			user.Email = &email
		}
	}
	if req.AvatarURL != nil {
		avatar := strings.TrimSpace(*req.AvatarURL)
		switch {
		case avatar == "":
			user.AvatarURL = nil
		case !validAvatarURL(avatar):
			fields["avatar_url"] = "Avatar must be an http(s) URL"
		default:
			user.AvatarURL = &avatar
		}
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{Message: "Another profile already uses this email"}
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (s *ProfileService) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// Settings returns the stored settings, or the defaults for a profile that
// has none yet.
func (s *ProfileService) Settings(ctx context.Context, userID uuid.UUID) (*models.AppSettings, error) {
	settings, err := s.users.GetSettings(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DefaultSettings(userID, models.DefaultLanguage), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

func (s *ProfileService) UpdateSettings(ctx context.Context, userID uuid.UUID, req models.UpdateSettingsRequest) (*models.AppSettings, error) {
	if fields := req.Validate(); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	settings, err := s.Settings(ctx, userID)
	if err != nil {
		return nil, err
	}
	req.Apply(settings)

	if err := s.users.UpdateSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return settings, nil
}
