package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"alalim-backend/internal/middleware"
	"alalim-backend/internal/models"
	"alalim-backend/internal/repository"
)

const refreshTokenTTL = 7 * 24 * time.Hour

type userStore interface {
	Create(ctx context.Context, user *models.UserProfile) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.UserProfile, error)
	GetByProviderEmail(ctx context.Context, provider models.Provider, email string) (*models.UserProfile, error)
	UpdateLastLogin(ctx context.Context, userID uuid.UUID) error
	CreateSettings(ctx context.Context, s *models.AppSettings) error
	GetSettings(ctx context.Context, userID uuid.UUID) (*models.AppSettings, error)
}

// tokenStore keeps refresh tokens. Get returns ok=false for unknown or
// expired tokens.
type tokenStore interface {
	Set(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	Get(ctx context.Context, token string) (uuid.UUID, bool, error)
	Delete(ctx context.Context, token string) error
}

type AuthService struct {
	users  userStore
	tokens tokenStore
	jwt    *middleware.JWTAuth
}

func NewAuthService(users userStore, redisClient *redis.Client, jwt *middleware.JWTAuth) *AuthService {
	return &AuthService{users: users, tokens: &redisTokenStore{redis: redisClient}, jwt: jwt}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// demoProfiles are the identities the provider buttons sign in as when the
// client sends no profile of its own. No provider is contacted.
var demoProfiles = map[models.Provider]models.LoginRequest{
	models.ProviderGoogle: {
		Name:      "Abdullah Al-Mamun",
		Email:     "abdullah@gmail.com",
		AvatarURL: "https://ui-avatars.com/api/?name=Abdullah+Al-Mamun&background=0D9488&color=fff",
	},
	models.ProviderFacebook: {
		Name:      "Fatima Zahra",
		Email:     "fatima@facebook.com",
		AvatarURL: "https://ui-avatars.com/api/?name=Fatima+Zahra&background=3b5998&color=fff",
	},
}

func normalizeLogin(req *models.LoginRequest) map[string]string {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.AvatarURL = strings.TrimSpace(req.AvatarURL)

	fields := make(map[string]string)
	if !req.Provider.Valid() {
		fields["provider"] = "Provider must be google, facebook or guest"
		return fields
	}

	if demo, ok := demoProfiles[req.Provider]; ok && req.Name == "" && req.Email == "" {
		req.Name, req.Email, req.AvatarURL = demo.Name, demo.Email, demo.AvatarURL
	}
	if req.Name == "" {
		req.Name = models.GuestName
	}

	if len(req.Name) > 100 {
		fields["name"] = "Name must be at most 100 characters"
	}
	if req.Email != "" && !emailRegex.MatchString(req.Email) {
		fields["email"] = "Invalid email format"
	}
	if req.AvatarURL != "" && !validAvatarURL(req.AvatarURL) {
		fields["avatar_url"] = "Avatar must be an http(s) URL"
	}
	if req.Language != nil && !req.Language.Valid() {
		fields["language"] = "Unsupported language"
	}
	return fields
}

func validAvatarURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Login signs a profile in. Provider logins with an email return to the same
// profile; guests always get a fresh one. acceptLanguage seeds the settings
// language of new profiles when the body names none.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest, acceptLanguage string) (*models.AuthTokens, error) {
	if fields := normalizeLogin(&req); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if req.Provider != models.ProviderGuest && req.Email != "" {
		user, err := s.users.GetByProviderEmail(ctx, req.Provider, req.Email)
		if err == nil {
			s.users.UpdateLastLogin(ctx, user.ID)
			return s.issueTokens(ctx, user, nil)
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	user := &models.UserProfile{Name: req.Name, Provider: req.Provider}
	if req.Email != "" {
		user.Email = &req.Email
	}
	if req.AvatarURL != "" {
		user.AvatarURL = &req.AvatarURL
	}
	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		conflict := &ConflictError{Message: "A profile with this email already exists"}
		if req.Provider == models.ProviderGuest {
			return nil, conflict
		}
		// A concurrent first login created the profile.
		existing, lookupErr := s.users.GetByProviderEmail(ctx, req.Provider, req.Email)
		if lookupErr != nil {
			return nil, conflict
		}
		s.users.UpdateLastLogin(ctx, existing.ID)
		return s.issueTokens(ctx, existing, nil)
	}
	s.users.UpdateLastLogin(ctx, user.ID)

	lang := models.MatchAcceptLanguage(acceptLanguage)
	if req.Language != nil {
		lang = *req.Language
	}
	settings := models.DefaultSettings(user.ID, lang)
	if err := s.users.CreateSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("create settings: %w", err)
	}

	return s.issueTokens(ctx, user, settings)
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	if refreshToken == "" {
		return nil, fieldError("refresh_token", "Refresh token is required")
	}

	userID, ok, err := s.tokens.Get(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &UnauthorizedError{Message: "Invalid or expired refresh token. Please log in again."}
	}

	// rotation
	s.tokens.Delete(ctx, refreshToken)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &UnauthorizedError{Message: "Profile no longer exists"}
		}
		return nil, err
	}

	return s.issueTokens(ctx, user, nil)
}

// Logout revokes the refresh token. The chat transcript is kept.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.tokens.Delete(ctx, refreshToken)
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.UserProfile, settings *models.AppSettings) (*models.AuthTokens, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user.ID, string(user.Provider))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := generateToken(64)
	if err != nil {
		return nil, err
	}

	if err := s.tokens.Set(ctx, refreshToken, user.ID, refreshTokenTTL); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	if settings == nil {
		settings, err = s.users.GetSettings(ctx, user.ID)
		if err != nil {
			settings = models.DefaultSettings(user.ID, models.DefaultLanguage)
		}
	}

	return &models.AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(middleware.AccessTokenTTL.Seconds()),
		User:         user,
		Settings:     settings,
	}, nil
}

func generateToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

type redisTokenStore struct {
	redis *redis.Client
}

func (r *redisTokenStore) Set(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	return r.redis.Set(ctx, "refresh:"+token, userID.String(), ttl).Err()
}

func (r *redisTokenStore) Get(ctx context.Context, token string) (uuid.UUID, bool, error) {
	raw, err := r.redis.Get(ctx, "refresh:"+token).Result()
	if err == redis.Nil {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("redis get refresh token: %w", err)
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, nil
	}
	return userID, true, nil
}

func (r *redisTokenStore) Delete(ctx context.Context, token string) error {
	return r.redis.Del(ctx, "refresh:"+token).Err()
}
