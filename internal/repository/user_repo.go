package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"alalim-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, user *models.UserProfile) error {
	query := `
		INSERT INTO users (id, name, email, avatar_url, provider)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	user.ID = uuid.New()

	err := r.pool.QueryRow(ctx, query,
		user.ID, user.Name, user.Email, user.AvatarURL, user.Provider,
	).Scan(&user.CreatedAt)
	return mapUniqueViolation(err)
}

const userColumns = `id, name, email, avatar_url, provider, created_at, last_login_at`

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.UserProfile, error) {
	user := &models.UserProfile{}
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id).Scan(
		&user.ID, &user.Name, &user.Email, &user.AvatarURL, &user.Provider, &user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByProviderEmail finds the profile a returning provider login belongs to.
func (r *UserRepo) GetByProviderEmail(ctx context.Context, provider models.Provider, email string) (*models.UserProfile, error) {
	user := &models.UserProfile{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE provider = $1 AND LOWER(email) = LOWER($2)`,
		provider, email,
	).Scan(
		&user.ID, &user.Name, &user.Email, &user.AvatarURL, &user.Provider, &user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET last_login_at = $1 WHERE id = $2", time.Now(), userID)
	return err
}

func (r *UserRepo) Update(ctx context.Context, user *models.UserProfile) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE users SET name = $1, email = $2, avatar_url = $3 WHERE id = $4",
		user.Name, user.Email, user.AvatarURL, user.ID,
	)
	return mapUniqueViolation(err)
}

func (r *UserRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", userID)
	return err
}

func (r *UserRepo) CreateSettings(ctx context.Context, s *models.AppSettings) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO user_settings (user_id, language, theme, font_size)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING language, theme, font_size, updated_at`,
		s.UserID, s.Language, s.Theme, s.FontSize,
	).Scan(&s.Language, &s.Theme, &s.FontSize, &s.UpdatedAt)
}

func (r *UserRepo) GetSettings(ctx context.Context, userID uuid.UUID) (*models.AppSettings, error) {
	s := &models.AppSettings{}
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, language, theme, font_size, updated_at FROM user_settings WHERE user_id = $1`,
		userID,
	).Scan(&s.UserID, &s.Language, &s.Theme, &s.FontSize, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *UserRepo) UpdateSettings(ctx context.Context, s *models.AppSettings) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO user_settings (user_id, language, theme, font_size, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET language = EXCLUDED.language, theme = EXCLUDED.theme,
			font_size = EXCLUDED.font_size, updated_at = NOW()
		RETURNING updated_at`,
		s.UserID, s.Language, s.Theme, s.FontSize,
	).Scan(&s.UpdatedAt)
}

// GetLanguage returns the user's content language, or DefaultLanguage when
// no settings row exists yet.
func (r *UserRepo) GetLanguage(ctx context.Context, userID uuid.UUID) (models.Language, error) {
	var lang models.Language
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE((SELECT language FROM user_settings WHERE user_id = $1), $2)`,
		userID, models.DefaultLanguage,
	).Scan(&lang)
	if err != nil {
		return models.DefaultLanguage, err
	}
	if !lang.Valid() {
		return models.DefaultLanguage, nil
	}
	return lang, nil
}

// ListLanguagesInUse returns the distinct languages users have selected.
func (r *UserRepo) ListLanguagesInUse(ctx context.Context) ([]models.Language, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT language FROM user_settings ORDER BY language`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	langs := make([]models.Language, 0)
	for rows.Next() {
		var lang models.Language
		if err := rows.Scan(&lang); err != nil {
			return nil, err
		}
		if lang.Valid() {
			langs = append(langs, lang)
		}
	}
	return langs, rows.Err()
}
