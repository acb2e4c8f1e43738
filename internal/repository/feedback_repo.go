package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"alalim-backend/internal/models"
)

type FeedbackRepo struct {
	pool *pgxpool.Pool
}

func NewFeedbackRepo(pool *pgxpool.Pool) *FeedbackRepo {
	return &FeedbackRepo{pool: pool}
}

func (r *FeedbackRepo) Create(ctx context.Context, f *models.Feedback) error {
	f.ID = uuid.New()
	return r.pool.QueryRow(ctx,
		`INSERT INTO feedback (id, user_id, type, description, email)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		f.ID, f.UserID, f.Type, f.Description, f.Email,
	).Scan(&f.CreatedAt)
}
