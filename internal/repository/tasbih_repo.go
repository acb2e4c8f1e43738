package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"alalim-backend/internal/models"
)

type TasbihRepo struct {
	pool *pgxpool.Pool
}

func NewTasbihRepo(pool *pgxpool.Pool) *TasbihRepo {
	return &TasbihRepo{pool: pool}
}

// Get returns the user's counter, or a fresh one at the default target.
func (r *TasbihRepo) Get(ctx context.Context, userID uuid.UUID) (*models.TasbihCounter, error) {
	c := &models.TasbihCounter{UserID: userID}
	err := r.pool.QueryRow(ctx,
		`SELECT count, target, cycle, updated_at FROM tasbih_counters WHERE user_id = $1`,
		userID,
	).Scan(&c.Count, &c.Target, &c.Cycle, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		c.Target = models.DefaultTasbihTarget
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Update applies fn to the stored counter under a row lock and saves it.
func (r *TasbihRepo) Update(ctx context.Context, userID uuid.UUID, fn func(*models.TasbihCounter)) (*models.TasbihCounter, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO tasbih_counters (user_id, target) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`,
		userID, models.DefaultTasbihTarget,
	)
	if err != nil {
		return nil, err
	}

	c := &models.TasbihCounter{UserID: userID}
	err = tx.QueryRow(ctx,
		`SELECT count, target, cycle FROM tasbih_counters WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&c.Count, &c.Target, &c.Cycle)
	if err != nil {
		return nil, err
	}

	fn(c)

	err = tx.QueryRow(ctx,
		`UPDATE tasbih_counters SET count = $1, target = $2, cycle = $3, updated_at = NOW()
		WHERE user_id = $4 RETURNING updated_at`,
		c.Count, c.Target, c.Cycle, userID,
	).Scan(&c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
