package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"alalim-backend/internal/models"
)

type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

// Append stores messages in order. Messages without an id get a fresh one.
func (r *ChatRepo) Append(ctx context.Context, userID uuid.UUID, msgs ...*models.ChatMessage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin chat append: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, m := range msgs {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		m.UserID = userID

		sources := m.Sources
		if sources == nil {
			sources = []string{}
		}
		sourcesJSON, err := json.Marshal(sources)
		if err != nil {
			return fmt.Errorf("encode sources: %w", err)
		}
		var imageJSON []byte
		if m.Image != nil {
			imageJSON, err = json.Marshal(m.Image)
			if err != nil {
				return fmt.Errorf("encode image: %w", err)
			}
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO chat_messages (id, user_id, role, text, sources, image)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at`,
			m.ID, userID, m.Role, m.Text, sourcesJSON, imageJSON,
		).Scan(&m.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert chat message: %w", mapUniqueViolation(err))
		}
	}

	return tx.Commit(ctx)
}

// List returns the user's transcript oldest first. limit <= 0 returns all.
func (r *ChatRepo) List(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	query := `SELECT id, role, text, sources, image, created_at FROM (
			SELECT seq, id, role, text, sources, image, created_at
			FROM chat_messages WHERE user_id = $1
			ORDER BY seq DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	query += `) recent ORDER BY seq ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := make([]*models.ChatMessage, 0)
	for rows.Next() {
		m := &models.ChatMessage{UserID: userID}
		var sourcesJSON, imageJSON []byte
		if err := rows.Scan(&m.ID, &m.Role, &m.Text, &sourcesJSON, &imageJSON, &m.CreatedAt); err != nil {
			return nil, err
		}
		if len(sourcesJSON) > 0 {
			if err := json.Unmarshal(sourcesJSON, &m.Sources); err != nil {
				return nil, fmt.Errorf("decode sources: %w", err)
			}
			if len(m.Sources) == 0 {
				m.Sources = nil
			}
		}
		if len(imageJSON) > 0 {
			m.Image = &models.ChatAttachment{}
			if err := json.Unmarshal(imageJSON, m.Image); err != nil {
				return nil, fmt.Errorf("decode image: %w", err)
			}
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *ChatRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM chat_messages WHERE user_id = $1", userID)
	return err
}
