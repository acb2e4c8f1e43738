package services

import (
	"context"

	"github.com/google/uuid"

	"alalim-backend/internal/models"
)

type tasbihStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.TasbihCounter, error)
	Update(ctx context.Context, userID uuid.UUID, fn func(*models.TasbihCounter)) (*models.TasbihCounter, error)
}

type TasbihService struct {
	store tasbihStore
}

func NewTasbihService(store tasbihStore) *TasbihService {
	return &TasbihService{store: store}
}

func (s *TasbihService) Get(ctx context.Context, userID uuid.UUID) (*models.TasbihCounter, error) {
	return s.store.Get(ctx, userID)
}

func (s *TasbihService) Increment(ctx context.Context, userID uuid.UUID) (*models.TasbihCounter, error) {
	return s.store.Update(ctx, userID, func(c *models.TasbihCounter) { c.Increment() })
}

func (s *TasbihService) Reset(ctx context.Context, userID uuid.UUID) (*models.TasbihCounter, error) {
	return s.store.Update(ctx, userID, func(c *models.TasbihCounter) { c.Reset() })
}

func (s *TasbihService) SetTarget(ctx context.Context, userID uuid.UUID, target int) (*models.TasbihCounter, error) {
	if !models.ValidTasbihTarget(target) {
		return nil, fieldError("target", "Target must be 33, 99 or 100")
	}
	return s.store.Update(ctx, userID, func(c *models.TasbihCounter) { c.SetTarget(target) })
}
