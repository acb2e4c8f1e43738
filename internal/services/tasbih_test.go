package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"alalim-backend/internal/models"
)

type memTasbihStore map[uuid.UUID]*models.TasbihCounter

func (m memTasbihStore) Get(_ context.Context, userID uuid.UUID) (*models.TasbihCounter, error) {
	if c, ok := m[userID]; ok {
		cp := *c
		return &cp, nil
	}
	return &models.TasbihCounter{UserID: userID, Target: models.DefaultTasbihTarget}, nil
}

func (m memTasbihStore) Update(ctx context.Context, userID uuid.UUID, fn func(*models.TasbihCounter)) (*models.TasbihCounter, error) {
	c, _ := m.Get(ctx, userID)
	fn(c)
	m[userID] = c
	cp := *c
	return &cp, nil
}

func TestTasbih_IncrementRollsOverAtTarget(t *testing.T) {
	store := memTasbihStore{}
	svc := NewTasbihService(store)
	userID := uuid.New()

	var c *models.TasbihCounter
	for i := 0; i < 34; i++ {
		var err error
		if c, err = svc.Increment(context.Background(), userID); err != nil {
			t.Fatal(err)
		}
	}
	if c.Count != 1 || c.Cycle != 1 {
		t.Fatalf("34 beads on a 33 target should be count 1 cycle 1, got %+v", c)
	}

	c, _ = svc.Reset(context.Background(), userID)
	if c.Count != 0 || c.Cycle != 0 || c.Target != 33 {
		t.Fatalf("unexpected reset state %+v", c)
	}
}

func TestTasbih_SetTarget(t *testing.T) {
	store := memTasbihStore{}
	svc := NewTasbihService(store)
	userID := uuid.New()

	_, _ = svc.Increment(context.Background(), userID)
	c, err := svc.SetTarget(context.Background(), userID, 99)
	if err != nil {
		t.Fatal(err)
	}
	if c.Target != 99 || c.Count != 0 {
		t.Fatalf("unexpected state %+v", c)
	}

	_, err = svc.SetTarget(context.Background(), userID, 50)
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Fields["target"] == "" {
		t.Fatalf("expected target validation error, got %v", err)
	}
	if got, _ := svc.Get(context.Background(), userID); got.Target != 99 {
		t.Fatalf("rejected target must not be stored")
	}
}
