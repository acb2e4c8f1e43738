package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"alalim-backend/internal/middleware"
	"alalim-backend/internal/models"
)

type tasbihService interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.TasbihCounter, error)
	Increment(ctx context.Context, userID uuid.UUID) (*models.TasbihCounter, error)
	Reset(ctx context.Context, userID uuid.UUID) (*models.TasbihCounter, error)
	SetTarget(ctx context.Context, userID uuid.UUID, target int) (*models.TasbihCounter, error)
}

type TasbihHandler struct {
	tasbih tasbihService
}

func NewTasbihHandler(tasbih tasbihService) *TasbihHandler {
	return &TasbihHandler{tasbih: tasbih}
}

func (h *TasbihHandler) respond(w http.ResponseWriter, r *http.Request, c *models.TasbihCounter, err error) {
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *TasbihHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.tasbih.Get(r.Context(), middleware.GetUserID(r.Context()))
	h.respond(w, r, c, err)
}

func (h *TasbihHandler) Increment(w http.ResponseWriter, r *http.Request) {
	c, err := h.tasbih.Increment(r.Context(), middleware.GetUserID(r.Context()))
	h.respond(w, r, c, err)
}

func (h *TasbihHandler) Reset(w http.ResponseWriter, r *http.Request) {
	c, err := h.tasbih.Reset(r.Context(), middleware.GetUserID(r.Context()))
	h.respond(w, r, c, err)
}

func (h *TasbihHandler) SetTarget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target int `json:"target"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.tasbih.SetTarget(r.Context(), middleware.GetUserID(r.Context()), req.Target)
	h.respond(w, r, c, err)
}
