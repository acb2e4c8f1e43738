package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"alalim-backend/internal/middleware"
	"alalim-backend/internal/models"
)

type dailyVerseSource interface {
	ForUser(ctx context.Context, userID uuid.UUID) *models.DailyVerse
}

type DashboardHandler struct {
	verses dailyVerseSource
}

func NewDashboardHandler(verses dailyVerseSource) *DashboardHandler {
	return &DashboardHandler{verses: verses}
}

// DailyVerse always answers 200; a verse that could not be generated comes
// back with empty text.
func (h *DashboardHandler) DailyVerse(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.verses.ForUser(r.Context(), middleware.GetUserID(r.Context())))
}
