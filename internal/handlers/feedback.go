package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"alalim-backend/internal/middleware"
	"alalim-backend/internal/models"
)

type feedbackService interface {
	Submit(ctx context.Context, userID uuid.UUID, req models.FeedbackRequest) (*models.Feedback, error)
}

type FeedbackHandler struct {
	feedback feedbackService
}

func NewFeedbackHandler(feedback feedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.FeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	f, err := h.feedback.Submit(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}
