package models

import (
	"time"

	"github.com/google/uuid"
)

type FeedbackType string

const (
	FeedbackBug          FeedbackType = "bug"
	FeedbackContentError FeedbackType = "content_error"
	FeedbackSuggestion   FeedbackType = "suggestion"
)

func (t FeedbackType) Valid() bool {
	return t == FeedbackBug || t == FeedbackContentError || t == FeedbackSuggestion
}

type Feedback struct {
	ID          uuid.UUID    `json:"id"`
	UserID      uuid.UUID    `json:"user_id"`
	Type        FeedbackType `json:"type"`
	Description string       `json:"description"`
	Email       *string      `json:"email,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

type FeedbackRequest struct {
	Type        FeedbackType `json:"type"`
	Description string       `json:"description"`
	Email       string       `json:"email"`
}
