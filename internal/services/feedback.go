package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"alalim-backend/internal/models"
)

const maxFeedbackChars = 5000

type feedbackStore interface {
	Create(ctx context.Context, f *models.Feedback) error
}

type profileSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.UserProfile, error)
}

type feedbackMailer interface {
	SendFeedbackEmail(to string, f *models.Feedback, from *models.UserProfile) error
}

type FeedbackService struct {
	store  feedbackStore
	users  profileSource
	mailer feedbackMailer
	inbox  string
}

func NewFeedbackService(store feedbackStore, users profileSource, mailer feedbackMailer, inbox string) *FeedbackService {
	return &FeedbackService{store: store, users: users, mailer: mailer, inbox: inbox}
}

// Submit stores a report and mails it to the inbox in the background. The
// reply address defaults to the profile email.
func (s *FeedbackService) Submit(ctx context.Context, userID uuid.UUID, req models.FeedbackRequest) (*models.Feedback, error) {
	desc := strings.TrimSpace(req.Description)
	email := strings.TrimSpace(req.Email)

	fields := make(map[string]string)
	if !req.Type.Valid() {
		fields["type"] = "Type must be bug, content_error or suggestion"
	}
	if desc == "" {
		fields["description"] = "Description is required"
	} else if utf8.RuneCountInString(desc) > maxFeedbackChars {
		fields["description"] = fmt.Sprintf("Description must be at most %d characters", maxFeedbackChars)
	}
	if email != "" && !emailRegex.MatchString(email) {
		fields["email"] = "Invalid email format"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	profile, err := s.users.GetByID(ctx, userID)
	if err != nil {
		log.Printf("feedback: profile lookup for %s failed: %v", userID, err)
		profile = nil
	}
	if email == "" && profile != nil && profile.Email != nil {
		email = *profile.Email
	}

	f := &models.Feedback{UserID: userID, Type: req.Type, Description: desc}
	if email != "" {
		f.Email = &email
	}
	if err := s.store.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("store feedback: %w", err)
	}

	go func() {
		if err := s.mailer.SendFeedbackEmail(s.inbox, f, profile); err != nil {
			log.Printf("feedback: mail for %s failed: %v", f.ID, err)
		}
	}()

	return f, nil
}
