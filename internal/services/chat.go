package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"alalim-backend/internal/models"
	"alalim-backend/internal/repository"
)

const (
	maxChatText  = 8000
	maxChatImage = 10 << 20
)

type chatStore interface {
	Append(ctx context.Context, userID uuid.UUID, msgs ...*models.ChatMessage) error
	List(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ChatMessage, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type chatModel interface {
	Chat(ctx context.Context, opts ChatModelOptions, system string, history []ChatTurn, turn ChatTurn) (*ChatReply, error)
	StreamChat(ctx context.Context, opts ChatModelOptions, system string, history []ChatTurn, turn ChatTurn, onDelta func(string) error) (string, error)
}

type languageSource interface {
	GetLanguage(ctx context.Context, userID uuid.UUID) (models.Language, error)
}

type greeter interface {
	Greeting(lang models.Language) string
}

// ChatService owns the scholar chat transcript and the calls that extend it.
type ChatService struct {
	store   chatStore
	model   chatModel
	langs   languageSource
	greeter greeter
	window  int
}

func NewChatService(store chatStore, model chatModel, langs languageSource, greeter greeter, window int) *ChatService {
	if window <= 0 {
		window = 20
	}
	return &ChatService{store: store, model: model, langs: langs, greeter: greeter, window: window}
}

func (s *ChatService) language(ctx context.Context, userID uuid.UUID) models.Language {
	return userLanguage(ctx, s.langs, userID)
}

// userLanguage falls back to the default language when the lookup fails.
func userLanguage(ctx context.Context, langs languageSource, userID uuid.UUID) models.Language {
	lang, err := langs.GetLanguage(ctx, userID)
	if err != nil {
		log.Printf("language lookup for %s failed: %v", userID, err)
		return models.DefaultLanguage
	}
	return lang
}

// History returns the transcript, seeding the greeting when it is empty.
func (s *ChatService) History(ctx context.Context, userID uuid.UUID) ([]*models.ChatMessage, error) {
	msgs, err := s.store.List(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	if len(msgs) > 0 {
		return msgs, nil
	}

	return s.seed(ctx, userID)
}

// Clear wipes the transcript and re-seeds the greeting.
func (s *ChatService) Clear(ctx context.Context, userID uuid.UUID) ([]*models.ChatMessage, error) {
	if err := s.store.Clear(ctx, userID); err != nil {
		return nil, fmt.Errorf("clear chat messages: %w", err)
	}
	return s.seed(ctx, userID)
}

// seed stores the greeting as the first message. When another request seeded
// it first, the stored transcript is returned instead.
func (s *ChatService) seed(ctx context.Context, userID uuid.UUID) ([]*models.ChatMessage, error) {
	welcome := &models.ChatMessage{
		ID:   models.WelcomeMessageID,
		Role: models.RoleModel,
		Text: s.greeter.Greeting(s.language(ctx, userID)),
	}
	err := s.store.Append(ctx, userID, welcome)
	if errors.Is(err, repository.ErrDuplicate) {
		msgs, listErr := s.store.List(ctx, userID, 0)
		if listErr != nil {
			return nil, fmt.Errorf("list chat messages: %w", listErr)
		}
		return msgs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("seed greeting: %w", err)
	}
	return []*models.ChatMessage{welcome}, nil
}

// validateChat checks a request and decodes its image. Nothing is sent to
// the model for a request with neither text nor image.
func validateChat(req *models.ChatRequest) ([]byte, error) {
	req.Text = strings.TrimSpace(req.Text)
	if req.Mode == "" {
		req.Mode = models.ChatModeFast
	}

	fields := make(map[string]string)
	if req.Mode != models.ChatModeFast && req.Mode != models.ChatModeDeep {
		fields["mode"] = "Mode must be fast or deep"
	}
	if len(req.Text) > maxChatText {
		fields["text"] = fmt.Sprintf("Message must be at most %d characters", maxChatText)
	}

	var image []byte
	if req.Image != nil {
		if !strings.HasPrefix(req.Image.MIMEType, "image/") {
			fields["image"] = "Attachment must be an image"
		} else {
			data, err := base64.StdEncoding.DecodeString(req.Image.Data)
			switch {
			case err != nil:
				fields["image"] = "Image data must be base64"
			case len(data) == 0:
				fields["image"] = "Image is empty"
			case len(data) > maxChatImage:
				fields["image"] = "Image must be at most 10 MB"
			default:
				image = data
			}
		}
	}
	if req.Text == "" && req.Image == nil {
		fields["text"] = "Message text or image is required"
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return image, nil
}

func (s *ChatService) context(ctx context.Context, userID uuid.UUID) ([]ChatTurn, error) {
	recent, err := s.store.List(ctx, userID, s.window)
	if err != nil {
		return nil, fmt.Errorf("load chat context: %w", err)
	}
	turns := make([]ChatTurn, 0, len(recent))
	for _, m := range recent {
		if m.Text == "" {
			continue
		}
		turns = append(turns, ChatTurn{Role: m.Role, Text: m.Text})
	}
	return turns, nil
}

// Send runs one chat turn. Model failures do not fail the request: the
// apology is stored and returned as the model message with Fallback set.
func (s *ChatService) Send(ctx context.Context, userID uuid.UUID, req models.ChatRequest) (*models.ChatResponse, error) {
	image, err := validateChat(&req)
	if err != nil {
		return nil, err
	}

	history, err := s.context(ctx, userID)
	if err != nil {
		return nil, err
	}

	lang := s.language(ctx, userID)
	opts := SelectChatModel(req.Mode, req.UseSearch, image != nil)
	turn := ChatTurn{Role: models.RoleUser, Text: req.Text}
	if image != nil {
		turn.Image = image
		turn.MIMEType = req.Image.MIMEType
	}

	userMsg := &models.ChatMessage{Role: models.RoleUser, Text: req.Text, Image: req.Image}
	modelMsg := &models.ChatMessage{Role: models.RoleModel}
	resp := &models.ChatResponse{UserMessage: userMsg, ModelMessage: modelMsg}

	reply, err := s.model.Chat(ctx, opts, SystemPrompt(lang), history, turn)
	switch {
	case err != nil:
		log.Printf("chat: %s failed for %s: %v", opts.Model, userID, err)
		modelMsg.Text = ChatFailureReply
		resp.Fallback = true
	case reply.Text == "":
		modelMsg.Text = ChatEmptyReply
		resp.Fallback = true
	default:
		modelMsg.Text = reply.Text
		if len(reply.Sources) > 0 {
			modelMsg.Sources = reply.Sources
		}
	}

	if err := s.store.Append(ctx, userID, userMsg, modelMsg); err != nil {
		return nil, fmt.Errorf("store chat turn: %w", err)
	}
	return resp, nil
}

// Stream runs a text-only turn on the fast model, calling onDelta for each
// fragment. The final reply is stored even when the stream fails part way.
func (s *ChatService) Stream(ctx context.Context, userID uuid.UUID, text string, onDelta func(string) error) (*models.ChatResponse, error) {
	req := models.ChatRequest{Text: text, Mode: models.ChatModeFast}
	if _, err := validateChat(&req); err != nil {
		return nil, err
	}
	if req.Text == "" {
		return nil, fieldError("text", "Message text is required")
	}

	history, err := s.context(ctx, userID)
	if err != nil {
		return nil, err
	}

	lang := s.language(ctx, userID)
	opts := SelectChatModel(models.ChatModeFast, false, false)

	userMsg := &models.ChatMessage{Role: models.RoleUser, Text: req.Text}
	modelMsg := &models.ChatMessage{Role: models.RoleModel}
	resp := &models.ChatResponse{UserMessage: userMsg, ModelMessage: modelMsg}

	full, err := s.model.StreamChat(ctx, opts, SystemPrompt(lang), history,
		ChatTurn{Role: models.RoleUser, Text: req.Text}, onDelta)
	switch {
	case err != nil && full == "":
		log.Printf("chat stream failed for %s: %v", userID, err)
		modelMsg.Text = ChatFailureReply
		resp.Fallback = true
	case err != nil:
		log.Printf("chat stream interrupted for %s: %v", userID, err)
		modelMsg.Text = strings.TrimSpace(full)
	case full == "":
		modelMsg.Text = ChatEmptyReply
		resp.Fallback = true
	default:
		modelMsg.Text = full
	}

	// The client may already be gone; the turn is still recorded.
	storeCtx := context.WithoutCancel(ctx)
	if err := s.store.Append(storeCtx, userID, userMsg, modelMsg); err != nil {
		return nil, fmt.Errorf("store chat turn: %w", err)
	}
	return resp, nil
}
