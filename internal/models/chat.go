package models

import (
	"time"

	"github.com/google/uuid"
)

type ChatRole string

const (
	RoleUser  ChatRole = "user"
	RoleModel ChatRole = "model"
)

// WelcomeMessageID marks the seeded greeting at the top of a transcript.
const WelcomeMessageID = "welcome"

// ChatMessage represents a single entry in a user's scholar chat transcript.
type ChatMessage struct {
	ID        string          `json:"id"`
	UserID    uuid.UUID       `json:"-"`
	Role      ChatRole        `json:"role"`
	Text      string          `json:"text"`
	Sources   []string        `json:"sources,omitempty"`
	Image     *ChatAttachment `json:"image,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ChatAttachment is an inline image sent with a user message.
type ChatAttachment struct {
	Data     string `json:"data"` // base64
	MIMEType string `json:"mime_type"`
}

type ChatMode string

const (
	ChatModeFast ChatMode = "fast"
	ChatModeDeep ChatMode = "deep"
)

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Text      string          `json:"text"`
	Mode      ChatMode        `json:"mode"`
	UseSearch bool            `json:"use_search"`
	Image     *ChatAttachment `json:"image"`
}

// ChatResponse carries the stored user message and the model reply.
type ChatResponse struct {
	UserMessage  *ChatMessage `json:"user_message"`
	ModelMessage *ChatMessage `json:"model_message"`
	Fallback     bool         `json:"fallback"`
}
