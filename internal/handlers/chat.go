package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"

	"alalim-backend/internal/middleware"
	"alalim-backend/internal/models"
)

type chatService interface {
	History(ctx context.Context, userID uuid.UUID) ([]*models.ChatMessage, error)
	Send(ctx context.Context, userID uuid.UUID, req models.ChatRequest) (*models.ChatResponse, error)
	Stream(ctx context.Context, userID uuid.UUID, text string, onDelta func(string) error) (*models.ChatResponse, error)
	Clear(ctx context.Context, userID uuid.UUID) ([]*models.ChatMessage, error)
}

type ChatHandler struct {
	chat chatService
}

func NewChatHandler(chat chatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chat.History(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.chat.Send(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chat.Clear(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

type streamRequest struct {
	Text string `json:"text"`
}

// Stream answers over server-sent events: start, then delta fragments, then
// done with the stored turn, or error.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	var req streamRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Streaming unsupported", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	started := false
	start := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		sendEvent(w, flusher, "start", map[string]string{})
	}

	resp, err := h.chat.Stream(r.Context(), userID, req.Text, func(delta string) error {
		start()
		return sendEvent(w, flusher, "delta", map[string]string{"text": delta})
	})
	if err != nil {
		if !started {
			handleServiceError(w, r, err)
			return
		}
		log.Printf("chat stream for %s: %v", userID, err)
		sendEvent(w, flusher, "error", errorResp("INTERNAL_ERROR", "The reply could not be saved", r).Error)
		return
	}

	start()
	sendEvent(w, flusher, "done", resp)
}

func sendEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
