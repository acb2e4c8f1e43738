package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"alalim-backend/internal/models"
	"alalim-backend/internal/repository"
)

type memChatStore struct {
	msgs map[uuid.UUID][]*models.ChatMessage
}

func newMemChatStore() *memChatStore {
	return &memChatStore{msgs: make(map[uuid.UUID][]*models.ChatMessage)}
}

func (s *memChatStore) Append(_ context.Context, userID uuid.UUID, msgs ...*models.ChatMessage) error {
	for _, m := range msgs {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		for _, existing := range s.msgs[userID] {
			if existing.ID == m.ID {
				return fmt.Errorf("insert chat message: %w", repository.ErrDuplicate)
			}
		}
		s.msgs[userID] = append(s.msgs[userID], m)
	}
	return nil
}

// racingChatStore reports an empty transcript once while another request
// stores the greeting underneath it.
type racingChatStore struct {
	*memChatStore
	raced bool
}

func (s *racingChatStore) List(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	if !s.raced {
		s.raced = true
		s.memChatStore.Append(ctx, userID, &models.ChatMessage{ID: models.WelcomeMessageID, Role: models.RoleModel, Text: "As-salamu alaykum."})
		return nil, nil
	}
	return s.memChatStore.List(ctx, userID, limit)
}

func (s *memChatStore) List(_ context.Context, userID uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	all := s.msgs[userID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]*models.ChatMessage(nil), all...), nil
}

func (s *memChatStore) Clear(_ context.Context, userID uuid.UUID) error {
	delete(s.msgs, userID)
	return nil
}

type fakeChatModel struct {
	calls   int
	opts    ChatModelOptions
	system  string
	history []ChatTurn
	turn    ChatTurn
	reply   *ChatReply
	err     error
	deltas  []string
}

func (m *fakeChatModel) Chat(_ context.Context, opts ChatModelOptions, system string, history []ChatTurn, turn ChatTurn) (*ChatReply, error) {
	m.calls++
	m.opts, m.system, m.history, m.turn = opts, system, history, turn
	if m.err != nil {
		return nil, m.err
	}
	return m.reply, nil
}

func (m *fakeChatModel) StreamChat(_ context.Context, opts ChatModelOptions, system string, history []ChatTurn, turn ChatTurn, onDelta func(string) error) (string, error) {
	m.calls++
	m.opts, m.system, m.history, m.turn = opts, system, history, turn
	full := ""
	for _, d := range m.deltas {
		if err := onDelta(d); err != nil {
			return full, err
		}
		full += d
	}
	return full, m.err
}

type fixedLanguage models.Language

func (l fixedLanguage) GetLanguage(context.Context, uuid.UUID) (models.Language, error) {
	return models.Language(l), nil
}

type mapGreeter map[models.Language]string

func (g mapGreeter) Greeting(lang models.Language) string { return g[lang] }

func newTestChat(model *fakeChatModel) (*ChatService, *memChatStore) {
	store := newMemChatStore()
	greeter := mapGreeter{models.LanguageEnglish: "As-salamu alaykum."}
	return NewChatService(store, model, fixedLanguage(models.LanguageEnglish), greeter, 3), store
}

func TestChatHistory_SeedsGreetingOnce(t *testing.T) {
	svc, store := newTestChat(&fakeChatModel{})
	userID := uuid.New()

	msgs, err := svc.History(context.Background(), userID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != models.WelcomeMessageID || msgs[0].Role != models.RoleModel {
		t.Fatalf("expected welcome message, got %+v", msgs)
	}
	if msgs[0].Text != "As-salamu alaykum." {
		t.Fatalf("unexpected greeting %q", msgs[0].Text)
	}

	if _, err := svc.History(context.Background(), userID); err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(store.msgs[userID]) != 1 {
		t.Fatalf("greeting seeded twice: %d messages", len(store.msgs[userID]))
	}
}

func TestChatHistory_ConcurrentSeedReturnsStoredTranscript(t *testing.T) {
	store := &racingChatStore{memChatStore: newMemChatStore()}
	greeter := mapGreeter{models.LanguageEnglish: "As-salamu alaykum."}
	svc := NewChatService(store, &fakeChatModel{}, fixedLanguage(models.LanguageEnglish), greeter, 3)
	userID := uuid.New()

	msgs, err := svc.History(context.Background(), userID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != models.WelcomeMessageID || len(store.msgs[userID]) != 1 {
		t.Fatalf("expected the single stored greeting, got %d messages", len(msgs))
	}
}

func TestChatSend_EmptyInputSkipsModel(t *testing.T) {
	model := &fakeChatModel{}
	svc, store := newTestChat(model)
	userID := uuid.New()

	_, err := svc.Send(context.Background(), userID, models.ChatRequest{Text: "   "})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if model.calls != 0 {
		t.Fatalf("model called %d times for empty input", model.calls)
	}
	if len(store.msgs[userID]) != 0 {
		t.Fatalf("expected nothing stored")
	}
}

func TestChatSend_StoresTurnWithSources(t *testing.T) {
	model := &fakeChatModel{reply: &ChatReply{Text: "Patience is half of faith.", Sources: []string{"https://sunnah.com/x"}}}
	svc, store := newTestChat(model)
	userID := uuid.New()

	resp, err := svc.Send(context.Background(), userID, models.ChatRequest{Text: "What is sabr?", Mode: models.ChatModeDeep, UseSearch: true})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.Fallback {
		t.Fatalf("unexpected fallback")
	}
	if model.opts.Model != ModelFlash || !model.opts.UseSearch || model.opts.Thinking {
		t.Fatalf("unexpected model options %+v", model.opts)
	}
	if resp.ModelMessage.Text != "Patience is half of faith." || len(resp.ModelMessage.Sources) != 1 {
		t.Fatalf("unexpected model message %+v", resp.ModelMessage)
	}
	if got := len(store.msgs[userID]); got != 2 {
		t.Fatalf("expected 2 stored messages, got %d", got)
	}
	if model.system != SystemPrompt(models.LanguageEnglish) {
		t.Fatalf("expected English system prompt")
	}
}

func TestChatSend_FailureStoresApology(t *testing.T) {
	model := &fakeChatModel{err: errors.New("quota exceeded")}
	svc, store := newTestChat(model)
	userID := uuid.New()

	resp, err := svc.Send(context.Background(), userID, models.ChatRequest{Text: "Salam"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !resp.Fallback || resp.ModelMessage.Text != ChatFailureReply {
		t.Fatalf("expected failure apology, got %+v", resp.ModelMessage)
	}
	if store.msgs[userID][1].Text != ChatFailureReply {
		t.Fatalf("apology not stored")
	}
}

func TestChatSend_EmptyReplyUsesFallback(t *testing.T) {
	svc, _ := newTestChat(&fakeChatModel{reply: &ChatReply{}})

	resp, err := svc.Send(context.Background(), uuid.New(), models.ChatRequest{Text: "Salam"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.ModelMessage.Text != ChatEmptyReply || !resp.Fallback {
		t.Fatalf("expected empty-reply fallback, got %+v", resp)
	}
}

func TestChatSend_HistoryWindow(t *testing.T) {
	model := &fakeChatModel{reply: &ChatReply{Text: "ok"}}
	svc, store := newTestChat(model)
	userID := uuid.New()

	for _, text := range []string{"one", "two", "three", "four"} {
		store.Append(context.Background(), userID, &models.ChatMessage{Role: models.RoleUser, Text: text})
	}

	if _, err := svc.Send(context.Background(), userID, models.ChatRequest{Text: "five"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(model.history) != 3 || model.history[0].Text != "two" || model.history[2].Text != "four" {
		t.Fatalf("unexpected history %+v", model.history)
	}
	if model.turn.Text != "five" {
		t.Fatalf("unexpected turn %+v", model.turn)
	}
}

func TestChatSend_ImageUsesProModel(t *testing.T) {
	model := &fakeChatModel{reply: &ChatReply{Text: "A mosque."}}
	svc, _ := newTestChat(model)

	img := &models.ChatAttachment{Data: base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'}), MIMEType: "image/png"}
	if _, err := svc.Send(context.Background(), uuid.New(), models.ChatRequest{Image: img, Mode: models.ChatModeDeep}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if model.opts.Model != ModelPro || model.opts.Thinking {
		t.Fatalf("unexpected options %+v", model.opts)
	}
	if len(model.turn.Image) != 4 || model.turn.MIMEType != "image/png" {
		t.Fatalf("image not forwarded: %+v", model.turn)
	}
}

func TestChatSend_RejectsBadImage(t *testing.T) {
	model := &fakeChatModel{}
	svc, _ := newTestChat(model)

	cases := []*models.ChatAttachment{
		{Data: "not base64!", MIMEType: "image/png"},
		{Data: base64.StdEncoding.EncodeToString([]byte("x")), MIMEType: "application/pdf"},
	}
	for _, img := range cases {
		_, err := svc.Send(context.Background(), uuid.New(), models.ChatRequest{Text: "hi", Image: img})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.Fields["image"] == "" {
			t.Fatalf("expected image validation error, got %v", err)
		}
	}
	if model.calls != 0 {
		t.Fatalf("model should not be called")
	}
}

func TestChatStream_RelaysDeltasAndStores(t *testing.T) {
	model := &fakeChatModel{deltas: []string{"Bismillah, ", "peace be upon you."}}
	svc, store := newTestChat(model)
	userID := uuid.New()

	var got []string
	resp, err := svc.Stream(context.Background(), userID, "Greet me", func(d string) error {
		got = append(got, d)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if len(got) != 2 || resp.ModelMessage.Text != "Bismillah, peace be upon you." {
		t.Fatalf("unexpected stream result %v / %+v", got, resp.ModelMessage)
	}
	if model.opts.Model != ModelFlashLite {
		t.Fatalf("stream should use the fast model, got %s", model.opts.Model)
	}
	if len(store.msgs[userID]) != 2 {
		t.Fatalf("expected stored turn")
	}
}

func TestChatClear_Reseeds(t *testing.T) {
	svc, store := newTestChat(&fakeChatModel{})
	userID := uuid.New()
	store.Append(context.Background(), userID, &models.ChatMessage{Role: models.RoleUser, Text: "old"})

	msgs, err := svc.Clear(context.Background(), userID)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != models.WelcomeMessageID || len(store.msgs[userID]) != 1 {
		t.Fatalf("expected only the greeting after clear")
	}
}
