package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"alalim-backend/internal/catalog"
	"alalim-backend/internal/models"
	"alalim-backend/internal/services"
)

type stubChatService struct {
	deltas    []string
	streamErr error
	sent      models.ChatRequest
}

func (s *stubChatService) History(context.Context, uuid.UUID) ([]*models.ChatMessage, error) {
	return []*models.ChatMessage{{ID: models.WelcomeMessageID, Role: models.RoleModel, Text: "Assalamu Alaikum"}}, nil
}

func (s *stubChatService) Send(_ context.Context, _ uuid.UUID, req models.ChatRequest) (*models.ChatResponse, error) {
	s.sent = req
	if strings.TrimSpace(req.Text) == "" && req.Image == nil {
		return nil, &services.ValidationError{Fields: map[string]string{"text": "Message text is required"}}
	}
	return &models.ChatResponse{
		UserMessage:  &models.ChatMessage{Role: models.RoleUser, Text: req.Text},
		ModelMessage: &models.ChatMessage{Role: models.RoleModel, Text: "Wa alaikum assalam"},
	}, nil
}

func (s *stubChatService) Stream(_ context.Context, _ uuid.UUID, text string, onDelta func(string) error) (*models.ChatResponse, error) {
	if text == "" {
		return nil, &services.ValidationError{Fields: map[string]string{"text": "Message text is required"}}
	}
	for _, d := range s.deltas {
		if err := onDelta(d); err != nil {
			return nil, err
		}
	}
	if s.streamErr != nil {
		return nil, s.streamErr
	}
	return &models.ChatResponse{ModelMessage: &models.ChatMessage{Role: models.RoleModel, Text: strings.Join(s.deltas, "")}}, nil
}

func (s *stubChatService) Clear(ctx context.Context, userID uuid.UUID) ([]*models.ChatMessage, error) {
	return s.History(ctx, userID)
}

func TestChatSend(t *testing.T) {
	svc := &stubChatService{}
	h := NewChatHandler(svc)

	rr := httptest.NewRecorder()
	h.Send(rr, authedRequest(http.MethodPost, "/api/v1/chat/messages", `{"text":"What is zakat?","mode":"deep","use_search":true}`, uuid.New()))
	if rr.Code != http.StatusOK || svc.sent.Mode != models.ChatModeDeep || !svc.sent.UseSearch {
		t.Fatalf("unexpected send %d %+v", rr.Code, svc.sent)
	}

	rr = httptest.NewRecorder()
	h.Send(rr, authedRequest(http.MethodPost, "/api/v1/chat/messages", `{"text":"  "}`, uuid.New()))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestChatMessages_ReturnsGreeting(t *testing.T) {
	h := NewChatHandler(&stubChatService{})

	rr := httptest.NewRecorder()
	h.Messages(rr, authedRequest(http.MethodGet, "/api/v1/chat/messages", "", uuid.New()))

	var body struct {
		Messages []models.ChatMessage `json:"messages"`
	}
	json.NewDecoder(rr.Body).Decode(&body)
	if len(body.Messages) != 1 || body.Messages[0].ID != models.WelcomeMessageID {
		t.Fatalf("unexpected transcript %+v", body.Messages)
	}
}

func TestChatStream_EmitsEvents(t *testing.T) {
	h := NewChatHandler(&stubChatService{deltas: []string{"Zakat ", "is ", "charity."}})

	rr := httptest.NewRecorder()
	h.Stream(rr, authedRequest(http.MethodPost, "/api/v1/chat/stream", `{"text":"What is zakat?"}`, uuid.New()))

	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %q", ct)
	}
	body := rr.Body.String()
	for _, want := range []string{"event: start", `event: delta` + "\n" + `data: {"text":"Zakat "}`, "event: done"} {
		if !strings.Contains(body, want) {
			t.Fatalf("stream missing %q:\n%s", want, body)
		}
	}
	if strings.Index(body, "event: start") > strings.Index(body, "event: delta") {
		t.Fatalf("start must precede deltas:\n%s", body)
	}
}

func TestChatStream_ValidationBeforeStreaming(t *testing.T) {
	h := NewChatHandler(&stubChatService{})

	rr := httptest.NewRecorder()
	h.Stream(rr, authedRequest(http.MethodPost, "/api/v1/chat/stream", `{"text":""}`, uuid.New()))

	if rr.Code != http.StatusBadRequest || rr.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected a JSON 400, got %d %q", rr.Code, rr.Header().Get("Content-Type"))
	}
}

func TestChatStream_ErrorAfterStart(t *testing.T) {
	h := NewChatHandler(&stubChatService{deltas: []string{"partial"}, streamErr: errors.New("store failed")})

	rr := httptest.NewRecorder()
	h.Stream(rr, authedRequest(http.MethodPost, "/api/v1/chat/stream", `{"text":"hi"}`, uuid.New()))

	if !strings.Contains(rr.Body.String(), "event: error") || strings.Contains(rr.Body.String(), "event: done") {
		t.Fatalf("expected an error event:\n%s", rr.Body.String())
	}
}

// ─── Catalog, tasbih, feedback, dashboard ───

func TestCatalogHandlers(t *testing.T) {
	c, err := catalog.Load()
	if err != nil {
		t.Fatal(err)
	}
	h := NewCatalogHandler(c)

	rr := httptest.NewRecorder()
	h.Translations(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "language", "bn"))
	var tr struct {
		Language     models.Language   `json:"language"`
		Translations map[string]string `json:"translations"`
	}
	json.NewDecoder(rr.Body).Decode(&tr)
	if rr.Code != http.StatusOK || tr.Language != models.LanguageBangla || tr.Translations["appTitle"] == "" {
		t.Fatalf("unexpected translations %d %+v", rr.Code, tr)
	}

	rr = httptest.NewRecorder()
	h.Translations(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "language", "Klingon"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quran/surahs?lang=Hindi", nil)
	rr = httptest.NewRecorder()
	h.Surahs(rr, req)
	var surahs struct {
		Surahs []models.SurahEntry `json:"surahs"`
	}
	json.NewDecoder(rr.Body).Decode(&surahs)
	if len(surahs.Surahs) != catalog.SurahCount || surahs.Surahs[0].Title != c.SurahTitle(1, models.LanguageHindi) {
		t.Fatalf("unexpected surah list (%d entries)", len(surahs.Surahs))
	}
}

func TestRequestLanguage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "id-ID,id;q=0.9")
	if got := requestLanguage(req); got != models.LanguageIndonesian {
		t.Fatalf("expected Indonesian, got %s", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/?lang=zh", nil)
	if got := requestLanguage(req); got != models.LanguageChinese {
		t.Fatalf("expected Chinese, got %s", got)
	}
}

type stubTasbih struct {
	counter models.TasbihCounter
}

func (s *stubTasbih) Get(context.Context, uuid.UUID) (*models.TasbihCounter, error) {
	return &s.counter, nil
}

func (s *stubTasbih) Increment(context.Context, uuid.UUID) (*models.TasbihCounter, error) {
	s.counter.Increment()
	return &s.counter, nil
}

func (s *stubTasbih) Reset(context.Context, uuid.UUID) (*models.TasbihCounter, error) {
	s.counter.Reset()
	return &s.counter, nil
}

func (s *stubTasbih) SetTarget(_ context.Context, _ uuid.UUID, target int) (*models.TasbihCounter, error) {
	if !models.ValidTasbihTarget(target) {
		return nil, &services.ValidationError{Fields: map[string]string{"target": "Target must be 33, 99 or 100"}}
	}
	s.counter.SetTarget(target)
	return &s.counter, nil
}

func TestTasbihHandlers(t *testing.T) {
	svc := &stubTasbih{counter: models.TasbihCounter{Count: 33, Target: 33}}
	h := NewTasbihHandler(svc)
	userID := uuid.New()

	rr := httptest.NewRecorder()
	h.Increment(rr, authedRequest(http.MethodPost, "/api/v1/tasbih/increment", "", userID))
	var c models.TasbihCounter
	json.NewDecoder(rr.Body).Decode(&c)
	if c.Count != 1 || c.Cycle != 1 {
		t.Fatalf("expected rollover, got %+v", c)
	}

	rr = httptest.NewRecorder()
	h.SetTarget(rr, authedRequest(http.MethodPut, "/api/v1/tasbih/target", `{"target":50}`, userID))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.SetTarget(rr, authedRequest(http.MethodPut, "/api/v1/tasbih/target", `{"target":99}`, userID))
	if rr.Code != http.StatusOK || svc.counter.Target != 99 || svc.counter.Count != 0 {
		t.Fatalf("unexpected target change %d %+v", rr.Code, svc.counter)
	}
}

type stubFeedback struct{ req models.FeedbackRequest }

func (s *stubFeedback) Submit(_ context.Context, userID uuid.UUID, req models.FeedbackRequest) (*models.Feedback, error) {
	s.req = req
	return &models.Feedback{ID: uuid.New(), UserID: userID, Type: req.Type, Description: req.Description}, nil
}

func TestFeedbackHandler(t *testing.T) {
	svc := &stubFeedback{}
	h := NewFeedbackHandler(svc)

	rr := httptest.NewRecorder()
	h.Submit(rr, authedRequest(http.MethodPost, "/api/v1/feedback", `{"type":"content_error","description":"Wrong ayah number"}`, uuid.New()))

	if rr.Code != http.StatusCreated || svc.req.Type != models.FeedbackContentError {
		t.Fatalf("unexpected feedback call %d %+v", rr.Code, svc.req)
	}
}

type stubVerses struct{}

func (stubVerses) ForUser(context.Context, uuid.UUID) *models.DailyVerse {
	return &models.DailyVerse{Language: models.LanguageArabic, Date: "2026-10-15"}
}

func TestDailyVerse_EmptyIsStillOK(t *testing.T) {
	h := NewDashboardHandler(stubVerses{})

	rr := httptest.NewRecorder()
	h.DailyVerse(rr, authedRequest(http.MethodGet, "/api/v1/dashboard/daily-verse", "", uuid.New()))

	var v models.DailyVerse
	json.NewDecoder(rr.Body).Decode(&v)
	if rr.Code != http.StatusOK || v.Text != "" || v.Language != models.LanguageArabic {
		t.Fatalf("unexpected verse %d %+v", rr.Code, v)
	}
}
