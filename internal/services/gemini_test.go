package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"

	"alalim-backend/internal/models"
)

type fakeGenerator struct {
	text      string
	err       error
	model     string
	system    string
	parts     []genai.Part
	fileCalls int
}

func (g *fakeGenerator) Generate(_ context.Context, model, system string, parts ...genai.Part) (string, error) {
	g.model, g.system, g.parts = model, system, parts
	return g.text, g.err
}

func (g *fakeGenerator) GenerateWithFile(_ context.Context, model, system, prompt string, _ []byte, _ string) (string, error) {
	g.fileCalls++
	g.model, g.system, g.parts = model, system, []genai.Part{genai.Text(prompt)}
	return g.text, g.err
}

func (g *fakeGenerator) Close() error { return nil }

func TestGenerateReading_EmptyUsesPromptReply(t *testing.T) {
	gen := &fakeGenerator{text: "  "}
	svc := newContentService(gen, 1)

	p, _ := BuildReadingPrompt(models.ReadingRequest{Kind: models.JobQuranSurah, Surah: 1, Language: models.LanguageEnglish}, "")
	text, err := svc.GenerateReading(context.Background(), p)
	if err != nil {
		t.Fatalf("GenerateReading() error = %v", err)
	}
	if text != QuranEmptyReply {
		t.Fatalf("expected empty reply, got %q", text)
	}
	if gen.model != ModelFlash || gen.system != p.System {
		t.Fatalf("unexpected call model=%s system=%s", gen.model, gen.system)
	}
}

func TestGenerateReading_ReturnsErrors(t *testing.T) {
	svc := newContentService(&fakeGenerator{err: errors.New("503")}, 1)

	if _, err := svc.GenerateReading(context.Background(), ReadingPrompt{Model: ModelFlash, Prompt: "x"}); err == nil {
		t.Fatalf("expected error to propagate for retry")
	}
}

func TestAnalyzeMedia_DefaultsAndFallbacks(t *testing.T) {
	gen := &fakeGenerator{text: "A calligraphy panel."}
	svc := newContentService(gen, 1)

	got := svc.AnalyzeMedia(context.Background(), []byte{1, 2, 3}, "image/jpeg", "")
	if got.Text != "A calligraphy panel." || got.Fallback {
		t.Fatalf("unexpected analysis %+v", got)
	}
	if len(gen.parts) != 2 {
		t.Fatalf("expected blob and prompt parts, got %d", len(gen.parts))
	}
	if prompt, ok := gen.parts[1].(genai.Text); !ok || string(prompt) != MediaDefaultPrompt {
		t.Fatalf("expected default prompt, got %v", gen.parts[1])
	}

	gen.text = ""
	if got := svc.AnalyzeMedia(context.Background(), []byte{1}, "image/jpeg", "Describe"); got.Text != MediaEmptyReply || !got.Fallback {
		t.Fatalf("expected empty reply, got %+v", got)
	}

	gen.err = errors.New("blocked")
	if got := svc.AnalyzeMedia(context.Background(), []byte{1}, "image/jpeg", "Describe"); got.Text != MediaFailureReply || !got.Fallback {
		t.Fatalf("expected failure reply, got %+v", got)
	}
}

func TestAnalyzeMedia_LargeUploadUsesFileAPI(t *testing.T) {
	gen := &fakeGenerator{text: "ok"}
	svc := newContentService(gen, 1)

	svc.AnalyzeMedia(context.Background(), make([]byte, inlineLimit+1), "video/mp4", "Describe")
	if gen.fileCalls != 1 {
		t.Fatalf("expected File API upload, got %d", gen.fileCalls)
	}
}

func TestTranscribe(t *testing.T) {
	gen := &fakeGenerator{text: "Alhamdulillah"}
	svc := newContentService(gen, 1)

	got := svc.Transcribe(context.Background(), []byte{1, 2}, "audio/webm")
	if got.Text != "Alhamdulillah" || gen.model != ModelFlash {
		t.Fatalf("unexpected transcription %+v on %s", got, gen.model)
	}

	if got := svc.Transcribe(context.Background(), nil, "audio/webm"); got.Text != TranscribeFailureReply {
		t.Fatalf("expected failure reply for empty audio, got %+v", got)
	}

	gen.text = ""
	if got := svc.Transcribe(context.Background(), []byte{1}, "audio/webm"); got.Text != TranscribeEmptyReply {
		t.Fatalf("expected empty reply, got %+v", got)
	}
}

func TestAnalyzeLecture_UsesLanguage(t *testing.T) {
	gen := &fakeGenerator{text: "Summary"}
	svc := newContentService(gen, 1)

	svc.AnalyzeLecture(context.Background(), "Tawheed", "transcript body", "", models.LanguageIndonesian)
	prompt := string(gen.parts[0].(genai.Text))
	if !strings.Contains(prompt, "Respond in Indonesian.") || !strings.Contains(prompt, "Lecture title: Tawheed") {
		t.Fatalf("unexpected lecture prompt %q", prompt)
	}
	if gen.system != SystemPrompt(models.LanguageIndonesian) {
		t.Fatalf("expected Al-Alim system prompt")
	}
}

func TestRateGate_RespectsContext(t *testing.T) {
	svc := newContentService(&fakeGenerator{}, 1)
	if err := svc.acquireRate(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := svc.acquireRate(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error while the only slot is held, got %v", err)
	}

	svc.releaseRate()
	if err := svc.acquireRate(context.Background()); err != nil {
		t.Fatalf("slot should be free again: %v", err)
	}
}
