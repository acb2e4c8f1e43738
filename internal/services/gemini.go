package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"alalim-backend/internal/models"
)

// inlineLimit is the largest payload sent inline; bigger uploads go through
// the File API.
const inlineLimit = 8 << 20

// generator is the part of the Gemini SDK the content service uses.
type generator interface {
	Generate(ctx context.Context, model, system string, parts ...genai.Part) (string, error)
	GenerateWithFile(ctx context.Context, model, system, prompt string, data []byte, mimeType string) (string, error)
	Close() error
}

// ContentService runs the one-shot text generations behind the reading
// screens, the daily verse, media analysis and transcription.
type ContentService struct {
	gen      generator
	rateChan chan struct{} // Token bucket
}

func NewContentService(ctx context.Context, apiKey string, concurrentReqs int) (*ContentService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newContentService(&sdkGenerator{client: client}, concurrentReqs), nil
}

func newContentService(gen generator, concurrentReqs int) *ContentService {
	if concurrentReqs <= 0 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}
	return &ContentService{gen: gen, rateChan: rateChan}
}

func (s *ContentService) Close() {
	s.gen.Close()
}

// acquireRate blocks until a rate slot is available
func (s *ContentService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *ContentService) releaseRate() {
	s.rateChan <- struct{}{}
}

func (s *ContentService) generate(ctx context.Context, model, system string, parts ...genai.Part) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	text, err := s.gen.Generate(ctx, model, system, parts...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// GenerateReading runs a reading prompt. An empty answer is replaced by the
// prompt's empty reply; errors are returned so the caller can retry.
func (s *ContentService) GenerateReading(ctx context.Context, p ReadingPrompt) (string, error) {
	text, err := s.generate(ctx, p.Model, p.System, genai.Text(p.Prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini reading error: %w", err)
	}
	if text == "" {
		return p.EmptyReply, nil
	}
	return text, nil
}

// DailyVerse asks for one short ayah in lang.
func (s *ContentService) DailyVerse(ctx context.Context, lang models.Language) (string, error) {
	text, err := s.generate(ctx, ModelFlash, SystemPrompt(lang), genai.Text(DailyVersePrompt))
	if err != nil {
		return "", fmt.Errorf("Gemini daily verse error: %w", err)
	}
	return text, nil
}

// AnalyzeMedia describes an image or video. Failures are logged and replaced
// with the canned reply.
func (s *ContentService) AnalyzeMedia(ctx context.Context, data []byte, mimeType, prompt string) models.MediaAnalysis {
	if strings.TrimSpace(prompt) == "" {
		prompt = MediaDefaultPrompt
	}

	var (
		text string
		err  error
	)
	if len(data) > inlineLimit {
		text, err = s.generateWithFile(ctx, ModelPro, "", prompt, data, mimeType)
	} else {
		text, err = s.generate(ctx, ModelPro, "", genai.Blob{MIMEType: mimeType, Data: data}, genai.Text(prompt))
	}
	return mediaResult(text, err, MediaEmptyReply, MediaFailureReply, "media analysis")
}

// AnalyzeDocument runs the analysis prompt over text extracted from an upload.
func (s *ContentService) AnalyzeDocument(ctx context.Context, filename, text, prompt string) models.MediaAnalysis {
	if strings.TrimSpace(prompt) == "" {
		prompt = "Analyze this document from an Islamic perspective and summarize its key points."
	}
	out, err := s.generate(ctx, ModelPro, "", genai.Text(DocumentPrompt(prompt, filename, text)))
	return mediaResult(out, err, MediaEmptyReply, MediaFailureReply, "document analysis")
}

// AnalyzeLecture analyzes a lecture transcript in lang.
func (s *ContentService) AnalyzeLecture(ctx context.Context, title, transcript, prompt string, lang models.Language) models.MediaAnalysis {
	out, err := s.generate(ctx, ModelFlash, SystemPrompt(lang), genai.Text(LecturePrompt(prompt, title, transcript, lang)))
	return mediaResult(out, err, MediaEmptyReply, MediaFailureReply, "lecture analysis")
}

// Transcribe returns a word-for-word transcript, or the canned reply.
func (s *ContentService) Transcribe(ctx context.Context, audio []byte, mimeType string) models.MediaAnalysis {
	text, err := s.TranscribeRaw(ctx, audio, mimeType)
	return mediaResult(text, err, TranscribeEmptyReply, TranscribeFailureReply, "transcription")
}

// TranscribeRaw returns the transcript or an error, with no canned fallback.
func (s *ContentService) TranscribeRaw(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("audio payload is empty")
	}
	if len(audio) > inlineLimit {
		return s.generateWithFile(ctx, ModelFlash, "", TranscribePrompt, audio, mimeType)
	}
	return s.generate(ctx, ModelFlash, "", genai.Blob{MIMEType: mimeType, Data: audio}, genai.Text(TranscribePrompt))
}

func (s *ContentService) generateWithFile(ctx context.Context, model, system, prompt string, data []byte, mimeType string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	text, err := s.gen.GenerateWithFile(ctx, model, system, prompt, data, mimeType)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func mediaResult(text string, err error, empty, failure, what string) models.MediaAnalysis {
	if err != nil {
		log.Printf("Gemini %s failed: %v", what, err)
		return models.MediaAnalysis{Text: failure, Fallback: true}
	}
	if text == "" {
		return models.MediaAnalysis{Text: empty, Fallback: true}
	}
	return models.MediaAnalysis{Text: text}
}

// sdkGenerator adapts the generative-ai-go client.
type sdkGenerator struct {
	client *genai.Client
}

func (g *sdkGenerator) model(name, system string) *genai.GenerativeModel {
	m := g.client.GenerativeModel(name)
	m.SetTemperature(0.4)
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	return m
}

func (g *sdkGenerator) Generate(ctx context.Context, model, system string, parts ...genai.Part) (string, error) {
	resp, err := g.model(model, system).GenerateContent(ctx, parts...)
	if err != nil {
		return "", err
	}
	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop && cand.FinishReason != genai.FinishReasonUnspecified {
			log.Printf("WARNING: Gemini candidate %d stopped due to %s", i, cand.FinishReason)
		}
	}
	return extractText(resp), nil
}

// GenerateWithFile uploads data through the File API, waits for it to become
// active and runs prompt against it. The remote file is always deleted.
func (g *sdkGenerator) GenerateWithFile(ctx context.Context, model, system, prompt string, data []byte, mimeType string) (string, error) {
	file, err := g.client.UploadFile(ctx, "", bytes.NewReader(data), &genai.UploadFileOptions{
		DisplayName: "al-alim-upload",
		MIMEType:    mimeType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to Gemini: %w", err)
	}
	defer g.client.DeleteFile(context.Background(), file.Name)

	for i := 0; i < 20 && file.State != genai.FileStateActive; i++ {
		current, getErr := g.client.GetFile(ctx, file.Name)
		if getErr != nil {
			return "", fmt.Errorf("failed to get uploaded file status: %w", getErr)
		}
		file = current
		if file.State == genai.FileStateActive {
			break
		}
		if file.State == genai.FileStateFailed {
			return "", fmt.Errorf("Gemini failed to process uploaded file")
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	if file.State != genai.FileStateActive {
		return "", fmt.Errorf("uploaded file did not become active in time")
	}

	return g.Generate(ctx, model, system, genai.FileData{MIMEType: mimeType, URI: file.URI}, genai.Text(prompt))
}

func (g *sdkGenerator) Close() error {
	return g.client.Close()
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
