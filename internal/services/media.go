package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"alalim-backend/internal/audio"
	"alalim-backend/internal/models"
)

const (
	MaxUploadBytes   = 20 << 20
	maxImagePrompt   = 2000
	maxSpeechChars   = 5000
	maxLecturePrompt = 2000
)

type mediaModel interface {
	AnalyzeMedia(ctx context.Context, data []byte, mimeType, prompt string) models.MediaAnalysis
	AnalyzeDocument(ctx context.Context, filename, text, prompt string) models.MediaAnalysis
	AnalyzeLecture(ctx context.Context, title, transcript, prompt string, lang models.Language) models.MediaAnalysis
	Transcribe(ctx context.Context, data []byte, mimeType string) models.MediaAnalysis
	TranscribeRaw(ctx context.Context, data []byte, mimeType string) (string, error)
}

type textExtractor interface {
	ExtractText(filename, mimeType string, data []byte) (string, error)
}

type videoSource interface {
	GetTranscript(ctx context.Context, videoID string, lang models.Language) (string, error)
	DownloadAudio(ctx context.Context, videoID string) ([]byte, string, error)
	GetTitle(ctx context.Context, videoID string) string
}

type studio interface {
	Speak(ctx context.Context, text string) ([]byte, int, error)
	GenerateImages(ctx context.Context, req models.ImageRequest) ([]models.GeneratedImage, error)
}

// MediaService backs the media studio and the audio tools.
type MediaService struct {
	model  mediaModel
	docs   textExtractor
	videos videoSource
	studio studio
	langs  languageSource
}

func NewMediaService(model mediaModel, docs textExtractor, videos videoSource, studio studio, langs languageSource) *MediaService {
	return &MediaService{model: model, docs: docs, videos: videos, studio: studio, langs: langs}
}

type Upload struct {
	Filename string
	MIMEType string
	Data     []byte
}

func validateUpload(u Upload, field string) error {
	if len(u.Data) == 0 {
		return fieldError(field, "File is required")
	}
	if len(u.Data) > MaxUploadBytes {
		return fieldError(field, fmt.Sprintf("File must be at most %d MB", MaxUploadBytes>>20))
	}
	return nil
}

// Analyze describes an image or video, or analyzes the text of a document.
func (s *MediaService) Analyze(ctx context.Context, u Upload, prompt string) (*models.MediaAnalysis, error) {
	if err := validateUpload(u, "file"); err != nil {
		return nil, err
	}

	if IsDocument(u.Filename, u.MIMEType) {
		text, err := s.docs.ExtractText(u.Filename, u.MIMEType, u.Data)
		if err != nil {
			return nil, fieldError("file", fmt.Sprintf("Could not read document: %v", err))
		}
		res := s.model.AnalyzeDocument(ctx, u.Filename, text, prompt)
		return &res, nil
	}

	if !strings.HasPrefix(u.MIMEType, "image/") && !strings.HasPrefix(u.MIMEType, "video/") {
		return nil, fieldError("file", "Upload an image, a video or a PDF, DOCX or TXT document")
	}
	res := s.model.AnalyzeMedia(ctx, u.Data, u.MIMEType, prompt)
	return &res, nil
}

// AnalyzeYouTube analyzes a lecture from its captions, transcribing the audio
// track when no captions exist.
func (s *MediaService) AnalyzeYouTube(ctx context.Context, userID uuid.UUID, req models.YouTubeAnalysisRequest) (*models.MediaAnalysis, error) {
	videoID, err := ExtractVideoID(req.URL)
	if err != nil {
		return nil, fieldError("url", "A valid YouTube link is required")
	}
	if utf8.RuneCountInString(req.Prompt) > maxLecturePrompt {
		return nil, fieldError("prompt", fmt.Sprintf("Prompt must be at most %d characters", maxLecturePrompt))
	}

	lang := userLanguage(ctx, s.langs, userID)
	transcript, err := s.videos.GetTranscript(ctx, videoID, lang)
	if err != nil {
		log.Printf("youtube %s: captions unavailable, falling back to audio: %v", videoID, err)
		track, mimeType, dlErr := s.videos.DownloadAudio(ctx, videoID)
		if dlErr != nil {
			log.Printf("youtube %s: audio download failed: %v", videoID, dlErr)
			return &models.MediaAnalysis{Text: MediaFailureReply, Fallback: true}, nil
		}
		transcript, err = s.model.TranscribeRaw(ctx, track, mimeType)
		if err != nil || strings.TrimSpace(transcript) == "" {
			log.Printf("youtube %s: transcription failed: %v", videoID, err)
			return &models.MediaAnalysis{Text: MediaFailureReply, Fallback: true}, nil
		}
	}

	title := s.videos.GetTitle(ctx, videoID)
	res := s.model.AnalyzeLecture(ctx, title, truncateRunes(transcript, maxDocumentChars), req.Prompt, lang)
	return &res, nil
}

// Transcribe turns recorded speech into text.
func (s *MediaService) Transcribe(ctx context.Context, u Upload) (*models.MediaAnalysis, error) {
	if err := validateUpload(u, "audio"); err != nil {
		return nil, err
	}
	mimeType := u.MIMEType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = "audio/webm"
	}
	if !strings.HasPrefix(mimeType, "audio/") && !strings.HasPrefix(mimeType, "video/") {
		return nil, fieldError("audio", "Upload an audio recording")
	}
	res := s.model.Transcribe(ctx, u.Data, mimeType)
	return &res, nil
}

// Speak synthesizes text with the default voice and returns it as a WAV file.
func (s *MediaService) Speak(ctx context.Context, req models.SpeechRequest) (*models.SpeechResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fieldError("text", "Text is required")
	}
	if utf8.RuneCountInString(text) > maxSpeechChars {
		return nil, fieldError("text", fmt.Sprintf("Text must be at most %d characters", maxSpeechChars))
	}

	pcm, rate, err := s.studio.Speak(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis: %w", err)
	}
	return speechResponse(pcm, rate), nil
}

// GenerateImages validates the options and renders the prompt.
func (s *MediaService) GenerateImages(ctx context.Context, req models.ImageRequest) (*models.ImageResponse, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.AspectRatio == "" {
		req.AspectRatio = "1:1"
	}
	if req.Size == "" {
		req.Size = models.ImageSize1K
	}

	fields := make(map[string]string)
	if req.Prompt == "" {
		fields["prompt"] = "Prompt is required"
	} else if utf8.RuneCountInString(req.Prompt) > maxImagePrompt {
		fields["prompt"] = fmt.Sprintf("Prompt must be at most %d characters", maxImagePrompt)
	}
	if !req.AspectRatio.Valid() {
		fields["aspect_ratio"] = "Unsupported aspect ratio"
	}
	if !req.Size.Valid() {
		fields["size"] = "Size must be 1K, 2K or 4K"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	images, err := s.studio.GenerateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("image generation: %w", err)
	}
	return &models.ImageResponse{Images: images, AspectRatio: req.AspectRatio.Rendered()}, nil
}

func speechResponse(pcm []byte, rate int) *models.SpeechResponse {
	return &models.SpeechResponse{
		Audio:      audio.EncodeBase64(audio.WAV(pcm, rate, 1)),
		MIMEType:   "audio/wav",
		SampleRate: rate,
		Duration:   audio.Duration(len(pcm), rate, 1).Seconds(),
	}
}
