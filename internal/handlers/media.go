package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"alalim-backend/internal/middleware"
	"alalim-backend/internal/models"
	"alalim-backend/internal/services"
)

type mediaService interface {
	Analyze(ctx context.Context, u services.Upload, prompt string) (*models.MediaAnalysis, error)
	AnalyzeYouTube(ctx context.Context, userID uuid.UUID, req models.YouTubeAnalysisRequest) (*models.MediaAnalysis, error)
	Transcribe(ctx context.Context, u services.Upload) (*models.MediaAnalysis, error)
	Speak(ctx context.Context, req models.SpeechRequest) (*models.SpeechResponse, error)
	GenerateImages(ctx context.Context, req models.ImageRequest) (*models.ImageResponse, error)
}

// MediaHandler serves the media studio and the speech tools.
type MediaHandler struct {
	media mediaService
}

func NewMediaHandler(media mediaService) *MediaHandler {
	return &MediaHandler{media: media}
}

// readUpload reads one multipart file field into memory. On failure it
// writes the response and returns false.
func readUpload(w http.ResponseWriter, r *http.Request, field string) (services.Upload, bool) {
	if r.ContentLength > services.MaxUploadBytes+1<<20 {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds 20MB limit", r))
		return services.Upload{}, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxUploadBytes+1<<20)

	file, header, err := r.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds 20MB limit", r))
			return services.Upload{}, false
		}
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "No file provided",
			map[string]string{field: "File is required"}, r))
		return services.Upload{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, services.MaxUploadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Could not read upload", r))
		return services.Upload{}, false
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.Index(mimeType, ";"); i >= 0 && !strings.HasPrefix(mimeType, "audio/") {
		mimeType = mimeType[:i]
	}

	return services.Upload{Filename: header.Filename, MIMEType: mimeType, Data: data}, true
}

func (h *MediaHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	upload, ok := readUpload(w, r, "file")
	if !ok {
		return
	}

	res, err := h.media.Analyze(r.Context(), upload, r.FormValue("prompt"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *MediaHandler) YouTube(w http.ResponseWriter, r *http.Request) {
	var req models.YouTubeAnalysisRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.media.AnalyzeYouTube(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *MediaHandler) Images(w http.ResponseWriter, r *http.Request) {
	var req models.ImageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.media.GenerateImages(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *MediaHandler) Speech(w http.ResponseWriter, r *http.Request) {
	var req models.SpeechRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.media.Speak(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Transcribe serves both the audio tool and chat voice input.
func (h *MediaHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	upload, ok := readUpload(w, r, "audio")
	if !ok {
		return
	}

	res, err := h.media.Transcribe(r.Context(), upload)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Dictate transcribes chat voice input. The text is appended to the message
// box, so a failed or empty transcription returns no text.
func (h *MediaHandler) Dictate(w http.ResponseWriter, r *http.Request) {
	upload, ok := readUpload(w, r, "audio")
	if !ok {
		return
	}

	res, err := h.media.Transcribe(r.Context(), upload)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if res.Fallback {
		res = &models.MediaAnalysis{Fallback: true}
	}
	writeJSON(w, http.StatusOK, res)
}
