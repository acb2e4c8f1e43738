package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"alalim-backend/internal/middleware"
	"alalim-backend/internal/models"
)

type readingService interface {
	ReadSurah(ctx context.Context, userID uuid.UUID, number int) (*models.ReadingResponse, error)
	SearchHadith(ctx context.Context, userID uuid.UUID, req models.HadithSearchRequest) (*models.ReadingResponse, error)
	Tafsir(ctx context.Context, userID uuid.UUID, req models.TafsirRequest) (*models.ReadingResponse, error)
	ReadBook(ctx context.Context, userID uuid.UUID, req models.BookReadRequest) (*models.ReadingResponse, error)
	GetJob(ctx context.Context, userID, jobID uuid.UUID) (*models.Job, error)
	CancelJob(ctx context.Context, userID, jobID uuid.UUID) error
}

// ReadingHandler serves the Quran, Hadith, Tafsir and book reader screens.
// Cached content comes back with 200; anything else is queued and answered
// with 202 and the job id.
type ReadingHandler struct {
	reading readingService
}

func NewReadingHandler(reading readingService) *ReadingHandler {
	return &ReadingHandler{reading: reading}
}

func writeReading(w http.ResponseWriter, r *http.Request, res *models.ReadingResponse, err error) {
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if res.Cached {
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (h *ReadingHandler) ReadSurah(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"number": "Surah number must be between 1 and 114"}, r))
		return
	}

	res, err := h.reading.ReadSurah(r.Context(), middleware.GetUserID(r.Context()), number)
	writeReading(w, r, res, err)
}

func (h *ReadingHandler) SearchHadith(w http.ResponseWriter, r *http.Request) {
	var req models.HadithSearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.reading.SearchHadith(r.Context(), middleware.GetUserID(r.Context()), req)
	writeReading(w, r, res, err)
}

func (h *ReadingHandler) Tafsir(w http.ResponseWriter, r *http.Request) {
	var req models.TafsirRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.reading.Tafsir(r.Context(), middleware.GetUserID(r.Context()), req)
	writeReading(w, r, res, err)
}

func (h *ReadingHandler) ReadBook(w http.ResponseWriter, r *http.Request) {
	var req models.BookReadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.reading.ReadBook(r.Context(), middleware.GetUserID(r.Context()), req)
	writeReading(w, r, res, err)
}

// Job handlers

func jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid job ID", r))
		return uuid.Nil, false
	}
	return id, true
}

func (h *ReadingHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	job, err := h.reading.GetJob(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *ReadingHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	if err := h.reading.CancelJob(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Job cancelled"})
}
