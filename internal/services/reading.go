package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"alalim-backend/internal/cache"
	"alalim-backend/internal/catalog"
	"alalim-backend/internal/models"
)

const (
	maxHadithQuery  = 500
	maxBookLocation = 200
	maxAyah         = 286
)

type readingLookup interface {
	GetReading(ctx context.Context, key string) (string, bool, error)
}

type jobStore interface {
	Create(ctx context.Context, j *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	Cancel(ctx context.Context, id, userID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type jobQueue interface {
	Enqueue(ctx context.Context, job *models.Job) error
}

type bookCatalog interface {
	HadithBook(id string) (models.HadithBook, bool)
}

// ReadingService turns the reading screens into cached content or background
// jobs.
type ReadingService struct {
	cache readingLookup
	jobs  jobStore
	queue jobQueue
	books bookCatalog
	langs languageSource
}

func NewReadingService(cache readingLookup, jobs jobStore, queue jobQueue, books bookCatalog, langs languageSource) *ReadingService {
	return &ReadingService{cache: cache, jobs: jobs, queue: queue, books: books, langs: langs}
}

func (s *ReadingService) ReadSurah(ctx context.Context, userID uuid.UUID, number int) (*models.ReadingResponse, error) {
	if !catalog.ValidSurah(number) {
		return nil, fieldError("number", "Surah number must be between 1 and 114")
	}
	return s.submit(ctx, userID, models.ReadingRequest{Kind: models.JobQuranSurah, Surah: number})
}

func (s *ReadingService) SearchHadith(ctx context.Context, userID uuid.UUID, req models.HadithSearchRequest) (*models.ReadingResponse, error) {
	query := strings.TrimSpace(req.Query)
	fields := make(map[string]string)
	if _, ok := s.books.HadithBook(req.Book); !ok {
		fields["book"] = "Unknown hadith collection"
	}
	if query == "" {
		fields["query"] = "Search text is required"
	} else if utf8.RuneCountInString(query) > maxHadithQuery {
		fields["query"] = fmt.Sprintf("Search text must be at most %d characters", maxHadithQuery)
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return s.submit(ctx, userID, models.ReadingRequest{Kind: models.JobHadithSearch, Book: req.Book, Query: query})
}

func (s *ReadingService) Tafsir(ctx context.Context, userID uuid.UUID, req models.TafsirRequest) (*models.ReadingResponse, error) {
	fields := make(map[string]string)
	if !catalog.ValidSurah(req.Surah) {
		fields["surah"] = "Surah must be between 1 and 114"
	}
	if req.Ayah < 1 || req.Ayah > maxAyah {
		fields["ayah"] = fmt.Sprintf("Ayah must be between 1 and %d", maxAyah)
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return s.submit(ctx, userID, models.ReadingRequest{Kind: models.JobTafsir, Surah: req.Surah, Ayah: req.Ayah})
}

func (s *ReadingService) ReadBook(ctx context.Context, userID uuid.UUID, req models.BookReadRequest) (*models.ReadingResponse, error) {
	location := strings.TrimSpace(req.Location)
	fields := make(map[string]string)
	if req.Type != "quran" && req.Type != "hadith" {
		fields["type"] = "Type must be quran or hadith"
	}
	if location == "" {
		fields["location"] = "Location is required"
	} else if utf8.RuneCountInString(location) > maxBookLocation {
		fields["location"] = fmt.Sprintf("Location must be at most %d characters", maxBookLocation)
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return s.submit(ctx, userID, models.ReadingRequest{Kind: models.JobBookReader, BookType: req.Type, Location: location})
}

// submit answers from the cache, or queues a job and returns its id.
func (s *ReadingService) submit(ctx context.Context, userID uuid.UUID, req models.ReadingRequest) (*models.ReadingResponse, error) {
	req.Language = userLanguage(ctx, s.langs, userID)
	key := cache.ReadingKey(req)

	content, ok, err := s.cache.GetReading(ctx, key)
	if err != nil {
		log.Printf("reading: cache read failed: %v", err)
	}
	if ok {
		return &models.ReadingResponse{Content: content, Cached: true}, nil
	}

	config, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal reading request: %w", err)
	}
	job := &models.Job{
		UserID:     userID,
		Type:       req.Kind,
		CacheKey:   key,
		ConfigJSON: config,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.jobs.UpdateStatus(ctx, job.ID, models.JobFailed)
		return nil, err
	}

	return &models.ReadingResponse{JobID: &job.ID}, nil
}

// GetJob returns a job owned by userID.
func (s *ReadingService) GetJob(ctx context.Context, userID, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Message: "Job not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if job.UserID != userID {
		return nil, &NotFoundError{Message: "Job not found"}
	}
	return job, nil
}

// CancelJob stops a job that has not started yet.
func (s *ReadingService) CancelJob(ctx context.Context, userID, jobID uuid.UUID) error {
	if _, err := s.GetJob(ctx, userID, jobID); err != nil {
		return err
	}
	cancelled, err := s.jobs.Cancel(ctx, jobID, userID)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	if !cancelled {
		return &ConflictError{Message: "Job is already running or finished"}
	}
	return nil
}
