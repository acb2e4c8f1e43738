package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"alalim-backend/internal/models"
	"alalim-backend/internal/services"
)

// ReadingQueue holds every reading job: surahs, hadith searches, tafsir and
// the book reader.
const ReadingQueue = "queue:reading"

const (
	lockTTL    = 10 * time.Minute
	popTimeout = 30 * time.Second
)

var errCancelled = errors.New("job was cancelled")

// permanentError marks a failure that a retry cannot fix, such as a job
// config that no longer decodes.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return &permanentError{err: err} }

type jobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Complete(ctx context.Context, id uuid.UUID, status, result string) error
	UpdateError(ctx context.Context, id uuid.UUID, errMsg string, retryCount int) error
}

type readingGenerator interface {
	GenerateReading(ctx context.Context, p services.ReadingPrompt) (string, error)
}

type readingCache interface {
	SetReading(ctx context.Context, key, content string) error
}

type publisher interface {
	Publish(ctx context.Context, userID uuid.UUID, msg interface{}) error
}

type hadithBooks interface {
	HadithBook(id string) (models.HadithBook, bool)
}

// Queue pushes reading jobs for the pool.
type Queue struct {
	redis *redis.Client
}

func NewQueue(redisClient *redis.Client) *Queue {
	return &Queue{redis: redisClient}
}

func (q *Queue) Enqueue(ctx context.Context, job *models.Job) error {
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.redis.RPush(ctx, ReadingQueue, jobBytes).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

type Pool struct {
	redis       *redis.Client
	gen         readingGenerator
	cache       readingCache
	jobs        jobStore
	pub         publisher
	books       hadithBooks
	workerCount int
	stopChan    chan struct{}

	// requeue schedules a retry; replaced in tests.
	requeue func(job *models.Job, backoff time.Duration)
}

func NewPool(
	redisClient *redis.Client,
	gen readingGenerator,
	cache readingCache,
	jobs jobStore,
	pub publisher,
	books hadithBooks,
	workerCount int,
) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	p := &Pool{
		redis:       redisClient,
		gen:         gen,
		cache:       cache,
		jobs:        jobs,
		pub:         pub,
		books:       books,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
	p.requeue = p.requeueAfter
	return p
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	select {
	case <-p.stopChan:
	default:
		close(p.stopChan)
	}
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, popTimeout, ReadingQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}
		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", job.ID)
		locked, err := p.redis.SetNX(ctx, lockKey, "1", lockTTL).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)
		p.Process(ctx, &job)

		p.redis.Del(ctx, lockKey)
	}
}

// Process runs one reading job to completion, scheduling a retry on failure.
func (p *Pool) Process(ctx context.Context, job *models.Job) {
	content, prompt, err := p.run(ctx, job)
	switch {
	case errors.Is(err, errCancelled):
		log.Printf("Job %s was cancelled, skipping", job.ID)
	case err != nil:
		p.handleFailure(ctx, job, prompt, err)
	default:
		p.handleSuccess(ctx, job, prompt, content)
	}
}

func (p *Pool) run(ctx context.Context, job *models.Job) (string, services.ReadingPrompt, error) {
	var req models.ReadingRequest
	if err := json.Unmarshal(job.ConfigJSON, &req); err != nil {
		return "", services.ReadingPrompt{}, permanent(fmt.Errorf("invalid job config: %w", err))
	}
	if req.Kind == "" {
		req.Kind = job.Type
	}

	title := ""
	if book, ok := p.books.HadithBook(req.Book); ok {
		title = book.Title
	}
	prompt, err := services.BuildReadingPrompt(req, title)
	if err != nil {
		return "", prompt, permanent(err)
	}

	current, err := p.jobs.GetByID(ctx, job.ID)
	if err == nil && current.Status == models.JobFailed {
		return "", prompt, errCancelled
	}

	p.jobs.UpdateStatus(ctx, job.ID, models.JobProcessing)
	p.publish(ctx, job.UserID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusUpdate{
			JobID:    job.ID,
			Step:     1,
			StepName: stepName(job.Type),
		},
	})

	content, err := p.gen.GenerateReading(ctx, prompt)
	return content, prompt, err
}

func stepName(jobType string) string {
	switch jobType {
	case models.JobQuranSurah:
		return "Loading surah"
	case models.JobHadithSearch:
		return "Searching hadith collections"
	case models.JobTafsir:
		return "Preparing tafsir"
	default:
		return "Fetching content"
	}
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job, prompt services.ReadingPrompt, content string) {
	if err := p.jobs.Complete(ctx, job.ID, models.JobCompleted, content); err != nil {
		log.Printf("Job %s: failed to store result: %v", job.ID, err)
	}

	// Empty replies are not cached.
	if content != prompt.EmptyReply && job.CacheKey != "" {
		if err := p.cache.SetReading(ctx, job.CacheKey, content); err != nil {
			log.Printf("Job %s: failed to cache result: %v", job.ID, err)
		}
	}

	p.publish(ctx, job.UserID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:      job.ID,
			ResultType: job.Type,
			Content:    content,
		},
	})

	log.Printf("Job %s completed successfully", job.ID)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, prompt services.ReadingPrompt, err error) {
	job.RetryCount++
	errMsg := err.Error()

	maxRetries := job.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var perm *permanentError
	if job.RetryCount < maxRetries && !errors.As(err, &perm) {
		log.Printf("Job %s failed (attempt %d): %s, retrying", job.ID, job.RetryCount, errMsg)
		p.jobs.UpdateStatus(ctx, job.ID, models.JobPending)
		p.jobs.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		p.requeue(job, backoff)
		return
	}

	log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
	p.jobs.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

	// The canned failure text becomes the job result.
	failure := prompt.FailureReply
	if failure == "" {
		failure = services.BookFailureReply
	}
	if err := p.jobs.Complete(ctx, job.ID, models.JobFailed, failure); err != nil {
		log.Printf("Job %s: failed to store failure: %v", job.ID, err)
	}

	p.publish(ctx, job.UserID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    "JOB_FAILED",
			ErrorMessage: failure,
		},
	})
}

func (p *Pool) requeueAfter(job *models.Job, backoff time.Duration) {
	jobBytes, _ := json.Marshal(job)
	time.AfterFunc(backoff, func() {
		p.redis.RPush(context.Background(), ReadingQueue, string(jobBytes))
	})
}

func (p *Pool) publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	if p.pub == nil {
		return
	}
	if err := p.pub.Publish(ctx, userID, msg); err != nil {
		log.Printf("failed to publish %s for user %s: %v", msg.Type, userID, err)
	}
}
