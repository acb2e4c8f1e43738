package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"alalim-backend/internal/models"
	"alalim-backend/internal/services"
)

type memJobs struct {
	jobs     map[uuid.UUID]*models.Job
	statuses []string
}

func (m *memJobs) GetByID(_ context.Context, id uuid.UUID) (*models.Job, error) {
	if j, ok := m.jobs[id]; ok {
		return j, nil
	}
	return nil, errors.New("not found")
}

func (m *memJobs) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	m.statuses = append(m.statuses, status)
	if j, ok := m.jobs[id]; ok {
		j.Status = status
	}
	return nil
}

func (m *memJobs) Complete(_ context.Context, id uuid.UUID, status, result string) error {
	m.statuses = append(m.statuses, status)
	j := m.jobs[id]
	j.Status = status
	j.Result = &result
	return nil
}

func (m *memJobs) UpdateError(_ context.Context, id uuid.UUID, errMsg string, retryCount int) error {
	j := m.jobs[id]
	j.ErrorMessage = &errMsg
	j.RetryCount = retryCount
	return nil
}

type fakeGen struct {
	prompt services.ReadingPrompt
	text   string
	err    error
}

func (f *fakeGen) GenerateReading(_ context.Context, p services.ReadingPrompt) (string, error) {
	f.prompt = p
	if f.err != nil {
		return "", f.err
	}
	if f.text == "" {
		return p.EmptyReply, nil
	}
	return f.text, nil
}

type memCache map[string]string

func (m memCache) SetReading(_ context.Context, key, content string) error {
	m[key] = content
	return nil
}

type recordingPub struct {
	types []string
	last  interface{}
}

func (r *recordingPub) Publish(_ context.Context, _ uuid.UUID, msg interface{}) error {
	m := msg.(models.WSMessage)
	r.types = append(r.types, m.Type)
	r.last = m.Payload
	return nil
}

type books map[string]string

func (b books) HadithBook(id string) (models.HadithBook, bool) {
	title, ok := b[id]
	return models.HadithBook{ID: id, Title: title}, ok
}

type retry struct {
	job     *models.Job
	backoff time.Duration
}

func newTestPool(gen *fakeGen, job *models.Job) (*Pool, *memJobs, memCache, *recordingPub, *[]retry) {
	jobs := &memJobs{jobs: map[uuid.UUID]*models.Job{job.ID: {ID: job.ID, Status: models.JobPending}}}
	cache := memCache{}
	pub := &recordingPub{}
	p := NewPool(nil, gen, cache, jobs, pub, books{"bukhari": "Sahih Al-Bukhari"}, 2)
	retries := &[]retry{}
	p.requeue = func(j *models.Job, d time.Duration) { *retries = append(*retries, retry{j, d}) }
	return p, jobs, cache, pub, retries
}

func readingJob(t *testing.T, req models.ReadingRequest) *models.Job {
	t.Helper()
	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	return &models.Job{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Type:       req.Kind,
		CacheKey:   "reading:test",
		ConfigJSON: raw,
		MaxRetries: 3,
	}
}

func TestProcess_SuccessCachesAndPublishes(t *testing.T) {
	gen := &fakeGen{text: "## Sahih Al-Bukhari 1"}
	job := readingJob(t, models.ReadingRequest{Kind: models.JobHadithSearch, Language: models.LanguageEnglish, Book: "bukhari", Query: "intention"})
	p, jobs, cache, pub, _ := newTestPool(gen, job)

	p.Process(context.Background(), job)

	if !strings.Contains(gen.prompt.Prompt, "Sahih Al-Bukhari") {
		t.Fatalf("prompt should use the book title: %q", gen.prompt.Prompt)
	}
	stored := jobs.jobs[job.ID]
	if stored.Status != models.JobCompleted || *stored.Result != gen.text {
		t.Fatalf("unexpected job state %+v", stored)
	}
	if cache["reading:test"] != gen.text {
		t.Fatalf("result should be cached")
	}
	if strings.Join(pub.types, ",") != "status_update,completed" {
		t.Fatalf("unexpected events %v", pub.types)
	}
	if ev := pub.last.(models.CompletedEvent); ev.Content != gen.text || ev.ResultType != models.JobHadithSearch {
		t.Fatalf("unexpected completed event %+v", ev)
	}
}

func TestProcess_EmptyReplyIsNotCached(t *testing.T) {
	gen := &fakeGen{}
	job := readingJob(t, models.ReadingRequest{Kind: models.JobQuranSurah, Language: models.LanguageBangla, Surah: 112})
	p, jobs, cache, _, _ := newTestPool(gen, job)

	p.Process(context.Background(), job)

	if *jobs.jobs[job.ID].Result != services.QuranEmptyReply {
		t.Fatalf("expected canned empty reply as result")
	}
	if len(cache) != 0 {
		t.Fatalf("empty reply should not be cached")
	}
}

func TestProcess_RetriesWithBackoffThenFails(t *testing.T) {
	gen := &fakeGen{err: errors.New("503 from upstream")}
	job := readingJob(t, models.ReadingRequest{Kind: models.JobTafsir, Language: models.LanguageBangla, Surah: 2, Ayah: 255})
	p, jobs, cache, pub, retries := newTestPool(gen, job)

	p.Process(context.Background(), job)
	p.Process(context.Background(), job)

	if len(*retries) != 2 || (*retries)[0].backoff != 2*time.Second || (*retries)[1].backoff != 4*time.Second {
		t.Fatalf("unexpected retries %+v", *retries)
	}
	if jobs.jobs[job.ID].Status != models.JobPending {
		t.Fatalf("retrying job should be pending")
	}

	p.Process(context.Background(), job)

	stored := jobs.jobs[job.ID]
	if stored.Status != models.JobFailed || *stored.Result != services.TafsirFailureReply || stored.RetryCount != 3 {
		t.Fatalf("unexpected final state %+v", stored)
	}
	if len(cache) != 0 {
		t.Fatalf("failures should not be cached")
	}
	if pub.types[len(pub.types)-1] != "error" {
		t.Fatalf("expected final error event, got %v", pub.types)
	}
}

func TestProcess_SkipsCancelledJob(t *testing.T) {
	gen := &fakeGen{text: "content"}
	job := readingJob(t, models.ReadingRequest{Kind: models.JobQuranSurah, Surah: 1})
	p, jobs, _, pub, retries := newTestPool(gen, job)
	jobs.jobs[job.ID].Status = models.JobFailed

	p.Process(context.Background(), job)

	if gen.prompt.Prompt != "" || len(pub.types) != 0 || len(*retries) != 0 {
		t.Fatalf("cancelled job must not run")
	}
}

func TestProcess_BadConfigFails(t *testing.T) {
	for _, job := range []*models.Job{
		{ID: uuid.New(), Type: "poetry", ConfigJSON: []byte(`{"kind":"poetry"}`), MaxRetries: 3},
		{ID: uuid.New(), Type: models.JobQuranSurah, ConfigJSON: []byte(`{not json`), MaxRetries: 3},
	} {
		gen := &fakeGen{}
		p, jobs, _, pub, retries := newTestPool(gen, job)

		p.Process(context.Background(), job)

		if len(*retries) != 0 || jobs.jobs[job.ID].Status != models.JobFailed || jobs.jobs[job.ID].RetryCount != 1 {
			t.Fatalf("%s: bad config should fail on the first attempt, retries %d", job.Type, len(*retries))
		}
		if gen.prompt.Prompt != "" || len(pub.types) == 0 || pub.types[len(pub.types)-1] != "error" {
			t.Fatalf("%s: expected an error event without a model call, got %v", job.Type, pub.types)
		}
	}
}
