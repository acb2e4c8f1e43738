package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"alalim-backend/internal/models"
)

type memVerseCache struct {
	verses map[string]*models.DailyVerse
	writes int
}

func (m *memVerseCache) key(lang models.Language, day time.Time) string {
	return string(lang) + "|" + day.UTC().Format("2006-01-02")
}

func (m *memVerseCache) GetDailyVerse(_ context.Context, lang models.Language, day time.Time) (*models.DailyVerse, bool, error) {
	v, ok := m.verses[m.key(lang, day)]
	return v, ok, nil
}

func (m *memVerseCache) SetDailyVerse(_ context.Context, v *models.DailyVerse, day time.Time) error {
	m.writes++
	m.verses[m.key(v.Language, day)] = v
	return nil
}

type fakeVerseModel struct {
	calls int
	text  string
	err   error
}

func (f *fakeVerseModel) DailyVerse(context.Context, models.Language) (string, error) {
	f.calls++
	return f.text, f.err
}

func newTestDailyVerse(model *fakeVerseModel, now time.Time) (*DailyVerseService, *memVerseCache) {
	c := &memVerseCache{verses: map[string]*models.DailyVerse{}}
	svc := NewDailyVerseService(c, model, fixedLanguage(models.LanguageEnglish))
	svc.now = func() time.Time { return now }
	return svc, c
}

func TestDailyVerse_CachedPerDay(t *testing.T) {
	now := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	model := &fakeVerseModel{text: "Indeed, with hardship comes ease."}
	svc, _ := newTestDailyVerse(model, now)

	first := svc.ForUser(context.Background(), uuid.New())
	if first.Text != model.text || first.Date != "2026-03-01" || first.Language != models.LanguageEnglish {
		t.Fatalf("unexpected verse %+v", first)
	}
	svc.Get(context.Background(), models.LanguageEnglish)
	if model.calls != 1 {
		t.Fatalf("expected one generation per day, got %d", model.calls)
	}

	svc.now = func() time.Time { return now.Add(2 * time.Hour) }
	next := svc.Get(context.Background(), models.LanguageEnglish)
	if model.calls != 2 || next.Date != "2026-03-02" {
		t.Fatalf("a new UTC day should generate a new verse, calls=%d date=%s", model.calls, next.Date)
	}
}

func TestDailyVerse_FailureIsEmptyAndNotCached(t *testing.T) {
	model := &fakeVerseModel{err: errors.New("quota")}
	svc, c := newTestDailyVerse(model, time.Now())

	v := svc.Get(context.Background(), models.LanguageArabic)
	if v.Text != "" || v.Language != models.LanguageArabic {
		t.Fatalf("expected empty verse, got %+v", v)
	}
	if c.writes != 0 {
		t.Fatalf("failed verse should not be cached")
	}

	model.err = nil
	model.text = "verse"
	if got := svc.Get(context.Background(), models.LanguageArabic); got.Text != "verse" {
		t.Fatalf("expected retry after failure, got %+v", got)
	}
}

func TestPrewarmLanguages(t *testing.T) {
	got := prewarmLanguages([]models.Language{models.LanguageEnglish, models.LanguageBangla, "Klingon", models.LanguageEnglish})
	want := []models.Language{models.DefaultLanguage, models.LanguageEnglish}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("prewarmLanguages() = %v, want %v", got, want)
	}
}

type staticLanguages []models.Language

func (s staticLanguages) ListLanguagesInUse(context.Context) ([]models.Language, error) {
	return s, nil
}

func TestDailyVerseScheduler_PrewarmsLanguagesInUse(t *testing.T) {
	model := &fakeVerseModel{text: "verse"}
	svc, c := newTestDailyVerse(model, time.Now())

	sched := NewDailyVerseScheduler(svc, staticLanguages{models.LanguageUrdu})
	sched.prewarm()

	if model.calls != 2 || c.writes != 2 {
		t.Fatalf("expected default and Urdu verses, calls=%d writes=%d", model.calls, c.writes)
	}

	sched.Stop()
	sched.Stop()
}
