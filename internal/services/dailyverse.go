package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"alalim-backend/internal/cache"
	"alalim-backend/internal/models"
)

const (
	dailyVersePollInterval = 1 * time.Hour
	dailyVerseTimeout      = 90 * time.Second
)

type verseCache interface {
	GetDailyVerse(ctx context.Context, lang models.Language, day time.Time) (*models.DailyVerse, bool, error)
	SetDailyVerse(ctx context.Context, verse *models.DailyVerse, day time.Time) error
}

type verseModel interface {
	DailyVerse(ctx context.Context, lang models.Language) (string, error)
}

// DailyVerseService serves one verse per language per UTC day.
type DailyVerseService struct {
	cache verseCache
	model verseModel
	langs languageSource
	now   func() time.Time
}

func NewDailyVerseService(cache verseCache, model verseModel, langs languageSource) *DailyVerseService {
	return &DailyVerseService{cache: cache, model: model, langs: langs, now: time.Now}
}

// ForUser returns today's verse in the user's language.
func (s *DailyVerseService) ForUser(ctx context.Context, userID uuid.UUID) *models.DailyVerse {
	return s.Get(ctx, userLanguage(ctx, s.langs, userID))
}

// Get returns today's verse for lang. A failed generation yields an empty
// verse that is not cached, so the next request tries again.
func (s *DailyVerseService) Get(ctx context.Context, lang models.Language) *models.DailyVerse {
	day := s.now().UTC()

	verse, ok, err := s.cache.GetDailyVerse(ctx, lang, day)
	if err != nil {
		log.Printf("daily verse: cache read for %s failed: %v", lang, err)
	}
	if ok {
		return verse
	}

	verse = &models.DailyVerse{Language: lang, Date: cache.DayKey(day)}
	text, err := s.model.DailyVerse(ctx, lang)
	if err != nil {
		log.Printf("daily verse: generation for %s failed: %v", lang, err)
		return verse
	}
	if text == "" {
		return verse
	}

	verse.Text = text
	if err := s.cache.SetDailyVerse(ctx, verse, day); err != nil {
		log.Printf("daily verse: cache write for %s failed: %v", lang, err)
	}
	return verse
}

type languageLister interface {
	ListLanguagesInUse(ctx context.Context) ([]models.Language, error)
}

// DailyVerseScheduler generates each day's verses ahead of the first request
// for every language someone has selected.
type DailyVerseScheduler struct {
	verses   *DailyVerseService
	langs    languageLister
	stopChan chan struct{}
}

func NewDailyVerseScheduler(verses *DailyVerseService, langs languageLister) *DailyVerseScheduler {
	return &DailyVerseScheduler{
		verses:   verses,
		langs:    langs,
		stopChan: make(chan struct{}),
	}
}

func (s *DailyVerseScheduler) Start() {
	if s.verses == nil || s.langs == nil {
		return
	}
	go s.loop()
	log.Printf("Daily verse scheduler started")
}

func (s *DailyVerseScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *DailyVerseScheduler) loop() {
	// Run on startup as well as by interval.
	s.prewarm()

	ticker := time.NewTicker(dailyVersePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.prewarm()
		}
	}
}

func (s *DailyVerseScheduler) prewarm() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(len(models.Languages))*dailyVerseTimeout)
	defer cancel()

	inUse, err := s.langs.ListLanguagesInUse(ctx)
	if err != nil {
		log.Printf("daily verse: failed to list languages: %v", err)
		inUse = nil
	}

	for _, lang := range prewarmLanguages(inUse) {
		select {
		case <-s.stopChan:
			return
		default:
		}
		if v := s.verses.Get(ctx, lang); v.Text == "" {
			log.Printf("daily verse: prewarm for %s produced no verse", lang)
		}
	}
}

// prewarmLanguages is the default language followed by the languages in use,
// without duplicates.
func prewarmLanguages(inUse []models.Language) []models.Language {
	seen := map[models.Language]bool{models.DefaultLanguage: true}
	out := []models.Language{models.DefaultLanguage}
	for _, lang := range inUse {
		if !lang.Valid() || seen[lang] {
			continue
		}
		seen[lang] = true
		out = append(out, lang)
	}
	return out
}
