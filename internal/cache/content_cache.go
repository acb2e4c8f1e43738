// Package cache keeps generated reading content in Redis so repeated
// requests for the same surah, hadith search or tafsir skip the model.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"alalim-backend/internal/models"
)

type ContentCache struct {
	client     *redisv9.Client
	readingTTL time.Duration
	verseTTL   time.Duration
}

func NewContentCache(client *redisv9.Client, readingTTL, verseTTL time.Duration) *ContentCache {
	if readingTTL <= 0 {
		readingTTL = 7 * 24 * time.Hour
	}
	if verseTTL <= 0 {
		verseTTL = 24 * time.Hour
	}
	return &ContentCache{
		client:     client,
		readingTTL: readingTTL,
		verseTTL:   verseTTL,
	}
}

// ReadingKey derives the cache key for a reading request. Free-text fields
// are trimmed and lower-cased so trivially different queries share an entry.
func ReadingKey(req models.ReadingRequest) string {
	norm := req
	norm.Query = strings.ToLower(strings.Join(strings.Fields(req.Query), " "))
	norm.Location = strings.ToLower(strings.Join(strings.Fields(req.Location), " "))
	norm.Book = strings.ToLower(strings.TrimSpace(req.Book))
	norm.BookType = strings.ToLower(strings.TrimSpace(req.BookType))

	payload, _ := json.Marshal(norm)
	sum := blake2b.Sum256(payload)
	return fmt.Sprintf("reading:%s:%s", req.Kind, hex.EncodeToString(sum[:16]))
}

func (c *ContentCache) GetReading(ctx context.Context, key string) (string, bool, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if err == redisv9.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get reading failed: %w", err)
	}
	return raw, true, nil
}

func (c *ContentCache) SetReading(ctx context.Context, key, content string) error {
	if err := c.client.Set(ctx, key, content, c.readingTTL).Err(); err != nil {
		return fmt.Errorf("redis set reading failed: %w", err)
	}
	return nil
}

func (c *ContentCache) GetDailyVerse(ctx context.Context, lang models.Language, day time.Time) (*models.DailyVerse, bool, error) {
	raw, err := c.client.Get(ctx, dailyVerseKey(lang, day)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get daily verse failed: %w", err)
	}

	var verse models.DailyVerse
	if err := json.Unmarshal([]byte(raw), &verse); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached daily verse failed: %w", err)
	}
	return &verse, true, nil
}

func (c *ContentCache) SetDailyVerse(ctx context.Context, verse *models.DailyVerse, day time.Time) error {
	payload, err := json.Marshal(verse)
	if err != nil {
		return fmt.Errorf("marshal daily verse failed: %w", err)
	}
	if err := c.client.Set(ctx, dailyVerseKey(verse.Language, day), payload, c.verseTTL).Err(); err != nil {
		return fmt.Errorf("redis set daily verse failed: %w", err)
	}
	return nil
}

// DayKey is the UTC calendar day a daily verse belongs to.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func dailyVerseKey(lang models.Language, day time.Time) string {
	return fmt.Sprintf("daily_verse:%s:%s", lang.Code(), DayKey(day))
}
