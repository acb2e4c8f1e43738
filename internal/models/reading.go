package models

import "github.com/google/uuid"

// ReadingRequest is the normalized input of every reading job. Only the
// fields relevant to Kind are set.
type ReadingRequest struct {
	Kind     string   `json:"kind"`
	Language Language `json:"language"`
	Surah    int      `json:"surah,omitempty"`
	Ayah     int      `json:"ayah,omitempty"`
	Book     string   `json:"book,omitempty"`
	Query    string   `json:"query,omitempty"`
	BookType string   `json:"book_type,omitempty"`
	Location string   `json:"location,omitempty"`
}

type HadithSearchRequest struct {
	Book  string `json:"book"`
	Query string `json:"query"`
}

type TafsirRequest struct {
	Surah int `json:"surah"`
	Ayah  int `json:"ayah"`
}

type BookReadRequest struct {
	Type     string `json:"type"` // "quran" | "hadith"
	Location string `json:"location"`
}

// ReadingResponse is returned by the reading endpoints: either cached content
// or a job to follow.
type ReadingResponse struct {
	Content string     `json:"content,omitempty"`
	Cached  bool       `json:"cached"`
	JobID   *uuid.UUID `json:"job_id,omitempty"`
}

type SurahEntry struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

type HadithBook struct {
	ID    string `json:"id" toml:"id"`
	Title string `json:"title" toml:"title"`
}

type DailyVerse struct {
	Language Language `json:"language"`
	Date     string   `json:"date"`
	Text     string   `json:"text"`
}
