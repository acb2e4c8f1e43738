package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// Language is the display name of a supported content language. The display
// name is what prompts embed ("Translation in Bangla"), so it doubles as the
// stored value.
type Language string

const (
	LanguageBangla     Language = "Bangla"
	LanguageEnglish    Language = "English"
	LanguageArabic     Language = "Arabic"
	LanguageUrdu       Language = "Urdu"
	LanguageIndonesian Language = "Indonesian"
	LanguageChinese    Language = "Chinese"
	LanguageHindi      Language = "Hindi"
)

// DefaultLanguage is used for new profiles when nothing better is known.
const DefaultLanguage = LanguageBangla

// Languages lists every supported language in menu order.
var Languages = []Language{
	LanguageBangla,
	LanguageEnglish,
	LanguageArabic,
	LanguageUrdu,
	LanguageIndonesian,
	LanguageChinese,
	LanguageHindi,
}

var languageTags = map[Language]language.Tag{
	LanguageBangla:     language.Bengali,
	LanguageEnglish:    language.English,
	LanguageArabic:     language.Arabic,
	LanguageUrdu:       language.Urdu,
	LanguageIndonesian: language.Indonesian,
	LanguageChinese:    language.Chinese,
	LanguageHindi:      language.Hindi,
}

// matcher order must line up with Languages.
var languageMatcher = language.NewMatcher([]language.Tag{
	language.Bengali,
	language.English,
	language.Arabic,
	language.Urdu,
	language.Indonesian,
	language.Chinese,
	language.Hindi,
})

func (l Language) Valid() bool {
	_, ok := languageTags[l]
	return ok
}

// Tag returns the BCP 47 tag for the language.
func (l Language) Tag() language.Tag {
	if tag, ok := languageTags[l]; ok {
		return tag
	}
	return languageTags[DefaultLanguage]
}

// Code returns the short BCP 47 code ("bn", "en", ...).
func (l Language) Code() string {
	base, _ := l.Tag().Base()
	return base.String()
}

// ParseLanguage accepts either the display name (case-insensitive) or a BCP 47
// code such as "bn" or "zh-Hans".
func ParseLanguage(s string) (Language, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, l := range Languages {
		if strings.EqualFold(string(l), s) {
			return l, true
		}
	}

	tag, err := language.Parse(s)
	if err != nil {
		return "", false
	}
	_, idx, confidence := languageMatcher.Match(tag)
	if confidence < language.High {
		return "", false
	}
	return Languages[idx], true
}

// MatchAcceptLanguage picks the closest supported language for an
// Accept-Language header, falling back to DefaultLanguage.
func MatchAcceptLanguage(header string) Language {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return DefaultLanguage
	}
	_, idx, confidence := languageMatcher.Match(tags...)
	if confidence == language.No {
		return DefaultLanguage
	}
	return Languages[idx]
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

type FontSize string

const (
	FontSizeSmall  FontSize = "small"
	FontSizeMedium FontSize = "medium"
	FontSizeLarge  FontSize = "large"
	FontSizeXLarge FontSize = "xlarge"
)

func (f FontSize) Valid() bool {
	switch f {
	case FontSizeSmall, FontSizeMedium, FontSizeLarge, FontSizeXLarge:
		return true
	}
	return false
}

// AppSettings is the per-user display and language preference record.
type AppSettings struct {
	UserID    uuid.UUID `json:"user_id"`
	Language  Language  `json:"language"`
	Theme     Theme     `json:"theme"`
	FontSize  FontSize  `json:"font_size"`
	UpdatedAt time.Time `json:"updated_at"`
}

func DefaultSettings(userID uuid.UUID, lang Language) *AppSettings {
	if !lang.Valid() {
		lang = DefaultLanguage
	}
	return &AppSettings{
		UserID:   userID,
		Language: lang,
		Theme:    ThemeLight,
		FontSize: FontSizeMedium,
	}
}

// UpdateSettingsRequest carries a partial settings update.
type UpdateSettingsRequest struct {
	Language *Language `json:"language"`
	Theme    *Theme    `json:"theme"`
	FontSize *FontSize `json:"font_size"`
}

// Validate returns per-field messages for invalid values.
func (r UpdateSettingsRequest) Validate() map[string]string {
	fields := make(map[string]string)
	if r.Language != nil && !r.Language.Valid() {
		fields["language"] = "Unsupported language"
	}
	if r.Theme != nil && !r.Theme.Valid() {
		fields["theme"] = "Theme must be light or dark"
	}
	if r.FontSize != nil && !r.FontSize.Valid() {
		fields["font_size"] = "Font size must be small, medium, large or xlarge"
	}
	return fields
}

// Apply copies the set fields onto s.
func (r UpdateSettingsRequest) Apply(s *AppSettings) {
	if r.Language != nil {
		s.Language = *r.Language
	}
	if r.Theme != nil {
		s.Theme = *r.Theme
	}
	if r.FontSize != nil {
		s.FontSize = *r.FontSize
	}
}
