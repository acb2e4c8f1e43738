// Package catalog holds the static reference data of the app: UI strings,
// chat greetings, the surah index and the hadith collections.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strconv"

	"github.com/BurntSushi/toml"

	"alalim-backend/internal/models"
)

// SurahCount is the number of surahs in the Quran.
const SurahCount = 114

//go:embed catalog.toml
var catalogTOML string

type surahNames struct {
	En string `toml:"en"`
	Bn string `toml:"bn"`
	Cn string `toml:"cn"`
	Hi string `toml:"hi"`
}

type languageEntry struct {
	Greeting string            `toml:"greeting"`
	UI       map[string]string `toml:"ui"`
}

type document struct {
	DefaultGreeting string                   `toml:"default_greeting"`
	HadithBooks     []models.HadithBook      `toml:"hadith_books"`
	Surahs          map[string]surahNames    `toml:"surahs"`
	Languages       map[string]languageEntry `toml:"languages"`
}

type Catalog struct {
	defaultGreeting string
	hadithBooks     []models.HadithBook
	surahs          map[int]surahNames
	languages       map[models.Language]languageEntry
}

// LanguageInfo describes one selectable language.
type LanguageInfo struct {
	Name     models.Language `json:"name"`
	Code     string          `json:"code"`
	AppTitle string          `json:"app_title"`
}

// Load decodes the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(catalogTOML)
}

// Parse decodes a catalog document and checks it covers every language.
func Parse(src string) (*Catalog, error) {
	var doc document
	if _, err := toml.Decode(src, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	c := &Catalog{
		defaultGreeting: doc.DefaultGreeting,
		hadithBooks:     doc.HadithBooks,
		surahs:          make(map[int]surahNames, len(doc.Surahs)),
		languages:       make(map[models.Language]languageEntry, len(doc.Languages)),
	}

	for key, names := range doc.Surahs {
		n, err := strconv.Atoi(key)
		if err != nil || n < 1 || n > SurahCount {
			return nil, fmt.Errorf("invalid surah number %q in catalog", key)
		}
		c.surahs[n] = names
	}

	for name, entry := range doc.Languages {
		lang := models.Language(name)
		if !lang.Valid() {
			return nil, fmt.Errorf("unknown language %q in catalog", name)
		}
		c.languages[lang] = entry
	}

	for _, lang := range models.Languages {
		if _, ok := c.languages[lang]; !ok {
			return nil, fmt.Errorf("catalog is missing language %s", lang)
		}
	}

	return c, nil
}

func (c *Catalog) Languages() []LanguageInfo {
	out := make([]LanguageInfo, 0, len(models.Languages))
	for _, lang := range models.Languages {
		out = append(out, LanguageInfo{
			Name:     lang,
			Code:     lang.Code(),
			AppTitle: c.languages[lang].UI["appTitle"],
		})
	}
	return out
}

// Translations returns the UI string table for lang, falling back to English
// for keys the language does not define.
func (c *Catalog) Translations(lang models.Language) map[string]string {
	base := c.languages[models.LanguageEnglish].UI
	out := make(map[string]string, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range c.languages[lang].UI {
		out[k] = v
	}
	return out
}

// Greeting is the first model message of a fresh chat transcript.
func (c *Catalog) Greeting(lang models.Language) string {
	if entry, ok := c.languages[lang]; ok && entry.Greeting != "" {
		return entry.Greeting
	}
	return c.defaultGreeting
}

// SurahTitle returns the localized common name of a surah, or "Surah N" for
// surahs without one.
func (c *Catalog) SurahTitle(number int, lang models.Language) string {
	names, ok := c.surahs[number]
	if !ok {
		return fmt.Sprintf("Surah %d", number)
	}

	switch lang {
	case models.LanguageBangla:
		return names.Bn
	case models.LanguageChinese:
		return names.Cn
	case models.LanguageHindi:
		return names.Hi
	default:
		return names.En
	}
}

func (c *Catalog) Surahs(lang models.Language) []models.SurahEntry {
	out := make([]models.SurahEntry, SurahCount)
	for i := range out {
		out[i] = models.SurahEntry{Number: i + 1, Title: c.SurahTitle(i+1, lang)}
	}
	return out
}

func (c *Catalog) HadithBooks() []models.HadithBook {
	out := make([]models.HadithBook, len(c.hadithBooks))
	copy(out, c.hadithBooks)
	return out
}

func (c *Catalog) HadithBook(id string) (models.HadithBook, bool) {
	for _, b := range c.hadithBooks {
		if b.ID == id {
			return b, true
		}
	}
	return models.HadithBook{}, false
}

// NamedSurahs lists the surah numbers that carry a localized name.
func (c *Catalog) NamedSurahs() []int {
	out := make([]int, 0, len(c.surahs))
	for n := range c.surahs {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func ValidSurah(n int) bool {
	return n >= 1 && n <= SurahCount
}
