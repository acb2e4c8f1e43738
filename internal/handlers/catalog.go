package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"alalim-backend/internal/catalog"
	"alalim-backend/internal/models"
)

type catalogSource interface {
	Languages() []catalog.LanguageInfo
	Translations(lang models.Language) map[string]string
	Surahs(lang models.Language) []models.SurahEntry
	HadithBooks() []models.HadithBook
}

// CatalogHandler serves the static reference data. None of it needs a
// signed-in user; the language selection screen comes before login.
type CatalogHandler struct {
	catalog catalogSource
}

func NewCatalogHandler(c catalogSource) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// requestLanguage reads ?lang=, then Accept-Language.
func requestLanguage(r *http.Request) models.Language {
	if lang, ok := models.ParseLanguage(r.URL.Query().Get("lang")); ok {
		return lang
	}
	return models.MatchAcceptLanguage(r.Header.Get("Accept-Language"))
}

func (h *CatalogHandler) Languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"languages": h.catalog.Languages(),
		"default":   models.DefaultLanguage,
	})
}

func (h *CatalogHandler) Translations(w http.ResponseWriter, r *http.Request) {
	lang, ok := models.ParseLanguage(chi.URLParam(r, "language"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Unsupported language", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"language":     lang,
		"translations": h.catalog.Translations(lang),
	})
}

func (h *CatalogHandler) Surahs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"surahs": h.catalog.Surahs(requestLanguage(r))})
}

func (h *CatalogHandler) HadithBooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"books": h.catalog.HadithBooks()})
}
