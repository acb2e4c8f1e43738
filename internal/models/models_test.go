package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want Language
		ok   bool
	}{
		{"Bangla", LanguageBangla, true},
		{"english", LanguageEnglish, true},
		{" Hindi ", LanguageHindi, true},
		{"bn", LanguageBangla, true},
		{"en-GB", LanguageEnglish, true},
		{"ur", LanguageUrdu, true},
		{"id", LanguageIndonesian, true},
		{"", "", false},
		{"Klingon", "", false},
		{"fr", "", false},
	}

	for _, tc := range tests {
		got, ok := ParseLanguage(tc.in)
		assert.Equal(t, tc.ok, ok, "ParseLanguage(%q)", tc.in)
		assert.Equal(t, tc.want, got, "ParseLanguage(%q)", tc.in)
	}
}

func TestMatchAcceptLanguage(t *testing.T) {
	assert.Equal(t, LanguageEnglish, MatchAcceptLanguage("en-US,en;q=0.9"))
	assert.Equal(t, LanguageArabic, MatchAcceptLanguage("ar-SA"))
	assert.Equal(t, LanguageBangla, MatchAcceptLanguage(""))
	assert.Equal(t, LanguageBangla, MatchAcceptLanguage("!!!"))
}

func TestLanguageCode(t *testing.T) {
	assert.Equal(t, "bn", LanguageBangla.Code())
	assert.Equal(t, "zh", LanguageChinese.Code())
	assert.Equal(t, "bn", Language("nope").Code())
}

func TestDefaultSettings(t *testing.T) {
	id := uuid.New()

	s := DefaultSettings(id, LanguageUrdu)
	assert.Equal(t, id, s.UserID)
	assert.Equal(t, LanguageUrdu, s.Language)
	assert.Equal(t, ThemeLight, s.Theme)
	assert.Equal(t, FontSizeMedium, s.FontSize)

	assert.Equal(t, DefaultLanguage, DefaultSettings(id, "Elvish").Language)
}

func TestUpdateSettingsRequest(t *testing.T) {
	bad := Language("Elvish")
	theme := Theme("sepia")
	size := FontSize("huge")

	fields := UpdateSettingsRequest{Language: &bad, Theme: &theme, FontSize: &size}.Validate()
	assert.Len(t, fields, 3)

	lang := LanguageEnglish
	dark := ThemeDark
	req := UpdateSettingsRequest{Language: &lang, Theme: &dark}
	assert.Empty(t, req.Validate())

	s := DefaultSettings(uuid.New(), LanguageBangla)
	req.Apply(s)
	assert.Equal(t, LanguageEnglish, s.Language)
	assert.Equal(t, ThemeDark, s.Theme)
	assert.Equal(t, FontSizeMedium, s.FontSize)
}

func TestTasbihCounter(t *testing.T) {
	c := &TasbihCounter{Target: 3}

	c.Increment()
	c.Increment()
	c.Increment()
	assert.Equal(t, 3, c.Count)
	assert.Equal(t, 0, c.Cycle)

	c.Increment()
	assert.Equal(t, 1, c.Count)
	assert.Equal(t, 1, c.Cycle)

	c.SetTarget(99)
	assert.Equal(t, 0, c.Count)
	assert.Equal(t, 1, c.Cycle)

	c.Increment()
	c.Reset()
	assert.Equal(t, 0, c.Count)
	assert.Equal(t, 0, c.Cycle)
	assert.Equal(t, 99, c.Target)
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidTasbihTarget(33))
	assert.False(t, ValidTasbihTarget(50))
	assert.True(t, FeedbackContentError.Valid())
	assert.False(t, FeedbackType("praise").Valid())
	assert.True(t, ProviderGuest.Valid())
	assert.False(t, Provider("twitter").Valid())
	assert.True(t, ImageAspectRatio("21:9").Valid())
	assert.False(t, ImageAspectRatio("5:4").Valid())
	assert.Equal(t, ImageAspectRatio("3:4"), ImageAspectRatio("2:3").Rendered())
	assert.Equal(t, ImageAspectRatio("9:16"), ImageAspectRatio("9:16").Rendered())
	assert.True(t, ImageSize4K.Valid())
}
