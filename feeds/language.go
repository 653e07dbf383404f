package feeds

import (
	"strings"

	"feedreader/models"

	lingua "github.com/pemistahl/lingua-go"
)

// LanguageTagger sets the language of entries from their title and snippet
type LanguageTagger struct {
	codes    map[lingua.Language]string
	fallback string
	detector lingua.LanguageDetector
}

// NewLanguageTagger returns a tagger restricted to the given ISO 639-1 codes.
// Unknown codes are ignored. With a single known language every entry is
// tagged with it; with none, nil is returned.
func NewLanguageTagger(isoCodes []string) *LanguageTagger {
	supported := supportedLanguages()

	tagger := &LanguageTagger{codes: map[lingua.Language]string{}}
	languages := []lingua.Language{}
	for _, code := range isoCodes {
		code = strings.ToLower(strings.TrimSpace(code))
		for lang, iso := range supported {
			if iso == code {
				if _, seen := tagger.codes[lang]; !seen {
					tagger.codes[lang] = iso
					languages = append(languages, lang)
				}
				break
			}
		}
	}

	switch len(languages) {
	case 0:
		return nil
	case 1:
		tagger.fallback = tagger.codes[languages[0]]
	default:
		tagger.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			WithMinimumRelativeDistance(0.1).
			Build()
	}

	return tagger
}

// Detect returns the ISO 639-1 code of text, or "" when undecided
func (t *LanguageTagger) Detect(text string) string {
	if t == nil {
		return ""
	}
	if t.detector == nil {
		return t.fallback
	}

	lang, ok := t.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return t.codes[lang]
}

// Tag fills in Language on every entry that has none
func (t *LanguageTagger) Tag(entries []models.Entry) {
	if t == nil {
		return
	}
	for i := range entries {
		if entries[i].Language != "" {
			continue
		}
		entries[i].Language = t.Detect(entries[i].Title + ". " + entries[i].Snippet)
	}
}

// supportedLanguages maps every lingua language to its lower case ISO 639-1 code
func supportedLanguages() map[lingua.Language]string {
	languages := make(map[lingua.Language]string)
	for _, lang := range lingua.AllLanguages() {
		languages[lang] = strings.ToLower(lang.IsoCode639_1().String())
	}
	return languages
}
