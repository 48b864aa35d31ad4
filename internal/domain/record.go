package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Supported content languages. Unknown language codes fall back to English.
const (
	LangEnglish = "en"
	LangArabic  = "ar"
)

// SupportedLanguages lists the language codes stored in localized JSON fields.
var SupportedLanguages = []string{LangEnglish, LangArabic}

// LocalizedText is a language-code-keyed text field as stored in JSON columns.
type LocalizedText map[string]string

// Get returns the text for the given language, falling back to English and
// then to any available language.
func (t LocalizedText) Get(lang string) string {
	if t == nil {
		return ""
	}
	if v, ok := t[lang]; ok && v != "" {
		return v
	}
	if v, ok := t[LangEnglish]; ok && v != "" {
		return v
	}
	for _, v := range t {
		if v != "" {
			return v
		}
	}
	return ""
}

// DecodeLocalizedText parses a raw JSON column value into a LocalizedText.
// A plain string value is treated as English-only content.
func DecodeLocalizedText(raw any) (LocalizedText, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case LocalizedText:
		return v, nil
	case map[string]string:
		return LocalizedText(v), nil
	case map[string]any:
		out := make(LocalizedText, len(v))
		for lang, val := range v {
			if s, ok := val.(string); ok {
				out[lang] = s
			}
		}
		return out, nil
	case string:
		var out LocalizedText
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			// Legacy rows store a bare string instead of a JSON object.
			return LocalizedText{LangEnglish: v}, nil
		}
		return out, nil
	case []byte:
		var out LocalizedText
		if err := json.Unmarshal(v, &out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, ErrMalformedLocalizedField
	}
}

// Record is a single tourism entity row (attraction, restaurant,
// accommodation, ...). Records are written by ingestion and the embedding
// backfill worker; the search path treats them as read-only.
type Record struct {
	ID          int64
	Table       string
	Name        LocalizedText
	Description LocalizedText
	Latitude    *float64
	Longitude   *float64
	Data        map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasCoordinates reports whether the record carries a usable location.
func (r *Record) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// SearchableText joins every localized field across all supported
// languages, plus the table's plain text columns, into one block. This is
// the embedding input for backfill, so the same record always embeds to
// the same vector.
func (r *Record) SearchableText(spec TableSpec) string {
	var parts []string
	for _, field := range spec.LocalizedFields {
		text, err := DecodeLocalizedText(r.Data[field])
		if err != nil {
			continue
		}
		for _, lang := range SupportedLanguages {
			if v := strings.TrimSpace(text[lang]); v != "" {
				parts = append(parts, v)
			}
		}
	}
	for _, field := range spec.TextFields {
		if v, ok := r.Data[field].(string); ok && strings.TrimSpace(v) != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "\n\n")
}
