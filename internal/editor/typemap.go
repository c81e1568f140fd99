package editor

import (
	"sort"

	"github.com/conneroisu/exhibit/internal/errors"
)

// ValueType is the rendering target of an editor's content.
type ValueType string

const (
	// TypeHTML content is merged into a section as inline markup.
	TypeHTML ValueType = "html"
	// TypeJS content is wrapped in a script element.
	TypeJS ValueType = "js"
	// TypeCSS content is wrapped in a style element.
	TypeCSS ValueType = "css"
)

var languageTypes = map[string]ValueType{
	"html":       TypeHTML,
	"javascript": TypeJS,
	"typescript": TypeJS,
	"css":        TypeCSS,
}

var typeTags = map[ValueType]string{
	TypeJS:  "script",
	TypeCSS: "style",
}

// TypeFromLanguage returns the value type for a language.
func TypeFromLanguage(language string) (ValueType, error) {
	t, ok := languageTypes[language]
	if !ok {
		return "", errors.NewConfigError(errors.ErrCodeUnknownLanguage, "unknown language: "+language).
			WithContext("language", language)
	}
	return t, nil
}

// Tag returns the element generated for the type, or "" for inline types.
func (t ValueType) Tag() string {
	return typeTags[t]
}

// IsSingleTag reports whether content of this type is rendered as one
// generated element.
func (t ValueType) IsSingleTag() bool {
	return t.Tag() != ""
}

// Languages returns the supported languages in sorted order.
func Languages() []string {
	out := make([]string, 0, len(languageTypes))
	for l := range languageTypes {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// languageFromExtension guesses the language of an editor file.
func languageFromExtension(ext string) (string, bool) {
	switch ext {
	case ".html", ".htm":
		return "html", true
	case ".js", ".mjs":
		return "javascript", true
	case ".ts", ".mts":
		return "typescript", true
	case ".css":
		return "css", true
	default:
		return "", false
	}
}
