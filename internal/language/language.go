// Package language validates and normalizes the language tags sent with
// audio submissions.
package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var titleCaser = cases.Title(language.English)

// Normalize parses a language tag or name and returns the canonical base
// code the transcription service expects (ISO 639-1 where one exists).
func Normalize(tag string) (string, error) {
	trimmed := strings.TrimSpace(tag)
	if trimmed == "" {
		return "", fmt.Errorf("language tag is empty")
	}
	parsed, err := language.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("unrecognized language %q: %w", tag, err)
	}
	base, _ := parsed.Base()
	return base.String(), nil
}

// DisplayName returns a human-readable English name for a language tag.
// Unrecognized tags are returned title-cased as given.
func DisplayName(tag string) string {
	parsed, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		return titleCaser.String(strings.TrimSpace(tag))
	}
	name := display.English.Languages().Name(parsed)
	if name == "" {
		return titleCaser.String(strings.TrimSpace(tag))
	}
	return name
}
