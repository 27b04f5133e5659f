package topic

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrInvalid is returned for topic input that is empty or carries no
// alphanumeric content after normalization.
var ErrInvalid = errors.New("invalid topic")

// Topic is a normalized free-text content label. Two inputs that differ
// only in case or surrounding/internal whitespace collapse to the same
// Topic, so equality is plain string comparison.
type Topic string

// New normalizes raw input (trim, Unicode lower-case, collapse internal
// whitespace) and validates it. Normalization always happens before
// validation, so "  ASMR  " and "asmr" are the same valid topic.
func New(raw string) (Topic, error) {
	normalized := Normalize(raw)
	if normalized == "" {
		return "", ErrInvalid
	}

	hasAlnum := false
	for _, r := range normalized {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			hasAlnum = true
			break
		}
	}
	if !hasAlnum {
		return "", ErrInvalid
	}

	return Topic(normalized), nil
}

func (t Topic) String() string {
	return string(t)
}

// Words splits the topic into its alphanumeric word sequence. Hyphens
// and other separators inside the topic count as word breaks, so
// "sci-fi" and "sci fi" yield the same sequence.
func (t Topic) Words() []string {
	return Tokenize(string(t))
}

// Normalize applies the canonical topic text normalization: trim,
// Unicode-aware lower-casing, internal whitespace collapsed to single
// spaces. Item text is passed through the same function before matching
// so comparisons stay symmetric.
func Normalize(s string) string {
	// cases.Caser values carry state, so build one per call rather than
	// sharing a package-level instance between goroutines.
	s = strings.TrimSpace(cases.Lower(language.Und).String(s))
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))

	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteByte(' ')
				space = true
			}
			continue
		}
		space = false
		b.WriteRune(r)
	}

	return b.String()
}

// Tokenize splits normalized text into runs of letters and digits.
// Everything else (spaces, hyphens, punctuation) is a boundary.
func Tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
