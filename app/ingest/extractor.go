package ingest

import (
	"strings"

	"github.com/go-shiori/go-readability"
)

// Extractor reduces HTML fragments to their readable text. Extraction
// failures degrade to the raw input: a malformed description must never
// fail an ingest.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Text returns plain text for the given markup. Input without tags is
// returned trimmed as-is.
func (e *Extractor) Text(data string) string {
	if !strings.ContainsRune(data, '<') {
		return strings.TrimSpace(data)
	}

	article, err := readability.FromReader(strings.NewReader(data), nil)
	if err != nil || article.TextContent == "" {
		return strings.TrimSpace(stripTags(data))
	}

	return strings.TrimSpace(article.TextContent)
}

// stripTags is the fallback for fragments readability cannot handle:
// drop everything between angle brackets, keep the text runs.
func stripTags(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			b.WriteByte(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}

	return b.String()
}
