package ingest

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/feedtuner/feedtuner/app/feed"
)

// Parser turns a raw RSS/Atom payload into content items for the
// personalization pipeline. The payload bytes come from the caller;
// the engine itself never fetches anything.
type Parser struct {
	gofeedParser *gofeed.Parser
	extractor    *Extractor
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
		extractor:    NewExtractor(),
	}
}

// Run parses the payload and returns the feed title plus its items.
// Item categories become tags; HTML descriptions are reduced to
// readable text so keyword matching sees words, not markup.
func (p *Parser) Run(data []byte) (string, []feed.ContentItem, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]feed.ContentItem, 0, len(parsed.Items))
	for _, raw := range parsed.Items {
		items = append(items, p.normalizeItem(raw))
	}

	slog.Debug("Feed parsed", "title", parsed.Title, "items", len(items))

	return parsed.Title, items, nil
}

func (p *Parser) normalizeItem(raw *gofeed.Item) feed.ContentItem {
	item := feed.ContentItem{
		GUID:        raw.GUID,
		Title:       raw.Title,
		Link:        raw.Link,
		Description: p.extractor.Text(raw.Description),
		Tags:        raw.Categories,
	}

	if item.GUID == "" {
		item.GUID = raw.Link
	}

	if raw.Content != "" {
		// Full content folds into the description for matching purposes
		content := p.extractor.Text(raw.Content)
		if item.Description == "" {
			item.Description = content
		} else if content != "" {
			item.Description = item.Description + " " + content
		}
	}

	if len(raw.Authors) > 0 && raw.Authors[0] != nil {
		item.Author = raw.Authors[0].Name
	}

	if raw.PublishedParsed != nil {
		item.Published = raw.PublishedParsed.UTC().Format(time.RFC3339)
	}

	return item
}
