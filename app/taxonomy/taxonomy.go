package taxonomy

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/feedtuner/feedtuner/app/topic"
)

//go:embed catalog.yml
var defaultCatalog []byte

// Category is one taxonomy entry: a display name, a glyph for the UI,
// and an ordered list of canonical topics. Categories are fixed once
// loaded and safe for unsynchronized concurrent reads.
type Category struct {
	Name   string        `yaml:"name"`
	Icon   string        `yaml:"icon"`
	Topics []topic.Topic `yaml:"-"`
}

type rawCategory struct {
	Name   string   `yaml:"name"`
	Icon   string   `yaml:"icon"`
	Topics []string `yaml:"topics"`
}

type rawCatalog struct {
	Categories []rawCategory `yaml:"categories"`
}

type Taxonomy struct {
	categories []Category
}

// Load builds the taxonomy from the embedded catalog, or from
// catalogFile when one is configured.
func Load(catalogFile string) (*Taxonomy, error) {
	data := defaultCatalog
	if catalogFile != "" {
		fileData, err := os.ReadFile(catalogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog file: %w", err)
		}
		data = fileData
	}

	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	categories := make([]Category, 0, len(raw.Categories))
	for i, rc := range raw.Categories {
		if rc.Name == "" {
			return nil, fmt.Errorf("category at index %d: name is required", i)
		}

		seen := make(map[topic.Topic]bool, len(rc.Topics))
		topics := make([]topic.Topic, 0, len(rc.Topics))
		for _, rawTopic := range rc.Topics {
			normalized, err := topic.New(rawTopic)
			if err != nil {
				return nil, fmt.Errorf("category '%s': invalid topic '%s': %w", rc.Name, rawTopic, err)
			}
			if seen[normalized] {
				return nil, fmt.Errorf("category '%s': duplicate topic '%s'", rc.Name, normalized)
			}
			seen[normalized] = true
			topics = append(topics, normalized)
		}

		categories = append(categories, Category{
			Name:   rc.Name,
			Icon:   rc.Icon,
			Topics: topics,
		})
	}

	slog.Debug("Taxonomy loaded", "categories", len(categories))

	return &Taxonomy{categories: categories}, nil
}

// Categories returns the catalog in declaration order. Callers must not
// mutate the returned slice.
func (t *Taxonomy) Categories() []Category {
	return t.categories
}

func (t *Taxonomy) CategoryCount() int {
	return len(t.categories)
}
