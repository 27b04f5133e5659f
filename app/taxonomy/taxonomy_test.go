package taxonomy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_EmbeddedCatalog(t *testing.T) {
	tax, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if tax.CategoryCount() == 0 {
		t.Fatal("Expected embedded catalog to contain categories")
	}

	for _, category := range tax.Categories() {
		if category.Name == "" {
			t.Error("Category with empty name in embedded catalog")
		}
		if len(category.Topics) == 0 {
			t.Errorf("Category '%s' has no topics", category.Name)
		}
	}
}

func TestLoad_TopicsAreNormalized(t *testing.T) {
	tax, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for _, category := range tax.Categories() {
		for _, tp := range category.Topics {
			s := tp.String()
			if s != strings.ToLower(s) {
				t.Errorf("Topic '%s' in category '%s' is not lower-cased", s, category.Name)
			}
			if strings.TrimSpace(s) != s {
				t.Errorf("Topic '%s' in category '%s' has surrounding whitespace", s, category.Name)
			}
		}
	}
}

func TestLoad_CatalogFile(t *testing.T) {
	dir := t.TempDir()
	catalogFile := filepath.Join(dir, "catalog.yml")

	content := `categories:
  - name: Test
    icon: "T"
    topics:
      - First Topic
      - second
`
	if err := os.WriteFile(catalogFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write catalog file: %v", err)
	}

	tax, err := Load(catalogFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if tax.CategoryCount() != 1 {
		t.Fatalf("Expected 1 category, got %d", tax.CategoryCount())
	}

	category := tax.Categories()[0]
	if category.Name != "Test" {
		t.Errorf("Expected category name 'Test', got '%s'", category.Name)
	}
	if len(category.Topics) != 2 {
		t.Fatalf("Expected 2 topics, got %d", len(category.Topics))
	}
	if category.Topics[0].String() != "first topic" {
		t.Errorf("Expected normalized topic 'first topic', got '%s'", category.Topics[0])
	}
}

func TestLoad_OrderPreserved(t *testing.T) {
	dir := t.TempDir()
	catalogFile := filepath.Join(dir, "catalog.yml")

	content := `categories:
  - name: B
    topics: [beta]
  - name: A
    topics: [alpha]
`
	if err := os.WriteFile(catalogFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write catalog file: %v", err)
	}

	tax, err := Load(catalogFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	categories := tax.Categories()
	if categories[0].Name != "B" || categories[1].Name != "A" {
		t.Errorf("Expected declaration order [B A], got [%s %s]", categories[0].Name, categories[1].Name)
	}
}

func TestLoad_RejectsDuplicateTopics(t *testing.T) {
	dir := t.TempDir()
	catalogFile := filepath.Join(dir, "catalog.yml")

	content := `categories:
  - name: Dup
    topics:
      - ASMR
      - asmr
`
	if err := os.WriteFile(catalogFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write catalog file: %v", err)
	}

	if _, err := Load(catalogFile); err == nil {
		t.Error("Expected error for duplicate topics within a category")
	}
}

func TestLoad_RejectsMissingName(t *testing.T) {
	dir := t.TempDir()
	catalogFile := filepath.Join(dir, "catalog.yml")

	content := `categories:
  - icon: "X"
    topics: [something]
`
	if err := os.WriteFile(catalogFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write catalog file: %v", err)
	}

	if _, err := Load(catalogFile); err == nil {
		t.Error("Expected error for category without name")
	}
}
