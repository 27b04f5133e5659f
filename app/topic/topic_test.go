package topic

import (
	"errors"
	"reflect"
	"testing"
)

func TestNew_Normalization(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase passthrough", "asmr", "asmr"},
		{"uppercase collapses", "ASMR", "asmr"},
		{"mixed case", "Lo-Fi Beats", "lo-fi beats"},
		{"surrounding whitespace", "  gaming  ", "gaming"},
		{"internal whitespace collapsed", "true \t crime", "true crime"},
		{"unicode lowercase", "MÜNCHEN", "münchen"},
		{"digits kept", "Formula 1", "formula 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.input)
			if err != nil {
				t.Fatalf("New(%q) returned error: %v", tt.input, err)
			}
			if got.String() != tt.expected {
				t.Errorf("New(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNew_EqualityByNormalizedForm(t *testing.T) {
	a, err := New("Science Fiction")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := New("  science   FICTION ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Errorf("expected %q and %q to be equal", a, b)
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"punctuation only", "!!! --- ???"},
		{"symbols only", "@#$%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.input)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("New(%q) error = %v, expected ErrInvalid", tt.input, err)
			}
		})
	}
}

func TestWords(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"lo-fi beats", []string{"lo", "fi", "beats"}},
		{"asmr", []string{"asmr"}},
		{"formula 1", []string{"formula", "1"}},
	}

	for _, tt := range tests {
		topic, err := New(tt.input)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tt.input, err)
		}
		if got := topic.Words(); !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("Words(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestTokenize_BoundariesOnNonAlphanumerics(t *testing.T) {
	got := Tokenize("asmr eating-show: part 2!")
	expected := []string{"asmr", "eating", "show", "part", "2"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Tokenize = %v, expected %v", got, expected)
	}
}
