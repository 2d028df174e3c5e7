package markdown

import (
	"strings"
	"testing"
)

// TestSections_BasicHeaders tests section paths with an H1 and multiple H2s.
func TestSections_BasicHeaders(t *testing.T) {
	input := `# Checkout

Introduction text here.

## Discounts

Code SAVE15 gives 15% off.

## Shipping

Express shipping costs $10.
`

	sectioner := NewSectioner()
	sections, err := sectioner.Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}

	expected := []Section{
		{Path: "# Checkout", Offset: 0},
		{Path: "# Checkout > ## Discounts", Offset: strings.Index(input, "## Discounts")},
		{Path: "# Checkout > ## Shipping", Offset: strings.Index(input, "## Shipping")},
	}

	if len(sections) != len(expected) {
		t.Fatalf("Expected %d sections, got %d: %+v", len(expected), len(sections), sections)
	}
	for i, want := range expected {
		if sections[i] != want {
			t.Errorf("Section %d: expected %+v, got %+v", i, want, sections[i])
		}
	}
}

// TestSections_NestedDepth verifies H3 opens a section and H4 does not.
func TestSections_NestedDepth(t *testing.T) {
	input := `# API

## Payments

### Card

#### Validation rules

Luhn check.
`

	sections, err := NewSectioner().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}

	if len(sections) != 3 {
		t.Fatalf("Expected 3 sections, got %d: %+v", len(sections), sections)
	}
	if sections[2].Path != "# API > ## Payments > ### Card" {
		t.Errorf("Unexpected deepest path %q", sections[2].Path)
	}

	luhn := strings.Index(input, "Luhn")
	if got := PathAt(sections, luhn); got != "# API > ## Payments > ### Card" {
		t.Errorf("PathAt(Luhn) = %q", got)
	}
}

// TestSections_NoHeaders tests a document with no headings.
func TestSections_NoHeaders(t *testing.T) {
	input := "This is a document with no headers.\n\nJust plain text content.\n"

	sections, err := NewSectioner().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}
	if len(sections) != 0 {
		t.Errorf("Expected no sections, got %+v", sections)
	}
	if got := PathAt(sections, 10); got != "" {
		t.Errorf("Expected empty path, got %q", got)
	}
}

// TestPathAt_BeforeFirstHeading verifies preamble text has no section.
func TestPathAt_BeforeFirstHeading(t *testing.T) {
	input := "Preamble paragraph.\n\n# Title\n\nBody.\n"

	sections, err := NewSectioner().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}

	if got := PathAt(sections, 0); got != "" {
		t.Errorf("Preamble path: expected empty, got %q", got)
	}
	if got := PathAt(sections, strings.Index(input, "# Title")); got != "# Title" {
		t.Errorf("Heading line path: expected '# Title', got %q", got)
	}
	if got := PathAt(sections, strings.Index(input, "Body")); got != "# Title" {
		t.Errorf("Body path: expected '# Title', got %q", got)
	}
}

// TestFormatHeaderPath tests header path formatting.
func TestFormatHeaderPath(t *testing.T) {
	tests := []struct {
		name     string
		path     []string
		expected string
	}{
		{"empty", []string{}, ""},
		{"single", []string{"Installation"}, "# Installation"},
		{"two levels", []string{"Installation", "Prerequisites"}, "# Installation > ## Prerequisites"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := formatHeaderPath(tt.path); result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}
