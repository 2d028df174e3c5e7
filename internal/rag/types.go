// Package rag generates test cases and browser automation scripts grounded
// on the knowledge base.
package rag

import (
	"fmt"
	"strings"
)

const (
	MinQueryLength      = 3
	MaxQueryLength      = 512
	DefaultMaxTestCases = 10
	MaxTestCases        = 50

	// MaxTopK caps the number of chunks retrieved for one request.
	MaxTopK = 20

	// DefaultContextChars caps the grounding material placed in one prompt,
	// in characters. Prompt instructions are not counted.
	DefaultContextChars = 48000
)

// TestCase is one generated test case. The four required fields are
// non-empty after trimming.
type TestCase struct {
	TestID         string `json:"test_id"`
	Feature        string `json:"feature"`
	TestScenario   string `json:"test_scenario"`
	ExpectedResult string `json:"expected_result"`
	SourceDocument string `json:"source_document,omitempty"`
}

// Validate reports the first required field that is blank.
func (tc TestCase) Validate() error {
	fields := []struct{ name, value string }{
		{"test_id", tc.TestID},
		{"feature", tc.Feature},
		{"test_scenario", tc.TestScenario},
		{"expected_result", tc.ExpectedResult},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrValidation, f.name)
		}
	}
	return nil
}

// TestCaseRequest asks for up to MaxTestCases test cases about Query.
// A zero MaxTestCases means DefaultMaxTestCases.
type TestCaseRequest struct {
	Query        string `json:"query"`
	MaxTestCases int    `json:"max_test_cases"`
}

// TestCaseResponse carries the generated test cases in generation order.
type TestCaseResponse struct {
	Query     string     `json:"query"`
	TestCases []TestCase `json:"test_cases"`
}

// ScriptRequest asks for a script implementing TestCase.
type ScriptRequest struct {
	TestCase TestCase `json:"test_case"`
}

// ScriptResponse is a generated script keyed by test id.
type ScriptResponse struct {
	TestID string `json:"test_id"`
	Script string `json:"selenium_script"`
}
