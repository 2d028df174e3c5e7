package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TestCasePrompt builds the prompt asking for count test cases about query,
// grounded on context.
func TestCasePrompt(query string, count int, context string) string {
	return strings.TrimSpace(fmt.Sprintf(`
You are an expert QA engineer. Based strictly on the following project documentation, generate a JSON list of test cases.

DOCUMENTATION CONTEXT:
"""
%s
"""

TASK:
Generate at most %d test cases focusing on: "%s"

Each test case must be a JSON object with the string fields test_id, feature, test_scenario, expected_result and source_document.
source_document names the document the test case is grounded on.

Do NOT add any features not found in the context.
Respond ONLY with a valid JSON array.
`, context, count, query))
}

// ScriptPrompt builds the prompt asking for a Selenium script implementing tc
// against the reference page. markup supplies selectors, text the visible content.
func ScriptPrompt(tc TestCase, markup, text string) string {
	return strings.TrimSpace(fmt.Sprintf(`
You are a QA automation engineer. Create a full Python Selenium script implementing this test case:

TEST CASE:
test_id: %s
feature: %s
test_scenario: %s
expected_result: %s

HTML CONTEXT:
"""
%s
"""

VISIBLE PAGE TEXT:
"""
%s
"""

Produce runnable Python Selenium WebDriver code with accurate selectors based only on the above HTML.
Respond ONLY with the code, no explanations.
`, tc.TestID, tc.Feature, tc.TestScenario, tc.ExpectedResult, markup, text))
}

// truncateRunes cuts s to at most n characters on a rune boundary and
// reports whether anything was cut.
func truncateRunes(s string, n int) (string, bool) {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s, false
	}
	i, count := 0, 0
	for i = range s {
		if count == n {
			break
		}
		count++
	}
	return s[:i], true
}
