package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoCases = `[
  {"test_id": "TC-1", "feature": "Discount", "test_scenario": "Apply SAVE15", "expected_result": "15% off", "source_document": "product_specs.md"},
  {"test_id": "TC-2", "feature": "Shipping", "test_scenario": "Pick express", "expected_result": "Cost is $10"}
]`

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", "  print('hi')  ", "print('hi')"},
		{"language fence", "```python\nprint('hi')\n```", "print('hi')"},
		{"bare fence", "```\n[1]\n```", "[1]"},
		{"prose around fence kept", "Here you go:\n```json\n[]\n```\nEnjoy.", "Here you go:\n```json\n[]\n```\nEnjoy."},
		{"unterminated fence", "```python\nprint('hi')", "print('hi')"},
		{"only opening", "```", ""},
		{"opening with language only", "```python", ""},
		{"single line fence", "```[1]```", "[1]"},
		{"interior fence kept", "```python\nx = '''\n```\nnot code\n```\n'''\nprint(x)\n```", "x = '''\n```\nnot code\n```\n'''\nprint(x)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

func TestStripCodeFences_UnfencedScriptWithDocstringFence(t *testing.T) {
	script := "from selenium import webdriver\n\n" +
		"def helper():\n" +
		"    \"\"\"Example:\n" +
		"    ```\n" +
		"    helper()\n" +
		"    ```\n" +
		"    \"\"\"\n" +
		"    print('OK')"

	assert.Equal(t, script, StripCodeFences(script))
	assert.Equal(t, script, StripCodeFences("```python\n"+script+"\n```\n"))
}

func TestParseTestCases_ProseAroundFence(t *testing.T) {
	res := ParseTestCases("Here are the test cases:\n```json\n" + twoCases + "\n```\nLet me know if you need more.")

	require.NoError(t, res.Err)
	assert.Equal(t, ParsedList, res.Outcome)
	assert.Len(t, res.Cases, 2)
}

func TestParseTestCases_List(t *testing.T) {
	res := ParseTestCases(twoCases)

	require.NoError(t, res.Err)
	assert.Equal(t, ParsedList, res.Outcome)
	require.Len(t, res.Cases, 2)
	assert.Equal(t, "TC-1", res.Cases[0].TestID)
	assert.Equal(t, "product_specs.md", res.Cases[0].SourceDocument)
	assert.Equal(t, "TC-2", res.Cases[1].TestID)
	assert.Empty(t, res.Cases[1].SourceDocument)
	assert.Zero(t, res.Dropped)
}

func TestParseTestCases_WrapperMatchesList(t *testing.T) {
	list := ParseTestCases(twoCases)

	for _, key := range []string{"test_cases", "testCases", "tests", "items"} {
		t.Run(key, func(t *testing.T) {
			res := ParseTestCases(`{"` + key + `": ` + twoCases + `}`)
			assert.Equal(t, ParsedWrapper, res.Outcome)
			assert.Equal(t, list.Cases, res.Cases)
		})
	}
}

func TestParseTestCases_FencedWrapper(t *testing.T) {
	res := ParseTestCases("```json\n{\"test_cases\": " + twoCases + "}\n```")

	assert.Equal(t, ParsedWrapper, res.Outcome)
	assert.Len(t, res.Cases, 2)
}

func TestParseTestCases_DropsInvalidEntries(t *testing.T) {
	raw := `[
	  {"test_id": "TC-1", "feature": "Cart", "test_scenario": "Add item", "expected_result": "Item shown"},
	  {"test_id": "  ", "feature": "Cart", "test_scenario": "Add item", "expected_result": "Item shown"},
	  {"test_id": "TC-3", "feature": "Cart", "test_scenario": "Add item"},
	  {"test_id": "TC-4", "feature": {"nested": true}, "test_scenario": "x", "expected_result": "y"},
	  "not an object",
	  {"test_id": 5, "feature": " Cart ", "test_scenario": "Remove item", "expected_result": "Cart empty"}
	]`

	res := ParseTestCases(raw)

	assert.Equal(t, ParsedList, res.Outcome)
	assert.Equal(t, 4, res.Dropped)
	require.Len(t, res.Cases, 2)
	assert.Equal(t, "TC-1", res.Cases[0].TestID)
	assert.Equal(t, "5", res.Cases[1].TestID)
	assert.Equal(t, "Cart", res.Cases[1].Feature)
}

func TestParseTestCases_Unparseable(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"prose", "Sorry, I cannot help with that."},
		{"truncated", `[{"test_id": "TC-1"`},
		{"object without list", `{"test_id": "TC-1"}`},
		{"multi-key object without known key", `{"a": [], "b": []}`},
		{"scalar", `42`},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseTestCases(tt.raw)
			assert.Equal(t, Unparseable, res.Outcome)
			assert.Error(t, res.Err)
			assert.Empty(t, res.Cases)
		})
	}
}

func TestParseTestCases_EmptyList(t *testing.T) {
	res := ParseTestCases("[]")

	assert.Equal(t, ParsedList, res.Outcome)
	assert.Empty(t, res.Cases)
	assert.NoError(t, res.Err)
}
