package rag

import (
	"errors"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseOutcome tags how a model response was interpreted.
type ParseOutcome int

const (
	// Unparseable means neither a list nor a wrapped list was found.
	Unparseable ParseOutcome = iota
	// ParsedList means the response was a JSON array.
	ParsedList
	// ParsedWrapper means the array was found inside a wrapper object.
	ParsedWrapper
)

func (o ParseOutcome) String() string {
	switch o {
	case ParsedList:
		return "list"
	case ParsedWrapper:
		return "wrapper"
	default:
		return "unparseable"
	}
}

// ParseResult is the outcome of ParseTestCases.
type ParseResult struct {
	Outcome ParseOutcome
	Cases   []TestCase // Valid entries in generation order
	Dropped int        // Entries failing the required-field check
	Err     error      // Set when Outcome is Unparseable
}

var (
	errMalformedJSON = errors.New("response is not valid JSON")
	errNoList        = errors.New("response holds no list of test cases")

	// wrapperKeys are the conventional keys a model nests the list under.
	wrapperKeys = []string{"test_cases", "testCases", "tests"}

	// fencedBlock finds a fenced block inside surrounding prose.
	fencedBlock = regexp.MustCompile("(?s)```[\\w+-]*[ \\t]*\\r?\\n(.*?)\\n[ \\t]*```")
)

// StripCodeFences removes a code fence wrapping the whole of s: an opening
// ```lang line when s starts with one and a closing ``` when s ends with one.
// Everything else is returned verbatim, trimmed.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			// Single line: ```body``` or a lone opening fence
			body, closed := strings.CutSuffix(s[3:], "```")
			if !closed {
				return ""
			}
			return strings.TrimSpace(body)
		}
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-3]
	}
	return strings.TrimSpace(s)
}

// ParseTestCases interprets a model response as a list of test cases.
// Stage 1 accepts a JSON array, stage 2 a wrapper object holding the array.
// Entries missing a required field are dropped and counted.
func ParseTestCases(raw string) ParseResult {
	body := StripCodeFences(raw)
	if !gjson.Valid(body) {
		// Prose around a fenced JSON block
		m := fencedBlock.FindStringSubmatch(raw)
		if m == nil || !gjson.Valid(m[1]) {
			return ParseResult{Outcome: Unparseable, Err: errMalformedJSON}
		}
		body = m[1]
	}

	var (
		root    = gjson.Parse(body)
		list    gjson.Result
		outcome ParseOutcome
	)
	switch {
	case root.IsArray():
		list, outcome = root, ParsedList
	case root.IsObject():
		inner, ok := unwrap(root)
		if !ok {
			return ParseResult{Outcome: Unparseable, Err: errNoList}
		}
		list, outcome = inner, ParsedWrapper
	default:
		return ParseResult{Outcome: Unparseable, Err: errNoList}
	}

	result := ParseResult{Outcome: outcome, Cases: []TestCase{}}
	list.ForEach(func(_, entry gjson.Result) bool {
		if tc, ok := toTestCase(entry); ok {
			result.Cases = append(result.Cases, tc)
		} else {
			result.Dropped++
		}
		return true
	})
	return result
}

// unwrap finds the array inside a wrapper object: under a conventional key,
// or as the value of the object's only key.
func unwrap(obj gjson.Result) (gjson.Result, bool) {
	fields := obj.Map()
	for _, key := range wrapperKeys {
		if v, ok := fields[key]; ok && v.IsArray() {
			return v, true
		}
	}
	if len(fields) == 1 {
		for _, v := range fields {
			if v.IsArray() {
				return v, true
			}
		}
	}
	return gjson.Result{}, false
}

// toTestCase converts one entry, reporting false when a required field is
// missing, blank or not a scalar.
func toTestCase(entry gjson.Result) (TestCase, bool) {
	if !entry.IsObject() {
		return TestCase{}, false
	}

	fields := entry.Map()
	scalar := func(name string) string {
		v, ok := fields[name]
		if !ok || (v.Type != gjson.String && v.Type != gjson.Number) {
			return ""
		}
		return strings.TrimSpace(v.String())
	}

	tc := TestCase{
		TestID:         scalar("test_id"),
		Feature:        scalar("feature"),
		TestScenario:   scalar("test_scenario"),
		ExpectedResult: scalar("expected_result"),
		SourceDocument: scalar("source_document"),
	}
	if tc.Validate() != nil {
		return TestCase{}, false
	}
	return tc, true
}
