package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectTestCase(t *testing.T) {
	single := `{"test_id": "TC-7", "feature": "Discount", "test_scenario": "Apply SAVE15", "expected_result": "15% off"}`
	list := `[
	  {"test_id": "TC-1", "feature": "Cart", "test_scenario": "Add item", "expected_result": "Cart shows 1"},
	  {"test_id": "TC-2", "feature": "Payment", "test_scenario": "Pay by card", "expected_result": "Payment OK"}
	]`
	response := `{"test_cases": ` + list + `}`

	tests := []struct {
		name    string
		raw     string
		id      string
		want    string
		wantErr bool
	}{
		{name: "single object", raw: single, want: "TC-7"},
		{name: "list defaults to first", raw: list, want: "TC-1"},
		{name: "list by id", raw: list, id: "TC-2", want: "TC-2"},
		{name: "response wrapper", raw: response, id: "TC-2", want: "TC-2"},
		{name: "unknown id", raw: list, id: "TC-9", wantErr: true},
		{name: "invalid json", raw: "not json", wantErr: true},
		{name: "empty list", raw: "[]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, err := selectTestCase([]byte(tt.raw), tt.id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tc.TestID)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "éé...", truncate("éééé", 2))
}
