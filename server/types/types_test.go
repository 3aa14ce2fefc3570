package types

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nnnkkk7/pgcompat/pkg/query"
)

func TestNewTranslateResult(t *testing.T) {
	tr := query.Translation{
		Original:  "SELECT IF(a, b, c) FROM t",
		Text:      "SELECT CASE WHEN a THEN b ELSE c END FROM t",
		Converted: 1,
	}
	c := query.Classification{Kind: query.KindRead, Parsed: true, Functions: []string{"IF"}}

	got := NewTranslateResult(tr, c)

	want := TranslateResult{
		Original:    tr.Original,
		Transformed: tr.Text,
		Changed:     true,
		Converted:   1,
		Kind:        query.KindRead,
		Functions:   []string{"IF"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NewTranslateResult() mismatch (-want +got):\n%s", diff)
	}
}

func TestTranslateResultJSON(t *testing.T) {
	res := TranslateResult{
		Original:    "SELECT 1",
		Transformed: "SELECT 1",
		Kind:        query.KindRead,
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Failed to marshal TranslateResult: %v", err)
	}

	want := `{"original":"SELECT 1","transformed":"SELECT 1","changed":false,"converted":0,"exhausted":false,"residualCount":0,"kind":"read"}`
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Errorf("JSON mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryRequestJSON(t *testing.T) {
	input := `{"sql": "SELECT name FROM tabItem WHERE idx > ? AND code = ?", "args": [3, "ITEM-001"]}`

	var req QueryRequest
	if err := json.Unmarshal([]byte(input), &req); err != nil {
		t.Fatalf("Failed to unmarshal QueryRequest: %v", err)
	}

	want := QueryRequest{
		SQL:  "SELECT name FROM tabItem WHERE idx > ? AND code = ?",
		Args: []any{float64(3), "ITEM-001"},
	}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Errorf("QueryRequest mismatch (-want +got):\n%s", diff)
	}
}
