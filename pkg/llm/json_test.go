package llm

import (
	"strings"
	"testing"
)

func TestExtractJSON_PlainObject(t *testing.T) {
	response := `{"sql": "SELECT 1", "confidence": 90}`

	got, err := ExtractJSON(response)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if got != response {
		t.Errorf("expected %q, got %q", response, got)
	}
}

func TestExtractJSON_MarkdownFence(t *testing.T) {
	response := "Here is the query:\n```json\n{\"sql\": \"SELECT 1\"}\n```\nDone."

	got, err := ExtractJSON(response)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if got != `{"sql": "SELECT 1"}` {
		t.Errorf("unexpected extraction: %q", got)
	}
}

func TestExtractJSON_ThinkTags(t *testing.T) {
	response := "<think>\nThe user wants a count.\n</think>\n{\"sql\": \"SELECT COUNT(*) FROM orders\"}"

	got, err := ExtractJSON(response)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.Contains(got, "SELECT COUNT(*)") {
		t.Errorf("unexpected extraction: %q", got)
	}
}

func TestExtractJSON_NestedBraces(t *testing.T) {
	response := `prefix {"outer": {"inner": "value with } in string"}} suffix`

	got, err := ExtractJSON(response)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if got != `{"outer": {"inner": "value with } in string"}}` {
		t.Errorf("unexpected extraction: %q", got)
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	_, err := ExtractJSON("I cannot answer that question.")
	if err == nil {
		t.Fatal("expected error for response with no JSON")
	}
}

func TestExtractSQLCodeBlock(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "fenced sql block",
			response: "Sure:\n```sql\nSELECT id FROM users\n```",
			want:     "SELECT id FROM users",
		},
		{
			name:     "fenced block without language",
			response: "```\nSELECT 1\n```",
			want:     "SELECT 1",
		},
		{
			name:     "bare select",
			response: "SELECT name FROM products WHERE price > 10",
			want:     "SELECT name FROM products WHERE price > 10",
		},
		{
			name:     "bare cte",
			response: "WITH t AS (SELECT 1) SELECT * FROM t",
			want:     "WITH t AS (SELECT 1) SELECT * FROM t",
		},
		{
			name:     "no sql",
			response: "I need more information to answer.",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractSQLCodeBlock(tt.response); got != tt.want {
				t.Errorf("ExtractSQLCodeBlock() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseJSONResponse(t *testing.T) {
	type payload struct {
		SQL        string `json:"sql"`
		Confidence int    `json:"confidence"`
	}

	response := "```json\n{\"sql\": \"SELECT 1\", \"confidence\": 85}\n```"

	got, err := ParseJSONResponse[payload](response)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if got.SQL != "SELECT 1" {
		t.Errorf("expected sql 'SELECT 1', got %q", got.SQL)
	}
	if got.Confidence != 85 {
		t.Errorf("expected confidence 85, got %d", got.Confidence)
	}
}

func TestParseJSONResponse_InvalidTarget(t *testing.T) {
	type payload struct {
		SQL string `json:"sql"`
	}

	_, err := ParseJSONResponse[payload](`{"sql": 42}`)
	if err == nil {
		t.Fatal("expected unmarshal error for mismatched type")
	}
}
