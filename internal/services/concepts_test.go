package services

import (
	"strings"
	"testing"
)

func TestDecodeConcepts(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{
			"bare json",
			`[{"concept": "OCR", "explanation": "Text extraction from images."}]`,
			1, false,
		},
		{
			"json fence",
			"```json\n[{\"concept\": \"A\", \"explanation\": \"a\"}, {\"concept\": \"B\", \"explanation\": \"b\"}]\n```",
			2, false,
		},
		{
			"plain fence",
			"```\n[{\"concept\": \"A\", \"explanation\": \"a\"}]\n```",
			1, false,
		},
		{
			"fence with surrounding whitespace",
			"  ```json\n[]\n```  ",
			0, false,
		},
		{"malformed after stripping", "```json\nnot json at all\n```", 0, true},
		{"empty response", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeConcepts(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DecodeConcepts(%q) expected error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeConcepts(%q) failed: %v", tt.raw, err)
			}
			if len(got) != tt.want {
				t.Errorf("DecodeConcepts(%q) returned %d concepts, want %d", tt.raw, len(got), tt.want)
			}
		})
	}
}

func TestDecodeConceptsErrorCarriesRawResponse(t *testing.T) {
	raw := "```json\n{broken\n```"
	_, err := DecodeConcepts(raw)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "{broken") {
		t.Errorf("error should carry the raw response for diagnosis, got: %v", err)
	}
}

func TestStripCodeFenceLeavesContentAlone(t *testing.T) {
	// Fences inside the content are not stripped, only a surrounding wrapper.
	in := "[{\"concept\": \"fences\", \"explanation\": \"uses ``` in text\"}]"
	if got := StripCodeFence(in); got != in {
		t.Errorf("StripCodeFence altered unfenced content: %q", got)
	}
}
