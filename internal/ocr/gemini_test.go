package ocr

import (
	"testing"

	"google.golang.org/genai"
)

func TestParseGeminiResponse(t *testing.T) {
	tests := []struct {
		name    string
		result  *genai.GenerateContentResponse
		want    string
		wantErr bool
	}{
		{name: "nil", result: nil, wantErr: true},
		{name: "no candidates", result: &genai.GenerateContentResponse{}, wantErr: true},
		{
			name: "joined parts",
			result: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{{Text: "Hello "}, {Text: "world\n"}}},
			}}},
			want: "Hello world",
		},
		{
			name: "skips empty candidate",
			result: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: nil},
				{Content: &genai.Content{Parts: []*genai.Part{{Text: "second"}}}},
			}},
			want: "second",
		},
		{
			name: "sentinel",
			result: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{{Text: "EMPTY"}}},
			}}},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseGeminiResponse(tt.result)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
