package ocr

import (
	"context"
	"fmt"
	"image"

	"google.golang.org/genai"
)

// implements Recognizer using Google Gemini
type GeminiRecognizer struct {
	client  *genai.Client
	model   string
	options Options
}

func NewGeminiRecognizer(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*GeminiRecognizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiRecognizer{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (r *GeminiRecognizer) Model() string {
	return r.model
}

func (r *GeminiRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	data, err := prepareImage(img, r.options)
	if err != nil {
		return "", err
	}

	parts := []*genai.Part{
		genai.NewPartFromText(r.options.prompt()),
		genai.NewPartFromBytes(data, "image/png"),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(r.options.temperature())),
		MaxOutputTokens: int32(r.options.maxTokens()),
	}

	result, err := r.client.Models.GenerateContent(ctx, r.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("recognition failed: %w", err)
	}

	return parseGeminiResponse(result)
}

// first candidate carrying text wins
func parseGeminiResponse(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	var responseText string
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				responseText += part.Text
			}
		}
		if responseText != "" {
			break
		}
	}

	return Normalize(responseText), nil
}
