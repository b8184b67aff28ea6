package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// implements Recognizer using Anthropic Claude
type AnthropicRecognizer struct {
	client  anthropic.Client
	model   anthropic.Model
	options Options
}

func NewAnthropicRecognizer(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*AnthropicRecognizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(withTrailingSlash(opts.BaseURL)))
	}

	model := anthropic.Model(opts.Model)
	if opts.Model == "" {
		model = anthropic.ModelClaudeHaiku4_5
	}

	return &AnthropicRecognizer{
		client:  anthropic.NewClient(reqOpts...),
		model:   model,
		options: opts,
	}, nil
}

func (r *AnthropicRecognizer) Model() string {
	return string(r.model)
}

func (r *AnthropicRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	data, err := prepareImage(img, r.options)
	if err != nil {
		return "", err
	}

	message, err := r.client.Messages.New(
		ctx,
		anthropic.MessageNewParams{
			Model:       r.model,
			MaxTokens:   int64(r.options.maxTokens()),
			Temperature: anthropic.Float(r.options.temperature()),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewImageBlockBase64("image/png", base64.StdEncoding.EncodeToString(data)),
					anthropic.NewTextBlock(r.options.prompt()),
				),
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("recognition failed: %w", err)
	}

	return parseAnthropicResponse(message)
}

func parseAnthropicResponse(message *anthropic.Message) (string, error) {
	if message == nil || len(message.Content) == 0 {
		return "", fmt.Errorf("empty response from Anthropic")
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText += block.Text
		}
	}

	return Normalize(responseText), nil
}
