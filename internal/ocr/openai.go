package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// implements Recognizer using OpenAI-compatible chat completions.
// Ollama is served through its /v1 compatibility endpoint.
type OpenAIRecognizer struct {
	client  openai.Client
	model   string
	options Options
}

func NewOpenAIRecognizer(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*OpenAIRecognizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(withTrailingSlash(opts.BaseURL)))
	}

	model := opts.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIRecognizer{
		client:  openai.NewClient(reqOpts...),
		model:   model,
		options: opts,
	}, nil
}

// NewOllamaRecognizer talks to a local Ollama server. BaseURL is the Ollama
// host (default DefaultOllamaHost); no API key is needed.
func NewOllamaRecognizer(opts Options) *OpenAIRecognizer {
	host := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if host == "" {
		host = DefaultOllamaHost
	}

	model := opts.Model
	if model == "" {
		model = "qwen2.5vl:3b"
	}

	client := openai.NewClient(
		option.WithAPIKey("ollama"),
		option.WithBaseURL(host+"/v1/"),
	)

	return &OpenAIRecognizer{
		client:  client,
		model:   model,
		options: opts,
	}
}

func (r *OpenAIRecognizer) Model() string {
	return r.model
}

func (r *OpenAIRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	data, err := prepareImage(img, r.options)
	if err != nil {
		return "", err
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)

	completion, err := r.client.Chat.Completions.New(
		ctx,
		openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
					openai.TextContentPart(r.options.prompt()),
					openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
						URL: dataURL,
					}),
				}),
			},
			Model:       r.model,
			Temperature: openai.Float(r.options.temperature()),
			MaxTokens:   openai.Int(int64(r.options.maxTokens())),
		},
	)
	if err != nil {
		return "", fmt.Errorf("recognition failed: %w", err)
	}

	return parseOpenAIResponse(completion)
}

func parseOpenAIResponse(completion *openai.ChatCompletion) (string, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty response from model")
	}
	return Normalize(completion.Choices[0].Message.Content), nil
}

func withTrailingSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
