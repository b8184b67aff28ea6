// Package ocr turns cropped video frames into subtitle text using vision
// language models.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
)

// NoSubtitleSentinel is what models are told to answer when a frame has no subtitle.
const NoSubtitleSentinel = "EMPTY"

const (
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 100
	DefaultOllamaHost  = "http://localhost:11434"
)

const defaultPrompt = "Extract the subtitle text shown in this image exactly as written. " +
	"Return only the subtitle text, without any explanation or formatting. " +
	"If the image contains no subtitle, return \"" + NoSubtitleSentinel + "\"."

// Recognizer reads subtitle text from an image. An empty string with a nil
// error means the frame holds no subtitle.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// ModelName reports the model behind rec, "" when it does not name one.
func ModelName(rec Recognizer) string {
	if m, ok := rec.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}

// recognition service provider
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
	ProviderAnthropic Provider = "anthropic"
)

type Options struct {
	Model       string
	Prompt      string  // replaces the default prompt
	BaseURL     string  // API endpoint override; Ollama host for ProviderOllama
	Preprocess  bool    // grayscale + adaptive threshold before upload
	Temperature float64 // 0 means DefaultTemperature
	MaxTokens   int     // 0 means DefaultMaxTokens
}

func (o Options) prompt() string {
	if strings.TrimSpace(o.Prompt) != "" {
		return o.Prompt
	}
	return defaultPrompt
}

func (o Options) temperature() float64 {
	if o.Temperature > 0 {
		return o.Temperature
	}
	return DefaultTemperature
}

func (o Options) maxTokens() int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return DefaultMaxTokens
}

// creates Recognizer based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Recognizer, error) {
	switch provider {
	case ProviderOllama, "":
		return NewOllamaRecognizer(opts), nil
	case ProviderOpenAI:
		return NewOpenAIRecognizer(ctx, apiKey, opts)
	case ProviderGemini:
		return NewGeminiRecognizer(ctx, apiKey, opts)
	case ProviderAnthropic:
		return NewAnthropicRecognizer(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported recognition provider: %s", provider)
	}
}

// environment variable holding the API key for a provider, "" when none is needed
func APIKeyEnv(provider Provider) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}

// Normalize trims raw model output and maps the no-subtitle sentinel to "".
func Normalize(raw string) string {
	text := strings.TrimSpace(raw)
	if text == NoSubtitleSentinel {
		return ""
	}
	return text
}

// encodes the image as PNG, preprocessing first when enabled
func prepareImage(img image.Image, opts Options) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	if opts.Preprocess {
		img = Preprocess(img)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
