package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mgpai22/sublens/internal/ocr"
	"github.com/mgpai22/sublens/internal/pipeline"
	"github.com/mgpai22/sublens/internal/subtitle"
)

type Config struct {
	OCR        OCRConfig        `yaml:"ocr"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Server     ServerConfig     `yaml:"server"`
	Watch      WatchConfig      `yaml:"watch"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type OCRConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Prompt      string  `yaml:"prompt"`
	Preprocess  *bool   `yaml:"preprocess"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type ExtractionConfig struct {
	Interval       float64         `yaml:"interval"`
	MergeThreshold float64         `yaml:"merge_threshold"`
	MinDuration    float64         `yaml:"min_duration"`
	Concurrency    int             `yaml:"concurrency"`
	Format         string          `yaml:"format"`
	Region         pipeline.Region `yaml:"region"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	UploadDir string `yaml:"upload_dir"`
	Database  string `yaml:"database"`
}

type WatchConfig struct {
	Input         string `yaml:"input"`
	Output        string `yaml:"output"`
	Archived      string `yaml:"archived"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads a YAML config file. Defaults are applied by Validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadOptional loads path when it is set, an empty config otherwise.
func LoadOptional(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return &Config{}, nil
	}
	return Load(path)
}

// ApplyEnv overrides file values with the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("UPLOAD_DIR"); v != "" {
		c.Server.UploadDir = v
	}
	if v := getenv("SUBLENS_PROVIDER"); v != "" {
		c.OCR.Provider = v
	}

	provider := ocr.Provider(strings.ToLower(c.OCR.Provider))
	if provider == "" || provider == ocr.ProviderOllama {
		if v := getenv("OLLAMA_BASE_URL"); v != "" {
			c.OCR.BaseURL = v
		}
	}
	if env := ocr.APIKeyEnv(provider); env != "" {
		if v := getenv(env); v != "" {
			c.OCR.APIKey = v
		}
	}
}

func (c *Config) Validate() error {
	c.OCR.Provider = strings.ToLower(strings.TrimSpace(c.OCR.Provider))
	switch ocr.Provider(c.OCR.Provider) {
	case "":
		c.OCR.Provider = string(ocr.ProviderOllama)
	case ocr.ProviderOllama, ocr.ProviderOpenAI, ocr.ProviderGemini, ocr.ProviderAnthropic:
	default:
		return fmt.Errorf("ocr.provider %q is not supported", c.OCR.Provider)
	}
	if c.OCR.Temperature < 0 {
		return fmt.Errorf("ocr.temperature must not be negative")
	}
	if c.OCR.MaxTokens < 0 {
		return fmt.Errorf("ocr.max_tokens must not be negative")
	}

	if c.Extraction.Interval < 0 {
		return fmt.Errorf("extraction.interval must be positive")
	}
	if c.Extraction.MergeThreshold < 0 {
		return fmt.Errorf("extraction.merge_threshold must not be negative")
	}
	if c.Extraction.MinDuration < 0 {
		return fmt.Errorf("extraction.min_duration must not be negative")
	}
	if err := c.Extraction.Region.Validate(); err != nil {
		return fmt.Errorf("extraction.region: %w", err)
	}
	if c.Extraction.Format != "" {
		format, err := subtitle.ParseFormat(c.Extraction.Format)
		if err != nil {
			return fmt.Errorf("extraction.format: %w", err)
		}
		c.Extraction.Format = string(format)
	}

	if c.Extraction.Interval == 0 {
		c.Extraction.Interval = 1.0
	}
	if c.Extraction.MergeThreshold == 0 {
		c.Extraction.MergeThreshold = pipeline.DefaultMergeThreshold
	}
	if c.Extraction.MinDuration == 0 {
		c.Extraction.MinDuration = subtitle.DefaultMinDuration
	}
	if c.Extraction.Concurrency <= 0 {
		c.Extraction.Concurrency = 1
	}
	if c.Extraction.Format == "" {
		c.Extraction.Format = string(subtitle.FormatSRT)
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.UploadDir == "" {
		c.Server.UploadDir = "uploads"
	}
	if c.Server.Database == "" {
		c.Server.Database = "sublens.db"
	}

	if c.Watch.Input == "" {
		c.Watch.Input = "data/input"
	}
	if c.Watch.Output == "" {
		c.Watch.Output = "data/output"
	}
	if c.Watch.MaxConcurrent == 0 {
		c.Watch.MaxConcurrent = 2
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}

// PreprocessEnabled reports whether frames are binarized before recognition.
// Unset means on for Ollama and off for hosted models.
func (o OCRConfig) PreprocessEnabled() bool {
	if o.Preprocess != nil {
		return *o.Preprocess
	}
	return ocr.Provider(o.Provider) == ocr.ProviderOllama || o.Provider == ""
}

// Options converts the OCR section to recognizer options.
func (o OCRConfig) Options() ocr.Options {
	return ocr.Options{
		Model:       o.Model,
		Prompt:      o.Prompt,
		BaseURL:     o.BaseURL,
		Preprocess:  o.PreprocessEnabled(),
		Temperature: o.Temperature,
		MaxTokens:   o.MaxTokens,
	}
}

// Request builds an extraction request for path from the extraction section.
func (e ExtractionConfig) Request(path string) pipeline.Request {
	return pipeline.Request{
		Path:           path,
		Interval:       e.Interval,
		Region:         e.Region,
		MergeThreshold: e.MergeThreshold,
		MinDuration:    e.MinDuration,
		Concurrency:    e.Concurrency,
	}
}
