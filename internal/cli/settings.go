package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/sublens/internal/config"
	"github.com/mgpai22/sublens/internal/jobs"
	"github.com/mgpai22/sublens/internal/ocr"
	"github.com/mgpai22/sublens/internal/pipeline"
	"github.com/mgpai22/sublens/internal/video"
)

// resolveSettings layers flags over the environment over the config file
// over defaults. The provider flag is applied before the environment so
// the matching API key variable is picked up.
func resolveSettings(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Config{}
	if fileConfig != nil {
		cfg = *fileConfig
	}

	if v, ok := changedString(cmd, "provider"); ok {
		cfg.OCR.Provider = v
	}
	cfg.ApplyEnv(os.Getenv)

	if v, ok := changedString(cmd, "model"); ok {
		cfg.OCR.Model = v
	}
	if v, ok := changedString(cmd, "api-key"); ok {
		cfg.OCR.APIKey = v
	}
	if v, ok := changedString(cmd, "base-url"); ok {
		cfg.OCR.BaseURL = v
	}
	if cmd.Flags().Changed("preprocess") {
		v, _ := cmd.Flags().GetBool("preprocess")
		cfg.OCR.Preprocess = &v
	}
	if v, ok := changedFloat(cmd, "interval"); ok {
		cfg.Extraction.Interval = v
	}
	if v, ok := changedFloat(cmd, "merge-threshold"); ok {
		cfg.Extraction.MergeThreshold = v
	}
	if v, ok := changedFloat(cmd, "min-duration"); ok {
		cfg.Extraction.MinDuration = v
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Extraction.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	}
	if v, ok := changedString(cmd, "format"); ok {
		cfg.Extraction.Format = v
	}
	if v, ok := changedString(cmd, "roi"); ok {
		region, err := parseRegion(v)
		if err != nil {
			return nil, err
		}
		cfg.Extraction.Region = region
	}
	if v, ok := changedString(cmd, "addr"); ok {
		cfg.Server.Addr = v
	}
	if v, ok := changedString(cmd, "upload-dir"); ok {
		cfg.Server.UploadDir = v
	}
	if v, ok := changedString(cmd, "db"); ok {
		cfg.Server.Database = v
	}
	if v, ok := changedString(cmd, "input"); ok {
		cfg.Watch.Input = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func changedString(cmd *cobra.Command, name string) (string, bool) {
	f := cmd.Flags().Lookup(name)
	if f == nil || !f.Changed {
		return "", false
	}
	return f.Value.String(), true
}

func changedFloat(cmd *cobra.Command, name string) (float64, bool) {
	f := cmd.Flags().Lookup(name)
	if f == nil || !f.Changed {
		return 0, false
	}
	v, err := cmd.Flags().GetFloat64(name)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseRegion reads "x,y,width,height".
func parseRegion(s string) (pipeline.Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return pipeline.Region{}, fmt.Errorf("invalid region %q: expected x,y,width,height", s)
	}

	values := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return pipeline.Region{}, fmt.Errorf("invalid region %q: %q is not an integer", s, p)
		}
		values[i] = v
	}

	region := pipeline.Region{X: values[0], Y: values[1], Width: values[2], Height: values[3]}
	if err := region.Validate(); err != nil {
		return pipeline.Region{}, err
	}
	return region, nil
}

func requireRegion(region pipeline.Region) error {
	if region.Width == 0 || region.Height == 0 {
		return fmt.Errorf("a subtitle region is required: use --roi x,y,width,height or set extraction.region")
	}
	return nil
}

func addRecognitionFlags(cmd *cobra.Command) {
	cmd.Flags().
		String("provider", "ollama", "Recognition provider (ollama, openai, gemini, anthropic)")
	cmd.Flags().
		String("model", "", "Vision model to use (defaults per provider)")
	cmd.Flags().
		StringP("api-key", "k", "", "API key for hosted providers (or set the provider's *_API_KEY env var)")
	cmd.Flags().
		String("base-url", "", "API endpoint override; the Ollama host for the ollama provider")
	cmd.Flags().
		Bool("preprocess", false, "Binarize frames before recognition (default on for ollama)")
}

func addExtractionFlags(cmd *cobra.Command) {
	cmd.Flags().
		String("roi", "", "Subtitle region as x,y,width,height in pixels")
	cmd.Flags().
		Float64P("interval", "i", 1.0, "Seconds between sampled frames")
	cmd.Flags().
		Float64("merge-threshold", 0.5, "Largest gap in seconds between samples of one subtitle")
	cmd.Flags().
		Float64("min-duration", 1.0, "Minimum subtitle display time in seconds")
	cmd.Flags().
		Int("concurrency", 1, "Number of parallel recognition calls")
	cmd.Flags().
		StringP("format", "f", "srt", "Output subtitle format (srt, vtt, ass)")
}

func buildExtractor(ctx context.Context, cfg *config.Config) (*pipeline.Extractor, error) {
	provider := ocr.Provider(cfg.OCR.Provider)
	if env := ocr.APIKeyEnv(provider); env != "" && cfg.OCR.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required: use --api-key flag or set %s environment variable", provider, env)
	}

	recognizer, err := ocr.Factory(ctx, provider, cfg.OCR.APIKey, cfg.OCR.Options())
	if err != nil {
		return nil, fmt.Errorf("failed to create recognizer: %w", err)
	}
	return pipeline.NewExtractor(video.NewDecoder(), recognizer, logger), nil
}

// openHistory opens the job database; history is optional for one-off commands.
func openHistory(path string) *jobs.Store {
	store, err := jobs.Open(path)
	if err != nil {
		logger.Warnw("job history disabled", "database", path, "error", err)
		return nil
	}
	return store
}
