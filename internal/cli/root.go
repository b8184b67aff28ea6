package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mgpai22/sublens/internal/config"
	"github.com/mgpai22/sublens/internal/logging"
)

// Version is set at build time with -ldflags "-X".
var Version = "dev"

var (
	verbose    bool
	configPath string
	fileConfig *config.Config
	logger     *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sublens",
	Short: "Extract burned-in subtitles from videos",
	Long: `Sublens reads hard-coded subtitles out of video frames.

It samples frames at a fixed interval, crops the subtitle region,
recognizes the text with a vision model and writes time-coded
subtitles (SRT, VTT or ASS).

Recognition runs against a local Ollama server by default; OpenAI,
Gemini and Anthropic models are supported with an API key.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// a missing .env is fine
		_ = godotenv.Load()

		cfg, err := config.LoadOptional(configPath)
		if err != nil {
			return err
		}
		fileConfig = cfg

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger = logging.NewWithLevel(level)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute runs the CLI, cancelling the command on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path (output directory for watch)")
}
