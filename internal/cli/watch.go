package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mgpai22/sublens/internal/jobs"
	"github.com/mgpai22/sublens/internal/subtitle"
	"github.com/mgpai22/sublens/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Extract subtitles from videos dropped into a directory",
	Long: `Watch a directory and extract subtitles from every new video.

Subtitle files are written to the output directory (-o) using the
configured region. With --archive, processed videos are moved out of
the input directory.

Examples:
  sublens watch --input data/input -o data/output --roi 0,900,1920,180
  sublens watch --config sublens.yaml --archive data/done`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	addExtractionFlags(watchCmd)
	addRecognitionFlags(watchCmd)
	watchCmd.Flags().
		String("input", "", "Directory to watch (default \"data/input\")")
	watchCmd.Flags().
		String("archive", "", "Move processed videos into this directory")
	watchCmd.Flags().
		Int("max-concurrent", 0, "Videos processed at once (default 2)")
	watchCmd.Flags().
		String("db", "", "Job history database (defaults to server.database)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	settings, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	if err := requireRegion(settings.Extraction.Region); err != nil {
		return err
	}

	outputDir, _ := cmd.Flags().GetString("output")
	if outputDir == "" {
		outputDir = settings.Watch.Output
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	archiveDir, _ := cmd.Flags().GetString("archive")
	if archiveDir == "" {
		archiveDir = settings.Watch.Archived
	}
	if archiveDir != "" {
		if err := os.MkdirAll(archiveDir, 0755); err != nil {
			return fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	maxConcurrent := settings.Watch.MaxConcurrent
	if cmd.Flags().Changed("max-concurrent") {
		maxConcurrent, _ = cmd.Flags().GetInt("max-concurrent")
	}

	format, err := subtitle.ParseFormat(settings.Extraction.Format)
	if err != nil {
		return err
	}

	extractor, err := buildExtractor(ctx, settings)
	if err != nil {
		return err
	}

	store := openHistory(settings.Server.Database)
	if store != nil {
		defer store.Close()
	}
	recorder := jobs.NewRecorder(store, logger)

	handler := func(ctx context.Context, videoPath string) error {
		outputPath := outputPathFor(videoPath, outputDir, format)
		req := settings.Extraction.Request(videoPath)

		res, err := extractToFile(ctx, extractor, recorder, jobs.OriginWatch, req, settings, format, outputPath)
		if err != nil {
			return err
		}
		logger.Infow("Subtitles written",
			"input", videoPath,
			"output", outputPath,
			"entries", len(res.Entries),
			"duration", res.ProcessingTime,
		)

		if archiveDir != "" {
			dest := filepath.Join(archiveDir, filepath.Base(videoPath))
			if err := os.Rename(videoPath, dest); err != nil {
				return fmt.Errorf("failed to archive %s: %w", videoPath, err)
			}
		}
		return nil
	}

	w, err := watcher.New(settings.Watch.Input, handler, logger, maxConcurrent)
	if err != nil {
		return err
	}
	defer w.Stop()

	logger.Infow("Watching for videos",
		"input", settings.Watch.Input,
		"output", outputDir,
		"region", settings.Extraction.Region.String(),
		"max_concurrent", maxConcurrent,
	)

	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Infow("Watcher stopped")
	return nil
}
