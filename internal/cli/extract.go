package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgpai22/sublens/internal/config"
	"github.com/mgpai22/sublens/internal/jobs"
	"github.com/mgpai22/sublens/internal/ocr"
	"github.com/mgpai22/sublens/internal/pipeline"
	"github.com/mgpai22/sublens/internal/subtitle"
	"github.com/mgpai22/sublens/internal/video"
)

var extractCmd = &cobra.Command{
	Use:   "extract [video_file]",
	Short: "Extract burned-in subtitles from a video",
	Long: `Extract hard-coded subtitles from a region of a video.

Frames are sampled every --interval seconds between --start and --end
(the whole video by default), cropped to --roi and read by the vision
model. Consecutive identical readings are merged into one subtitle.

Examples:
  sublens extract movie.mp4 --roi 0,900,1920,180
  sublens extract movie.mp4 --roi 0,900,1920,180 -i 0.5 -f vtt -o movie.vtt
  sublens extract clip.mkv --roi 100,600,1080,120 --provider gemini --start 60 --end 120
  sublens extract clip.mkv --roi 0,0,640,80 -o -`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	addExtractionFlags(extractCmd)
	addRecognitionFlags(extractCmd)
	extractCmd.Flags().
		Float64("start", 0, "Start time in seconds")
	extractCmd.Flags().
		Float64("end", 0, "End time in seconds (defaults to the video duration)")
	extractCmd.Flags().
		String("db", "", "Job history database (defaults to server.database)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	videoPath := args[0]
	ctx := cmd.Context()

	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", videoPath)
	}
	if !video.IsVideoFile(videoPath) {
		return fmt.Errorf("unsupported file type: %s (expected a video file)", filepath.Ext(videoPath))
	}

	settings, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	if err := requireRegion(settings.Extraction.Region); err != nil {
		return err
	}

	format, err := subtitle.ParseFormat(settings.Extraction.Format)
	if err != nil {
		return err
	}

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		outputPath = outputPathFor(videoPath, "", format)
	}

	req := settings.Extraction.Request(videoPath)
	req.Start, _ = cmd.Flags().GetFloat64("start")
	if cmd.Flags().Changed("end") {
		end, _ := cmd.Flags().GetFloat64("end")
		req.End = &end
	}

	extractor, err := buildExtractor(ctx, settings)
	if err != nil {
		return err
	}

	store := openHistory(settings.Server.Database)
	if store != nil {
		defer store.Close()
	}

	logger.Infow("Starting subtitle extraction",
		"input", videoPath,
		"output", outputPath,
		"format", format,
		"provider", settings.OCR.Provider,
		"model", ocr.ModelName(extractor.Recognizer),
		"region", req.Region.String(),
		"interval", req.Interval,
		"concurrency", req.Concurrency,
	)

	res, err := extractToFile(ctx, extractor, jobs.NewRecorder(store, logger), jobs.OriginCLI, req, settings, format, outputPath)
	if err != nil {
		return err
	}

	if outputPath == "-" {
		return nil
	}
	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Subtitles written to %s (%d entries from %d frames in %s)\n",
		absOutput, len(res.Entries), res.Sampled, res.ProcessingTime.Round(time.Millisecond))
	return nil
}

// extractToFile runs one extraction, records it, and writes the encoded
// subtitles to outputPath ("-" for stdout).
func extractToFile(
	ctx context.Context,
	extractor *pipeline.Extractor,
	recorder *jobs.Recorder,
	origin jobs.Origin,
	req pipeline.Request,
	settings *config.Config,
	format subtitle.Format,
	outputPath string,
) (*pipeline.Result, error) {
	jobID := recorder.Start(ctx, req.Path, origin, req.Region.String(), req.Interval)

	res, err := extractor.Extract(ctx, req)
	if err != nil {
		recorder.Finish(ctx, jobID, jobs.Outcome{}, err)
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	content, err := subtitle.Encode(res.Blocks(req.Interval, settings.Extraction.MinDuration), format)
	if err == nil {
		if outputPath == "-" {
			_, err = fmt.Fprintln(os.Stdout, content)
		} else {
			err = subtitle.WriteFile(outputPath, content)
		}
	}
	if err != nil {
		recorder.Finish(ctx, jobID, jobs.Outcome{}, err)
		return nil, fmt.Errorf("failed to write subtitles: %w", err)
	}

	recorder.Finish(ctx, jobID, jobs.Outcome{
		SampledFrames:     res.Sampled,
		SkippedFrames:     len(res.Skips),
		Entries:           len(res.Entries),
		OutputPath:        outputPath,
		ProcessingSeconds: res.ProcessingTime.Seconds(),
	}, nil)
	return res, nil
}

// outputPathFor names the subtitle file after the video, inside dir when set.
func outputPathFor(videoPath, dir string, format subtitle.Format) string {
	base := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))
	if dir != "" {
		base = filepath.Join(dir, filepath.Base(base))
	}
	return base + subtitle.GetExtensionForFormat(format)
}
