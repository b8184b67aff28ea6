package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mgpai22/sublens/internal/jobs"
	"github.com/mgpai22/sublens/internal/ocr"
	"github.com/mgpai22/sublens/internal/pipeline"
	"github.com/mgpai22/sublens/internal/server"
	"github.com/mgpai22/sublens/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP extraction API",
	Long: `Serve the upload, extract and video streaming API.

Uploaded videos are stored under --upload-dir with generated names.
Extraction requests reference them by that name and return SRT text.

Examples:
  sublens serve
  sublens serve --addr :9000 --upload-dir /srv/uploads
  sublens serve --provider openai --concurrency 4`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	addRecognitionFlags(serveCmd)
	serveCmd.Flags().
		String("addr", "", "Listen address (default \":8000\")")
	serveCmd.Flags().
		String("upload-dir", "", "Directory for uploaded videos (or set UPLOAD_DIR)")
	serveCmd.Flags().
		String("db", "", "Job history database")
	serveCmd.Flags().
		Float64("merge-threshold", 0.5, "Largest gap in seconds between samples of one subtitle")
	serveCmd.Flags().
		Float64("min-duration", 1.0, "Minimum subtitle display time in seconds")
	serveCmd.Flags().
		Int("concurrency", 1, "Number of parallel recognition calls per request")
	serveCmd.Flags().
		Int64("max-upload", server.DefaultMaxUploadBytes, "Largest accepted upload in bytes")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	settings, err := resolveSettings(cmd)
	if err != nil {
		return err
	}

	extractor, err := buildExtractor(ctx, settings)
	if err != nil {
		return err
	}

	uploads, err := storage.NewUploads(settings.Server.UploadDir)
	if err != nil {
		return err
	}

	store, err := jobs.Open(settings.Server.Database)
	if err != nil {
		return fmt.Errorf("failed to open job history: %w", err)
	}
	defer store.Close()

	maxUpload, _ := cmd.Flags().GetInt64("max-upload")

	srv := server.New(server.Options{
		Addr:    settings.Server.Addr,
		Version: Version,
		Defaults: pipeline.Request{
			MergeThreshold: settings.Extraction.MergeThreshold,
			MinDuration:    settings.Extraction.MinDuration,
			Concurrency:    settings.Extraction.Concurrency,
		},
		MaxUploadBytes: maxUpload,
	}, extractor, uploads, store, logger)

	logger.Infow("Starting API server",
		"addr", settings.Server.Addr,
		"provider", settings.OCR.Provider,
		"model", ocr.ModelName(extractor.Recognizer),
		"database", store.Path(),
	)

	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
