package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mgpai22/sublens/internal/video"
)

var infoCmd = &cobra.Command{
	Use:   "info [video_file]",
	Short: "Show video stream information",
	Long: `Print the frame rate, frame count, resolution and duration of a video.

Useful for choosing a subtitle region before running extract.

Examples:
  sublens info movie.mp4`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	videoPath := args[0]
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", videoPath)
	}

	meta, err := video.Probe(cmd.Context(), videoPath)
	if err != nil {
		return fmt.Errorf("failed to read video: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderInfo(videoPath, meta, shouldStyle(out)))
	return nil
}

func renderInfo(path string, meta video.Metadata, styled bool) string {
	rows := [][]string{
		{"File", path},
		{"Codec", meta.Codec},
		{"Resolution", fmt.Sprintf("%dx%d", meta.Width, meta.Height)},
		{"Frame rate", strconv.FormatFloat(meta.FPS, 'f', 3, 64)},
		{"Frames", strconv.Itoa(meta.FrameCount)},
		{"Duration", fmt.Sprintf("%.2fs", meta.Duration())},
	}
	return renderTable([]string{"Property", "Value"}, rows, nil, styled)
}
