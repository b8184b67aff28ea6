package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgpai22/sublens/internal/jobs"
	"github.com/mgpai22/sublens/internal/subtitle"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job_id]",
	Short: "List recent extraction jobs",
	Long: `List extraction jobs recorded by extract, serve and watch, newest first.

With a job ID (or the short ID from the list) the job's details are shown,
followed by the first subtitles of its SRT output when the file still exists.

Examples:
  sublens jobs
  sublens jobs --limit 50 --db /var/lib/sublens/sublens.db
  sublens jobs 3f2a9c1e`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)

	jobsCmd.Flags().
		IntP("limit", "n", 20, "Number of jobs to show (0 for all)")
	jobsCmd.Flags().
		String("db", "", "Job history database (defaults to server.database)")
}

func runJobs(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := jobs.Open(settings.Server.Database)
	if err != nil {
		return fmt.Errorf("failed to open job history: %w", err)
	}
	defer store.Close()

	if len(args) == 1 {
		return showJob(cmd, store, args[0])
	}

	list, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No jobs recorded")
		return nil
	}
	fmt.Fprintln(out, renderJobs(list, shouldStyle(out)))
	return nil
}

func renderJobs(list []*jobs.Job, styled bool) string {
	headers := []string{"ID", "Status", "Origin", "Source", "Entries", "Frames", "Time", "Created"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft}

	rows := make([][]string, 0, len(list))
	for _, job := range list {
		id := job.ID
		if len(id) > 8 {
			id = id[:8]
		}
		elapsed := "-"
		if job.Status != jobs.StatusRunning {
			elapsed = strconv.FormatFloat(job.ProcessingSeconds, 'f', 1, 64) + "s"
		}
		status := string(job.Status)
		if job.ErrorMessage != "" {
			status += ": " + truncate(job.ErrorMessage, 40)
		}
		rows = append(rows, []string{
			id,
			status,
			string(job.Origin),
			job.SourcePath,
			strconv.Itoa(job.Entries),
			strconv.Itoa(job.SampledFrames),
			elapsed,
			job.CreatedAt.Local().Format(time.DateTime),
		})
	}
	return renderTable(headers, rows, aligns, styled)
}

func showJob(cmd *cobra.Command, store *jobs.Store, ref string) error {
	job, err := store.Find(cmd.Context(), ref)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %q not found", ref)
	}

	out := cmd.OutOrStdout()
	styled := shouldStyle(out)
	fmt.Fprintln(out, renderJobDetail(job, styled))

	if !strings.EqualFold(filepath.Ext(job.OutputPath), ".srt") {
		return nil
	}
	blocks, err := readSRT(job.OutputPath)
	if err != nil {
		logger.Debugw("subtitle preview unavailable", "output", job.OutputPath, "error", err)
		return nil
	}
	if preview := renderSubtitlePreview(blocks, previewBlocks, styled); preview != "" {
		fmt.Fprintln(out, preview)
	}
	return nil
}

func renderJobDetail(job *jobs.Job, styled bool) string {
	finished := "-"
	if !job.FinishedAt.IsZero() {
		finished = job.FinishedAt.Local().Format(time.DateTime)
	}
	rows := [][]string{
		{"ID", job.ID},
		{"Status", string(job.Status)},
		{"Origin", string(job.Origin)},
		{"Source", job.SourcePath},
		{"Region", job.Region},
		{"Interval", strconv.FormatFloat(job.FrameInterval, 'f', -1, 64) + "s"},
		{"Frames", fmt.Sprintf("%d sampled, %d skipped", job.SampledFrames, job.SkippedFrames)},
		{"Entries", strconv.Itoa(job.Entries)},
		{"Output", job.OutputPath},
		{"Time", strconv.FormatFloat(job.ProcessingSeconds, 'f', 1, 64) + "s"},
		{"Created", job.CreatedAt.Local().Format(time.DateTime)},
		{"Finished", finished},
	}
	if job.ErrorMessage != "" {
		rows = append(rows, []string{"Error", job.ErrorMessage})
	}
	return renderTable([]string{"Field", "Value"}, rows, nil, styled)
}

const previewBlocks = 10

func readSRT(path string) ([]subtitle.Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return subtitle.ParseSRT(f)
}

// renderSubtitlePreview tabulates the first limit blocks.
func renderSubtitlePreview(blocks []subtitle.Block, limit int, styled bool) string {
	if len(blocks) == 0 {
		return ""
	}
	shown := blocks[:min(limit, len(blocks))]
	rows := make([][]string, 0, len(shown)+1)
	for _, b := range shown {
		rows = append(rows, []string{
			strconv.Itoa(b.Index),
			subtitle.FormatTimestamp(b.Start),
			subtitle.FormatTimestamp(b.End),
			strings.ReplaceAll(b.Text, "\n", " / "),
		})
	}
	if rest := len(blocks) - len(shown); rest > 0 {
		rows = append(rows, []string{"", "", "", fmt.Sprintf("... %d more", rest)})
	}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}
	return renderTable([]string{"#", "Start", "End", "Text"}, rows, aligns, styled)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
