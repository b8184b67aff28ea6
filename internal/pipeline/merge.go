package pipeline

import (
	"strings"

	"github.com/mgpai22/sublens/internal/subtitle"
)

// DefaultMergeThreshold is the largest gap in seconds between two results of the same burst.
const DefaultMergeThreshold = 0.5

// MergedEntry is one subtitle line with the timestamp it first appeared at.
type MergedEntry = subtitle.Cue

// Merge collapses bursts of results into entries. results must be sorted by
// timestamp. Within a burst each result is compared with the result just
// before it, not with the accumulated text: repeats are dropped and distinct
// text is appended with a space. A gap larger than threshold ends the burst.
func Merge(results []Recognition, threshold float64) []MergedEntry {
	if len(results) == 0 {
		return nil
	}

	var merged []MergedEntry
	accText := results[0].Text
	accTimestamp := results[0].Timestamp

	for i := 1; i < len(results); i++ {
		prev, cur := results[i-1], results[i]

		if cur.Timestamp-prev.Timestamp <= threshold {
			if cur.Text == prev.Text {
				continue
			}
			if accText != "" && accText != cur.Text {
				accText += " " + cur.Text
			} else {
				accText = cur.Text
			}
			continue
		}

		merged = append(merged, MergedEntry{Timestamp: accTimestamp, Text: strings.TrimSpace(accText)})
		accText = cur.Text
		accTimestamp = cur.Timestamp
	}

	if accText != "" {
		merged = append(merged, MergedEntry{Timestamp: accTimestamp, Text: strings.TrimSpace(accText)})
	}
	return merged
}
