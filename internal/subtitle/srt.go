package subtitle

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultMinDuration is the floor on a block's displayed length in seconds.
const DefaultMinDuration = 1.0

// Blocks lays cues out as numbered blocks. Each block lasts
// max(minDuration, frameInterval) seconds from its cue's timestamp; blocks
// may overlap the next cue.
func Blocks(cues []Cue, frameInterval, minDuration float64) []Block {
	if len(cues) == 0 {
		return nil
	}

	length := math.Max(minDuration, frameInterval)
	blocks := make([]Block, 0, len(cues))
	for i, cue := range cues {
		blocks = append(blocks, Block{
			Index: i + 1,
			Start: cue.Timestamp,
			End:   cue.Timestamp + length,
			Text:  cue.Text,
		})
	}
	return blocks
}

// Render produces SubRip text for cues. An empty cue list renders as "".
func Render(cues []Cue, frameInterval, minDuration float64) string {
	return RenderBlocks(Blocks(cues, frameInterval, minDuration))
}

// RenderBlocks writes each block as index, time range, text and a blank line,
// joined with newlines.
func RenderBlocks(blocks []Block) string {
	if len(blocks) == 0 {
		return ""
	}

	lines := make([]string, 0, len(blocks)*4)
	for _, b := range blocks {
		lines = append(lines,
			strconv.Itoa(b.Index),
			FormatTimestamp(b.Start)+" --> "+FormatTimestamp(b.End),
			b.Text,
			"",
		)
	}
	return strings.Join(lines, "\n")
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm. Every component is
// truncated, never rounded, and hours do not wrap at 24.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}

	hours := int64(math.Floor(seconds / 3600))
	minutes := int64(math.Floor(math.Mod(seconds, 3600) / 60))
	secs := int64(math.Mod(seconds, 60))
	millis := int64((seconds - math.Trunc(seconds)) * 1000)

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

var timestampRegex = regexp.MustCompile(`^(\d{2,}):(\d{2}):(\d{2}),(\d{3})$`)

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(s string) (float64, error) {
	m := timestampRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid SRT timestamp %q", s)
	}

	h, _ := strconv.ParseInt(m[1], 10, 64)
	mins, _ := strconv.ParseInt(m[2], 10, 64)
	sec, _ := strconv.ParseInt(m[3], 10, 64)
	ms, _ := strconv.ParseInt(m[4], 10, 64)
	if mins > 59 || sec > 59 {
		return 0, fmt.Errorf("invalid SRT timestamp %q", s)
	}

	totalMillis := ((h*60+mins)*60+sec)*1000 + ms
	return float64(totalMillis) / 1000, nil
}
