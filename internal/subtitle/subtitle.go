package subtitle

import (
	"time"
)

// represents single subtitle entry
type Entry struct {
	Index     int
	StartTime time.Duration
	EndTime   time.Duration
	Text      string
}

// represents complete subtitle track
type Subtitle struct {
	Entries []Entry
}

// represents supported subtitle formats
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
	FormatASS Format = "ass"
)

// Block is one numbered, time-ranged subtitle unit. Start and End are seconds.
type Block struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Cue is a timestamped piece of text waiting to be laid out as a block.
type Cue struct {
	Timestamp float64
	Text      string
}

// interface for writing subtitles in a non-SRT format
type Writer interface {
	Encode(subtitle *Subtitle) string
}
