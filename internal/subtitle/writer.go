package subtitle

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WebVTT format
type VTTWriter struct{}

// Advanced SubStation Alpha format
type ASSWriter struct {
	Title    string
	FontName string
	FontSize int
}

func NewWriter(format Format) (Writer, error) {
	switch format {
	case FormatVTT:
		return &VTTWriter{}, nil
	case FormatASS:
		return &ASSWriter{
			Title:    "Sublens Extracted Subtitles",
			FontName: "Arial",
			FontSize: 20,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Encode renders blocks in the requested format. SRT goes through
// RenderBlocks so it stays byte-identical to Render.
func Encode(blocks []Block, format Format) (string, error) {
	if format == FormatSRT || format == "" {
		return RenderBlocks(blocks), nil
	}
	writer, err := NewWriter(format)
	if err != nil {
		return "", err
	}
	return writer.Encode(FromBlocks(blocks)), nil
}

// converts blocks into a track, truncating times to whole milliseconds
func FromBlocks(blocks []Block) *Subtitle {
	entries := make([]Entry, 0, len(blocks))
	for _, b := range blocks {
		entries = append(entries, Entry{
			Index:     b.Index,
			StartTime: secondsToDuration(b.Start),
			EndTime:   secondsToDuration(b.End),
			Text:      b.Text,
		})
	}
	return &Subtitle{Entries: entries}
}

func secondsToDuration(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(math.Floor(s*1000)) * time.Millisecond
}

// Encode writes numbered cues after the WEBVTT header.
func (w *VTTWriter) Encode(sub *Subtitle) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")
	for i, entry := range sub.Entries {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n",
			i+1, formatVTTTime(entry.StartTime), formatVTTTime(entry.EndTime), entry.Text)
	}
	return sb.String()
}

const assStyleFormat = "Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, " +
	"OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, " +
	"Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding"

const assEventFormat = "Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text"

// Encode writes a single bottom-centred Default style and one Dialogue line per entry.
func (w *ASSWriter) Encode(sub *Subtitle) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "[Script Info]\nTitle: %s\nScriptType: v4.00+\nCollisions: Normal\nPlayDepth: 0\n\n", w.Title)

	sb.WriteString("[V4+ Styles]\n" + assStyleFormat + "\n")
	fmt.Fprintf(&sb, "Style: Default,%s,%d,&H00FFFFFF,&H000000FF,&H00000000,&H00000000,"+
		"0,0,0,0,100,100,0,0,1,2,2,2,10,10,10,1\n\n", w.FontName, w.FontSize)

	sb.WriteString("[Events]\n" + assEventFormat + "\n")
	for _, entry := range sub.Entries {
		fmt.Fprintf(&sb, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			formatASSTime(entry.StartTime),
			formatASSTime(entry.EndTime),
			strings.ReplaceAll(entry.Text, "\n", `\N`))
	}
	return sb.String()
}

// clock splits d into hours, minutes, seconds and milliseconds.
func clock(d time.Duration) (h, m, s, ms int) {
	total := int(d / time.Millisecond)
	return total / 3600000, total / 60000 % 60, total / 1000 % 60, total % 1000
}

func formatVTTTime(d time.Duration) string {
	h, m, s, ms := clock(d)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func formatASSTime(d time.Duration) string {
	h, m, s, ms := clock(d)
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, ms/10)
}

// writes content to path, creating parent directories
func WriteFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// parses a user-supplied format name
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "srt":
		return FormatSRT, nil
	case "vtt":
		return FormatVTT, nil
	case "ass", "ssa":
		return FormatASS, nil
	default:
		return "", fmt.Errorf("unsupported format %q: use srt, vtt, or ass", s)
	}
}

// file extension for a format
func GetExtensionForFormat(format Format) string {
	switch format {
	case FormatVTT:
		return ".vtt"
	case FormatASS:
		return ".ass"
	default:
		return ".srt"
	}
}
