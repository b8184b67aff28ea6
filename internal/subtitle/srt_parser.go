package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseSRT reads SubRip text back into blocks. Multi-line cue text is
// joined with "\n".
func ParseSRT(r io.Reader) ([]Block, error) {
	var blocks []Block
	scanner := bufio.NewScanner(r)

	var current *Block
	var timed bool
	var textLines []string
	lineNum := 0

	flush := func() {
		if current != nil && timed && len(textLines) > 0 {
			current.Text = strings.Join(textLines, "\n")
			blocks = append(blocks, *current)
		}
		current = nil
		timed = false
		textLines = nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		lineNum++

		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		if current == nil {
			index, err := strconv.Atoi(strings.TrimSpace(line))
			if err != nil {
				return nil, fmt.Errorf("expected cue index at line %d, got %q", lineNum, line)
			}
			current = &Block{Index: index}
			continue
		}

		if !timed {
			start, end, ok := strings.Cut(line, "-->")
			if !ok {
				return nil, fmt.Errorf("expected time range at line %d, got %q", lineNum, line)
			}
			startTime, err := ParseTimestamp(start)
			if err != nil {
				return nil, fmt.Errorf("invalid start timestamp at line %d: %w", lineNum, err)
			}
			endTime, err := ParseTimestamp(end)
			if err != nil {
				return nil, fmt.Errorf("invalid end timestamp at line %d: %w", lineNum, err)
			}
			current.Start = startTime
			current.End = endTime
			timed = true
			continue
		}

		textLines = append(textLines, line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading SRT: %w", err)
	}

	return blocks, nil
}
