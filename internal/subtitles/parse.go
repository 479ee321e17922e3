package subtitles

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"subgen/internal/job"
)

// ParseTimecode parses HH:MM:SS,mmm. A period is accepted in place of the
// comma.
func ParseTimecode(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("%w: empty timestamp", ErrMalformed)
	}
	value = strings.ReplaceAll(value, ".", ",")
	clock, fraction, ok := strings.Cut(value, ",")
	if !ok {
		return 0, fmt.Errorf("%w: invalid timestamp %q", ErrMalformed, value)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("%w: invalid timestamp %q", ErrMalformed, value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(fraction)
	if errH != nil || errM != nil || errS != nil || errMS != nil || minutes > 59 || seconds > 59 || len(fraction) != 3 {
		return 0, fmt.Errorf("%w: invalid timestamp %q", ErrMalformed, value)
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}

// Parse decodes SRT content into segments in file order.
func Parse(data []byte) ([]job.Segment, error) {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}
	blocks := strings.Split(content, "\n\n")
	segments := make([]job.Segment, 0, len(blocks))
	for i, block := range blocks {
		block = strings.Trim(block, "\n")
		if strings.TrimSpace(block) == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		if len(lines) < 2 {
			return nil, fmt.Errorf("%w: cue %d is truncated", ErrMalformed, i+1)
		}
		if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err != nil {
			return nil, fmt.Errorf("%w: cue %d has no index", ErrMalformed, i+1)
		}
		startText, endText, ok := strings.Cut(lines[1], "-->")
		if !ok {
			return nil, fmt.Errorf("%w: cue %d has no timing line", ErrMalformed, i+1)
		}
		start, err := ParseTimecode(startText)
		if err != nil {
			return nil, fmt.Errorf("cue %d start: %w", i+1, err)
		}
		end, err := ParseTimecode(endText)
		if err != nil {
			return nil, fmt.Errorf("cue %d end: %w", i+1, err)
		}
		segments = append(segments, job.Segment{
			Start: start,
			End:   end,
			Text:  strings.Join(lines[2:], "\n"),
		})
	}
	return segments, nil
}

// ParseFile reads and parses the SRT file at path.
func ParseFile(path string) ([]job.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	return Parse(data)
}

// CountCues returns the number of non-empty cue blocks in the file.
func CountCues(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read srt: %w", err)
	}
	content := strings.TrimSpace(strings.ReplaceAll(string(data), "\r\n", "\n"))
	if content == "" {
		return 0, nil
	}
	count := 0
	for _, block := range strings.Split(content, "\n\n") {
		if strings.Contains(block, "-->") {
			count++
		}
	}
	return count, nil
}
