package transcribe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"subgen/internal/job"
)

var (
	segmentPattern  = regexp.MustCompile(`^\[(\d{2,}):(\d{2}):(\d{2})\.(\d{3})\s*-->\s*(\d{2,}):(\d{2}):(\d{2})\.(\d{3})\]\s?(.*)$`)
	progressPattern = regexp.MustCompile(`progress\s*=\s*(\d+(?:\.\d+)?)%`)
)

// parseSegmentLine reads one whisper stdout line. Lines that do not start
// with "[" are not segments and are ignored; a bracketed line that fails to
// parse is an error.
func parseSegmentLine(line string) (job.Segment, bool, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "[") {
		return job.Segment{}, false, nil
	}
	match := segmentPattern.FindStringSubmatch(trimmed)
	if match == nil {
		return job.Segment{}, false, fmt.Errorf("unparseable segment line %q", truncate(trimmed, 120))
	}
	start, err := clockToDuration(match[1], match[2], match[3], match[4])
	if err != nil {
		return job.Segment{}, false, fmt.Errorf("segment start in %q: %w", truncate(trimmed, 120), err)
	}
	end, err := clockToDuration(match[5], match[6], match[7], match[8])
	if err != nil {
		return job.Segment{}, false, fmt.Errorf("segment end in %q: %w", truncate(trimmed, 120), err)
	}
	return job.Segment{Start: start, End: end, Text: match[9]}, true, nil
}

func clockToDuration(h, m, s, ms string) (time.Duration, error) {
	hours, err := strconv.Atoi(h)
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(m)
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	millis, err := strconv.Atoi(ms)
	if err != nil {
		return 0, err
	}
	if minutes > 59 || seconds > 59 {
		return 0, fmt.Errorf("clock field out of range")
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}

// parseProgress extracts the percentage from a whisper progress callback line.
func parseProgress(line string) (float64, bool) {
	match := progressPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	if value > 100 {
		value = 100
	}
	return value, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
