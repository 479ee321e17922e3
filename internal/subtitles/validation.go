package subtitles

import (
	"fmt"
	"time"
)

// durationSlack tolerates trailing credits and silence detection drift.
const durationSlack = 5 * time.Second

// Validate checks an SRT file for format issues. It returns a list of issue
// codes; an empty list means validation passed. A positive mediaDuration
// additionally flags cues that run past the end of the media.
func Validate(path string, mediaDuration time.Duration) []string {
	segments, err := ParseFile(path)
	if err != nil {
		return []string{fmt.Sprintf("parse_error: %v", err)}
	}
	if len(segments) == 0 {
		return []string{"empty_subtitle_file"}
	}

	var issues []string
	var prevStart, prevEnd time.Duration
	for i, seg := range segments {
		switch {
		case seg.End <= seg.Start:
			issues = append(issues, fmt.Sprintf("non_positive_duration: cue %d", i+1))
		case i > 0 && seg.Start <= prevStart:
			issues = append(issues, fmt.Sprintf("out_of_order: cue %d", i+1))
		case i > 0 && seg.Start < prevEnd:
			issues = append(issues, fmt.Sprintf("overlap: cue %d", i+1))
		}
		if seg.Text == "" {
			issues = append(issues, fmt.Sprintf("empty_text: cue %d", i+1))
		}
		prevStart, prevEnd = seg.Start, seg.End
	}
	if mediaDuration > 0 {
		last := segments[len(segments)-1].End
		if last > mediaDuration+durationSlack {
			issues = append(issues, fmt.Sprintf("duration_mismatch: last cue ends %.1fs after media", (last-mediaDuration).Seconds()))
		}
	}
	return issues
}
