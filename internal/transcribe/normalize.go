package transcribe

import (
	"sort"
	"strings"
	"time"

	"subgen/internal/job"
)

// Normalize returns segments that satisfy the subtitle invariants: trimmed
// non-empty text, End > Start >= 0, strictly increasing Start and no overlap
// with the previous segment. Segments sharing a start time are merged; an
// overlap is resolved by truncating the earlier segment's end. Times are
// truncated to whole milliseconds first, the resolution SRT can express, so
// every kept segment renders with End > Start.
func Normalize(segments []job.Segment) []job.Segment {
	cleaned := make([]job.Segment, 0, len(segments))
	for _, seg := range segments {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text == "" {
			continue
		}
		if seg.Start < 0 {
			seg.Start = 0
		}
		seg.Start = seg.Start.Truncate(time.Millisecond)
		seg.End = seg.End.Truncate(time.Millisecond)
		if seg.End <= seg.Start {
			continue
		}
		cleaned = append(cleaned, seg)
	}
	sort.SliceStable(cleaned, func(i, j int) bool {
		return cleaned[i].Start < cleaned[j].Start
	})

	out := make([]job.Segment, 0, len(cleaned))
	for _, seg := range cleaned {
		if n := len(out); n > 0 {
			prev := &out[n-1]
			if seg.Start == prev.Start {
				prev.Text = prev.Text + " " + seg.Text
				if seg.End > prev.End {
					prev.End = seg.End
				}
				continue
			}
			if prev.End > seg.Start {
				prev.End = seg.Start
			}
		}
		out = append(out, seg)
	}
	return out
}
