package job

import "time"

// Segment is a timed span of recognized text.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Duration returns the length of the segment.
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// Progress is a best-effort progress report from a running stage.
// Percent is negative when unknown.
type Progress struct {
	Stage   Stage
	Percent float64
	Message string
	Stalled bool
}
