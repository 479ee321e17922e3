package subtitles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"subgen/internal/job"
)

// FormatTimecode renders d as HH:MM:SS,mmm, truncating below a millisecond.
// Negative durations clamp to zero.
func FormatTimecode(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	totalMillis := int64(d / time.Millisecond)
	hours := totalMillis / 3_600_000
	minutes := (totalMillis / 60_000) % 60
	seconds := (totalMillis / 1000) % 60
	millis := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}

// Render returns the SRT document for segments.
func Render(segments []job.Segment) []byte {
	var sb strings.Builder
	for i, seg := range segments {
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteByte('\n')
		sb.WriteString(FormatTimecode(seg.Start))
		sb.WriteString(" --> ")
		sb.WriteString(FormatTimecode(seg.End))
		sb.WriteByte('\n')
		sb.WriteString(cueText(seg.Text))
		sb.WriteString("\n\n")
	}
	return []byte(sb.String())
}

// cueText keeps cue boundaries intact: blank lines inside text would end the
// cue early, so they are collapsed and CRLF is folded to LF.
func cueText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(strings.TrimSpace(text), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}

// Write renders segments to dest and returns the written path. The parent
// directory is created when missing and an existing file is replaced
// atomically. An empty segment list fails with EmptyInput before anything on
// disk is touched.
func Write(segments []job.Segment, dest string) (string, error) {
	if len(segments) == 0 {
		return "", job.WriteError(job.KindEmptyInput, "no segments to write", nil)
	}
	if strings.TrimSpace(dest) == "" {
		return "", job.WriteError(job.KindPathNotWritable, "destination path required", nil)
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", job.WriteError(job.KindPathNotWritable, "create output directory "+dir, err)
	}
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		return "", job.WriteError(job.KindPathNotWritable, dest+" is a directory", nil)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return "", job.WriteError(job.KindPathNotWritable, "create temp file in "+dir, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(Render(segments)); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", job.WriteError(job.KindPathNotWritable, "write subtitle data", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", job.WriteError(job.KindPathNotWritable, "sync subtitle data", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", job.WriteError(job.KindPathNotWritable, "close subtitle file", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return "", job.WriteError(job.KindPathNotWritable, "set subtitle permissions", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		cleanup()
		return "", job.WriteError(job.KindPathNotWritable, "replace "+dest, err)
	}
	return dest, nil
}

// Exists reports whether path holds a non-empty subtitle with at least one
// valid cue.
func Exists(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		return false
	}
	count, err := CountCues(path)
	return err == nil && count > 0
}

// ErrMalformed reports SRT content that cannot be parsed.
var ErrMalformed = errors.New("malformed srt")
