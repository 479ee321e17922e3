package subtitles

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"subgen/internal/job"
)

func sampleSegments() []job.Segment {
	return []job.Segment{
		{Start: 0, End: 3500 * time.Millisecond, Text: "你好，世界"},
		{Start: 3500 * time.Millisecond, End: time.Hour + 2*time.Minute + 3*time.Second + 456789*time.Microsecond, Text: "second cue"},
	}
}

func TestFormatTimecode(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00,000"},
		{3500 * time.Millisecond, "00:00:03,500"},
		{999999 * time.Microsecond, "00:00:00,999"},
		{time.Hour + 2*time.Minute + 3*time.Second + 4*time.Millisecond, "01:02:03,004"},
		{100 * time.Hour, "100:00:00,000"},
		{-time.Second, "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := FormatTimecode(tt.in); got != tt.want {
			t.Errorf("FormatTimecode(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteProducesExactFormat(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "nested", "out.srt")
	path, err := Write(sampleSegments(), dest)
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if path != dest {
		t.Fatalf("path = %q, want %q", path, dest)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:03,500\n你好，世界\n\n" +
		"2\n00:00:03,500 --> 01:02:03,456\nsecond cue\n\n"
	if string(data) != want {
		t.Fatalf("content mismatch:\n%q\nwant\n%q", data, want)
	}
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		t.Fatal("file must not start with a BOM")
	}
	if bytes.Contains(data, []byte("\r")) {
		t.Fatal("file must use LF line endings")
	}
}

func TestWriteIsIdempotentAndOverwrites(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.srt")
	if err := os.WriteFile(dest, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Write(sampleSegments(), dest); err != nil {
		t.Fatalf("first write: %v", err)
	}
	first, _ := os.ReadFile(dest)
	if _, err := Write(sampleSegments(), dest); err != nil {
		t.Fatalf("second write: %v", err)
	}
	second, _ := os.ReadFile(dest)
	if !bytes.Equal(first, second) {
		t.Fatal("repeated writes should be byte-identical")
	}

	entries, _ := os.ReadDir(filepath.Dir(dest))
	if len(entries) != 1 {
		t.Fatalf("expected no leftover temp files, found %d entries", len(entries))
	}
}

func TestWriteEmptyInputLeavesDiskUntouched(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "sub", "none.srt")
	_, err := Write(nil, missing)
	if job.KindOf(err) != job.KindEmptyInput {
		t.Fatalf("kind = %q, err = %v", job.KindOf(err), err)
	}
	var stageErr *job.StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != job.StageWriting {
		t.Fatalf("expected writing stage error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Dir(missing)); !os.IsNotExist(statErr) {
		t.Fatal("parent directory should not be created for empty input")
	}

	existing := filepath.Join(dir, "keep.srt")
	if err := os.WriteFile(existing, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Write([]job.Segment{}, existing); job.KindOf(err) != job.KindEmptyInput {
		t.Fatalf("expected EmptyInput, got %v", err)
	}
	data, _ := os.ReadFile(existing)
	if string(data) != "original" {
		t.Fatalf("existing file modified: %q", data)
	}
}

func TestWriteUnwritableDestination(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	dir := filepath.Join(t.TempDir(), "ro")
	if err := os.MkdirAll(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })
	_, err := Write(sampleSegments(), filepath.Join(dir, "out.srt"))
	if job.KindOf(err) != job.KindPathNotWritable {
		t.Fatalf("kind = %q, err = %v", job.KindOf(err), err)
	}
}

func TestWriteIntoDirectoryPathFails(t *testing.T) {
	dir := t.TempDir()
	_, err := Write(sampleSegments(), dir)
	if job.KindOf(err) != job.KindPathNotWritable {
		t.Fatalf("kind = %q, err = %v", job.KindOf(err), err)
	}
}

func TestRenderFoldsBlankLinesInText(t *testing.T) {
	out := string(Render([]job.Segment{{Start: 0, End: time.Second, Text: "line one\r\n\r\nline two"}}))
	if out != "1\n00:00:00,000 --> 00:00:01,000\nline one\nline two\n\n" {
		t.Fatalf("unexpected render %q", out)
	}
}

func TestParseRoundTrip(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.srt")
	segments := sampleSegments()
	if _, err := Write(segments, dest); err != nil {
		t.Fatal(err)
	}
	parsed, err := ParseFile(dest)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(parsed) != 2 || parsed[0].Text != segments[0].Text {
		t.Fatalf("unexpected parse %+v", parsed)
	}
	if parsed[1].End != time.Hour+2*time.Minute+3*time.Second+456*time.Millisecond {
		t.Fatalf("end not truncated to millis: %v", parsed[1].End)
	}
	count, err := CountCues(dest)
	if err != nil || count != 2 {
		t.Fatalf("CountCues = %d, %v", count, err)
	}
	if !Exists(dest) {
		t.Fatal("Exists should report a valid subtitle")
	}
	if issues := Validate(dest, 2*time.Hour); len(issues) != 0 {
		t.Fatalf("unexpected issues %v", issues)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, input := range []string{
		"1\nnot a timing line\ntext\n",
		"x\n00:00:00,000 --> 00:00:01,000\ntext\n",
		"1\n00:00:00 --> 00:00:01,000\ntext\n",
		"1\n",
	} {
		if _, err := Parse([]byte(input)); !errors.Is(err, ErrMalformed) {
			t.Errorf("Parse(%q) error = %v, want ErrMalformed", input, err)
		}
	}
	segments, err := Parse([]byte("\ufeff1\r\n00:00:01,000 --> 00:00:02,000\r\nhi\r\n"))
	if err != nil || len(segments) != 1 || segments[0].Text != "hi" {
		t.Fatalf("BOM/CRLF input: %+v, %v", segments, err)
	}
}

func TestValidateFlagsIssues(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	empty := write("empty.srt", "")
	if issues := Validate(empty, 0); len(issues) != 1 || issues[0] != "empty_subtitle_file" {
		t.Fatalf("empty: %v", issues)
	}
	if Exists(empty) {
		t.Fatal("empty file should not count as existing subtitle")
	}

	overlap := write("overlap.srt", "1\n00:00:00,000 --> 00:00:05,000\na\n\n2\n00:00:04,000 --> 00:00:06,000\nb\n\n3\n00:00:07,000 --> 00:00:07,000\nc\n")
	issues := Validate(overlap, time.Second)
	joined := strings.Join(issues, ";")
	for _, want := range []string{"overlap: cue 2", "non_positive_duration: cue 3", "duration_mismatch"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("issues %v missing %q", issues, want)
		}
	}

	if issues := Validate(filepath.Join(dir, "missing.srt"), 0); len(issues) != 1 || !strings.HasPrefix(issues[0], "parse_error") {
		t.Fatalf("missing: %v", issues)
	}
}

func TestSanitizeTitleAndOutputPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AWS 课程: 第1讲 / 概览", "AWS 课程 第1讲 概览"},
		{"  spaced\tout  ", "spaced out"},
		{"Part one\nPart two", "Part one Part two"},
		{"Col A\r\nCol B", "Col A Col B"},
		{"...", ""},
		{"a\x00b", "ab"},
		{"Café", "Café"},
	}
	for _, tt := range tests {
		if got := SanitizeTitle(tt.in); got != tt.want {
			t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := strings.Repeat("字", 100)
	if got := SanitizeTitle(long); len(got) > maxNameBytes || !strings.HasPrefix(long, got) {
		t.Fatalf("long title not truncated on rune boundary: %d bytes", len(got))
	}

	if got := OutputPath("/out", "Talk", 0, "abcd1234"); got != filepath.Join("/out", "Talk.srt") {
		t.Fatalf("OutputPath = %q", got)
	}
	if got := OutputPath("/out", "  ", 2, "abcd1234"); got != filepath.Join("/out", "3-abcd1234.srt") {
		t.Fatalf("fallback OutputPath = %q", got)
	}
}
