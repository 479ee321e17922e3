package transcribe

import (
	"testing"
	"time"

	"subgen/internal/job"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestNormalize(t *testing.T) {
	input := []job.Segment{
		{Start: ms(3000), End: ms(4000), Text: " third "},
		{Start: ms(0), End: ms(1500), Text: "first"},
		{Start: ms(1000), End: ms(2000), Text: "overlaps first"},
		{Start: ms(2500), End: ms(2500), Text: "zero length"},
		{Start: ms(2600), End: ms(2900), Text: "   "},
		{Start: ms(3000), End: ms(3500), Text: "same start"},
		{Start: ms(5000), End: ms(4000), Text: "inverted"},
	}
	got := Normalize(input)
	want := []job.Segment{
		{Start: ms(0), End: ms(1000), Text: "first"},
		{Start: ms(1000), End: ms(2000), Text: "overlaps first"},
		{Start: ms(3000), End: ms(4000), Text: "third same start"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("segment %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestNormalizeInvariants(t *testing.T) {
	input := []job.Segment{
		{Start: ms(500), End: ms(5000), Text: "long"},
		{Start: ms(600), End: ms(700), Text: "inside"},
		{Start: ms(650), End: ms(900), Text: "inside again"},
		{Start: ms(-100), End: ms(200), Text: "negative start"},
	}
	got := Normalize(input)
	for i, seg := range got {
		if seg.Start < 0 || seg.End <= seg.Start || seg.Text == "" {
			t.Fatalf("segment %d violates invariants: %+v", i, seg)
		}
		if i > 0 {
			prev := got[i-1]
			if seg.Start <= prev.Start || prev.End > seg.Start {
				t.Fatalf("segments %d/%d overlap or are unordered: %+v %+v", i-1, i, prev, seg)
			}
		}
	}
	if Normalize(nil) == nil {
		t.Fatal("Normalize should return an empty non-nil slice")
	}
}

func TestNormalizeMillisecondResolution(t *testing.T) {
	input := []job.Segment{
		{Start: ms(1000), End: ms(1000) + 500*time.Microsecond, Text: "sub-millisecond"},
		{Start: ms(2000) + 300*time.Microsecond, End: ms(3000), Text: "a"},
		{Start: ms(2000) + 700*time.Microsecond, End: ms(2500), Text: "b"},
		{Start: ms(3000) + 400*time.Microsecond, End: ms(4000) + 900*time.Microsecond, Text: "c"},
	}
	got := Normalize(input)
	want := []job.Segment{
		{Start: ms(2000), End: ms(3000), Text: "a b"},
		{Start: ms(3000), End: ms(4000), Text: "c"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("segment %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseSegmentLine(t *testing.T) {
	seg, ok, err := parseSegmentLine("[01:02:03.456 --> 01:02:04.000]   hello")
	if err != nil || !ok {
		t.Fatalf("parse: ok=%v err=%v", ok, err)
	}
	wantStart := time.Hour + 2*time.Minute + 3*time.Second + 456*time.Millisecond
	if seg.Start != wantStart || seg.End != wantStart+544*time.Millisecond {
		t.Fatalf("unexpected times %+v", seg)
	}

	if _, ok, err := parseSegmentLine("main: processing 'clip.mp3'"); ok || err != nil {
		t.Fatalf("non-bracket line should be ignored, ok=%v err=%v", ok, err)
	}
	if _, _, err := parseSegmentLine("[00:61:00.000 --> 00:62:00.000] bad"); err == nil {
		t.Fatal("expected out-of-range error")
	}
	if _, _, err := parseSegmentLine("[nonsense]"); err == nil {
		t.Fatal("expected error for malformed bracket line")
	}
}

func TestParseProgress(t *testing.T) {
	if v, ok := parseProgress("whisper_print_progress_callback: progress =  35%"); !ok || v != 35 {
		t.Fatalf("got %v %v", v, ok)
	}
	if _, ok := parseProgress("whisper_init_from_file: loading model"); ok {
		t.Fatal("unexpected progress match")
	}
}
