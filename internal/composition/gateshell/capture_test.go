package gateshell

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Magdyz/void-keygate/internal/gesture"
)

func scriptedLines(lines ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		if i >= len(lines) {
			return "", io.EOF
		}
		line := lines[i]
		i++
		return line, nil
	}
}

func steppingClock(step time.Duration) func() time.Time {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		now := at
		at = at.Add(step)
		return now
	}
}

func TestCaptureRhythm(t *testing.T) {
	var out strings.Builder
	pattern, err := CaptureRhythm(scriptedLines("", "", "bogus", "", "done"), steppingClock(400*time.Millisecond), &out)
	if err != nil {
		t.Fatalf("CaptureRhythm: %v", err)
	}
	if len(pattern.Taps) != 3 {
		t.Fatalf("tap count = %d, want 3", len(pattern.Taps))
	}
	for i, want := range []uint64{0, 400, 800} {
		if got := pattern.Taps[i].TimestampMS; got != want {
			t.Fatalf("tap %d timestamp = %d, want %d", i, got, want)
		}
	}
	if !strings.Contains(out.String(), "tap 3") {
		t.Fatalf("missing tap feedback in output: %s", out.String())
	}
}

func TestCaptureRhythmPropagatesReadErrors(t *testing.T) {
	var out strings.Builder
	if _, err := CaptureRhythm(scriptedLines("", ""), steppingClock(time.Second), &out); err != io.EOF {
		t.Fatalf("error = %v, want io.EOF", err)
	}
}

func TestCaptureStarSelection(t *testing.T) {
	field, err := gesture.NewStarField([]byte("orion-belt-7"), gesture.DefaultLandmarkCount)
	if err != nil {
		t.Fatalf("NewStarField: %v", err)
	}
	landmarks := field.Landmarks()

	var out strings.Builder
	pattern, err := CaptureStarSelection(field, scriptedLines("0 3 6"), &out)
	if err != nil {
		t.Fatalf("CaptureStarSelection: %v", err)
	}
	if len(pattern.Taps) != 3 {
		t.Fatalf("tap count = %d, want 3", len(pattern.Taps))
	}
	for i, idx := range []int{0, 3, 6} {
		if pattern.Taps[i].X != landmarks[idx].X || pattern.Taps[i].Y != landmarks[idx].Y {
			t.Fatalf("tap %d not at landmark %d", i, idx)
		}
	}
	if pattern.Taps[2].TimestampMS != 600 {
		t.Fatalf("third tap timestamp = %d, want 600", pattern.Taps[2].TimestampMS)
	}

	if _, err := CaptureStarSelection(field, scriptedLines("0 99"), &out); err == nil {
		t.Fatal("out-of-range index accepted")
	}
	if _, err := CaptureStarSelection(field, scriptedLines("zero"), &out); err == nil {
		t.Fatal("non-numeric index accepted")
	}
}
