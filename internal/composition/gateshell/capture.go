package gateshell

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Magdyz/void-keygate/internal/gesture"
	"github.com/Magdyz/void-keygate/pkg/models"
)

// CaptureRhythm reads tap events until the user types "done". Each
// empty line is one tap; the rhythm is the wall-clock spacing of the
// presses. A terminal has no touch coordinates, so taps sit at the
// surface center with a neutral pressure.
func CaptureRhythm(readLine func() (string, error), now func() time.Time, out io.Writer) (models.Pattern, error) {
	fmt.Fprintln(out, "tap your rhythm: press Enter for each tap, type 'done' to finish")
	var taps []models.Tap
	var t0 time.Time
	for {
		line, err := readLine()
		if err != nil {
			return models.Pattern{}, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			at := now()
			if len(taps) == 0 {
				t0 = at
			}
			taps = append(taps, models.Tap{
				TimestampMS: uint64(at.Sub(t0) / time.Millisecond),
				X:           0.5,
				Y:           0.5,
				Pressure:    0.5,
				HoldMS:      40,
			})
			fmt.Fprintf(out, "  tap %d\n", len(taps))
		case "done":
			return models.Pattern{Taps: taps, CapturedAt: t0}, nil
		default:
			fmt.Fprintln(out, "  (Enter to tap, 'done' to finish)")
		}
	}
}

// CaptureStarSelection prints the landmark layout for a field and reads
// one line of landmark indices in tap order. Star matching ignores
// timing, so synthetic uniform intervals are good enough here.
func CaptureStarSelection(field *gesture.StarField, readLine func() (string, error), out io.Writer) (models.Pattern, error) {
	fmt.Fprintln(out, "star field layout:")
	for i, lm := range field.Landmarks() {
		fmt.Fprintf(out, "  %d: (%.2f, %.2f)\n", i, lm.X, lm.Y)
	}
	fmt.Fprintln(out, "enter landmark indices in tap order, space separated:")

	line, err := readLine()
	if err != nil {
		return models.Pattern{}, err
	}
	landmarks := field.Landmarks()
	fields := strings.Fields(line)
	taps := make([]models.Tap, 0, len(fields))
	ts := uint64(0)
	for _, f := range fields {
		idx, err := strconv.Atoi(f)
		if err != nil || idx < 0 || idx >= len(landmarks) {
			return models.Pattern{}, fmt.Errorf("%q is not a landmark index", f)
		}
		taps = append(taps, models.Tap{
			TimestampMS: ts,
			X:           landmarks[idx].X,
			Y:           landmarks[idx].Y,
			Pressure:    0.5,
			HoldMS:      40,
		})
		ts += 300
	}
	return models.Pattern{Taps: taps}, nil
}
