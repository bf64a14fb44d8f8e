package gesture

import (
	"errors"
	"testing"

	"github.com/Magdyz/void-keygate/pkg/models"
)

func rawTap(ts uint64, x, y, pressure float32, hold uint64) models.Tap {
	return models.Tap{TimestampMS: ts, X: x, Y: y, Pressure: pressure, HoldMS: hold}
}

func TestQuantizeRebasesAndRounds(t *testing.T) {
	q := DefaultQuantizer()
	raw := models.Pattern{Taps: []models.Tap{
		rawTap(1000, 0.14, 0.52, 0.9, 62),
		rawTap(1423, 0.17, 0.55, 1.0, 30),
		rawTap(1812, 0.83, 0.11, 0.1, 110),
		rawTap(2240, 0.85, 0.09, 0.0, 74),
	}}

	got := q.Quantize(raw)
	if len(got.Taps) != 4 {
		t.Fatalf("expected 4 taps, got %d", len(got.Taps))
	}

	wantTS := []uint64{0, 400, 800, 1250}
	for i, want := range wantTS {
		if got.Taps[i].TimestampMS != want {
			t.Fatalf("tap %d timestamp: got %d, want %d", i, got.Taps[i].TimestampMS, want)
		}
	}

	// 0.14 and 0.17 share grid cell 1 of 10, whose center is 0.15.
	if got.Taps[0].X != 0.15 || got.Taps[1].X != 0.15 {
		t.Fatalf("near positions should share a cell center: %v vs %v", got.Taps[0].X, got.Taps[1].X)
	}
	// Pressure 0.9 and 1.0 both snap to the top of 4 levels.
	if got.Taps[0].Pressure != 1.0 || got.Taps[1].Pressure != 1.0 {
		t.Fatalf("high pressures should snap to 1.0: %v vs %v", got.Taps[0].Pressure, got.Taps[1].Pressure)
	}
	if got.Taps[2].Pressure != 0 || got.Taps[3].Pressure != 0 {
		t.Fatalf("low pressures should snap to 0: %v vs %v", got.Taps[2].Pressure, got.Taps[3].Pressure)
	}

	// Holds round to the 50ms quantum.
	wantHold := []uint64{50, 50, 100, 50}
	for i, want := range wantHold {
		if got.Taps[i].HoldMS != want {
			t.Fatalf("tap %d hold: got %d, want %d", i, got.Taps[i].HoldMS, want)
		}
	}

	if got.TotalDurationMS != 1300 {
		t.Fatalf("total duration: got %d, want 1300", got.TotalDurationMS)
	}
}

func TestQuantizeIdempotent(t *testing.T) {
	q := DefaultQuantizer()
	raw := models.Pattern{Taps: []models.Tap{
		rawTap(17, 0.031, 0.992, 0.4, 83),
		rawTap(461, 0.5, 0.5, 0.66, 41),
		rawTap(902, 0.78, 0.24, 0.2, 129),
		rawTap(1391, 0.999, 0.001, 0.85, 58),
	}}

	once := q.Quantize(raw)
	twice := q.Quantize(models.Pattern{Taps: canonicalToRaw(once), CapturedAt: once.CapturedAt})

	if len(once.Taps) != len(twice.Taps) {
		t.Fatalf("tap count changed on requantize: %d vs %d", len(once.Taps), len(twice.Taps))
	}
	for i := range once.Taps {
		if once.Taps[i] != twice.Taps[i] {
			t.Fatalf("tap %d changed on requantize: %+v vs %+v", i, once.Taps[i], twice.Taps[i])
		}
	}
	if once.TotalDurationMS != twice.TotalDurationMS {
		t.Fatalf("duration changed on requantize: %d vs %d", once.TotalDurationMS, twice.TotalDurationMS)
	}
}

func canonicalToRaw(p models.CanonicalPattern) []models.Tap {
	out := make([]models.Tap, len(p.Taps))
	for i, tap := range p.Taps {
		out[i] = models.Tap(tap)
	}
	return out
}

func TestQuantizeClampsOutOfRange(t *testing.T) {
	q := DefaultQuantizer()
	got := q.Quantize(models.Pattern{Taps: []models.Tap{
		rawTap(0, -0.3, 1.7, 2.5, 40),
		rawTap(500, 0.5, 0.5, -1, 40),
	}})

	if got.Taps[0].X != 0.05 {
		t.Fatalf("negative x should clamp to first cell center, got %v", got.Taps[0].X)
	}
	if got.Taps[0].Y != 0.95 {
		t.Fatalf("overflow y should clamp to last cell center, got %v", got.Taps[0].Y)
	}
	if got.Taps[0].Pressure != 1.0 {
		t.Fatalf("overflow pressure should clamp to 1.0, got %v", got.Taps[0].Pressure)
	}
	if got.Taps[1].Pressure != 0 {
		t.Fatalf("negative pressure should clamp to 0, got %v", got.Taps[1].Pressure)
	}
}

func TestQuantizeEmptyPattern(t *testing.T) {
	q := DefaultQuantizer()
	got := q.Quantize(models.Pattern{})
	if len(got.Taps) != 0 || got.TotalDurationMS != 0 {
		t.Fatalf("empty pattern should stay empty, got %+v", got)
	}
}

func TestValidateBounds(t *testing.T) {
	q := DefaultQuantizer()

	tooFew := q.Quantize(models.Pattern{Taps: []models.Tap{
		rawTap(0, 0.5, 0.5, 0.5, 40),
		rawTap(400, 0.5, 0.5, 0.5, 40),
		rawTap(800, 0.5, 0.5, 0.5, 40),
	}})
	if err := q.Validate(tooFew); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern for 3 taps, got %v", err)
	}

	taps := make([]models.Tap, 17)
	for i := range taps {
		taps[i] = rawTap(uint64(i)*300, 0.5, 0.5, 0.5, 40)
	}
	tooMany := q.Quantize(models.Pattern{Taps: taps})
	if err := q.Validate(tooMany); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern for 17 taps, got %v", err)
	}

	tooLong := q.Quantize(models.Pattern{Taps: []models.Tap{
		rawTap(0, 0.5, 0.5, 0.5, 40),
		rawTap(6000, 0.5, 0.5, 0.5, 40),
		rawTap(12000, 0.5, 0.5, 0.5, 40),
		rawTap(18000, 0.5, 0.5, 0.5, 40),
	}})
	if err := q.Validate(tooLong); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern for 18s pattern, got %v", err)
	}

	ok := q.Quantize(models.Pattern{Taps: []models.Tap{
		rawTap(0, 0.2, 0.2, 0.5, 40),
		rawTap(400, 0.4, 0.4, 0.5, 40),
		rawTap(800, 0.6, 0.6, 0.5, 40),
		rawTap(1200, 0.8, 0.8, 0.5, 40),
	}})
	if err := q.Validate(ok); err != nil {
		t.Fatalf("expected valid pattern, got %v", err)
	}
}
