package gesture

import (
	"errors"
	"fmt"

	"github.com/Magdyz/void-keygate/pkg/models"
)

// ErrInvalidPattern is the base error for every validity rejection.
// Callers match it with errors.Is; the wrapped message carries the
// specific bound that was violated.
var ErrInvalidPattern = errors.New("invalid pattern")

const (
	DefaultTimeQuantumMS  = 50
	DefaultPressureLevels = 4
	DefaultGridSize       = 10

	DefaultMinTaps       = 4
	DefaultMaxTaps       = 16
	DefaultMaxDurationMS = 15_000
)

// Quantizer maps raw gestures onto fixed quanta. Quantization is where
// tolerance is injected: near-identical raw input collapses onto the same
// canonical form before the fuzzy matcher ever runs.
type Quantizer struct {
	// TimeQuantumMS is the bucket that timestamps and hold durations are
	// rounded to, in milliseconds.
	TimeQuantumMS uint64
	// PressureLevels is the number of discrete pressure values.
	PressureLevels int
	// GridSize is N for the N×N position grid. Canonical positions are
	// grid-cell centers expressed as fractions of the capture surface.
	GridSize int

	// Validity bounds enforced by Validate.
	MinTaps       int
	MaxTaps       int
	MaxDurationMS uint64
}

func DefaultQuantizer() Quantizer {
	return Quantizer{
		TimeQuantumMS:  DefaultTimeQuantumMS,
		PressureLevels: DefaultPressureLevels,
		GridSize:       DefaultGridSize,
		MinTaps:        DefaultMinTaps,
		MaxTaps:        DefaultMaxTaps,
		MaxDurationMS:  DefaultMaxDurationMS,
	}
}

// Quantize produces the canonical form of a raw gesture. It is pure and
// deterministic: identical input always yields identical output, and
// quantizing an already-canonical pattern changes nothing. Timestamps are
// rebased so the first tap lands at zero before rounding.
func (q Quantizer) Quantize(p models.Pattern) models.CanonicalPattern {
	out := models.CanonicalPattern{
		Taps:       make([]models.CanonicalTap, 0, len(p.Taps)),
		CapturedAt: p.CapturedAt,
	}
	if len(p.Taps) == 0 {
		return out
	}

	base := p.Taps[0].TimestampMS
	for _, tap := range p.Taps {
		ts := tap.TimestampMS
		if ts < base {
			ts = base
		}
		out.Taps = append(out.Taps, models.CanonicalTap{
			TimestampMS: roundToQuantum(ts-base, q.timeQuantum()),
			X:           q.snapToGrid(tap.X),
			Y:           q.snapToGrid(tap.Y),
			Pressure:    q.snapPressure(tap.Pressure),
			HoldMS:      roundToQuantum(tap.HoldMS, q.timeQuantum()),
		})
	}

	last := out.Taps[len(out.Taps)-1]
	out.TotalDurationMS = last.TimestampMS + last.HoldMS
	return out
}

// Validate enforces the registration invariant: tap count inside the
// configured window and total duration under the hard ceiling. Patterns
// that fail here are rejected before any hardware call is made.
func (q Quantizer) Validate(p models.CanonicalPattern) error {
	minTaps, maxTaps := q.tapBounds()
	if len(p.Taps) < minTaps {
		return fmt.Errorf("%w: %d taps, need at least %d", ErrInvalidPattern, len(p.Taps), minTaps)
	}
	if len(p.Taps) > maxTaps {
		return fmt.Errorf("%w: %d taps, limit is %d", ErrInvalidPattern, len(p.Taps), maxTaps)
	}
	if maxDur := q.maxDuration(); p.TotalDurationMS > maxDur {
		return fmt.Errorf("%w: duration %dms exceeds %dms", ErrInvalidPattern, p.TotalDurationMS, maxDur)
	}
	return nil
}

func (q Quantizer) timeQuantum() uint64 {
	if q.TimeQuantumMS == 0 {
		return DefaultTimeQuantumMS
	}
	return q.TimeQuantumMS
}

func (q Quantizer) pressureLevels() int {
	if q.PressureLevels < 2 {
		return DefaultPressureLevels
	}
	return q.PressureLevels
}

func (q Quantizer) gridSize() int {
	if q.GridSize < 2 {
		return DefaultGridSize
	}
	return q.GridSize
}

func (q Quantizer) tapBounds() (int, int) {
	minTaps, maxTaps := q.MinTaps, q.MaxTaps
	if minTaps < 2 {
		minTaps = DefaultMinTaps
	}
	if maxTaps < minTaps {
		maxTaps = DefaultMaxTaps
	}
	return minTaps, maxTaps
}

func (q Quantizer) maxDuration() uint64 {
	if q.MaxDurationMS == 0 {
		return DefaultMaxDurationMS
	}
	return q.MaxDurationMS
}

func roundToQuantum(v, quantum uint64) uint64 {
	return ((v + quantum/2) / quantum) * quantum
}

// snapToGrid maps a [0,1] coordinate to the center of its grid cell.
// Cell centers round back to the same cell, which makes Quantize
// idempotent on positions.
func (q Quantizer) snapToGrid(v float32) float32 {
	n := q.gridSize()
	cell := int(clamp01(v) * float32(n))
	if cell >= n {
		cell = n - 1
	}
	return (float32(cell) + 0.5) / float32(n)
}

func (q Quantizer) snapPressure(v float32) float32 {
	levels := q.pressureLevels()
	step := float32(levels - 1)
	level := int(clamp01(v)*step + 0.5)
	return float32(level) / step
}

func clamp01(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
