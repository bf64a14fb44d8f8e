package gesture

import (
	"github.com/Magdyz/void-keygate/pkg/models"
)

const (
	DefaultTimingToleranceRatio = 0.25
	DefaultPositionWeight       = 0.15
	DefaultConfidenceThreshold  = 0.75

	positionZonesPerAxis = 3
)

// Profile parameterizes the matcher for one gesture modality. The
// algorithm is identical across modalities; only the weights differ.
type Profile struct {
	// TimingToleranceRatio scales each expected interval into its
	// tolerance band width.
	TimingToleranceRatio float32
	// PositionWeight blends the position score against the interval
	// score. 0 ignores position entirely, 1 ignores timing entirely.
	PositionWeight float32
	// ConfidenceThreshold is the pass mark for the blended confidence.
	ConfidenceThreshold float32
}

// RhythmProfile weights timing heavily. Timing carries the entropy for
// tapped rhythms; position is only a secondary signal, so a correct
// rhythm with two adjacent positions swapped still passes.
func RhythmProfile() Profile {
	return Profile{
		TimingToleranceRatio: DefaultTimingToleranceRatio,
		PositionWeight:       DefaultPositionWeight,
		ConfidenceThreshold:  DefaultConfidenceThreshold,
	}
}

// StarFieldProfile ignores timing. Landmark selection carries the
// entropy for star fields, and the gravity-well snap has already
// absorbed position noise by the time matching runs.
func StarFieldProfile() Profile {
	return Profile{
		TimingToleranceRatio: DefaultTimingToleranceRatio,
		PositionWeight:       1.0,
		ConfidenceThreshold:  DefaultConfidenceThreshold,
	}
}

// Match scores an attempt against a stored pattern. It is a pure
// function: no state, no clock, no side effects.
//
// A tap-count mismatch short-circuits with no further computation. The
// count is not treated as secret because capture surfaces enforce equal
// counts before submission ever happens.
func (pr Profile) Match(stored, attempt models.CanonicalPattern) models.MatchResult {
	if len(stored.Taps) != len(attempt.Taps) {
		return models.MatchResult{
			Confidence: 0,
			IsMatch:    false,
			Detail: models.TapCountMismatch{
				StoredTaps:  len(stored.Taps),
				AttemptTaps: len(attempt.Taps),
			},
		}
	}

	intervalScore := pr.scoreIntervals(stored.Intervals(), attempt.Intervals())
	positionScore := scoreZones(stored.Taps, attempt.Taps)
	return pr.result(intervalScore, positionScore)
}

// MatchIndexed scores an attempt against a stored pattern for the
// star-field modality: positions are compared as ordered landmark index
// sequences resolved through the field, not as zones. A tap in either
// pattern that resolves to no landmark can never score.
func (pr Profile) MatchIndexed(stored, attempt models.CanonicalPattern, field *StarField) models.MatchResult {
	if len(stored.Taps) != len(attempt.Taps) {
		return models.MatchResult{
			Confidence: 0,
			IsMatch:    false,
			Detail: models.TapCountMismatch{
				StoredTaps:  len(stored.Taps),
				AttemptTaps: len(attempt.Taps),
			},
		}
	}

	intervalScore := pr.scoreIntervals(stored.Intervals(), attempt.Intervals())
	positionScore := scoreLandmarks(field.Resolve(stored), field.Resolve(attempt))
	return pr.result(intervalScore, positionScore)
}

func (pr Profile) result(intervalScore, positionScore float32) models.MatchResult {
	w := pr.PositionWeight
	confidence := intervalScore*(1-w) + positionScore*w
	return models.MatchResult{
		Confidence: confidence,
		IsMatch:    confidence >= pr.threshold(),
		Detail: models.Scored{
			IntervalScore: intervalScore,
			PositionScore: positionScore,
		},
	}
}

// scoreIntervals assigns each interval pair a banded score and averages.
// Bands rather than a smooth curve keep each cutoff discrete and
// testable, and deny a brute-force search any gradient to climb.
func (pr Profile) scoreIntervals(expected, actual []uint64) float32 {
	if len(expected) == 0 {
		// Degenerate single-tap case. Registration validation keeps it
		// from occurring outside tests.
		return 1.0
	}

	ratio := pr.TimingToleranceRatio
	if ratio <= 0 {
		ratio = DefaultTimingToleranceRatio
	}

	var total float32
	for i, exp := range expected {
		tolerance := float32(exp) * ratio
		total += bandScore(absDiff(exp, actual[i]), tolerance)
	}
	return total / float32(len(expected))
}

func bandScore(diff, tolerance float32) float32 {
	switch {
	case diff <= tolerance*0.5:
		return 1.0
	case diff <= tolerance:
		return 0.85
	case diff <= tolerance*1.5:
		return 0.5
	case diff <= tolerance*2:
		return 0.25
	default:
		return 0
	}
}

func absDiff(a, b uint64) float32 {
	if a > b {
		return float32(a - b)
	}
	return float32(b - a)
}

// scoreZones buckets positions into a coarse 3x3 grid and counts pairs
// that land in the same zone.
func scoreZones(stored, attempt []models.CanonicalTap) float32 {
	if len(stored) == 0 {
		return 1.0
	}
	hits := 0
	for i := range stored {
		if zoneOf(stored[i].X, stored[i].Y) == zoneOf(attempt[i].X, attempt[i].Y) {
			hits++
		}
	}
	return float32(hits) / float32(len(stored))
}

func zoneOf(x, y float32) int {
	return zoneAxis(y)*positionZonesPerAxis + zoneAxis(x)
}

func zoneAxis(v float32) int {
	z := int(clamp01(v) * positionZonesPerAxis)
	if z >= positionZonesPerAxis {
		z = positionZonesPerAxis - 1
	}
	return z
}

// scoreLandmarks counts index-for-index agreement between two resolved
// sequences. Unresolved entries (-1) never count as agreement, even
// against each other.
func scoreLandmarks(stored, attempt []int) float32 {
	if len(stored) == 0 {
		return 1.0
	}
	hits := 0
	for i := range stored {
		if stored[i] >= 0 && stored[i] == attempt[i] {
			hits++
		}
	}
	return float32(hits) / float32(len(stored))
}

func (pr Profile) threshold() float32 {
	if pr.ConfidenceThreshold <= 0 {
		return DefaultConfidenceThreshold
	}
	return pr.ConfidenceThreshold
}
