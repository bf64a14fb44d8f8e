package models

import "time"

// Tap is a single raw touch event produced by the capture surface.
// Timestamps are relative to the start of the capture, positions and
// pressure are normalized to [0,1]. Raw taps are never persisted.
type Tap struct {
	TimestampMS uint64  `json:"timestamp_ms"`
	X           float32 `json:"x"`
	Y           float32 `json:"y"`
	Pressure    float32 `json:"pressure"`
	HoldMS      uint64  `json:"hold_ms"`
}

// Pattern is a raw captured gesture: an ordered tap sequence.
type Pattern struct {
	Taps       []Tap     `json:"taps"`
	CapturedAt time.Time `json:"captured_at"`
}

// CanonicalTap is a Tap whose fields have been rounded to fixed quanta:
// time bucket, pressure level and position grid cell. Positions are stored
// as grid-cell center fractions so the form is resolution independent.
type CanonicalTap struct {
	TimestampMS uint64  `json:"timestamp_ms"`
	X           float32 `json:"x"`
	Y           float32 `json:"y"`
	Pressure    float32 `json:"pressure"`
	HoldMS      uint64  `json:"hold_ms"`
}

// CanonicalPattern is the discretized, device-independent form of a
// gesture. It is the only form that is ever stored or compared.
type CanonicalPattern struct {
	Taps            []CanonicalTap `json:"taps"`
	TotalDurationMS uint64         `json:"total_duration_ms"`
	CapturedAt      time.Time      `json:"captured_at"`
}

// Intervals returns the consecutive inter-tap timestamp differences,
// the primary matching signal. A pattern with n taps has n-1 intervals.
func (p CanonicalPattern) Intervals() []uint64 {
	if len(p.Taps) < 2 {
		return nil
	}
	out := make([]uint64, 0, len(p.Taps)-1)
	for i := 1; i < len(p.Taps); i++ {
		out = append(out, p.Taps[i].TimestampMS-p.Taps[i-1].TimestampMS)
	}
	return out
}

// MatchResult is the outcome of comparing a stored canonical pattern
// against a canonical attempt.
type MatchResult struct {
	Confidence float32     `json:"confidence"`
	IsMatch    bool        `json:"is_match"`
	Detail     MatchDetail `json:"-"`
}

// MatchDetail is a sealed variant: either TapCountMismatch or Scored.
// Call sites switch on the concrete type and handle both.
type MatchDetail interface {
	matchDetail()
}

// TapCountMismatch reports the O(1) short-circuit taken when the stored
// and attempted patterns differ in tap count.
type TapCountMismatch struct {
	StoredTaps  int
	AttemptTaps int
}

// Scored carries the component scores of a full fuzzy comparison.
type Scored struct {
	IntervalScore float32
	PositionScore float32
}

func (TapCountMismatch) matchDetail() {}
func (Scored) matchDetail()           {}
