package gesture

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/Magdyz/void-keygate/pkg/models"
)

var (
	ErrFieldSeed   = errors.New("star field seed must not be empty")
	ErrFieldLayout = errors.New("star field layout failed")
)

const (
	// DefaultLandmarkCount is how many landmarks a field lays out.
	DefaultLandmarkCount = 9
	// MaxLandmarkCount is the densest layout NewStarField accepts.
	// Separation bottoms out at the hit radius, and past this count the
	// margin-inset surface cannot seat a field.
	MaxLandmarkCount = 16
	// DefaultHitRadius is the normalized distance within which a tap
	// snaps to a landmark. Beyond it the tap is a no-hit.
	DefaultHitRadius = 0.11

	// fieldMargin keeps landmarks away from the surface edge so the hit
	// circle never leaves the capture area.
	fieldMargin = 0.12
	// minSeparation keeps hit circles from overlapping, so nearest-
	// landmark resolution is unambiguous.
	minSeparation = 0.24

	// placementTriesPerLandmark bounds the layout loop. Running out
	// means the seed cannot seat the requested density, and the layout
	// fails instead of spinning.
	placementTriesPerLandmark = 256
)

// Landmark is a single visual anchor in a star field, positioned as
// fractions of the capture surface.
type Landmark struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// StarField is a deterministic layout of landmarks derived from a seed.
// The same seed always yields the same field, which is what lets setup,
// confirmation, and unlock all present an identical sky.
type StarField struct {
	landmarks []Landmark
	hitRadius float32
}

// NewStarField lays out count landmarks from seed. Placement draws
// candidate positions from a hash counter stream and keeps the first
// candidates that respect the margin and separation rules, so layout is
// reproducible without any random source. Counts past MaxLandmarkCount,
// and seeds whose candidate stream cannot seat the field, fail with
// ErrFieldLayout.
func NewStarField(seed []byte, count int) (*StarField, error) {
	if len(seed) == 0 {
		return nil, ErrFieldSeed
	}
	if count <= 0 {
		count = DefaultLandmarkCount
	}
	if count > MaxLandmarkCount {
		return nil, fmt.Errorf("%w: %d landmarks, limit is %d", ErrFieldLayout, count, MaxLandmarkCount)
	}

	f := &StarField{
		landmarks: make([]Landmark, 0, count),
		hitRadius: DefaultHitRadius,
	}

	var ctr uint64
	relaxed := float32(minSeparation)
	attempts := 0
	limit := count * placementTriesPerLandmark
	for len(f.landmarks) < count {
		if attempts >= limit {
			return nil, fmt.Errorf("%w: placed %d of %d landmarks", ErrFieldLayout, len(f.landmarks), count)
		}
		x, y := candidateAt(seed, ctr)
		ctr++
		attempts++
		// A dense field on a small surface may not admit the full
		// separation; relax it gradually rather than spin forever, but
		// never below the hit radius or nearest-landmark resolution
		// would turn ambiguous.
		if attempts > 64 && attempts%64 == 0 && relaxed*0.9 >= f.hitRadius {
			relaxed *= 0.9
		}
		if !f.admits(x, y, relaxed) {
			continue
		}
		f.landmarks = append(f.landmarks, Landmark{X: x, Y: y})
	}
	return f, nil
}

func candidateAt(seed []byte, ctr uint64) (float32, float32) {
	h := sha256.New()
	h.Write(seed)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], ctr)
	h.Write(buf[:])
	sum := h.Sum(nil)

	span := float32(1 - 2*fieldMargin)
	x := fieldMargin + unitFraction(sum[0:8])*span
	y := fieldMargin + unitFraction(sum[8:16])*span
	return x, y
}

func unitFraction(b []byte) float32 {
	v := binary.BigEndian.Uint64(b)
	return float32(float64(v) / float64(math.MaxUint64))
}

func (f *StarField) admits(x, y, separation float32) bool {
	for _, lm := range f.landmarks {
		if distance(x, y, lm.X, lm.Y) < separation {
			return false
		}
	}
	return true
}

// Landmarks returns a copy of the field layout in placement order.
func (f *StarField) Landmarks() []Landmark {
	out := make([]Landmark, len(f.landmarks))
	copy(out, f.landmarks)
	return out
}

// ResolveTap snaps a position to its nearest landmark. The second return
// is false when no landmark lies within the hit radius; callers drop
// such taps instead of recording them, so stray touches never dilute an
// attempt.
func (f *StarField) ResolveTap(x, y float32) (int, bool) {
	best := -1
	bestDist := float32(math.MaxFloat32)
	for i, lm := range f.landmarks {
		if d := distance(x, y, lm.X, lm.Y); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 || bestDist > f.hitRadius {
		return -1, false
	}
	return best, true
}

// Resolve maps every tap of a pattern onto its landmark index. Taps that
// miss all landmarks resolve to -1; sequence-level callers treat any -1
// as disqualifying because captured attempts are supposed to be filtered
// tap by tap at input time.
func (f *StarField) Resolve(p models.CanonicalPattern) []int {
	out := make([]int, len(p.Taps))
	for i, tap := range p.Taps {
		idx, ok := f.ResolveTap(tap.X, tap.Y)
		if !ok {
			idx = -1
		}
		out[i] = idx
	}
	return out
}

func distance(x1, y1, x2, y2 float32) float32 {
	dx := float64(x1 - x2)
	dy := float64(y1 - y2)
	return float32(math.Sqrt(dx*dx + dy*dy))
}
