package keygate

import "time"

// Slot names the two independent registrations a gate can hold.
type Slot string

const (
	SlotReal  Slot = "real"
	SlotDecoy Slot = "decoy"
)

// UnlockResult is a closed set: Success, Failed or LockedOut. Callers
// switch on the concrete type and handle all three.
type UnlockResult interface {
	unlockResult()
}

// Success reports which slot matched. Seed is the identity seed for
// the real slot and nil for the decoy, which by construction has no
// identity behind it.
type Success struct {
	Slot       Slot
	Seed       []byte
	Confidence float32
}

// Failed is an ordinary non-match. AttemptsRemaining counts down to
// the next lockout.
type Failed struct {
	AttemptsRemaining int
}

// LockedOut is a state, not an error: the gate refuses attempts until
// the remaining duration has passed.
type LockedOut struct {
	Remaining time.Duration
}

func (Success) unlockResult()   {}
func (Failed) unlockResult()    {}
func (LockedOut) unlockResult() {}

// RecoveryResult is what a successful recover returns. NeedsNewPattern
// is always true: recovery restores the identity seed, never the
// gesture, so the caller must drive a fresh real registration next.
type RecoveryResult struct {
	NeedsNewPattern bool
	// IdentityID is derived from the recovered seed so the user can
	// confirm the phrase restored the identity they expected.
	IdentityID string
}
