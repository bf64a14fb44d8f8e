package keygate

import "errors"

var (
	// ErrKeystore wraps hardware key-store failures surfaced by
	// register and recover. During unlock evaluation a store failure
	// folds into the non-match outcome; the one exception is a matched
	// real slot whose seed cannot be produced, which is broken state
	// and not a failed attempt.
	ErrKeystore = errors.New("keygate: keystore operation failed")
	// ErrStorage wraps secure-storage failures on the mutating paths.
	ErrStorage = errors.New("keygate: secure storage operation failed")
	// ErrInvalidPhrase covers every recovery-phrase rejection. The
	// wrapped cause says whether count, dictionary or checksum failed.
	ErrInvalidPhrase = errors.New("keygate: invalid recovery phrase")
	// ErrRecoveryPaced is returned when recovery attempts arrive
	// faster than the limiter allows. It is pacing, not a retry limit;
	// waiting makes it pass.
	ErrRecoveryPaced = errors.New("keygate: recovery attempts too frequent")
	// ErrSlot rejects slot values other than the two defined ones.
	ErrSlot = errors.New("keygate: unknown slot")
)
