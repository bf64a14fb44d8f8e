package keygate

import (
	"encoding/json"
	"time"

	"github.com/Magdyz/void-keygate/internal/securestore"
)

// securityState is persisted so that killing the process does not
// reset the attempt counters. An in-memory-only counter would turn
// every lockout into a restart away from five fresh guesses.
type securityState struct {
	FailedAttempts     int       `json:"failed_attempts"`
	CumulativeFailures int       `json:"cumulative_failures"`
	LockoutUntil       time.Time `json:"lockout_until,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func loadState(storage securestore.Store) (securityState, error) {
	raw, ok, err := storage.Get(storageKeyState)
	if err != nil {
		return securityState{}, err
	}
	if !ok {
		return securityState{}, nil
	}
	var st securityState
	if err := json.Unmarshal(raw, &st); err != nil {
		// A corrupt snapshot must not grant a fresh attempt budget at
		// the worst possible moment, so surface it.
		return securityState{}, err
	}
	return st, nil
}

func saveState(storage securestore.Store, st securityState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return storage.Put(storageKeyState, raw)
}

func (s securityState) lockedOut(now time.Time) bool {
	return !s.LockoutUntil.IsZero() && now.Before(s.LockoutUntil)
}

func (s securityState) lockoutRemaining(now time.Time) time.Duration {
	if !s.lockedOut(now) {
		return 0
	}
	return s.LockoutUntil.Sub(now)
}
