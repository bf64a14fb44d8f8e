// Package keygate implements the behavioral key gate: a gesture does
// not derive any key, it only authorizes use of keys that already live
// in the hardware store. The manager owns the dual real/decoy
// evaluation, the failure budget with lockout and panic wipe, and the
// recovery path that restores an identity seed from its phrase.
package keygate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Magdyz/void-keygate/internal/crypto"
	"github.com/Magdyz/void-keygate/internal/gesture"
	"github.com/Magdyz/void-keygate/internal/identity"
	"github.com/Magdyz/void-keygate/internal/keystore"
	"github.com/Magdyz/void-keygate/internal/mnemonic"
	"github.com/Magdyz/void-keygate/internal/securestore"
	"github.com/Magdyz/void-keygate/pkg/models"
)

const (
	aliasPrefix = "void.gate."
	aliasReal   = aliasPrefix + "real"
	aliasDecoy  = aliasPrefix + "decoy"

	storageKeyTemplateReal  = "gate/template/real"
	storageKeyTemplateDecoy = "gate/template/decoy"
	storageKeySeed          = "gate/seed"
	storageKeyState         = "gate/state"
)

var errSeedMissing = errors.New("identity seed is not stored")

// Manager is the key-gate state machine. One mutex serializes every
// operation: two unlock attempts racing past the lockout check before
// either commits its counter would defeat the rate limit, so there is
// deliberately no finer-grained locking.
type Manager struct {
	mu sync.Mutex

	cfg     Config
	keys    keystore.Store
	storage securestore.Store

	quant  gesture.Quantizer
	rhythm gesture.Profile
	star   gesture.Profile

	log     *slog.Logger
	metrics *Metrics

	recoveryPace *rate.Limiter
	state        securityState

	now   func() time.Time
	sleep func(time.Duration)
}

type Option func(*Manager)

func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.cfg = cfg }
}

func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// New builds a gate over the given key store and secure storage and
// loads any persisted security state, so lockouts survive restarts.
func New(keys keystore.Store, storage securestore.Store, opts ...Option) (*Manager, error) {
	return newManager(keys, storage, time.Now, time.Sleep, opts...)
}

func newManager(keys keystore.Store, storage securestore.Store, now func() time.Time, sleep func(time.Duration), opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg:     DefaultConfig(),
		keys:    keys,
		storage: storage,
		log:     slog.Default(),
		now:     now,
		sleep:   sleep,
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("keygate config: %w", err)
	}

	m.quant = m.cfg.quantizer()
	m.rhythm = m.cfg.rhythmProfile()
	m.star = m.cfg.starFieldProfile()
	m.recoveryPace = rate.NewLimiter(rate.Limit(m.cfg.RecoveryPerSec), m.cfg.RecoveryBurst)

	st, err := loadState(storage)
	if err != nil {
		return nil, fmt.Errorf("%w: load security state: %v", ErrStorage, err)
	}
	m.state = st

	m.log.Debug("key gate ready", "config", describeConfig(m.cfg), "tier", string(keys.Tier()))
	return m, nil
}

// Register stores a rhythm pattern in the given slot. For the real
// slot it returns the recovery phrase of the identity seed now gated
// behind that pattern; for the decoy slot the phrase is empty, since a
// decoy has no identity and nothing to recover.
//
// Re-registration overwrites the slot without consulting the old
// pattern. The real slot's identity seed survives re-registration: it
// is re-sealed under the rotated key, and the returned phrase encodes
// the same seed as before.
func (m *Manager) Register(raw models.Pattern, slot Slot) (string, error) {
	return m.register(raw, slot, nil)
}

// RegisterStarField stores a star-field pattern: taps select landmarks
// laid out deterministically from fieldSeed, and matching compares the
// landmark order instead of rhythm. Every tap must hit a landmark.
func (m *Manager) RegisterStarField(raw models.Pattern, fieldSeed []byte, slot Slot) (string, error) {
	if len(fieldSeed) == 0 {
		return "", gesture.ErrFieldSeed
	}
	return m.register(raw, slot, fieldSeed)
}

func (m *Manager) register(raw models.Pattern, slot Slot, fieldSeed []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	templateKey, alias, err := slotKeys(slot)
	if err != nil {
		return "", err
	}

	pattern := m.quant.Quantize(raw)
	if err := m.quant.Validate(pattern); err != nil {
		return "", err
	}

	modality := ModalityRhythm
	if fieldSeed != nil {
		modality = ModalityStarField
		field, err := gesture.NewStarField(fieldSeed, m.cfg.LandmarkCount)
		if err != nil {
			return "", err
		}
		for i, idx := range field.Resolve(pattern) {
			if idx < 0 {
				return "", fmt.Errorf("%w: tap %d hits no landmark", gesture.ErrInvalidPattern, i+1)
			}
		}
	}

	// Rescue the identity seed before the alias key rotates away
	// beneath it. Without this, changing the pattern would orphan the
	// identity that recovery and re-registration are meant to keep.
	var seed []byte
	defer func() { crypto.Zero(seed) }()
	if slot == SlotReal {
		existing, err := m.fetchSeedLocked()
		switch {
		case err == nil:
			seed = existing
		case errors.Is(err, errSeedMissing):
		default:
			m.log.Warn("stored identity seed is unreadable, issuing a fresh one")
		}
	}

	if err := m.keys.Generate(alias, m.cfg.UseStrongBox); err != nil {
		return "", fmt.Errorf("%w: generate key: %v", ErrKeystore, err)
	}

	blob, err := encodeTemplate(templateBlob{Modality: modality, FieldSeed: fieldSeed, Pattern: pattern})
	if err != nil {
		return "", err
	}
	sealed, err := m.keys.Encrypt(alias, blob)
	if err != nil {
		return "", fmt.Errorf("%w: seal template: %v", ErrKeystore, err)
	}
	if err := m.storage.Put(templateKey, sealed); err != nil {
		return "", fmt.Errorf("%w: persist template: %v", ErrStorage, err)
	}

	if slot != SlotReal {
		m.metrics.RegistrationObserved()
		m.log.Info("pattern registered", "slot", string(slot), "modality", string(modality))
		return "", nil
	}

	if seed == nil {
		seed, err = crypto.RandomBytes(mnemonic.EntropyShort)
		if err != nil {
			return "", err
		}
	}

	sealedSeed, err := m.keys.Encrypt(aliasReal, seed)
	if err != nil {
		return "", fmt.Errorf("%w: seal identity seed: %v", ErrKeystore, err)
	}
	if err := m.storage.Put(storageKeySeed, sealedSeed); err != nil {
		return "", fmt.Errorf("%w: persist identity seed: %v", ErrStorage, err)
	}
	phrase, err := mnemonic.EncodePhrase(seed)
	if err != nil {
		return "", err
	}

	m.metrics.RegistrationObserved()
	m.log.Info("pattern registered", "slot", string(slot), "modality", string(modality))
	return phrase, nil
}

// Unlock evaluates an attempt against both slots and reports the
// outcome. Both templates are always evaluated, whatever the first one
// says, and every outcome takes at least the configured floor of
// wall-clock time, so absent templates, failed decrypts and plain
// mismatches look alike from outside.
//
// Counters commit only with the decision: when ctx is cancelled before
// that point the attempt leaves no trace.
func (m *Manager) Unlock(ctx context.Context, raw models.Pattern) (UnlockResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := m.now()
	if m.state.lockedOut(start) {
		remaining := m.state.lockoutRemaining(start)
		m.metrics.ObserveUnlock("locked_out", 0)
		return LockedOut{Remaining: remaining}, nil
	}

	attempt := m.quant.Quantize(raw)
	if err := m.quant.Validate(attempt); err != nil {
		return nil, err
	}

	realEval := m.evaluateSlot(storageKeyTemplateReal, aliasReal, attempt)
	decoyEval := m.evaluateSlot(storageKeyTemplateDecoy, aliasDecoy, attempt)
	seed, seedErr := m.fetchSeedLocked()

	m.padToFloor(start)

	if err := ctx.Err(); err != nil {
		crypto.Zero(seed)
		return nil, err
	}

	var result UnlockResult
	switch {
	// Real wins a double match. A decoy that could shadow the real
	// identity would let a planted decoy registration deny access.
	case realEval.matched:
		if seedErr != nil {
			crypto.Zero(seed)
			return nil, fmt.Errorf("%w: identity seed unavailable: %v", ErrKeystore, seedErr)
		}
		m.state.FailedAttempts = 0
		m.state.CumulativeFailures = 0
		result = Success{Slot: SlotReal, Seed: seed, Confidence: realEval.confidence}
	case decoyEval.matched:
		crypto.Zero(seed)
		m.state.FailedAttempts = 0
		m.state.CumulativeFailures = 0
		result = Success{Slot: SlotDecoy, Confidence: decoyEval.confidence}
	default:
		crypto.Zero(seed)
		m.state.FailedAttempts++
		m.state.CumulativeFailures++
		if m.state.FailedAttempts >= m.cfg.MaxAttempts {
			m.state.FailedAttempts = 0
			m.state.LockoutUntil = m.now().Add(m.cfg.LockoutDuration)
			m.metrics.LockoutEntered()
			result = LockedOut{Remaining: m.cfg.LockoutDuration}
		} else {
			result = Failed{AttemptsRemaining: m.cfg.MaxAttempts - m.state.FailedAttempts}
		}
		if m.state.CumulativeFailures >= m.cfg.WipeThreshold {
			// Sustained abuse across lockouts. The wipe is silent: the
			// returned result follows the ordinary failure ladder and
			// nothing distinguishes this attempt from the one before.
			if err := m.wipeLocked(false); err != nil {
				m.log.Error("wipe after sustained failures", "error", err)
			}
		}
	}

	m.persistStateLocked()
	m.observeUnlock(result, m.now().Sub(start))
	return result, nil
}

type slotEval struct {
	matched    bool
	confidence float32
}

// evaluateSlot folds template-absent, decrypt-failure and decode-
// failure into the same non-match it returns for a wrong gesture.
func (m *Manager) evaluateSlot(templateKey, alias string, attempt models.CanonicalPattern) slotEval {
	sealed, ok, err := m.storage.Get(templateKey)
	if err != nil || !ok {
		return slotEval{}
	}
	raw, err := m.keys.Decrypt(alias, sealed)
	if err != nil {
		return slotEval{}
	}
	blob, err := decodeTemplate(raw)
	if err != nil {
		return slotEval{}
	}

	var res models.MatchResult
	switch blob.Modality {
	case ModalityStarField:
		field, err := gesture.NewStarField(blob.FieldSeed, m.cfg.LandmarkCount)
		if err != nil {
			return slotEval{}
		}
		res = m.star.MatchIndexed(blob.Pattern, attempt, field)
	default:
		res = m.rhythm.Match(blob.Pattern, attempt)
	}
	return slotEval{matched: res.IsMatch, confidence: res.Confidence}
}

func (m *Manager) fetchSeedLocked() ([]byte, error) {
	sealed, ok, err := m.storage.Get(storageKeySeed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errSeedMissing
	}
	seed, err := m.keys.Decrypt(aliasReal, sealed)
	if err != nil {
		return nil, err
	}
	return seed, nil
}

func (m *Manager) padToFloor(start time.Time) {
	if remaining := m.cfg.EvaluationFloor - m.now().Sub(start); remaining > 0 {
		m.sleep(remaining)
	}
}

// PanicWipe deletes every hardware alias the gate owns and clears the
// templates and identity seed from storage. Without the recovery
// phrase this is irreversible.
func (m *Manager) PanicWipe() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.wipeLocked(true)
	m.persistStateLocked()
	return err
}

func (m *Manager) wipeLocked(resetState bool) error {
	var errs []error
	for _, alias := range []string{aliasReal, aliasDecoy} {
		if err := m.keys.Delete(alias); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.keys.DeleteAll(aliasPrefix); err != nil {
		errs = append(errs, err)
	}
	for _, key := range []string{storageKeyTemplateReal, storageKeyTemplateDecoy, storageKeySeed} {
		if err := m.storage.Delete(key); err != nil {
			errs = append(errs, err)
		}
	}

	if resetState {
		m.state = securityState{}
	} else {
		// The automatic wipe keeps the visible failure ladder intact;
		// only the long-horizon counter resets, and that one has no
		// external observer.
		m.state.CumulativeFailures = 0
	}

	m.metrics.WipeExecuted()
	m.log.Warn("panic wipe executed")
	return errors.Join(errs...)
}

// Recover restores an identity from its phrase. The old real key is
// deleted rather than trusted, a fresh key is generated, and the
// recovered seed is sealed under it. The real template is dropped in
// the process: the caller must register a new real pattern before the
// gate can open again. Recovery restores identity, never the gesture.
func (m *Manager) Recover(phrase string) (RecoveryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.recoveryPace.AllowN(m.now(), 1) {
		m.metrics.RecoveryObserved("paced")
		return RecoveryResult{}, ErrRecoveryPaced
	}

	seed, err := mnemonic.DecodePhrase(phrase)
	if err != nil {
		m.metrics.RecoveryObserved("invalid")
		return RecoveryResult{}, fmt.Errorf("%w: %w", ErrInvalidPhrase, err)
	}
	defer crypto.Zero(seed)

	if err := m.keys.Delete(aliasReal); err != nil {
		return RecoveryResult{}, fmt.Errorf("%w: drop old key: %v", ErrKeystore, err)
	}
	if err := m.keys.Generate(aliasReal, m.cfg.UseStrongBox); err != nil {
		return RecoveryResult{}, fmt.Errorf("%w: generate key: %v", ErrKeystore, err)
	}
	sealedSeed, err := m.keys.Encrypt(aliasReal, seed)
	if err != nil {
		return RecoveryResult{}, fmt.Errorf("%w: seal identity seed: %v", ErrKeystore, err)
	}
	if err := m.storage.Put(storageKeySeed, sealedSeed); err != nil {
		return RecoveryResult{}, fmt.Errorf("%w: persist identity seed: %v", ErrStorage, err)
	}
	// The old template was sealed by the key just deleted; it can
	// never match again, so drop it and force a fresh registration.
	if err := m.storage.Delete(storageKeyTemplateReal); err != nil {
		return RecoveryResult{}, fmt.Errorf("%w: drop stale template: %v", ErrStorage, err)
	}

	m.state = securityState{}
	m.persistStateLocked()

	res := RecoveryResult{NeedsNewPattern: true}
	if keys, err := identity.DeriveKeys(seed); err == nil {
		if id, err := identity.BuildIdentityID(keys.SigningPublicKey); err == nil {
			res.IdentityID = id
		}
		keys.Zero()
	}

	m.metrics.RecoveryObserved("ok")
	m.log.Info("identity recovered from phrase", "identity_id", res.IdentityID)
	return res, nil
}

// IsLockedOut reports whether the gate currently refuses attempts.
func (m *Manager) IsLockedOut() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.lockedOut(m.now())
}

// RemainingLockout is zero when the gate is open for attempts.
func (m *Manager) RemainingLockout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.lockoutRemaining(m.now())
}

// FailedAttempts is the count inside the current window, not the
// long-horizon wipe counter.
func (m *Manager) FailedAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.FailedAttempts
}

func (m *Manager) HasRealPattern() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.storage.Contains(storageKeyTemplateReal)
}

func (m *Manager) HasDecoyPattern() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.storage.Contains(storageKeyTemplateDecoy)
}

// SecurityTier reports what the underlying key store actually provides.
func (m *Manager) SecurityTier() keystore.Tier {
	return m.keys.Tier()
}

func (m *Manager) persistStateLocked() {
	m.state.UpdatedAt = m.now()
	if err := saveState(m.storage, m.state); err != nil {
		m.log.Error("persist security state", "error", err)
	}
}

func (m *Manager) observeUnlock(result UnlockResult, elapsed time.Duration) {
	outcome := "failed"
	switch result.(type) {
	case Success:
		outcome = "success"
	case LockedOut:
		outcome = "locked_out"
	}
	m.metrics.ObserveUnlock(outcome, elapsed.Seconds())
	m.log.Info("unlock evaluated", "outcome", outcome)
}

func slotKeys(slot Slot) (templateKey, alias string, err error) {
	switch slot {
	case SlotReal:
		return storageKeyTemplateReal, aliasReal, nil
	case SlotDecoy:
		return storageKeyTemplateDecoy, aliasDecoy, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrSlot, slot)
	}
}
