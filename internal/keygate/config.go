package keygate

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Magdyz/void-keygate/internal/gesture"
)

// Config carries every tunable of a gate instance. Defaults are safe;
// files and environment only narrow or widen them explicitly.
type Config struct {
	// Pattern validity bounds.
	MinTaps     int
	MaxTaps     int
	MaxDuration time.Duration

	// Canonicalization quanta.
	TimeQuantum    time.Duration
	PressureLevels int
	GridSize       int

	// Matcher weights.
	TimingToleranceRatio float32
	PositionWeight       float32
	ConfidenceThreshold  float32

	// Star-field layout.
	LandmarkCount int

	// Failure handling.
	MaxAttempts     int
	LockoutDuration time.Duration
	WipeThreshold   int

	// EvaluationFloor is the minimum wall-clock time an unlock
	// evaluation takes, whatever the outcome.
	EvaluationFloor time.Duration

	// UseStrongBox asks the key store for its strongest tier. Stores
	// that cannot honor it still work and report their actual tier.
	UseStrongBox bool

	// Recovery pacing.
	RecoveryPerSec float64
	RecoveryBurst  int
}

func DefaultConfig() Config {
	return Config{
		MinTaps:              gesture.DefaultMinTaps,
		MaxTaps:              gesture.DefaultMaxTaps,
		MaxDuration:          gesture.DefaultMaxDurationMS * time.Millisecond,
		TimeQuantum:          gesture.DefaultTimeQuantumMS * time.Millisecond,
		PressureLevels:       gesture.DefaultPressureLevels,
		GridSize:             gesture.DefaultGridSize,
		TimingToleranceRatio: gesture.DefaultTimingToleranceRatio,
		PositionWeight:       gesture.DefaultPositionWeight,
		ConfidenceThreshold:  gesture.DefaultConfidenceThreshold,
		LandmarkCount:        gesture.DefaultLandmarkCount,
		MaxAttempts:          5,
		LockoutDuration:      5 * time.Minute,
		WipeThreshold:        20,
		EvaluationFloor:      50 * time.Millisecond,
		UseStrongBox:         true,
		RecoveryPerSec:       1,
		RecoveryBurst:        5,
	}
}

func (c Config) Validate() error {
	if c.MinTaps < 2 {
		return errors.New("min taps must be at least 2")
	}
	if c.MaxTaps < c.MinTaps {
		return errors.New("max taps below min taps")
	}
	if c.MaxDuration <= 0 || c.TimeQuantum <= 0 {
		return errors.New("durations must be positive")
	}
	if c.PressureLevels < 2 || c.GridSize < 2 {
		return errors.New("quantization levels must be at least 2")
	}
	if c.TimingToleranceRatio <= 0 || c.TimingToleranceRatio > 1 {
		return errors.New("timing tolerance ratio must be in (0,1]")
	}
	if c.PositionWeight < 0 || c.PositionWeight > 1 {
		return errors.New("position weight must be in [0,1]")
	}
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		return errors.New("confidence threshold must be in (0,1]")
	}
	if c.LandmarkCount < 2 || c.LandmarkCount > gesture.MaxLandmarkCount {
		return fmt.Errorf("landmark count must be between 2 and %d", gesture.MaxLandmarkCount)
	}
	if c.MaxAttempts < 1 || c.WipeThreshold < c.MaxAttempts {
		return errors.New("wipe threshold must be at least max attempts")
	}
	if c.LockoutDuration <= 0 || c.EvaluationFloor < 0 {
		return errors.New("lockout must be positive and floor non-negative")
	}
	if c.RecoveryPerSec <= 0 || c.RecoveryBurst < 1 {
		return errors.New("recovery pacing must be positive")
	}
	return nil
}

func (c Config) quantizer() gesture.Quantizer {
	return gesture.Quantizer{
		TimeQuantumMS:  uint64(c.TimeQuantum / time.Millisecond),
		PressureLevels: c.PressureLevels,
		GridSize:       c.GridSize,
		MinTaps:        c.MinTaps,
		MaxTaps:        c.MaxTaps,
		MaxDurationMS:  uint64(c.MaxDuration / time.Millisecond),
	}
}

func (c Config) rhythmProfile() gesture.Profile {
	return gesture.Profile{
		TimingToleranceRatio: c.TimingToleranceRatio,
		PositionWeight:       c.PositionWeight,
		ConfidenceThreshold:  c.ConfidenceThreshold,
	}
}

func (c Config) starFieldProfile() gesture.Profile {
	p := gesture.StarFieldProfile()
	p.TimingToleranceRatio = c.TimingToleranceRatio
	p.ConfidenceThreshold = c.ConfidenceThreshold
	return p
}

// FileConfig is the yaml shape. Booleans are pointers so an absent key
// and an explicit false stay distinguishable during merge.
type FileConfig struct {
	Gate struct {
		MinTaps              int           `yaml:"minTaps"`
		MaxTaps              int           `yaml:"maxTaps"`
		MaxDuration          time.Duration `yaml:"maxDuration"`
		TimeQuantum          time.Duration `yaml:"timeQuantum"`
		PressureLevels       int           `yaml:"pressureLevels"`
		GridSize             int           `yaml:"gridSize"`
		TimingToleranceRatio float32       `yaml:"timingToleranceRatio"`
		PositionWeight       *float32      `yaml:"positionWeight"`
		ConfidenceThreshold  float32       `yaml:"confidenceThreshold"`
		LandmarkCount        int           `yaml:"landmarkCount"`
		MaxAttempts          int           `yaml:"maxAttempts"`
		LockoutDuration      time.Duration `yaml:"lockoutDuration"`
		WipeThreshold        int           `yaml:"wipeThreshold"`
		EvaluationFloor      time.Duration `yaml:"evaluationFloor"`
		UseStrongBox         *bool         `yaml:"useStrongBox"`
		RecoveryPerSec       float64       `yaml:"recoveryPerSec"`
		RecoveryBurst        int           `yaml:"recoveryBurst"`
	} `yaml:"gate"`
}

// LoadConfig reads the config file at path, or the default candidates
// when path is empty, and layers file values and environment overrides
// over the defaults. A missing file is not an error; defaults rule.
func LoadConfig(path string) Config {
	cfg := DefaultConfig()

	candidates := make([]string, 0, 2)
	if path != "" {
		candidates = append(candidates, path)
	} else {
		candidates = append(candidates, "configs/voidgate.yaml")
	}

	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}
		var parsed FileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}
		Merge(&cfg, parsed)
		break
	}

	ApplyEnvOverrides(&cfg)
	return cfg
}

func Merge(dst *Config, src FileConfig) {
	g := src.Gate
	if g.MinTaps != 0 {
		dst.MinTaps = g.MinTaps
	}
	if g.MaxTaps != 0 {
		dst.MaxTaps = g.MaxTaps
	}
	if g.MaxDuration != 0 {
		dst.MaxDuration = g.MaxDuration
	}
	if g.TimeQuantum != 0 {
		dst.TimeQuantum = g.TimeQuantum
	}
	if g.PressureLevels != 0 {
		dst.PressureLevels = g.PressureLevels
	}
	if g.GridSize != 0 {
		dst.GridSize = g.GridSize
	}
	if g.TimingToleranceRatio != 0 {
		dst.TimingToleranceRatio = g.TimingToleranceRatio
	}
	if g.PositionWeight != nil {
		dst.PositionWeight = *g.PositionWeight
	}
	if g.ConfidenceThreshold != 0 {
		dst.ConfidenceThreshold = g.ConfidenceThreshold
	}
	if g.LandmarkCount != 0 {
		dst.LandmarkCount = g.LandmarkCount
	}
	if g.MaxAttempts != 0 {
		dst.MaxAttempts = g.MaxAttempts
	}
	if g.LockoutDuration != 0 {
		dst.LockoutDuration = g.LockoutDuration
	}
	if g.WipeThreshold != 0 {
		dst.WipeThreshold = g.WipeThreshold
	}
	if g.EvaluationFloor != 0 {
		dst.EvaluationFloor = g.EvaluationFloor
	}
	if g.UseStrongBox != nil {
		dst.UseStrongBox = *g.UseStrongBox
	}
	if g.RecoveryPerSec != 0 {
		dst.RecoveryPerSec = g.RecoveryPerSec
	}
	if g.RecoveryBurst != 0 {
		dst.RecoveryBurst = g.RecoveryBurst
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if raw := strings.TrimSpace(os.Getenv("VOID_GATE_MAX_ATTEMPTS")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.MaxAttempts = v
		}
	}
	if raw := strings.TrimSpace(os.Getenv("VOID_GATE_LOCKOUT")); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil && v > 0 {
			cfg.LockoutDuration = v
		}
	}
	if raw := strings.TrimSpace(os.Getenv("VOID_GATE_WIPE_THRESHOLD")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.WipeThreshold = v
		}
	}
	if raw := strings.TrimSpace(os.Getenv("VOID_GATE_STRONGBOX")); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.UseStrongBox = v
		}
	}
	if raw := strings.TrimSpace(os.Getenv("VOID_GATE_FLOOR")); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil && v >= 0 {
			cfg.EvaluationFloor = v
		}
	}
}

func describeConfig(c Config) string {
	return fmt.Sprintf("attempts=%d lockout=%s wipe=%d floor=%s", c.MaxAttempts, c.LockoutDuration, c.WipeThreshold, c.EvaluationFloor)
}
