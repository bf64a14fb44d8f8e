package keygate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Magdyz/void-keygate/internal/gesture"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.MaxAttempts != 5 || cfg.WipeThreshold != 20 {
		t.Fatalf("failure budget = %d/%d, want 5/20", cfg.MaxAttempts, cfg.WipeThreshold)
	}
	if cfg.EvaluationFloor != 50*time.Millisecond {
		t.Fatalf("floor = %v, want 50ms", cfg.EvaluationFloor)
	}
	if cfg.LockoutDuration != 5*time.Minute {
		t.Fatalf("lockout = %v, want 5m", cfg.LockoutDuration)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"min taps too small", func(c *Config) { c.MinTaps = 1 }},
		{"max below min", func(c *Config) { c.MaxTaps = c.MinTaps - 1 }},
		{"zero quantum", func(c *Config) { c.TimeQuantum = 0 }},
		{"one pressure level", func(c *Config) { c.PressureLevels = 1 }},
		{"tolerance ratio zero", func(c *Config) { c.TimingToleranceRatio = 0 }},
		{"position weight above one", func(c *Config) { c.PositionWeight = 1.5 }},
		{"threshold above one", func(c *Config) { c.ConfidenceThreshold = 1.5 }},
		{"single landmark", func(c *Config) { c.LandmarkCount = 1 }},
		{"landmark count over cap", func(c *Config) { c.LandmarkCount = gesture.MaxLandmarkCount + 1 }},
		{"wipe below attempts", func(c *Config) { c.WipeThreshold = c.MaxAttempts - 1 }},
		{"negative floor", func(c *Config) { c.EvaluationFloor = -time.Second }},
		{"zero recovery burst", func(c *Config) { c.RecoveryBurst = 0 }},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: Validate accepted the config", tc.name)
		}
	}
}

func TestMergeAppliesOnlySetFields(t *testing.T) {
	cfg := DefaultConfig()

	var file FileConfig
	file.Gate.MaxAttempts = 3
	file.Gate.WipeThreshold = 12
	weight := float32(0)
	file.Gate.PositionWeight = &weight
	strong := false
	file.Gate.UseStrongBox = &strong

	Merge(&cfg, file)

	if cfg.MaxAttempts != 3 || cfg.WipeThreshold != 12 {
		t.Fatalf("budget = %d/%d, want 3/12", cfg.MaxAttempts, cfg.WipeThreshold)
	}
	// Pointer fields distinguish "absent" from "explicit zero".
	if cfg.PositionWeight != 0 {
		t.Fatalf("position weight = %v, want explicit 0", cfg.PositionWeight)
	}
	if cfg.UseStrongBox {
		t.Fatal("use strong box = true, want explicit false")
	}
	// Unset fields keep their defaults.
	if cfg.MinTaps != DefaultConfig().MinTaps {
		t.Fatalf("min taps = %d, want default %d", cfg.MinTaps, DefaultConfig().MinTaps)
	}
	if cfg.LockoutDuration != DefaultConfig().LockoutDuration {
		t.Fatalf("lockout = %v, want default %v", cfg.LockoutDuration, DefaultConfig().LockoutDuration)
	}
}

func TestLoadConfigReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voidgate.yaml")
	data := []byte("gate:\n  maxAttempts: 3\n  wipeThreshold: 12\n  gridSize: 8\n  useStrongBox: false\n  positionWeight: 0.3\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg := LoadConfig(path)
	if cfg.MaxAttempts != 3 || cfg.WipeThreshold != 12 || cfg.GridSize != 8 {
		t.Fatalf("merged config = %+v", cfg)
	}
	if cfg.UseStrongBox {
		t.Fatal("use strong box = true, want false from file")
	}
	if cfg.PositionWeight != 0.3 {
		t.Fatalf("position weight = %v, want 0.3", cfg.PositionWeight)
	}
	if cfg.MinTaps != DefaultConfig().MinTaps {
		t.Fatalf("min taps = %d, want default", cfg.MinTaps)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if cfg != DefaultConfig() {
		t.Fatalf("config = %+v, want defaults", cfg)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("VOID_GATE_MAX_ATTEMPTS", "7")
	t.Setenv("VOID_GATE_LOCKOUT", "10m")
	t.Setenv("VOID_GATE_WIPE_THRESHOLD", "30")
	t.Setenv("VOID_GATE_STRONGBOX", "false")
	t.Setenv("VOID_GATE_FLOOR", "75ms")

	cfg := DefaultConfig()
	ApplyEnvOverrides(&cfg)

	if cfg.MaxAttempts != 7 {
		t.Fatalf("max attempts = %d, want 7", cfg.MaxAttempts)
	}
	if cfg.LockoutDuration != 10*time.Minute {
		t.Fatalf("lockout = %v, want 10m", cfg.LockoutDuration)
	}
	if cfg.WipeThreshold != 30 {
		t.Fatalf("wipe threshold = %d, want 30", cfg.WipeThreshold)
	}
	if cfg.UseStrongBox {
		t.Fatal("strongbox override not applied")
	}
	if cfg.EvaluationFloor != 75*time.Millisecond {
		t.Fatalf("floor = %v, want 75ms", cfg.EvaluationFloor)
	}
}

func TestApplyEnvOverridesIgnoresGarbage(t *testing.T) {
	t.Setenv("VOID_GATE_MAX_ATTEMPTS", "several")
	t.Setenv("VOID_GATE_LOCKOUT", "-3m")

	cfg := DefaultConfig()
	ApplyEnvOverrides(&cfg)

	if cfg.MaxAttempts != DefaultConfig().MaxAttempts {
		t.Fatalf("max attempts = %d, want default", cfg.MaxAttempts)
	}
	if cfg.LockoutDuration != DefaultConfig().LockoutDuration {
		t.Fatalf("lockout = %v, want default", cfg.LockoutDuration)
	}
}
