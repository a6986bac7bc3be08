package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitchellh/go-homedir"

	"github.com/Faultbox/midgard-pose/pkg/ik"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Solver defaults
	if cfg.Solver.MaxIterations != 20 {
		t.Errorf("expected max iterations 20, got %d", cfg.Solver.MaxIterations)
	}
	if cfg.Solver.Tolerance != 0.001 {
		t.Errorf("expected tolerance 0.001, got %f", cfg.Solver.Tolerance)
	}
	if !cfg.Solver.Constraints {
		t.Error("expected constraints to be enabled by default")
	}

	// Chains: a spine with two arms hanging off it
	if len(cfg.Chains) != 3 {
		t.Fatalf("expected 3 chains, got %d", len(cfg.Chains))
	}
	if cfg.Chains[1].Parent != "spine" || cfg.Chains[2].Parent != "spine" {
		t.Error("expected both arms to hang off the spine")
	}

	// Skeleton
	if len(cfg.Skeleton.Bones) != 17 {
		t.Errorf("expected 17 default bones, got %d", len(cfg.Skeleton.Bones))
	}
	if cfg.Skeleton.Bones[0].Parent != "" {
		t.Error("expected the first bone to be the root")
	}

	// Animation defaults
	if cfg.Animation.TransitionSeconds != 0.2 {
		t.Errorf("expected transition 0.2s, got %f", cfg.Animation.TransitionSeconds)
	}
	if cfg.Animation.TicksPerSecond != 25 {
		t.Errorf("expected 25 ticks/s, got %f", cfg.Animation.TicksPerSecond)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "rig.yaml")

	yamlContent := `
solver:
  max_iterations: 50
  tolerance: 0.01
  constraints: false

chains:
  - name: leg
    joints: [[0, 1, 0], [0, 0.5, 0.05], [0, 0, 0]]
    constraints:
      - segment: 0
        cone: {up: 5, down: 60, left: 10, right: 10}

skeleton:
  bones:
    - name: root
      skinned: true
    - name: tip
      parent: root
      position: [0, 1, 0]
      rotation: [0, 0, 90]
      restriction:
        z: {enabled: true, min: -45, max: 45}

animation:
  transition_seconds: 0.5
  clips: [walk.yaml, run.yaml]

pose:
  bone_map:
    left_knee: shin_l

logging:
  level: "debug"
  log_file: "rig.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Solver.MaxIterations != 50 {
		t.Errorf("expected max iterations 50, got %d", cfg.Solver.MaxIterations)
	}
	if cfg.Solver.Constraints {
		t.Error("expected constraints to be disabled")
	}
	// Omitted scalars keep their defaults.
	if cfg.Solver.CCDIterations != 10 {
		t.Errorf("expected default ccd iterations 10, got %d", cfg.Solver.CCDIterations)
	}

	// Lists replace the defaults instead of merging.
	if len(cfg.Chains) != 1 {
		t.Fatalf("expected 1 chain, got %d", len(cfg.Chains))
	}
	leg := cfg.Chains[0]
	if len(leg.Joints) != 3 || leg.Joints[1] != (Point{0, 0.5, 0.05}) {
		t.Errorf("unexpected joints %v", leg.Joints)
	}
	want := ik.ConeConstraint{Up: 5, Down: 60, Left: 10, Right: 10}
	if len(leg.Constraints) != 1 || leg.Constraints[0].Cone != want {
		t.Errorf("unexpected constraints %+v", leg.Constraints)
	}

	if len(cfg.Skeleton.Bones) != 2 {
		t.Fatalf("expected 2 bones, got %d", len(cfg.Skeleton.Bones))
	}
	tip := cfg.Skeleton.Bones[1]
	if tip.Rotation != (Point{0, 0, 90}) {
		t.Errorf("expected rotation [0 0 90], got %v", tip.Rotation)
	}
	if !tip.Restriction.Z.Enabled || tip.Restriction.Z.Min != -45 {
		t.Errorf("unexpected restriction %+v", tip.Restriction)
	}
	if tip.Skinned {
		t.Error("expected tip to be unskinned")
	}

	if cfg.Animation.TransitionSeconds != 0.5 {
		t.Errorf("expected transition 0.5, got %f", cfg.Animation.TransitionSeconds)
	}
	if len(cfg.Animation.Clips) != 2 {
		t.Errorf("expected 2 clips, got %v", cfg.Animation.Clips)
	}
	if cfg.Pose.BoneMap["left_knee"] != "shin_l" {
		t.Errorf("unexpected bone map %v", cfg.Pose.BoneMap)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "rig.log" {
		t.Errorf("expected log file 'rig.log', got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected loaded config to be valid: %v", err)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
solver:
  max_iterations: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/rig.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "rig.yaml")
	if err := os.WriteFile(configPath, []byte("solver:\n  max_iterations: -1\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := LoadFile(configPath); err == nil {
		t.Error("expected validation error, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	os.Chdir(tmpDir)

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "rig.yaml")
	if err := os.WriteFile(configPath, []byte("solver:\n  max_iterations: 5\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	path = findConfigFile()
	if path == "" {
		t.Error("expected to find rig.yaml in current directory")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rig.yaml")

	cfg := Default()
	cfg.Solver.MaxIterations = 7
	cfg.Chains[1].Constraints[0].Cone.Left = 33
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("failed to reload: %v", err)
	}
	if loaded.Solver.MaxIterations != 7 {
		t.Errorf("expected max iterations 7, got %d", loaded.Solver.MaxIterations)
	}
	if loaded.Chains[1].Constraints[0].Cone.Left != 33 {
		t.Errorf("expected left cone 33, got %f", loaded.Chains[1].Constraints[0].Cone.Left)
	}
	if len(loaded.Skeleton.Bones) != len(cfg.Skeleton.Bones) {
		t.Errorf("expected %d bones, got %d", len(cfg.Skeleton.Bones), len(loaded.Skeleton.Bones))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "zero iterations",
			modify:  func(c *Config) { c.Solver.MaxIterations = 0 },
			wantErr: "max_iterations",
		},
		{
			name:    "zero tolerance",
			modify:  func(c *Config) { c.Solver.Tolerance = 0 },
			wantErr: "tolerance",
		},
		{
			name:    "chain parent listed later",
			modify:  func(c *Config) { c.Chains[0].Parent = "left_arm" },
			wantErr: "must be listed earlier",
		},
		{
			name:    "duplicate chain",
			modify:  func(c *Config) { c.Chains[2].Name = "left_arm" },
			wantErr: "duplicate",
		},
		{
			name:    "constraint on missing segment",
			modify:  func(c *Config) { c.Chains[1].Constraints[0].Segment = 3 },
			wantErr: "segment index",
		},
		{
			name:    "cone too wide",
			modify:  func(c *Config) { c.Chains[1].Constraints[0].Cone.Up = 95 },
			wantErr: "cone angle",
		},
		{
			name:    "two root bones",
			modify:  func(c *Config) { c.Skeleton.Bones[1].Parent = "" },
			wantErr: "root bones",
		},
		{
			name:    "unknown bone parent",
			modify:  func(c *Config) { c.Skeleton.Bones[1].Parent = "tail" },
			wantErr: "parent \"tail\"",
		},
		{
			name:    "negative transition",
			modify:  func(c *Config) { c.Animation.TransitionSeconds = -1 },
			wantErr: "transition_seconds",
		},
		{
			name:    "unknown pose joint",
			modify:  func(c *Config) { c.Pose.BoneMap = map[string]string{"tail": "x"} },
			wantErr: "unknown joint",
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "unknown level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateReportsEverything(t *testing.T) {
	cfg := Default()
	cfg.Solver.MaxIterations = 0
	cfg.Chains[0].Joints = cfg.Chains[0].Joints[:1]
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, want := range []string{"max_iterations", "unknown level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
	if !errors.Is(err, ik.ErrTooFewJoints) {
		t.Errorf("expected ErrTooFewJoints in %v", err)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "log file flag",
			setup: func() { *flagLogFile = "out.log" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.LogFile != "out.log" {
					t.Errorf("expected log file out.log, got %s", cfg.Logging.LogFile)
				}
			},
			teardown: func() { *flagLogFile = "" },
		},
		{
			name: "solver flags",
			setup: func() {
				*flagIterations = 64
				*flagTolerance = 0.05
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Solver.MaxIterations != 64 {
					t.Errorf("expected 64 iterations, got %d", cfg.Solver.MaxIterations)
				}
				if cfg.Solver.Tolerance != 0.05 {
					t.Errorf("expected tolerance 0.05, got %f", cfg.Solver.Tolerance)
				}
			},
			teardown: func() {
				*flagIterations = 0
				*flagTolerance = 0
			},
		},
		{
			name:  "constraints off",
			setup: func() { *flagConstraints = "off" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Solver.Constraints {
					t.Error("expected constraints disabled")
				}
			},
			teardown: func() { *flagConstraints = "" },
		},
		{
			name:  "zero transition is an override",
			setup: func() { *flagTransition = 0 },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Animation.TransitionSeconds != 0 {
					t.Errorf("expected transition 0, got %f", cfg.Animation.TransitionSeconds)
				}
			},
			teardown: func() { *flagTransition = -1 },
		},
		{
			name:  "unset flags change nothing",
			setup: func() {},
			verify: func(t *testing.T, cfg *Config) {
				def := Default()
				if cfg.Solver != def.Solver || cfg.Logging != def.Logging || cfg.Animation.TransitionSeconds != def.Animation.TransitionSeconds {
					t.Errorf("expected defaults, got %+v", cfg)
				}
			},
			teardown: func() {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)

			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "rig.yaml")

	yamlContent := `
solver:
  max_iterations: 40
  tolerance: 0.02
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	*flagConfig = configPath
	*flagIterations = 80
	defer func() {
		*flagConfig = ""
		*flagIterations = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Iterations from the flag, not the file
	if cfg.Solver.MaxIterations != 80 {
		t.Errorf("expected 80 iterations from flag, got %d", cfg.Solver.MaxIterations)
	}
	// Tolerance from the file since no flag override
	if cfg.Solver.Tolerance != 0.02 {
		t.Errorf("expected tolerance 0.02 from file, got %f", cfg.Solver.Tolerance)
	}
}

func TestClone(t *testing.T) {
	cfg := Default()
	cfg.Pose.BoneMap = map[string]string{"left_knee": "mixamorig:LeftLeg"}

	c, err := cfg.Clone()
	if err != nil {
		t.Fatalf("clone failed: %v", err)
	}
	if c.Solver != cfg.Solver {
		t.Errorf("solver settings differ: %+v vs %+v", c.Solver, cfg.Solver)
	}
	if len(c.Chains) != len(cfg.Chains) || len(c.Skeleton.Bones) != len(cfg.Skeleton.Bones) {
		t.Fatalf("clone lost chains or bones")
	}
	if c.Chains[1].Joints[3] != cfg.Chains[1].Joints[3] {
		t.Errorf("expected joint %v, got %v", cfg.Chains[1].Joints[3], c.Chains[1].Joints[3])
	}

	// Writes to the copy stay in the copy.
	c.Chains[1].Joints[3][0] = 9
	c.Chains[1].Constraints[0].Cone.Up = 1
	c.Skeleton.Bones[0].Name = "renamed"
	c.Pose.BoneMap["left_knee"] = "other"

	if cfg.Chains[1].Joints[3][0] != 0.7 {
		t.Errorf("original joint changed to %v", cfg.Chains[1].Joints[3])
	}
	if cfg.Chains[1].Constraints[0].Cone.Up != 80 {
		t.Errorf("original cone changed to %v", cfg.Chains[1].Constraints[0].Cone)
	}
	if cfg.Skeleton.Bones[0].Name != "mixamorig:Hips" {
		t.Errorf("original bone renamed to %s", cfg.Skeleton.Bones[0].Name)
	}
	if cfg.Pose.BoneMap["left_knee"] != "mixamorig:LeftLeg" {
		t.Errorf("original bone map changed")
	}
}

func TestExpandPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	defer func() { homedir.DisableCache = false }()

	cfg := Default()
	cfg.Logging.LogFile = "~/logs/rig.log"
	cfg.Animation.Clips = []string{"~/clips/wave.yaml", "clips/idle.yaml"}

	if err := cfg.expandPaths(); err != nil {
		t.Fatalf("expandPaths failed: %v", err)
	}
	if want := filepath.Join(home, "logs", "rig.log"); cfg.Logging.LogFile != want {
		t.Errorf("expected log file %s, got %s", want, cfg.Logging.LogFile)
	}
	if want := filepath.Join(home, "clips", "wave.yaml"); cfg.Animation.Clips[0] != want {
		t.Errorf("expected clip %s, got %s", want, cfg.Animation.Clips[0])
	}
	if cfg.Animation.Clips[1] != "clips/idle.yaml" {
		t.Errorf("relative clip path changed to %s", cfg.Animation.Clips[1])
	}

	cfg.Animation.Clips = []string{"~someone/wave.yaml"}
	if err := cfg.expandPaths(); err == nil {
		t.Error("expected an error for another user's home directory")
	}
}

func TestFilePathExpandsFlag(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	defer func() { homedir.DisableCache = false }()

	*flagConfig = "~/rig.yaml"
	defer func() { *flagConfig = "" }()

	path, err := FilePath()
	if err != nil {
		t.Fatalf("FilePath failed: %v", err)
	}
	if want := filepath.Join(home, "rig.yaml"); path != want {
		t.Errorf("expected %s, got %s", want, path)
	}
}
