// Package config handles rig configuration loading and management.
package config

import (
	"github.com/jinzhu/copier"

	"github.com/Faultbox/midgard-pose/pkg/ik"
	"github.com/Faultbox/midgard-pose/pkg/skeleton"
)

// Config holds all rig settings.
type Config struct {
	Solver    SolverConfig    `yaml:"solver"`
	Chains    []ChainConfig   `yaml:"chains"`
	Skeleton  SkeletonConfig  `yaml:"skeleton"`
	Animation AnimationConfig `yaml:"animation"`
	Pose      PoseConfig      `yaml:"pose"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Point is a position in model space, written as [x, y, z].
type Point [3]float32

// SolverConfig holds IK solver settings shared by every chain.
type SolverConfig struct {
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float32 `yaml:"tolerance"`
	Constraints   bool    `yaml:"constraints"` // enforce cone constraints
	CCDIterations int     `yaml:"ccd_iterations"`
	CCDTolerance  float32 `yaml:"ccd_tolerance"`
}

// ChainConfig describes one FABRIK chain. Chains with a parent hang off
// the parent's tip and are solved as a tree.
type ChainConfig struct {
	Name        string              `yaml:"name"`
	Parent      string              `yaml:"parent"`
	Joints      []Point             `yaml:"joints"`
	Constraints []SegmentConstraint `yaml:"constraints"`
}

// SegmentConstraint limits how far the segment after Segment may bend.
type SegmentConstraint struct {
	Segment int               `yaml:"segment"`
	Cone    ik.ConeConstraint `yaml:"cone"`
}

// SkeletonConfig holds the bone hierarchy in bind pose. Parents must be
// listed before their children.
type SkeletonConfig struct {
	Bones []BoneConfig `yaml:"bones"`
}

// BoneConfig describes one bone relative to its parent.
type BoneConfig struct {
	Name        string                    `yaml:"name"`
	Parent      string                    `yaml:"parent"`
	Position    Point                     `yaml:"position"`
	Rotation    Point                     `yaml:"rotation"` // XYZ euler, degrees
	Skinned     bool                      `yaml:"skinned"`  // gets a final matrix slot
	Restriction skeleton.AngleRestriction `yaml:"restriction"`
}

// AnimationConfig holds animator settings.
type AnimationConfig struct {
	TransitionSeconds float32  `yaml:"transition_seconds"`
	TicksPerSecond    float32  `yaml:"ticks_per_second"` // for clips that omit it
	Clips             []string `yaml:"clips"`            // paths to clip files
}

// PoseConfig maps estimator joints (by landmark name) to skeleton bones.
// An empty map uses the Mixamo defaults.
type PoseConfig struct {
	BoneMap map[string]string `yaml:"bone_map"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values: a torso with two
// arms for the solver and a small Mixamo-named humanoid for the animator.
func Default() *Config {
	return &Config{
		Solver: SolverConfig{
			MaxIterations: ik.DefaultMaxIterations,
			Tolerance:     ik.DefaultTolerance,
			Constraints:   true,
			CCDIterations: 10,
			CCDTolerance:  0.01,
		},
		Chains: []ChainConfig{
			{
				Name:   "spine",
				Joints: []Point{{0, 0, 0}, {0, 0.25, 0}, {0, 0.5, 0}},
			},
			{
				Name:   "left_arm",
				Parent: "spine",
				Joints: []Point{{0, 0.5, 0}, {0.2, 0.5, 0}, {0.45, 0.5, 0}, {0.7, 0.5, 0}},
				Constraints: []SegmentConstraint{
					{Segment: 1, Cone: ik.ConeConstraint{Up: 80, Down: 80, Left: 10, Right: 80}},
				},
			},
			{
				Name:   "right_arm",
				Parent: "spine",
				Joints: []Point{{0, 0.5, 0}, {-0.2, 0.5, 0}, {-0.45, 0.5, 0}, {-0.7, 0.5, 0}},
				Constraints: []SegmentConstraint{
					{Segment: 1, Cone: ik.ConeConstraint{Up: 80, Down: 80, Left: 80, Right: 10}},
				},
			},
		},
		Skeleton: SkeletonConfig{Bones: defaultBones()},
		Animation: AnimationConfig{
			TransitionSeconds: 0.2,
			TicksPerSecond:    25,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Clone returns a deep copy. Nil lists and maps may come back empty.
func (c *Config) Clone() (*Config, error) {
	out := &Config{}
	if err := copier.CopyWithOption(out, c, copier.Option{DeepCopy: true}); err != nil {
		return nil, err
	}
	return out, nil
}

func defaultBones() []BoneConfig {
	b := func(name, parent string, x, y, z float32) BoneConfig {
		return BoneConfig{Name: name, Parent: parent, Position: Point{x, y, z}, Skinned: true}
	}
	bones := []BoneConfig{
		b("mixamorig:Hips", "", 0, 1, 0),
		b("mixamorig:Spine", "mixamorig:Hips", 0, 0.1, 0),
		b("mixamorig:Spine1", "mixamorig:Spine", 0, 0.15, 0),
		b("mixamorig:Spine2", "mixamorig:Spine1", 0, 0.15, 0),
		b("mixamorig:Head", "mixamorig:Spine2", 0, 0.25, 0),
	}
	for _, side := range []struct {
		name string
		x    float32
	}{{"Left", 1}, {"Right", -1}} {
		p := "mixamorig:" + side.name
		bones = append(bones,
			b(p+"Arm", "mixamorig:Spine2", side.x*0.2, 0.1, 0),
			b(p+"ForeArm", p+"Arm", side.x*0.25, 0, 0),
			b(p+"Hand", p+"ForeArm", side.x*0.25, 0, 0),
			b(p+"UpLeg", "mixamorig:Hips", side.x*0.1, -0.05, 0),
			b(p+"Leg", p+"UpLeg", 0, -0.45, 0),
			b(p+"Foot", p+"Leg", 0, -0.45, 0),
		)
	}
	// Knees only bend backwards.
	for i := range bones {
		if bones[i].Name == "mixamorig:LeftLeg" || bones[i].Name == "mixamorig:RightLeg" {
			bones[i].Restriction.X = skeleton.AxisLimit{Enabled: true, Min: 0, Max: 150}
		}
	}
	return bones
}
