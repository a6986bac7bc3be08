package config

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/Faultbox/midgard-pose/pkg/ik"
	"github.com/Faultbox/midgard-pose/pkg/pose"
	"github.com/Faultbox/midgard-pose/pkg/skeleton"
)

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate reports every problem in the config at once.
func (c *Config) Validate() error {
	var err error
	err = multierr.Append(err, c.Solver.validate())
	err = multierr.Append(err, validateChains(c.Chains))
	err = multierr.Append(err, validateBones(c.Skeleton.Bones))
	err = multierr.Append(err, c.Animation.validate())
	err = multierr.Append(err, c.Pose.validate())
	if !logLevels[c.Logging.Level] {
		err = multierr.Append(err, fmt.Errorf("logging: unknown level %q", c.Logging.Level))
	}
	return err
}

func (s SolverConfig) validate() error {
	var err error
	if s.MaxIterations <= 0 {
		err = multierr.Append(err, fmt.Errorf("solver: max_iterations must be positive, got %d", s.MaxIterations))
	}
	if s.Tolerance <= 0 {
		err = multierr.Append(err, fmt.Errorf("solver: tolerance must be positive, got %g", s.Tolerance))
	}
	if s.CCDIterations < 0 {
		err = multierr.Append(err, errors.New("solver: ccd_iterations is negative"))
	}
	if s.CCDTolerance < 0 {
		err = multierr.Append(err, errors.New("solver: ccd_tolerance is negative"))
	}
	return err
}

func validateChains(chains []ChainConfig) error {
	var err error
	seen := make(map[string]bool, len(chains))
	for i, ch := range chains {
		where := fmt.Sprintf("chains[%d]", i)
		if ch.Name != "" {
			where = fmt.Sprintf("chain %q", ch.Name)
		}
		switch {
		case ch.Name == "":
			err = multierr.Append(err, fmt.Errorf("%s: missing name", where))
		case seen[ch.Name]:
			err = multierr.Append(err, fmt.Errorf("%s: duplicate name", where))
		}
		if ch.Parent != "" && !seen[ch.Parent] {
			err = multierr.Append(err, fmt.Errorf("%s: parent %q must be listed earlier", where, ch.Parent))
		}
		seen[ch.Name] = true

		if len(ch.Joints) < 2 {
			err = multierr.Append(err, fmt.Errorf("%s: %w", where, ik.ErrTooFewJoints))
		}
		for _, sc := range ch.Constraints {
			if sc.Segment < 0 || sc.Segment >= len(ch.Joints)-1 {
				err = multierr.Append(err, fmt.Errorf("%s: constraint on segment %d: %w", where, sc.Segment, ik.ErrSegmentIndex))
			}
			for _, a := range []float32{sc.Cone.Up, sc.Cone.Down, sc.Cone.Left, sc.Cone.Right} {
				if a < 0 || a > ik.MaxConeAngle {
					err = multierr.Append(err, fmt.Errorf("%s: cone angle %g outside [0, %g]", where, a, ik.MaxConeAngle))
					break
				}
			}
		}
	}
	return err
}

func validateBones(bones []BoneConfig) error {
	var err error
	seen := make(map[string]bool, len(bones))
	roots, skinned := 0, 0
	for i, b := range bones {
		switch {
		case b.Name == "":
			err = multierr.Append(err, fmt.Errorf("bones[%d]: missing name", i))
		case seen[b.Name]:
			err = multierr.Append(err, fmt.Errorf("bone %q: duplicate name", b.Name))
		}
		if b.Parent == "" {
			roots++
		} else if !seen[b.Parent] {
			err = multierr.Append(err, fmt.Errorf("bone %q: parent %q must be listed earlier", b.Name, b.Parent))
		}
		if b.Skinned {
			skinned++
		}
		seen[b.Name] = true
	}
	if roots > 1 {
		err = multierr.Append(err, fmt.Errorf("skeleton: %d root bones, want one", roots))
	}
	if skinned > skeleton.MaxBoneMatrices {
		err = multierr.Append(err, fmt.Errorf("skeleton: %d skinned bones, the palette holds %d", skinned, skeleton.MaxBoneMatrices))
	}
	return err
}

func (a AnimationConfig) validate() error {
	var err error
	if a.TransitionSeconds < 0 {
		err = multierr.Append(err, errors.New("animation: transition_seconds is negative"))
	}
	if a.TicksPerSecond < 0 {
		err = multierr.Append(err, errors.New("animation: ticks_per_second is negative"))
	}
	return err
}

func (p PoseConfig) validate() error {
	var err error
	for joint := range p.BoneMap {
		if _, ok := pose.Index(joint); !ok {
			err = multierr.Append(err, fmt.Errorf("pose: unknown joint %q in bone_map", joint))
		}
	}
	return err
}
