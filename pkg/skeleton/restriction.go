package skeleton

import (
	"github.com/Faultbox/midgard-pose/pkg/math"
)

// AxisLimit bounds one Euler angle, in degrees.
type AxisLimit struct {
	Enabled bool    `yaml:"enabled"`
	Min     float32 `yaml:"min"`
	Max     float32 `yaml:"max"`
}

// AngleRestriction limits a bone's local rotation per Euler axis (XYZ order).
type AngleRestriction struct {
	X AxisLimit `yaml:"x"`
	Y AxisLimit `yaml:"y"`
	Z AxisLimit `yaml:"z"`
}

// Active reports whether any axis is limited.
func (r AngleRestriction) Active() bool {
	return r.X.Enabled || r.Y.Enabled || r.Z.Enabled
}

// Apply clamps q's Euler angles to the enabled limits and recomposes it.
func (r AngleRestriction) Apply(q math.Quat) math.Quat {
	if !r.Active() {
		return q
	}
	e := q.ToEuler()
	e.X = r.X.clamp(e.X)
	e.Y = r.Y.clamp(e.Y)
	e.Z = r.Z.clamp(e.Z)
	return math.QuatFromEuler(e)
}

func (l AxisLimit) clamp(rad float32) float32 {
	if !l.Enabled {
		return rad
	}
	return math.Clamp(rad, math.Radians(l.Min), math.Radians(l.Max))
}
