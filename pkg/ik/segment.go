// Package ik implements FABRIK inverse kinematics for joint chains and chain
// trees, with optional asymmetric cone constraints between segments.
package ik

import (
	"github.com/Faultbox/midgard-pose/pkg/math"
)

// Segment reference frame. A segment's orientation is the rotation taking
// ReferenceDir onto its link vector; its Up and Right axes follow along.
var (
	ReferenceDir   = math.UnitZ
	ReferenceUp    = math.UnitY
	ReferenceRight = math.UnitX
)

// MaxConeAngle is the largest usable cone half-angle in degrees. tan() of
// anything wider stops describing a bounded cross-section.
const MaxConeAngle = 89.9

// ConeConstraint limits how far the next segment may bend away from this
// segment's axis. Angles are half-angles in degrees, one per direction of the
// segment's local frame.
type ConeConstraint struct {
	Up    float32 `yaml:"up"`
	Down  float32 `yaml:"down"`
	Left  float32 `yaml:"left"`
	Right float32 `yaml:"right"`
}

// UniformCone returns a constraint with the same half-angle in every direction.
func UniformCone(deg float32) ConeConstraint {
	return ConeConstraint{Up: deg, Down: deg, Left: deg, Right: deg}
}

// Segment is one rigid link of a chain.
type Segment struct {
	Start       math.Vec3
	End         math.Vec3
	Length      float32 // rest length, fixed at construction
	Orientation math.Quat

	// Constraint restricts the segment that follows this one. Nil means
	// unconstrained.
	Constraint *ConeConstraint
}

func newSegment(start, end math.Vec3) Segment {
	s := Segment{
		Start:       start,
		End:         end,
		Length:      start.Distance(end),
		Orientation: math.QuatIdentity(),
	}
	s.orient()
	return s
}

// Set moves the segment's endpoints and re-derives its orientation. The rest
// length is not touched.
func (s *Segment) Set(start, end math.Vec3) {
	s.Start = start
	s.End = end
	s.orient()
}

// orient keeps the previous orientation when the link collapses.
func (s *Segment) orient() {
	link := s.End.Sub(s.Start)
	if link.Length() < math.DegenerateEpsilon {
		return
	}
	s.Orientation = math.QuatBetween(ReferenceDir, link)
}

// CurrentLength returns the distance between the live endpoints.
func (s *Segment) CurrentLength() float32 {
	return s.Start.Distance(s.End)
}

// Direction returns the unit axis of the segment.
func (s *Segment) Direction() math.Vec3 {
	return s.Orientation.Rotate(ReferenceDir)
}

// Up returns the segment's local up axis.
func (s *Segment) Up() math.Vec3 {
	return s.Orientation.Rotate(ReferenceUp)
}

// Right returns the segment's local right axis.
func (s *Segment) Right() math.Vec3 {
	return s.Orientation.Rotate(ReferenceRight)
}
