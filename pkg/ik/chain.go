package ik

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-pose/pkg/math"
)

// Solver defaults.
const (
	DefaultMaxIterations = 20
	DefaultTolerance     = 0.001
)

var (
	// ErrTooFewJoints is returned when a chain has fewer than two joints.
	ErrTooFewJoints = errors.New("ik: chain needs at least two joints")
	// ErrZeroLength is returned when two consecutive joints coincide.
	ErrZeroLength = errors.New("ik: zero-length segment")
	// ErrSegmentIndex is returned for a segment index outside the chain.
	ErrSegmentIndex = errors.New("ik: segment index out of range")
)

// Target is a point a chain tries to reach. Callers own it and update
// Position between solves; several chains may share one target.
type Target struct {
	Position math.Vec3
}

// Result describes the outcome of a solve.
type Result struct {
	Iterations int
	Distance   float32 // distance from the chain end to the target
	Reached    bool    // Distance is within tolerance
	Extended   bool    // target was out of reach; chain fully extended
}

// Chain is an open kinematic chain with a fixed origin.
type Chain struct {
	Name              string
	EnableConstraints bool
	MaxIterations     int
	Tolerance         float32

	joints      []math.Vec3
	segments    []Segment
	origin      math.Vec3
	end         math.Vec3
	target      *Target
	totalLength float32
}

// NewChain builds a chain from its initial joint positions. Segment rest
// lengths are taken from the distances between consecutive joints and never
// change afterwards. target may be nil for chains driven by a parent in a
// MultiChain.
func NewChain(joints []math.Vec3, target *Target) (*Chain, error) {
	if len(joints) < 2 {
		return nil, ErrTooFewJoints
	}

	c := &Chain{
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
		joints:        append([]math.Vec3(nil), joints...),
		segments:      make([]Segment, 0, len(joints)-1),
		origin:        joints[0],
		end:           joints[len(joints)-1],
		target:        target,
	}
	for i := 0; i < len(joints)-1; i++ {
		seg := newSegment(joints[i], joints[i+1])
		if seg.Length < math.DegenerateEpsilon {
			return nil, fmt.Errorf("segment %d: %w", i, ErrZeroLength)
		}
		c.segments = append(c.segments, seg)
		c.totalLength += seg.Length
	}
	return c, nil
}

// Solve moves the joints so the chain end reaches the target, or gets as
// close as the rest lengths allow. Out-of-reach targets fully extend the
// chain toward them. Otherwise backward and forward passes alternate until
// the end is within Tolerance or MaxIterations passes have run.
func (c *Chain) Solve() Result {
	if c.target == nil {
		c.SetSegments()
		return Result{}
	}
	goal := c.target.Position
	c.joints[0] = c.origin

	if c.origin.Distance(goal) > c.totalLength {
		c.extend(goal)
		c.SetSegments()
		return Result{Distance: c.end.Distance(goal), Extended: true}
	}

	c.unfold(goal)

	iter := 0
	for ; iter < c.MaxIterations && c.tip().Distance(goal) > c.Tolerance; iter++ {
		c.backward(goal)
		c.forward()
	}
	c.SetSegments()

	d := c.end.Distance(goal)
	return Result{Iterations: iter, Distance: d, Reached: d <= c.Tolerance}
}

// extend lays the chain on the line from the origin toward goal.
func (c *Chain) extend(goal math.Vec3) {
	c.joints[0] = c.origin
	for i := range c.segments {
		seg := &c.segments[i]
		c.joints[i+1] = reach(c.joints[i], goal, seg.Length, seg.Direction())
	}
}

// backward pins the last joint to goal and pulls every joint toward its
// successor.
func (c *Chain) backward(goal math.Vec3) {
	n := len(c.joints) - 1
	c.joints[n] = goal
	for i := n - 1; i >= 0; i-- {
		seg := &c.segments[i]
		c.joints[i] = reach(c.joints[i+1], c.joints[i], seg.Length, seg.Direction().Negate())
	}
}

// forward pins the first joint to the origin and pushes every joint toward
// its successor, constraining each segment against the one before it.
func (c *Chain) forward() {
	c.joints[0] = c.origin
	for i := range c.segments {
		seg := &c.segments[i]
		next := reach(c.joints[i], c.joints[i+1], seg.Length, seg.Direction())
		if c.EnableConstraints && i > 0 {
			next = Constrain(next, seg.Length, &c.segments[i-1])
		}
		c.joints[i+1] = next
		seg.Set(c.joints[i], next)
	}
}

// unfold bends a chain lying straight along the line to an in-reach target.
// FABRIK passes along that line only slide joints back and forth and can
// never fold the chain, so interior joints get a sideways offset.
func (c *Chain) unfold(goal math.Vec3) {
	if len(c.segments) < 2 {
		return
	}
	line := goal.Sub(c.origin)
	if line.Length() < math.DegenerateEpsilon {
		line = c.segments[0].Direction()
	}
	line = line.Normalize()
	for i := range c.segments {
		link := c.joints[i+1].Sub(c.joints[i])
		if link.Cross(line).Length() > unfoldEpsilon*link.Length() {
			return
		}
	}

	side := c.segments[0].Up()
	if side.Cross(line).Length() < 0.5 {
		side = c.segments[0].Right()
	}
	side = side.Sub(side.ProjectOnto(line)).Normalize()
	for i := 1; i < len(c.joints)-1; i++ {
		c.joints[i] = c.joints[i].Add(side.Scale(unfoldOffset * c.segments[i-1].Length))
	}
}

const (
	unfoldEpsilon = 1e-4
	unfoldOffset  = 0.25
)

// reach returns the point at distance length from anchor on the way to
// toward. When toward coincides with anchor, fallback gives the direction.
func reach(anchor, toward math.Vec3, length float32, fallback math.Vec3) math.Vec3 {
	r := anchor.Distance(toward)
	if r < math.DegenerateEpsilon {
		return anchor.Add(fallback.Scale(length))
	}
	return anchor.Lerp(toward, length/r)
}

// SetSegments re-derives segment endpoints and orientations from the joints.
func (c *Chain) SetSegments() {
	for i := range c.segments {
		c.segments[i].Set(c.joints[i], c.joints[i+1])
	}
	c.end = c.tip()
}

func (c *Chain) tip() math.Vec3 {
	return c.joints[len(c.joints)-1]
}

// SetConstraint attaches a cone constraint to segment i. It limits how far
// segment i+1 may bend relative to segment i.
func (c *Chain) SetConstraint(i int, cone ConeConstraint) error {
	if i < 0 || i >= len(c.segments) {
		return fmt.Errorf("%w: %d", ErrSegmentIndex, i)
	}
	c.segments[i].Constraint = &cone
	return nil
}

// ClearConstraint removes the cone constraint from segment i.
func (c *Chain) ClearConstraint(i int) error {
	if i < 0 || i >= len(c.segments) {
		return fmt.Errorf("%w: %d", ErrSegmentIndex, i)
	}
	c.segments[i].Constraint = nil
	return nil
}

// SetOrigin moves the fixed base. Joints follow on the next solve.
func (c *Chain) SetOrigin(p math.Vec3) {
	c.origin = p
}

// Translate moves the whole chain, origin included, by delta.
func (c *Chain) Translate(delta math.Vec3) {
	c.origin = c.origin.Add(delta)
	for i := range c.joints {
		c.joints[i] = c.joints[i].Add(delta)
	}
	c.SetSegments()
}

// anchor moves the joints rigidly so the base sits at p, which becomes the
// new origin.
func (c *Chain) anchor(p math.Vec3) {
	delta := p.Sub(c.joints[0])
	for i := range c.joints {
		c.joints[i] = c.joints[i].Add(delta)
	}
	c.origin = p
	c.SetSegments()
}

// SetTarget replaces the target reference.
func (c *Chain) SetTarget(t *Target) {
	c.target = t
}

// Target returns the borrowed target, possibly nil.
func (c *Chain) Target() *Target {
	return c.target
}

// Joints returns a copy of the joint positions.
func (c *Chain) Joints() []math.Vec3 {
	return append([]math.Vec3(nil), c.joints...)
}

// Joint returns joint i.
func (c *Chain) Joint(i int) math.Vec3 {
	return c.joints[i]
}

// Segments returns a copy of the segments.
func (c *Chain) Segments() []Segment {
	return append([]Segment(nil), c.segments...)
}

// Segment returns a pointer to segment i.
func (c *Chain) Segment(i int) *Segment {
	return &c.segments[i]
}

// Len returns the number of segments.
func (c *Chain) Len() int {
	return len(c.segments)
}

// Origin returns the fixed base position.
func (c *Chain) Origin() math.Vec3 {
	return c.origin
}

// End returns the chain end as of the last solve.
func (c *Chain) End() math.Vec3 {
	return c.end
}

// TotalLength returns the sum of the rest lengths.
func (c *Chain) TotalLength() float32 {
	return c.totalLength
}
