package ik

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-pose/pkg/math"
)

// Constrain projects a candidate joint position into the cone that prev
// allows for the segment starting at prev.End. The cone cross-section is an
// ellipse whose four semi-axes come from prev's Up/Down/Left/Right angles.
//
// Candidates behind prev (bent past 90 degrees) are always clamped: their
// projection is mirrored ahead of the joint before clamping, so the chain
// never folds back on itself. Clamped points keep their distance from
// prev.End. A nil or unconstrained prev returns candidate unchanged.
func Constrain(candidate math.Vec3, length float32, prev *Segment) math.Vec3 {
	if prev == nil || prev.Constraint == nil {
		return candidate
	}
	origin := prev.End
	axis := prev.Direction()

	v := candidate.Sub(origin)
	dist := v.Length()
	if dist < math.DegenerateEpsilon {
		return origin.Add(axis.Scale(length))
	}

	scalar := v.Dot(axis)
	adjust := v.Sub(axis.Scale(scalar))
	projLen := math32.Abs(scalar)

	up, right := prev.Up(), prev.Right()
	x := adjust.Dot(right)
	y := adjust.Dot(up)

	c := prev.Constraint
	xAngle, yAngle := c.Right, c.Up
	if x < 0 {
		xAngle = c.Left
	}
	if y < 0 {
		yAngle = c.Down
	}
	tx := coneTan(xAngle)
	ty := coneTan(yAngle)

	if scalar >= 0 && ellipseTerm(x, projLen*tx)+ellipseTerm(y, projLen*ty) <= 1 {
		return candidate
	}

	// Same angular direction around the axis, on the ellipse boundary.
	// Working at unit projection keeps the result defined when the
	// candidate sits exactly perpendicular to the axis.
	a := math32.Atan2(y, x)
	dir := axis.
		Add(right.Scale(tx * math32.Cos(a))).
		Add(up.Scale(ty * math32.Sin(a))).
		Normalize()
	if dir.Length() < math.DegenerateEpsilon {
		dir = axis
	}
	return origin.Add(dir.Scale(dist))
}

func coneTan(deg float32) float32 {
	return math32.Tan(math.Radians(math.Clamp(deg, 0, MaxConeAngle)))
}

// ellipseTerm returns (x/b)^2, treating a zero semi-axis as a hard wall.
func ellipseTerm(x, b float32) float32 {
	if b == 0 {
		if x == 0 {
			return 0
		}
		return math32.Inf(1)
	}
	r := x / b
	return r * r
}
