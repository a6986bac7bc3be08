package math

import "github.com/chewxy/math32"

// Quat represents a quaternion for 3D rotations.
// Components are stored as X, Y, Z, W where W is the scalar part.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns an identity quaternion (no rotation).
func QuatIdentity() Quat {
	return Quat{X: 0, Y: 0, Z: 0, W: 1}
}

// QuatFromAxisAngle creates a quaternion from axis-angle rotation.
// axis should be normalized, angle is in radians.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	halfAngle := angle / 2
	s := math32.Sin(halfAngle)
	return Quat{
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
		W: math32.Cos(halfAngle),
	}
}

// QuatFromEuler creates a quaternion from XYZ-ordered Euler angles in radians.
func QuatFromEuler(euler Vec3) Quat {
	c1, s1 := math32.Cos(euler.X/2), math32.Sin(euler.X/2)
	c2, s2 := math32.Cos(euler.Y/2), math32.Sin(euler.Y/2)
	c3, s3 := math32.Cos(euler.Z/2), math32.Sin(euler.Z/2)

	return Quat{
		X: s1*c2*c3 + c1*s2*s3,
		Y: c1*s2*c3 - s1*c2*s3,
		Z: c1*c2*s3 + s1*s2*c3,
		W: c1*c2*c3 - s1*s2*s3,
	}
}

// QuatFromAxes builds the rotation whose columns are the given orthonormal
// basis vectors, i.e. the rotation taking UnitX, UnitY, UnitZ onto x, y, z.
func QuatFromAxes(x, y, z Vec3) Quat {
	m11, m12, m13 := x.X, y.X, z.X
	m21, m22, m23 := x.Y, y.Y, z.Y
	m31, m32, m33 := x.Z, y.Z, z.Z
	trace := m11 + m22 + m33

	var q Quat
	switch {
	case trace > 0:
		s := 0.5 / math32.Sqrt(trace+1)
		q.W = 0.25 / s
		q.X = (m32 - m23) * s
		q.Y = (m13 - m31) * s
		q.Z = (m21 - m12) * s
	case m11 > m22 && m11 > m33:
		s := 2 * math32.Sqrt(1+m11-m22-m33)
		q.W = (m32 - m23) / s
		q.X = 0.25 * s
		q.Y = (m12 + m21) / s
		q.Z = (m13 + m31) / s
	case m22 > m33:
		s := 2 * math32.Sqrt(1+m22-m11-m33)
		q.W = (m13 - m31) / s
		q.X = (m12 + m21) / s
		q.Y = 0.25 * s
		q.Z = (m23 + m32) / s
	default:
		s := 2 * math32.Sqrt(1+m33-m11-m22)
		q.W = (m21 - m12) / s
		q.X = (m13 + m31) / s
		q.Y = (m23 + m32) / s
		q.Z = 0.25 * s
	}
	return q.Normalize()
}

// QuatBetween returns the shortest rotation taking direction from onto
// direction to. Either vector shorter than DegenerateEpsilon yields identity.
func QuatBetween(from, to Vec3) Quat {
	if from.Length() < DegenerateEpsilon || to.Length() < DegenerateEpsilon {
		return QuatIdentity()
	}
	f := from.Normalize()
	t := to.Normalize()

	r := f.Dot(t) + 1
	var axis Vec3
	if r < 1e-6 {
		// Opposite directions: any axis perpendicular to f works.
		r = 0
		if math32.Abs(f.X) > math32.Abs(f.Z) {
			axis = Vec3{-f.Y, f.X, 0}
		} else {
			axis = Vec3{0, -f.Z, f.Y}
		}
	} else {
		axis = f.Cross(t)
	}
	return Quat{X: axis.X, Y: axis.Y, Z: axis.Z, W: r}.Normalize()
}

// RotateTowards returns the rotation taking the canonical reference axis onto
// direction. A direction shorter than DegenerateEpsilon yields identity.
func RotateTowards(reference, direction Vec3) Quat {
	if direction.Length() < DegenerateEpsilon {
		return QuatIdentity()
	}
	return QuatBetween(reference, direction)
}

// Normalize returns a normalized quaternion.
func (q Quat) Normalize() Quat {
	length := math32.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if length < 0.0001 {
		return QuatIdentity()
	}
	invLen := 1.0 / length
	return Quat{
		X: q.X * invLen,
		Y: q.Y * invLen,
		Z: q.Z * invLen,
		W: q.W * invLen,
	}
}

// Conjugate returns the conjugate, which is the inverse for unit quaternions.
func (q Quat) Conjugate() Quat {
	return Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

// Inverse returns the normalized inverse rotation.
func (q Quat) Inverse() Quat {
	return q.Conjugate().Normalize()
}

// Dot returns the dot product of two quaternions.
func (q Quat) Dot(other Quat) float32 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

// Slerp performs spherical linear interpolation between two quaternions.
// t should be in range [0, 1].
func (q Quat) Slerp(other Quat, t float32) Quat {
	dot := q.Dot(other)

	// Take the shorter path
	if dot < 0 {
		other = Quat{X: -other.X, Y: -other.Y, Z: -other.Z, W: -other.W}
		dot = -dot
	}

	// Nearly parallel: lerp avoids dividing by sin(0)
	if dot > 0.9995 {
		return q.Lerp(other, t)
	}

	theta0 := math32.Acos(dot)
	theta := theta0 * t
	sinTheta := math32.Sin(theta)
	sinTheta0 := math32.Sin(theta0)

	s0 := math32.Cos(theta) - dot*sinTheta/sinTheta0
	s1 := sinTheta / sinTheta0

	return Quat{
		X: q.X*s0 + other.X*s1,
		Y: q.Y*s0 + other.Y*s1,
		Z: q.Z*s0 + other.Z*s1,
		W: q.W*s0 + other.W*s1,
	}
}

// Lerp performs normalized linear interpolation between two quaternions.
func (q Quat) Lerp(other Quat, t float32) Quat {
	return Quat{
		X: q.X + t*(other.X-q.X),
		Y: q.Y + t*(other.Y-q.Y),
		Z: q.Z + t*(other.Z-q.Z),
		W: q.W + t*(other.W-q.W),
	}.Normalize()
}

// Mul multiplies two quaternions. The result applies other first, then q.
func (q Quat) Mul(other Quat) Quat {
	return Quat{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}

// Axes returns the rotated basis vectors (columns of the rotation matrix).
func (q Quat) Axes() (x, y, z Vec3) {
	return q.Rotate(UnitX), q.Rotate(UnitY), q.Rotate(UnitZ)
}

// ToEuler returns XYZ-ordered Euler angles in radians.
func (q Quat) ToEuler() Vec3 {
	q = q.Normalize()
	m11 := 1 - 2*(q.Y*q.Y+q.Z*q.Z)
	m12 := 2 * (q.X*q.Y - q.Z*q.W)
	m13 := 2 * (q.X*q.Z + q.Y*q.W)
	m22 := 1 - 2*(q.X*q.X+q.Z*q.Z)
	m23 := 2 * (q.Y*q.Z - q.X*q.W)
	m32 := 2 * (q.Y*q.Z + q.X*q.W)
	m33 := 1 - 2*(q.X*q.X+q.Y*q.Y)

	var e Vec3
	e.Y = math32.Asin(Clamp(m13, -1, 1))
	if math32.Abs(m13) < 0.9999999 {
		e.X = math32.Atan2(-m23, m33)
		e.Z = math32.Atan2(-m12, m11)
	} else {
		// Gimbal lock
		e.X = math32.Atan2(m32, m22)
		e.Z = 0
	}
	return e
}

// ApproxEqual reports whether q and other describe the same rotation within
// tol per component. q and -q are considered equal.
func (q Quat) ApproxEqual(other Quat, tol float32) bool {
	same := math32.Abs(q.X-other.X) <= tol && math32.Abs(q.Y-other.Y) <= tol &&
		math32.Abs(q.Z-other.Z) <= tol && math32.Abs(q.W-other.W) <= tol
	if same {
		return true
	}
	return math32.Abs(q.X+other.X) <= tol && math32.Abs(q.Y+other.Y) <= tol &&
		math32.Abs(q.Z+other.Z) <= tol && math32.Abs(q.W+other.W) <= tol
}

// IsNaN reports whether any component is NaN.
func (q Quat) IsNaN() bool {
	return math32.IsNaN(q.X) || math32.IsNaN(q.Y) || math32.IsNaN(q.Z) || math32.IsNaN(q.W)
}

// ToMat4 converts the quaternion to a 4x4 rotation matrix.
func (q Quat) ToMat4() Mat4 {
	q = q.Normalize()

	xx := q.X * q.X
	xy := q.X * q.Y
	xz := q.X * q.Z
	xw := q.X * q.W
	yy := q.Y * q.Y
	yz := q.Y * q.Z
	yw := q.Y * q.W
	zz := q.Z * q.Z
	zw := q.Z * q.W

	return Mat4{
		1 - 2*(yy+zz), 2 * (xy + zw), 2 * (xz - yw), 0,
		2 * (xy - zw), 1 - 2*(xx+zz), 2 * (yz + xw), 0,
		2 * (xz + yw), 2 * (yz - xw), 1 - 2*(xx+yy), 0,
		0, 0, 0, 1,
	}
}
