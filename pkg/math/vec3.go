// Package math provides float32 vector, quaternion and matrix types for
// skeletal solving. Matrices are column-major so they can be handed to a
// skinning shader without conversion.
package math

import "github.com/chewxy/math32"

// DegenerateEpsilon is the length below which a direction is treated as
// undefined. Rotations built from shorter vectors fall back to identity.
const DegenerateEpsilon = 1e-4

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float32
}

// Axis vectors.
var (
	UnitX = Vec3{1, 0, 0}
	UnitY = Vec3{0, 1, 0}
	UnitZ = Vec3{0, 0, 1}
)

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Scale returns v * scalar.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Negate returns -v.
func (v Vec3) Negate() Vec3 {
	return Vec3{-v.X, -v.Y, -v.Z}
}

// Dot returns the dot product.
func (v Vec3) Dot(other Vec3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the cross product.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

// LengthSq returns the squared magnitude.
func (v Vec3) LengthSq() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Length returns the magnitude.
func (v Vec3) Length() float32 {
	return math32.Sqrt(v.LengthSq())
}

// Normalize returns a unit vector, or the zero vector if v has no length.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

// Distance returns the distance to another point.
func (v Vec3) Distance(other Vec3) float32 {
	return v.Sub(other).Length()
}

// Lerp returns v + t*(other-v).
func (v Vec3) Lerp(other Vec3, t float32) Vec3 {
	return Vec3{
		v.X + t*(other.X-v.X),
		v.Y + t*(other.Y-v.Y),
		v.Z + t*(other.Z-v.Z),
	}
}

// ProjectOnto returns the component of v along dir. dir need not be unit
// length; a zero dir yields the zero vector.
func (v Vec3) ProjectOnto(dir Vec3) Vec3 {
	d := dir.LengthSq()
	if d == 0 {
		return Vec3{}
	}
	return dir.Scale(v.Dot(dir) / d)
}

// AngleTo returns the unsigned angle between v and other in radians.
func (v Vec3) AngleTo(other Vec3) float32 {
	d := v.Length() * other.Length()
	if d == 0 {
		return 0
	}
	return math32.Acos(Clamp(v.Dot(other)/d, -1, 1))
}

// ApproxEqual reports whether every component differs by at most tol.
func (v Vec3) ApproxEqual(other Vec3, tol float32) bool {
	return math32.Abs(v.X-other.X) <= tol &&
		math32.Abs(v.Y-other.Y) <= tol &&
		math32.Abs(v.Z-other.Z) <= tol
}

// Array returns the vector as a [3]float32.
func (v Vec3) Array() [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

// Vec3FromArray builds a Vec3 from a [3]float32.
func Vec3FromArray(a [3]float32) Vec3 {
	return Vec3{a[0], a[1], a[2]}
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Radians converts degrees to radians.
func Radians(deg float32) float32 {
	return deg * math32.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(rad float32) float32 {
	return rad * 180 / math32.Pi
}
