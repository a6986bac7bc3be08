package pose

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-pose/pkg/math"
)

// ErrTooFewLandmarks is returned for frames with fewer than NumLandmarks
// points.
var ErrTooFewLandmarks = errors.New("pose: too few landmarks")

// Rest directions. In the rest pose the arms point sideways and the legs
// point down.
var (
	leftArmAxis  = math.UnitX
	rightArmAxis = math.UnitX.Negate()
	legAxis      = math.UnitY.Negate()
)

// Rotations holds one quaternion per joint, indexed like the landmarks.
type Rotations [NumJoints]math.Quat

func identities() Rotations {
	var r Rotations
	for i := range r {
		r[i] = math.QuatIdentity()
	}
	return r
}

// Frame is the estimate for one detector frame.
type Frame struct {
	// Landmarks are the input points translated so the hip center is the
	// origin, followed by the two synthetic centers.
	Landmarks [NumJoints]math.Vec3
	// Local rotations are relative to the parent joint (see Parents).
	Local Rotations
	// Global rotations are in landmark space.
	Global Rotations
}

// Estimator converts landmark frames to joint rotations. It keeps the last
// frame's rotations so that a joint whose landmarks collapse holds its
// previous value instead of jumping or going NaN.
type Estimator struct {
	prev Rotations
}

// NewEstimator returns an estimator whose history is the rest pose.
func NewEstimator() *Estimator {
	e := &Estimator{}
	e.Reset()
	return e
}

// Reset forgets the previous frame.
func (e *Estimator) Reset() {
	e.prev = identities()
}

// Estimate computes joint rotations for one frame. Points past
// NumLandmarks are ignored.
func (e *Estimator) Estimate(landmarks []math.Vec3) (*Frame, error) {
	if len(landmarks) < NumLandmarks {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrTooFewLandmarks, len(landmarks), NumLandmarks)
	}

	f := &Frame{Local: e.prev, Global: identities()}
	f.normalize(landmarks)
	f.torso()
	f.shoulders()
	f.arm(LeftShoulder, LeftElbow, LeftWrist, LeftPinky, LeftIndex, leftArmAxis)
	f.arm(RightShoulder, RightElbow, RightWrist, RightPinky, RightIndex, rightArmAxis)
	f.leg(LeftHip, LeftKnee, LeftAnkle, LeftFootIndex)
	f.leg(RightHip, RightKnee, RightAnkle, RightFootIndex)

	e.prev = f.Local
	return f, nil
}

func (f *Frame) normalize(in []math.Vec3) {
	hip := in[LeftHip].Lerp(in[RightHip], 0.5)
	shoulder := in[LeftShoulder].Lerp(in[RightShoulder], 0.5)
	for i := 0; i < NumLandmarks; i++ {
		f.Landmarks[i] = in[i].Sub(hip)
	}
	f.Landmarks[HipCenter] = math.Vec3{}
	f.Landmarks[ShoulderCenter] = shoulder.Sub(hip)
}

func (f *Frame) parentGlobal(j int) math.Quat {
	if p := Parents[j]; p >= 0 {
		return f.Global[p]
	}
	return math.QuatIdentity()
}

// setGlobal stores a rotation given in landmark space.
func (f *Frame) setGlobal(j int, g math.Quat) {
	f.Global[j] = g
	f.Local[j] = f.parentGlobal(j).Inverse().Mul(g)
}

// setLocal stores a rotation given relative to the parent.
func (f *Frame) setLocal(j int, l math.Quat) {
	f.Local[j] = l
	f.Global[j] = f.parentGlobal(j).Mul(l)
}

// keep reuses the previous local rotation under the current parent.
func (f *Frame) keep(j int) {
	f.setLocal(j, f.Local[j])
}

func degenerate(v math.Vec3) bool {
	return v.Length() < math.DegenerateEpsilon
}

// torso builds a frame from the hip line and the spine: X runs from the
// right hip to the left hip, Z is the normal of the hip/shoulder plane.
func (f *Frame) torso() {
	p := &f.Landmarks
	tangent := p[LeftHip].Sub(p[RightHip])
	binormal := p[ShoulderCenter].Sub(p[HipCenter])
	if degenerate(tangent) || degenerate(binormal) {
		f.keep(HipCenter)
		return
	}
	normal := tangent.Cross(binormal)
	if degenerate(normal) {
		f.keep(HipCenter)
		return
	}

	x := tangent.Normalize()
	z := normal.Normalize()
	y := z.Cross(x)
	f.setGlobal(HipCenter, math.QuatFromAxes(x, y, z))
}

// shoulders isolates how far the shoulder line leans away from the hip
// line and applies that on top of the torso.
func (f *Frame) shoulders() {
	p := &f.Landmarks
	toShoulder := p[RightShoulder].Sub(p[ShoulderCenter])
	toHip := p[RightHip].Sub(p[HipCenter])
	if degenerate(toShoulder) || degenerate(toHip) {
		f.keep(ShoulderCenter)
		return
	}

	qs := math.RotateTowards(rightArmAxis, toShoulder)
	qh := math.RotateTowards(rightArmAxis, toHip)
	lean := qs.Mul(qh.Inverse())
	f.setGlobal(ShoulderCenter, lean.Mul(f.Global[HipCenter]))
}

// arm aims each arm bone along its landmark segment in landmark space,
// starting from the side's rest axis.
func (f *Frame) arm(shoulder, elbow, wrist, pinky, index int, axis math.Vec3) {
	p := &f.Landmarks
	hand := p[pinky].Lerp(p[index], 0.5)
	f.towards(shoulder, p[elbow].Sub(p[shoulder]), axis)
	f.towards(elbow, p[wrist].Sub(p[elbow]), axis)
	f.towards(wrist, hand.Sub(p[wrist]), axis)
}

func (f *Frame) towards(j int, dir, axis math.Vec3) {
	if degenerate(dir) {
		f.keep(j)
		return
	}
	f.setGlobal(j, math.RotateTowards(axis, dir))
}

// leg bends each leg bone in its parent's frame, from the downward rest
// axis, and then orients the foot.
func (f *Frame) leg(hip, knee, ankle, footIndex int) {
	p := &f.Landmarks
	f.between(hip, p[knee].Sub(p[hip]))
	f.between(knee, p[ankle].Sub(p[knee]))
	f.foot(ankle, p[knee], p[ankle], p[footIndex])
}

func (f *Frame) between(j int, dir math.Vec3) {
	local := f.parentGlobal(j).Inverse().Rotate(dir)
	if degenerate(local) {
		f.keep(j)
		return
	}
	f.setLocal(j, math.QuatBetween(legAxis, local))
}

// foot builds a frame with Z along the foot and X across it, using the shin
// to resolve the roll.
func (f *Frame) foot(ankle int, kneePos, anklePos, toePos math.Vec3) {
	forward := toePos.Sub(anklePos)
	up := kneePos.Sub(anklePos)
	if degenerate(forward) || degenerate(up) {
		f.keep(ankle)
		return
	}
	side := up.Cross(forward)
	if degenerate(side) {
		f.keep(ankle)
		return
	}

	z := forward.Normalize()
	x := side.Normalize()
	y := z.Cross(x)
	f.setGlobal(ankle, math.QuatFromAxes(x, y, z))
}
