// Package pose turns body landmarks from a pose detector into joint
// rotations that can drive a skeleton.
//
// Landmarks follow the 33-point body topology (nose, eyes, ears, mouth,
// shoulders down to the foot indices) in a right-handed, Y-up space where
// the subject faces +Z and its left side is +X. Two synthetic joints are
// appended: the hip center, which carries the torso rotation, and the
// shoulder center, which carries the shoulder lean.
package pose

// Landmark indices.
const (
	Nose = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex

	// HipCenter is synthetic; its rotation is the torso.
	HipCenter
	// ShoulderCenter is synthetic; its rotation is the shoulder lean
	// relative to the hips.
	ShoulderCenter
)

const (
	// NumLandmarks is the number of points a detector frame must carry.
	NumLandmarks = 33
	// NumJoints is NumLandmarks plus the two synthetic centers.
	NumJoints = 35
)

// Parents gives the rotation parent of each joint, or -1. Joints without a
// computed rotation have no parent and stay identity.
var Parents = func() [NumJoints]int {
	var p [NumJoints]int
	for i := range p {
		p[i] = -1
	}
	p[ShoulderCenter] = HipCenter

	p[LeftShoulder] = ShoulderCenter
	p[LeftElbow] = LeftShoulder
	p[LeftWrist] = LeftElbow
	p[RightShoulder] = ShoulderCenter
	p[RightElbow] = RightShoulder
	p[RightWrist] = RightElbow

	p[LeftHip] = HipCenter
	p[LeftKnee] = LeftHip
	p[LeftAnkle] = LeftKnee
	p[RightHip] = HipCenter
	p[RightKnee] = RightHip
	p[RightAnkle] = RightKnee
	return p
}()

var names = [NumJoints]string{
	"nose", "left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer",
	"left_ear", "right_ear", "mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_pinky", "right_pinky",
	"left_index", "right_index", "left_thumb", "right_thumb",
	"left_hip", "right_hip", "left_knee", "right_knee",
	"left_ankle", "right_ankle", "left_heel", "right_heel",
	"left_foot_index", "right_foot_index",
	"hip_center", "shoulder_center",
}

// Name returns the snake_case name of joint i.
func Name(i int) string {
	if i < 0 || i >= NumJoints {
		return ""
	}
	return names[i]
}

// Index returns the joint with the given name.
func Index(name string) (int, bool) {
	for i, n := range names {
		if n == name {
			return i, true
		}
	}
	return -1, false
}
