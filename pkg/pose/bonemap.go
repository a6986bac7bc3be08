package pose

import (
	"github.com/Faultbox/midgard-pose/pkg/math"
)

// BoneMap names the skeleton bone driven by each joint.
type BoneMap map[int]string

// DefaultBoneMap targets Mixamo bone names.
func DefaultBoneMap() BoneMap {
	return BoneMap{
		HipCenter:      "mixamorig:Hips",
		ShoulderCenter: "mixamorig:Spine2",

		LeftShoulder:  "mixamorig:LeftArm",
		LeftElbow:     "mixamorig:LeftForeArm",
		LeftWrist:     "mixamorig:LeftHand",
		RightShoulder: "mixamorig:RightArm",
		RightElbow:    "mixamorig:RightForeArm",
		RightWrist:    "mixamorig:RightHand",

		LeftHip:    "mixamorig:LeftUpLeg",
		LeftKnee:   "mixamorig:LeftLeg",
		LeftAnkle:  "mixamorig:LeftFoot",
		RightHip:   "mixamorig:RightUpLeg",
		RightKnee:  "mixamorig:RightLeg",
		RightAnkle: "mixamorig:RightFoot",
	}
}

// ByBone returns the rotations of the mapped joints keyed by bone name.
func (r *Rotations) ByBone(m BoneMap) map[string]math.Quat {
	out := make(map[string]math.Quat, len(m))
	for j, bone := range m {
		if j < 0 || j >= NumJoints {
			continue
		}
		out[bone] = r[j]
	}
	return out
}
