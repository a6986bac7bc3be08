package rig

import (
	"fmt"

	"github.com/Faultbox/midgard-pose/internal/config"
	"github.com/Faultbox/midgard-pose/pkg/math"
	"github.com/Faultbox/midgard-pose/pkg/skeleton"
)

// BuildSkeleton creates a skeleton in bind pose. Skinned bones get palette
// slots in config order, with offsets that undo their bind transform so
// the bind pose skins to identity.
func BuildSkeleton(bones []config.BoneConfig) (*skeleton.Skeleton, error) {
	locals := make([]math.Mat4, len(bones))
	globals := make(map[string]math.Mat4, len(bones))
	info := make(map[string]skeleton.BoneInfo)

	slot := 0
	for i, b := range bones {
		locals[i] = boneLocal(b)
		global := locals[i]
		if b.Parent != "" {
			pg, ok := globals[b.Parent]
			if !ok {
				return nil, fmt.Errorf("bone %q: %w: %q", b.Name, skeleton.ErrUnknownParent, b.Parent)
			}
			global = pg.Mul(locals[i])
		}
		globals[b.Name] = global

		if b.Skinned {
			info[b.Name] = skeleton.BoneInfo{Index: slot, Offset: global.Inverse()}
			slot++
		}
	}

	sk := skeleton.New(info)
	for i, b := range bones {
		parent := skeleton.NoBone
		if b.Parent != "" {
			parent, _ = sk.Find(b.Parent)
		}
		id, err := sk.AddBone(b.Name, parent, locals[i])
		if err != nil {
			return nil, err
		}
		sk.Bone(id).Restriction = b.Restriction
	}
	sk.UpdateSkeleton()
	return sk, nil
}

func boneLocal(b config.BoneConfig) math.Mat4 {
	euler := math.Vec3{
		X: math.Radians(b.Rotation[0]),
		Y: math.Radians(b.Rotation[1]),
		Z: math.Radians(b.Rotation[2]),
	}
	return math.Compose(math.Vec3FromArray(b.Position), math.QuatFromEuler(euler), math.Vec3{X: 1, Y: 1, Z: 1})
}
