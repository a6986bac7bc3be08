// Package skeleton provides a bone hierarchy for skinned characters.
//
// Bones live in an arena owned by the Skeleton and refer to each other by
// BoneID. A parent is always added before its children, so walking the arena
// in order visits every bone after its ancestors.
package skeleton

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-pose/pkg/math"
)

// MaxBoneMatrices is the size of the final matrix palette handed to the
// skinning renderer. Bones with a skinning index at or above it are not
// exported.
const MaxBoneMatrices = 100

// BoneID indexes a bone in its Skeleton.
type BoneID int

// NoBone is the parent of the root bone.
const NoBone BoneID = -1

var (
	ErrDuplicateBone = errors.New("skeleton: duplicate bone name")
	ErrUnknownParent = errors.New("skeleton: unknown parent bone")
	ErrMultipleRoots = errors.New("skeleton: skeleton already has a root")
)

// BoneInfo carries the skinning data of a bone: its slot in the final matrix
// palette and the offset (inverse bind) matrix taking mesh space to bone
// space.
type BoneInfo struct {
	Index  int
	Offset math.Mat4
}

// Bone is one node of the hierarchy.
type Bone struct {
	Name     string
	Index    int // skinning slot, -1 when the bone does not deform the mesh
	Parent   BoneID
	Children []BoneID

	Local  math.Mat4 // relative to the parent
	Bind   math.Mat4 // rest local transform
	Global math.Mat4 // model space, valid after UpdateSkeleton
	Final  math.Mat4 // InverseGlobal * Global * Offset
	Offset math.Mat4

	Restriction AngleRestriction

	// TotalRotation accumulates the rotation applied by the CCD solver since
	// the last reset.
	TotalRotation math.Quat
}

// Skeleton is a bone arena with a single root.
type Skeleton struct {
	// InverseGlobal undoes the model's root transform for the final matrices.
	InverseGlobal math.Mat4

	bones  []Bone
	byName map[string]BoneID
	info   map[string]BoneInfo
	root   BoneID
}

// New creates an empty skeleton. info maps bone names to their skinning data
// and may be nil.
func New(info map[string]BoneInfo) *Skeleton {
	s := &Skeleton{
		InverseGlobal: math.Identity(),
		byName:        make(map[string]BoneID),
		info:          make(map[string]BoneInfo, len(info)),
		root:          NoBone,
	}
	for name, bi := range info {
		s.info[name] = bi
	}
	return s
}

// AddBone appends a bone under parent with the given local (bind)
// transform. Pass NoBone as parent for the root.
func (s *Skeleton) AddBone(name string, parent BoneID, local math.Mat4) (BoneID, error) {
	if _, ok := s.byName[name]; ok {
		return NoBone, fmt.Errorf("%w: %q", ErrDuplicateBone, name)
	}
	if parent == NoBone {
		if s.root != NoBone {
			return NoBone, fmt.Errorf("%w: adding %q", ErrMultipleRoots, name)
		}
	} else if !s.valid(parent) {
		return NoBone, fmt.Errorf("%w: %d for %q", ErrUnknownParent, parent, name)
	}

	b := Bone{
		Name:          name,
		Index:         -1,
		Parent:        parent,
		Local:         local,
		Bind:          local,
		Global:        math.Identity(),
		Final:         math.Identity(),
		Offset:        math.Identity(),
		TotalRotation: math.QuatIdentity(),
	}
	if bi, ok := s.info[name]; ok {
		b.Index = bi.Index
		b.Offset = bi.Offset
	}

	id := BoneID(len(s.bones))
	s.bones = append(s.bones, b)
	s.byName[name] = id
	if parent == NoBone {
		s.root = id
	} else {
		s.bones[parent].Children = append(s.bones[parent].Children, id)
	}
	return id, nil
}

func (s *Skeleton) valid(id BoneID) bool {
	return id >= 0 && int(id) < len(s.bones)
}

// Find looks a bone up by name. Missing bones are common when a clip or a
// bone map was authored for a different rig; callers skip them.
func (s *Skeleton) Find(name string) (BoneID, bool) {
	id, ok := s.byName[name]
	return id, ok
}

// Bone returns the bone with the given ID. It panics on an invalid ID.
func (s *Skeleton) Bone(id BoneID) *Bone {
	return &s.bones[id]
}

// Root returns the root bone, or NoBone for an empty skeleton.
func (s *Skeleton) Root() BoneID {
	return s.root
}

// Len returns the number of bones.
func (s *Skeleton) Len() int {
	return len(s.bones)
}

// BoneCount returns the number of bones with skinning data.
func (s *Skeleton) BoneCount() int {
	return len(s.info)
}

// Info returns the skinning data registered for name.
func (s *Skeleton) Info(name string) (BoneInfo, bool) {
	bi, ok := s.info[name]
	return bi, ok
}

// UpdateSkeleton recomputes Global and Final for every bone, root first.
func (s *Skeleton) UpdateSkeleton() {
	if s.root == NoBone {
		return
	}
	s.UpdateFrom(s.root)
}

// UpdateFrom recomputes Global and Final for id and its descendants. The
// parent's Global must already be current.
func (s *Skeleton) UpdateFrom(id BoneID) {
	b := &s.bones[id]
	parent := math.Identity()
	if b.Parent != NoBone {
		parent = s.bones[b.Parent].Global
	}
	b.Global = parent.Mul(b.Local)
	b.Final = s.InverseGlobal.Mul(b.Global).Mul(b.Offset)

	for _, child := range b.Children {
		s.UpdateFrom(child)
	}
}

// SetLocal replaces a bone's local transform.
func (s *Skeleton) SetLocal(id BoneID, local math.Mat4) {
	s.bones[id].Local = local
}

// SetRotation replaces the rotation of a bone's local transform, keeping its
// translation and scale. The bone's angle restriction is applied first.
func (s *Skeleton) SetRotation(id BoneID, q math.Quat) {
	b := &s.bones[id]
	t, _, sc := b.Local.Decompose()
	b.Local = math.Compose(t, b.Restriction.Apply(q), sc)
}

// Rotation returns the rotation part of a bone's local transform.
func (s *Skeleton) Rotation(id BoneID) math.Quat {
	_, r, _ := s.bones[id].Local.Decompose()
	return r
}

// GlobalPosition returns the model-space position of a bone as of the last
// update.
func (s *Skeleton) GlobalPosition(id BoneID) math.Vec3 {
	return s.bones[id].Global.TransformVec3(math.Vec3{})
}

// ResetToBind restores every local transform to its bind pose and clears
// accumulated solver rotation.
func (s *Skeleton) ResetToBind() {
	for i := range s.bones {
		s.bones[i].Local = s.bones[i].Bind
		s.bones[i].TotalRotation = math.QuatIdentity()
	}
}

// FinalMatrices copies each skinned bone's Final matrix into its palette
// slot. Slots of unskinned bones are left untouched.
func (s *Skeleton) FinalMatrices(dst *[MaxBoneMatrices]math.Mat4) {
	for i := range s.bones {
		idx := s.bones[i].Index
		if idx < 0 || idx >= MaxBoneMatrices {
			continue
		}
		dst[idx] = s.bones[i].Final
	}
}
