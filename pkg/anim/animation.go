package anim

import (
	"github.com/Faultbox/midgard-pose/pkg/math"
	"github.com/Faultbox/midgard-pose/pkg/skeleton"
)

// Kind selects what drives an Animation.
type Kind int

const (
	// KindKeyframe samples a Clip.
	KindKeyframe Kind = iota
	// KindPose applies live per-bone rotations, typically from the pose
	// estimator.
	KindPose
	// KindCCD bends a bone chain toward a target with cyclic coordinate
	// descent.
	KindCCD
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindKeyframe:
		return "keyframe"
	case KindPose:
		return "pose"
	case KindCCD:
		return "ccd"
	default:
		return "unknown"
	}
}

// PoseTarget holds per-bone rotations relative to the bind pose. The caller
// owns it and updates it between frames.
type PoseTarget struct {
	Rotations map[string]math.Quat
}

// NewPoseTarget returns an empty pose.
func NewPoseTarget() *PoseTarget {
	return &PoseTarget{Rotations: make(map[string]math.Quat)}
}

// Set replaces the rotation of one bone.
func (p *PoseTarget) Set(bone string, q math.Quat) {
	p.Rotations[bone] = q
}

// Update replaces the rotations of every bone in rot.
func (p *PoseTarget) Update(rot map[string]math.Quat) {
	for bone, q := range rot {
		p.Rotations[bone] = q
	}
}

// Animation is one playable source of bone transforms. Exactly one payload
// is set, matching Kind.
type Animation struct {
	Kind Kind
	Clip *Clip
	Pose *PoseTarget
	CCD  *CCDGoal
}

// NewKeyframe wraps a clip.
func NewKeyframe(c *Clip) *Animation {
	return &Animation{Kind: KindKeyframe, Clip: c}
}

// NewPose wraps a live pose.
func NewPose(p *PoseTarget) *Animation {
	return &Animation{Kind: KindPose, Pose: p}
}

// NewCCD wraps a CCD goal.
func NewCCD(g *CCDGoal) *Animation {
	return &Animation{Kind: KindCCD, CCD: g}
}

// Name returns a label for logs.
func (a *Animation) Name() string {
	if a.Kind == KindKeyframe && a.Clip != nil {
		return a.Clip.Name
	}
	if a.Kind == KindCCD && a.CCD != nil {
		return "ccd:" + a.CCD.Effector
	}
	return a.Kind.String()
}

// Rate returns ticks per second.
func (a *Animation) Rate() float32 {
	if a.Kind == KindKeyframe && a.Clip != nil {
		return a.Clip.Rate()
	}
	return DefaultTicksPerSecond
}

// Duration returns the length in ticks. Only clips have one.
func (a *Animation) Duration() float32 {
	if a.Kind == KindKeyframe && a.Clip != nil {
		return a.Clip.Duration
	}
	return 0
}

// sample writes the local transform of every bone at time t into out.
// rest holds the decomposed bind transforms. Only a CCD goal that cannot be
// solved fails; out then holds the skeleton's current pose.
func (a *Animation) sample(sk *skeleton.Skeleton, rest []transform, t float32, out []transform) error {
	switch a.Kind {
	case KindKeyframe:
		for i := range out {
			b := sk.Bone(skeleton.BoneID(i))
			tr, ok := a.Clip.Track(b.Name)
			if !ok {
				out[i] = rest[i]
				continue
			}
			out[i] = tr.sample(t, rest[i])
		}

	case KindPose:
		for i := range out {
			b := sk.Bone(skeleton.BoneID(i))
			out[i] = rest[i]
			if q, ok := a.Pose.Rotations[b.Name]; ok {
				out[i].r = rest[i].r.Mul(b.Restriction.Apply(q))
			}
		}

	case KindCCD:
		_, err := SolveCCD(sk, a.CCD)
		for i := range out {
			out[i] = decompose(sk.Bone(skeleton.BoneID(i)).Local)
		}
		return err
	}
	return nil
}
