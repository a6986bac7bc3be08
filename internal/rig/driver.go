package rig

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-pose/internal/logger"
	"github.com/Faultbox/midgard-pose/pkg/anim"
	"github.com/Faultbox/midgard-pose/pkg/math"
	"github.com/Faultbox/midgard-pose/pkg/pose"
	"github.com/Faultbox/midgard-pose/pkg/skeleton"
)

// PoseDriver feeds detector frames through the estimator into a live pose
// animation.
type PoseDriver struct {
	est    *pose.Estimator
	bones  pose.BoneMap
	target *anim.PoseTarget
	anim   *anim.Animation
	frames int
	log    *zap.Logger
}

// NewPoseDriver returns a driver using the rig's bone map. Mapped bones the
// skeleton lacks are reported once and then ignored by the animator.
func (r *Rig) NewPoseDriver() *PoseDriver {
	target := anim.NewPoseTarget()
	d := &PoseDriver{
		est:    pose.NewEstimator(),
		bones:  r.BoneMap,
		target: target,
		anim:   anim.NewPose(target),
		log:    logger.Named("pose"),
	}
	for j, bone := range r.BoneMap {
		if _, ok := r.Skeleton.Find(bone); !ok {
			d.log.Warn("mapped bone missing from skeleton",
				zap.String("joint", pose.Name(j)),
				zap.String("bone", bone))
		}
	}
	return d
}

// Animation returns the live pose to hand to an animator.
func (d *PoseDriver) Animation() *anim.Animation {
	return d.anim
}

// Feed estimates one frame and publishes the mapped rotations.
func (d *PoseDriver) Feed(landmarks []math.Vec3) (*pose.Frame, error) {
	f, err := d.est.Estimate(landmarks)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", d.frames, err)
	}
	d.target.Update(f.Local.ByBone(d.bones))
	d.frames++
	return f, nil
}

// Frames returns how many frames were fed.
func (d *PoseDriver) Frames() int {
	return d.frames
}

// Reset forgets the estimator history.
func (d *PoseDriver) Reset() {
	d.est.Reset()
	d.frames = 0
}

// Bake converts a recording into a keyframe clip with one rotation key per
// frame for every mapped bone. Keys are absolute local rotations (bind
// rotation times the estimated rotation, clamped by the bone's angle
// restriction), so the clip plays back like the live pose did.
func (r *Rig) Bake(name string, rec *Recording) (*anim.Clip, error) {
	est := pose.NewEstimator()
	type baked struct {
		bone  skeleton.BoneID
		joint int
		bind  math.Quat
	}
	var mapped []baked
	for j, bone := range r.BoneMap {
		id, ok := r.Skeleton.Find(bone)
		if !ok || j < 0 || j >= pose.NumJoints {
			continue
		}
		_, bind, _ := r.Skeleton.Bone(id).Bind.Decompose()
		mapped = append(mapped, baked{bone: id, joint: j, bind: bind})
	}
	sort.Slice(mapped, func(a, b int) bool { return mapped[a].joint < mapped[b].joint })

	tracks := make([]anim.Track, len(mapped))
	for i, m := range mapped {
		tracks[i] = anim.Track{
			Bone:      r.Skeleton.Bone(m.bone).Name,
			Rotations: make([]anim.RotationKey, 0, rec.Len()),
		}
	}

	for k := 0; k < rec.Len(); k++ {
		f, err := est.Estimate(rec.Landmarks(k))
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", k, err)
		}
		for i, m := range mapped {
			b := r.Skeleton.Bone(m.bone)
			q := m.bind.Mul(b.Restriction.Apply(f.Local[m.joint]))
			tracks[i].Rotations = append(tracks[i].Rotations, anim.RotationKey{Time: float32(k), Value: q})
		}
	}

	duration := float32(0)
	if rec.Len() > 1 {
		duration = float32(rec.Len() - 1)
	}
	c := anim.NewClip(name, duration, rec.FPS, tracks)
	r.log.Info("recording baked",
		zap.String("clip", name),
		zap.Int("frames", rec.Len()),
		zap.Int("tracks", len(tracks)))
	return c, nil
}
