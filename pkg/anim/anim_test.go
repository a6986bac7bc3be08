package anim

import (
	stdmath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-pose/pkg/math"
	"github.com/Faultbox/midgard-pose/pkg/skeleton"
)

func v(x, y, z float32) math.Vec3 { return math.Vec3{X: x, Y: y, Z: z} }

// body is hips -> spine -> head, one unit apart along +Y. hips and head are
// skinned.
func body(t *testing.T) *skeleton.Skeleton {
	t.Helper()
	sk := skeleton.New(map[string]skeleton.BoneInfo{
		"hips": {Index: 0, Offset: math.Identity()},
		"head": {Index: 2, Offset: math.Identity()},
	})
	hips, err := sk.AddBone("hips", skeleton.NoBone, math.Identity())
	require.NoError(t, err)
	spine, err := sk.AddBone("spine", hips, math.Translate(0, 1, 0))
	require.NoError(t, err)
	_, err = sk.AddBone("head", spine, math.Translate(0, 1, 0))
	require.NoError(t, err)
	sk.UpdateSkeleton()
	return sk
}

// walk slides the hips from x=0 to x=10 over 10 ticks at 10 ticks/s.
func walk() *Clip {
	return NewClip("walk", 10, 10, []Track{
		{
			Bone: "hips",
			Positions: []VectorKey{
				{Time: 0, Value: v(0, 0, 0)},
				{Time: 10, Value: v(10, 0, 0)},
			},
		},
	})
}

// run holds the hips at y=5 and uses the default tick rate.
func run() *Clip {
	return NewClip("run", 20, 0, []Track{
		{Bone: "hips", Positions: []VectorKey{{Time: 0, Value: v(0, 5, 0)}}},
	})
}

func hipsPos(t *testing.T, a *Animator) math.Vec3 {
	t.Helper()
	id, ok := a.Skeleton().Find("hips")
	require.True(t, ok)
	return a.Skeleton().GlobalPosition(id)
}

func TestClipSampling(t *testing.T) {
	rot := math.QuatFromAxisAngle(math.UnitY, stdmath.Pi/2)
	tr := Track{
		Bone: "spine",
		Positions: []VectorKey{
			{Time: 2, Value: v(0, 0, 0)},
			{Time: 6, Value: v(4, 8, 0)},
		},
		Rotations: []RotationKey{
			{Time: 0, Value: math.QuatIdentity()},
			{Time: 10, Value: rot},
		},
	}

	tests := []struct {
		name string
		time float32
		pos  math.Vec3
	}{
		{"before first key", 0, v(0, 0, 0)},
		{"on first key", 2, v(0, 0, 0)},
		{"between keys", 3, v(1, 2, 0)},
		{"on last key", 6, v(4, 8, 0)},
		{"after last key", 9, v(4, 8, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, _, scale := tr.Sample(tt.time)
			assert.True(t, pos.ApproxEqual(tt.pos, 1e-5), "pos = %v, want %v", pos, tt.pos)
			assert.Equal(t, v(1, 1, 1), scale)
		})
	}

	_, r, _ := tr.Sample(5)
	want := math.QuatFromAxisAngle(math.UnitY, stdmath.Pi/4)
	assert.True(t, r.ApproxEqual(want, 1e-4), "rot = %v, want %v", r, want)

	_, r, _ = tr.Sample(50)
	assert.True(t, r.ApproxEqual(rot, 1e-5))
}

func TestClipLookupAndRate(t *testing.T) {
	c := run()
	assert.Equal(t, float32(DefaultTicksPerSecond), c.Rate())
	assert.Equal(t, float32(10), walk().Rate())

	_, ok := c.Track("hips")
	assert.True(t, ok)
	_, ok = c.Track("tail")
	assert.False(t, ok)

	// Decoded clips without an index still resolve tracks.
	raw := &Clip{Tracks: []Track{{Bone: "hips"}}}
	_, ok = raw.Track("hips")
	assert.True(t, ok)
}

func TestAnimatorIdle(t *testing.T) {
	a := NewAnimator(body(t))
	a.UpdateAnimation(1)

	assert.Equal(t, StateIdle, a.State())
	assert.Nil(t, a.Current())
	for i, m := range a.FinalBoneMatrices() {
		assert.Equal(t, math.Identity(), m, "slot %d", i)
	}
}

func TestAnimatorPlaysAndWraps(t *testing.T) {
	a := NewAnimator(body(t))
	w := NewKeyframe(walk())
	a.PlayAnimation(w)
	assert.Equal(t, StatePlaying, a.State())
	assert.Same(t, w, a.Current())

	a.UpdateAnimation(0.25)
	assert.InDelta(t, 2.5, a.CurrentTime(), 1e-5)
	assert.True(t, hipsPos(t, a).ApproxEqual(v(2.5, 0, 0), 1e-5))

	final := a.FinalBoneMatrices()
	assert.True(t, final[0].Translation().ApproxEqual(v(2.5, 0, 0), 1e-5))
	assert.True(t, final[2].Translation().ApproxEqual(v(2.5, 2, 0), 1e-5))
	assert.Equal(t, math.Identity(), final[1], "spine is not skinned")

	// 2.5 + 12.5 = 15 ticks wraps to 5.
	a.UpdateAnimation(1.25)
	assert.InDelta(t, 5, a.CurrentTime(), 1e-4)
	assert.True(t, hipsPos(t, a).ApproxEqual(v(5, 0, 0), 1e-4))

	// Replaying the current animation changes nothing.
	a.PlayAnimation(w)
	assert.Equal(t, StatePlaying, a.State())
	assert.InDelta(t, 5, a.CurrentTime(), 1e-4)
}

func TestAnimatorTransitionBoundaries(t *testing.T) {
	a := NewAnimator(body(t))
	w, r := NewKeyframe(walk()), NewKeyframe(run())
	a.PlayAnimation(w)
	a.UpdateAnimation(0.3)

	a.PlayAnimation(r)
	assert.Equal(t, StateTransitioning, a.State())
	assert.Same(t, w, a.Current())
	assert.Same(t, r, a.Next())
	assert.InDelta(t, 3, a.CurrentTime(), 1e-5)

	// Start of the window: the held outgoing pose.
	a.UpdateAnimation(0)
	assert.Equal(t, float32(0), a.Blend())
	assert.True(t, hipsPos(t, a).ApproxEqual(v(3, 0, 0), 1e-5), "hips at %v", hipsPos(t, a))

	// Halfway: the window is 0.2 s * 25 ticks/s = 5 ticks.
	a.UpdateAnimation(0.1)
	assert.InDelta(t, 0.5, a.Blend(), 1e-5)
	assert.True(t, hipsPos(t, a).ApproxEqual(v(1.5, 2.5, 0), 1e-4), "hips at %v", hipsPos(t, a))

	// End of the window: the incoming pose at time 0.
	a.UpdateAnimation(0.1)
	assert.Equal(t, StateTransitioning, a.State())
	assert.InDelta(t, 1, a.Blend(), 1e-5)
	assert.True(t, hipsPos(t, a).ApproxEqual(v(0, 5, 0), 1e-4), "hips at %v", hipsPos(t, a))

	// Past the window the incoming animation takes over.
	a.UpdateAnimation(0.1)
	assert.Equal(t, StatePlaying, a.State())
	assert.Same(t, r, a.Current())
	assert.Nil(t, a.Next())
	assert.Equal(t, float32(0), a.CurrentTime())
	assert.True(t, hipsPos(t, a).ApproxEqual(v(0, 5, 0), 1e-5))
}

func TestAnimatorQueuedPlay(t *testing.T) {
	a := NewAnimator(body(t))
	w, r := NewKeyframe(walk()), NewKeyframe(run())
	idle := NewKeyframe(NewClip("idle", 4, 0, []Track{
		{Bone: "hips", Positions: []VectorKey{{Time: 0, Value: v(0, 0, 7)}}},
	}))
	other := NewKeyframe(NewClip("other", 4, 0, nil))

	a.PlayAnimation(w)
	a.UpdateAnimation(0.1)
	a.PlayAnimation(r)
	a.PlayAnimation(other)
	a.PlayAnimation(idle)
	assert.Equal(t, StateTransitioning, a.State())
	assert.Same(t, idle, a.Queued(), "the latest request wins")
	assert.Same(t, r, a.Next(), "queuing does not restart the fade")

	a.UpdateAnimation(0.1)
	assert.Equal(t, StateTransitioning, a.State())

	a.UpdateAnimation(0.2)
	assert.Equal(t, StatePlaying, a.State())
	assert.Same(t, idle, a.Current())
	assert.Nil(t, a.Queued())
	assert.Nil(t, a.Next())
	// The queued clip starts at its first frame with no fade of its own.
	assert.Equal(t, float32(0), a.CurrentTime())
	assert.Equal(t, float32(0), a.Blend())
	assert.True(t, hipsPos(t, a).ApproxEqual(v(0, 0, 7), 1e-5))
}

func TestAnimatorPose(t *testing.T) {
	sk := body(t)
	a := NewAnimator(sk)
	pose := NewPoseTarget()
	a.PlayAnimation(NewPose(pose))

	a.UpdateAnimation(0.016)
	head, ok := sk.Find("head")
	require.True(t, ok)
	assert.True(t, sk.GlobalPosition(head).ApproxEqual(v(0, 2, 0), 1e-5))

	// Tipping the spine forward swings the head onto +Z.
	pose.Set("spine", math.QuatFromAxisAngle(math.UnitX, stdmath.Pi/2))
	pose.Set("missing", math.QuatFromAxisAngle(math.UnitX, 1))
	a.UpdateAnimation(0.016)
	assert.True(t, sk.GlobalPosition(head).ApproxEqual(v(0, 1, 1), 1e-5), "head at %v", sk.GlobalPosition(head))
	assert.True(t, a.FinalBoneMatrices()[2].Translation().ApproxEqual(v(0, 1, 1), 1e-5))
}

func TestAnimationNames(t *testing.T) {
	assert.Equal(t, "walk", NewKeyframe(walk()).Name())
	assert.Equal(t, "pose", NewPose(NewPoseTarget()).Name())
	assert.Equal(t, "ccd:hand", NewCCD(&CCDGoal{Effector: "hand"}).Name())
	assert.Equal(t, "transitioning", StateTransitioning.String())
}

func TestWrap(t *testing.T) {
	assert.Equal(t, float32(0), wrap(5, 0))
	assert.InDelta(t, 1, wrap(11, 10), 1e-6)
	assert.InDelta(t, 9, wrap(-1, 10), 1e-6)
	assert.InDelta(t, 3, wrap(3, 10), 1e-6)
}
