package anim

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-pose/pkg/math"
	"github.com/Faultbox/midgard-pose/pkg/skeleton"
)

// TransitionSeconds is the default cross-fade length when switching
// animations.
const TransitionSeconds = 0.2

// State is the animator's playback state.
type State int

const (
	// StateIdle means nothing has been played yet.
	StateIdle State = iota
	// StatePlaying samples the current animation.
	StatePlaying
	// StateTransitioning cross-fades from the pose held at the switch to
	// the next animation's first frame.
	StateTransitioning
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateTransitioning:
		return "transitioning"
	default:
		return "unknown"
	}
}

// Animator drives one skeleton. Animations are borrowed; the final matrix
// palette is owned and overwritten by every UpdateAnimation.
type Animator struct {
	// Transition is the cross-fade length in seconds.
	Transition float32

	sk *skeleton.Skeleton

	current     *Animation
	next        *Animation
	queued      *Animation
	state       State
	currentTime float32 // ticks into current
	haltTime    float32 // ticks into current when the transition began
	interTime   float32 // ticks into the transition
	err         error   // from the latest sample

	rest  []transform
	held  []transform
	from  []transform
	to    []transform
	final [skeleton.MaxBoneMatrices]math.Mat4
}

// NewAnimator creates an animator for sk. The skeleton's bind pose is
// captured now, so add every bone first.
func NewAnimator(sk *skeleton.Skeleton) *Animator {
	n := sk.Len()
	a := &Animator{
		Transition: TransitionSeconds,
		sk:         sk,
		rest:       make([]transform, n),
		held:       make([]transform, n),
		from:       make([]transform, n),
		to:         make([]transform, n),
	}
	for i := range a.rest {
		a.rest[i] = decompose(sk.Bone(skeleton.BoneID(i)).Bind)
	}
	for i := range a.final {
		a.final[i] = math.Identity()
	}
	return a
}

// PlayAnimation switches to anim. With nothing playing it starts at once.
// Otherwise the current pose is held and cross-faded into anim's first
// frame. A request made during a cross-fade is queued and becomes current,
// without a second cross-fade, once the running one completes; a later
// request replaces an earlier queued one.
func (a *Animator) PlayAnimation(anim *Animation) {
	if anim == nil {
		return
	}
	switch a.state {
	case StateIdle:
		a.current = anim
		a.currentTime = 0
		a.state = StatePlaying

	case StatePlaying:
		if anim == a.current {
			return
		}
		a.haltTime = a.currentTime
		a.err = a.current.sample(a.sk, a.rest, a.haltTime, a.held)
		a.next = anim
		a.interTime = 0
		a.state = StateTransitioning

	case StateTransitioning:
		a.queued = anim
	}
}

// UpdateAnimation advances playback by dt seconds, poses the skeleton and
// refreshes the final matrices.
func (a *Animator) UpdateAnimation(dt float32) {
	switch a.state {
	case StateIdle:
		return

	case StatePlaying:
		a.currentTime = wrap(a.currentTime+dt*a.current.Rate(), a.current.Duration())
		a.err = a.current.sample(a.sk, a.rest, a.currentTime, a.from)
		a.apply(a.from)

	case StateTransitioning:
		a.interTime += dt * a.next.Rate()
		window := a.window()
		if a.interTime > window {
			a.finishTransition()
			a.err = a.current.sample(a.sk, a.rest, a.currentTime, a.from)
			a.apply(a.from)
			return
		}

		a.err = a.next.sample(a.sk, a.rest, 0, a.to)
		f := float32(1)
		if window > 0 {
			f = a.interTime / window
		}
		for i := range a.from {
			a.from[i] = blend(a.held[i], a.to[i], f)
		}
		a.apply(a.from)
	}
}

// finishTransition makes the incoming animation current. A queued request
// takes over directly from time 0: the fade that just ended has already left
// the outgoing pose, and queued plays never start a fade of their own.
func (a *Animator) finishTransition() {
	a.current = a.next
	a.next = nil
	if a.queued != nil {
		a.current = a.queued
		a.queued = nil
	}
	a.currentTime = 0
	a.interTime = 0
	a.state = StatePlaying
}

// window is the cross-fade length in ticks of the incoming animation.
func (a *Animator) window() float32 {
	return a.Transition * a.next.Rate()
}

func (a *Animator) apply(pose []transform) {
	for i := range pose {
		a.sk.SetLocal(skeleton.BoneID(i), pose[i].matrix())
	}
	a.sk.UpdateSkeleton()
	a.sk.FinalMatrices(&a.final)
}

func wrap(t, duration float32) float32 {
	if duration <= 0 {
		return 0
	}
	t = math32.Mod(t, duration)
	if t < 0 {
		t += duration
	}
	return t
}

// FinalBoneMatrices returns the skinning palette. Slots without a skinned
// bone stay identity.
func (a *Animator) FinalBoneMatrices() *[skeleton.MaxBoneMatrices]math.Mat4 {
	return &a.final
}

// State returns the playback state.
func (a *Animator) State() State {
	return a.state
}

// Current returns the animation being played, or the outgoing one during a
// cross-fade.
func (a *Animator) Current() *Animation {
	return a.current
}

// Next returns the incoming animation during a cross-fade.
func (a *Animator) Next() *Animation {
	return a.next
}

// Queued returns the animation waiting for the running cross-fade.
func (a *Animator) Queued() *Animation {
	return a.queued
}

// CurrentTime returns the playback position of the current animation in
// ticks. During a cross-fade it is the time the outgoing pose was held at.
func (a *Animator) CurrentTime() float32 {
	if a.state == StateTransitioning {
		return a.haltTime
	}
	return a.currentTime
}

// Blend returns cross-fade progress in [0, 1], or 0 when not fading.
func (a *Animator) Blend() float32 {
	if a.state != StateTransitioning {
		return 0
	}
	w := a.window()
	if w <= 0 {
		return 1
	}
	return math.Clamp(a.interTime/w, 0, 1)
}

// Err returns the error from the latest update, such as a CCD goal whose
// effector is not in the skeleton. The skeleton keeps its pose in that case.
func (a *Animator) Err() error {
	return a.err
}

// Skeleton returns the driven skeleton.
func (a *Animator) Skeleton() *skeleton.Skeleton {
	return a.sk
}
