// Package anim samples keyframe clips, live poses and CCD goals onto a
// skeleton and cross-fades between them.
package anim

import (
	"github.com/Faultbox/midgard-pose/pkg/math"
)

// DefaultTicksPerSecond is used for clips that do not declare a tick rate.
const DefaultTicksPerSecond = 25

// VectorKey is a position or scale keyframe. Time is in ticks.
type VectorKey struct {
	Time  float32   `yaml:"time"`
	Value math.Vec3 `yaml:"value"`
}

// RotationKey is a rotation keyframe. Time is in ticks.
type RotationKey struct {
	Time  float32   `yaml:"time"`
	Value math.Quat `yaml:"value"`
}

// Track holds the keyframes of one bone. Keys are sorted by time.
type Track struct {
	Bone      string        `yaml:"bone"`
	Positions []VectorKey   `yaml:"positions,omitempty"`
	Rotations []RotationKey `yaml:"rotations,omitempty"`
	Scales    []VectorKey   `yaml:"scales,omitempty"`
}

// Clip is a keyframe animation. It is not modified once built and may be
// shared by any number of animators.
type Clip struct {
	Name           string  `yaml:"name"`
	Duration       float32 `yaml:"duration"` // ticks
	TicksPerSecond float32 `yaml:"ticks_per_second"`
	Tracks         []Track `yaml:"tracks"`

	byBone map[string]int
}

// NewClip builds a clip and indexes its tracks by bone name.
func NewClip(name string, duration, ticksPerSecond float32, tracks []Track) *Clip {
	c := &Clip{
		Name:           name,
		Duration:       duration,
		TicksPerSecond: ticksPerSecond,
		Tracks:         tracks,
	}
	c.Index()
	return c
}

// Index rebuilds the bone lookup. Call it after filling Tracks directly,
// e.g. after decoding a clip file.
func (c *Clip) Index() {
	c.byBone = make(map[string]int, len(c.Tracks))
	for i := range c.Tracks {
		c.byBone[c.Tracks[i].Bone] = i
	}
}

// Rate returns the tick rate, falling back to DefaultTicksPerSecond.
func (c *Clip) Rate() float32 {
	if c.TicksPerSecond > 0 {
		return c.TicksPerSecond
	}
	return DefaultTicksPerSecond
}

// Track returns the track animating bone.
func (c *Clip) Track(bone string) (*Track, bool) {
	if c.byBone == nil {
		for i := range c.Tracks {
			if c.Tracks[i].Bone == bone {
				return &c.Tracks[i], true
			}
		}
		return nil, false
	}
	i, ok := c.byBone[bone]
	if !ok {
		return nil, false
	}
	return &c.Tracks[i], true
}

// transform is a decomposed local bone transform.
type transform struct {
	t math.Vec3
	r math.Quat
	s math.Vec3
}

func decompose(m math.Mat4) transform {
	t, r, s := m.Decompose()
	return transform{t: t, r: r, s: s}
}

func (x transform) matrix() math.Mat4 {
	return math.Compose(x.t, x.r, x.s)
}

func blend(a, b transform, f float32) transform {
	return transform{
		t: a.t.Lerp(b.t, f),
		r: a.r.Slerp(b.r, f),
		s: a.s.Lerp(b.s, f),
	}
}

// sample evaluates the track at time t. Components without keys come from
// rest.
func (tr *Track) sample(t float32, rest transform) transform {
	out := rest
	if len(tr.Positions) > 0 {
		out.t = sampleVector(tr.Positions, t)
	}
	if len(tr.Rotations) > 0 {
		out.r = sampleRotation(tr.Rotations, t)
	}
	if len(tr.Scales) > 0 {
		out.s = sampleVector(tr.Scales, t)
	}
	return out
}

// Sample evaluates the track at time t, returning translation, rotation and
// scale. Components without keys are identity.
func (tr *Track) Sample(t float32) (math.Vec3, math.Quat, math.Vec3) {
	x := tr.sample(t, transform{r: math.QuatIdentity(), s: math.Vec3{X: 1, Y: 1, Z: 1}})
	return x.t, x.r, x.s
}

// keySpan finds the keys surrounding t and the interpolation factor between
// them. prev == next when t is before the first or after the last key.
func keySpan(n int, at func(int) float32, t float32) (prev, next int, f float32) {
	for i := 0; i < n; i++ {
		if at(i) > t {
			next = i
			break
		}
		prev = i
		next = i
	}
	if prev == next {
		return prev, next, 0
	}
	t0, t1 := at(prev), at(next)
	if t1 != t0 {
		f = (t - t0) / (t1 - t0)
	}
	return prev, next, f
}

func sampleVector(keys []VectorKey, t float32) math.Vec3 {
	prev, next, f := keySpan(len(keys), func(i int) float32 { return keys[i].Time }, t)
	if prev == next {
		return keys[prev].Value
	}
	return keys[prev].Value.Lerp(keys[next].Value, f)
}

func sampleRotation(keys []RotationKey, t float32) math.Quat {
	prev, next, f := keySpan(len(keys), func(i int) float32 { return keys[i].Time }, t)
	if prev == next {
		return keys[prev].Value.Normalize()
	}
	return keys[prev].Value.Slerp(keys[next].Value, f)
}
