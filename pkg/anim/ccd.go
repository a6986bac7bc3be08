package anim

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-pose/pkg/ik"
	"github.com/Faultbox/midgard-pose/pkg/math"
	"github.com/Faultbox/midgard-pose/pkg/skeleton"
)

// DefaultCCDTolerance is the effector distance at which CCD stops.
const DefaultCCDTolerance = 0.01

var (
	ErrUnknownEffector = errors.New("anim: unknown effector bone")
	ErrNoTarget        = errors.New("anim: ccd goal has no target")
)

// CCDGoal asks for the effector bone to touch Target, in model space,
// by rotating up to ChainLength of its ancestors. Zero Iterations or
// Tolerance fall back to the defaults; zero ChainLength uses every ancestor.
type CCDGoal struct {
	Effector    string
	Target      *ik.Target
	ChainLength int
	Iterations  int
	Tolerance   float32
}

// Validate reports whether the goal can be solved on sk.
func (g *CCDGoal) Validate(sk *skeleton.Skeleton) error {
	_, err := g.resolve(sk)
	return err
}

func (g *CCDGoal) resolve(sk *skeleton.Skeleton) (skeleton.BoneID, error) {
	if g == nil || g.Target == nil {
		return skeleton.NoBone, ErrNoTarget
	}
	eff, ok := sk.Find(g.Effector)
	if !ok {
		return skeleton.NoBone, fmt.Errorf("%w: %q", ErrUnknownEffector, g.Effector)
	}
	return eff, nil
}

// CCDResult describes the outcome of a CCD solve.
type CCDResult struct {
	Iterations int
	Distance   float32
	Reached    bool
}

// ccdState is the working set of one solve.
type ccdState struct {
	sk       *skeleton.Skeleton
	effector skeleton.BoneID
	chain    []skeleton.BoneID
	target   math.Vec3
	tol      float32
}

// SolveCCD rotates the bones above the goal's effector, nearest first, until
// the effector is within tolerance of the target or the iteration budget is
// spent. Bone angle restrictions are honored and each bone's TotalRotation
// accumulates what was applied. Globals are current on return.
func SolveCCD(sk *skeleton.Skeleton, g *CCDGoal) (CCDResult, error) {
	eff, err := g.resolve(sk)
	if err != nil {
		return CCDResult{}, err
	}

	st := &ccdState{
		sk:       sk,
		effector: eff,
		chain:    ancestors(sk, eff, g.ChainLength),
		target:   g.Target.Position,
		tol:      g.Tolerance,
	}
	if st.tol <= 0 {
		st.tol = DefaultCCDTolerance
	}
	maxIter := g.Iterations
	if maxIter <= 0 {
		maxIter = ik.DefaultMaxIterations
	}

	sk.UpdateSkeleton()
	iter := 0
	for ; iter < maxIter; iter++ {
		if st.sweep() {
			break
		}
	}

	d := st.distance()
	return CCDResult{Iterations: iter, Distance: d, Reached: d <= st.tol}, nil
}

func ancestors(sk *skeleton.Skeleton, id skeleton.BoneID, limit int) []skeleton.BoneID {
	var chain []skeleton.BoneID
	for p := sk.Bone(id).Parent; p != skeleton.NoBone; p = sk.Bone(p).Parent {
		if limit > 0 && len(chain) == limit {
			break
		}
		chain = append(chain, p)
	}
	return chain
}

func (st *ccdState) distance() float32 {
	return st.sk.GlobalPosition(st.effector).Distance(st.target)
}

// sweep runs one pass over the chain and reports whether the target was
// reached.
func (st *ccdState) sweep() bool {
	for _, j := range st.chain {
		if st.distance() <= st.tol {
			return true
		}
		st.step(j)
	}
	return st.distance() <= st.tol
}

// step turns bone j so the effector points at the target as seen from j.
func (st *ccdState) step(j skeleton.BoneID) {
	joint := st.sk.GlobalPosition(j)
	toEffector := st.sk.GlobalPosition(st.effector).Sub(joint)
	toTarget := st.target.Sub(joint)
	if toEffector.Length() < math.DegenerateEpsilon || toTarget.Length() < math.DegenerateEpsilon {
		return
	}

	world := math.QuatBetween(toEffector, toTarget)
	b := st.sk.Bone(j)
	parent := math.QuatIdentity()
	if b.Parent != skeleton.NoBone {
		_, parent, _ = st.sk.Bone(b.Parent).Global.Decompose()
	}

	old := st.sk.Rotation(j)
	st.sk.SetRotation(j, parent.Inverse().Mul(world).Mul(parent).Mul(old))
	applied := st.sk.Rotation(j).Mul(old.Inverse())
	b.TotalRotation = applied.Mul(b.TotalRotation).Normalize()
	st.sk.UpdateFrom(j)
}
