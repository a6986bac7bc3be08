// Package rig assembles the IK chains, skeleton, clips and bone map described
// by a config and drives them for the command-line tools.
package rig

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-pose/internal/assets"
	"github.com/Faultbox/midgard-pose/internal/config"
	"github.com/Faultbox/midgard-pose/internal/logger"
	"github.com/Faultbox/midgard-pose/pkg/anim"
	"github.com/Faultbox/midgard-pose/pkg/ik"
	"github.com/Faultbox/midgard-pose/pkg/math"
	"github.com/Faultbox/midgard-pose/pkg/pose"
	"github.com/Faultbox/midgard-pose/pkg/skeleton"
)

var (
	ErrUnknownChain = errors.New("rig: unknown chain")
	ErrNotLeaf      = errors.New("rig: only leaf chains take targets")
	ErrUnknownClip  = errors.New("rig: unknown clip")
)

// Rig is everything a config describes, built and ready to solve.
type Rig struct {
	// Trees holds one solver per root chain, in config order.
	Trees    []*ik.MultiChain
	Skeleton *skeleton.Skeleton
	BoneMap  pose.BoneMap

	cfg    *config.Config
	chains map[string]chainRef
	clips  map[string]*anim.Clip
	log    *zap.Logger
}

type chainRef struct {
	tree, node int
}

// Build assembles a rig from a private copy of cfg. Clip paths are resolved
// through am, which may be nil when the config lists no clips.
func Build(cfg *config.Config, am *assets.Manager) (*Rig, error) {
	cfg, err := cfg.Clone()
	if err != nil {
		return nil, fmt.Errorf("copying config: %w", err)
	}

	r := &Rig{
		cfg:    cfg,
		chains: make(map[string]chainRef, len(cfg.Chains)),
		clips:  make(map[string]*anim.Clip, len(cfg.Animation.Clips)),
		log:    logger.Named("rig"),
	}

	if err := r.buildChains(); err != nil {
		return nil, err
	}

	sk, err := BuildSkeleton(cfg.Skeleton.Bones)
	if err != nil {
		return nil, err
	}
	r.Skeleton = sk

	r.BoneMap, err = BoneMapFromConfig(cfg.Pose.BoneMap)
	if err != nil {
		return nil, err
	}

	for _, p := range cfg.Animation.Clips {
		if am == nil {
			return nil, fmt.Errorf("loading clip %s: no asset manager", p)
		}
		c, err := LoadClip(am, p, cfg.Animation.TicksPerSecond)
		if err != nil {
			return nil, err
		}
		if c.Name == "" {
			c.Name = strings.TrimSuffix(path.Base(p), path.Ext(p))
		}
		r.clips[c.Name] = c
	}

	r.log.Info("rig built",
		zap.Int("trees", len(r.Trees)),
		zap.Int("chains", len(r.chains)),
		zap.Int("bones", sk.Len()),
		zap.Int("skinned", sk.BoneCount()),
		zap.Int("clips", len(r.clips)))
	return r, nil
}

func (r *Rig) buildChains() error {
	s := r.cfg.Solver
	for _, cc := range r.cfg.Chains {
		joints := make([]math.Vec3, len(cc.Joints))
		for i, p := range cc.Joints {
			joints[i] = math.Vec3FromArray(p)
		}
		c, err := ik.NewChain(joints, nil)
		if err != nil {
			return fmt.Errorf("chain %q: %w", cc.Name, err)
		}
		c.Name = cc.Name
		c.MaxIterations = s.MaxIterations
		c.Tolerance = s.Tolerance
		c.EnableConstraints = s.Constraints
		for _, sc := range cc.Constraints {
			if err := c.SetConstraint(sc.Segment, sc.Cone); err != nil {
				return fmt.Errorf("chain %q: %w", cc.Name, err)
			}
		}

		if cc.Parent == "" {
			tree, err := ik.NewMultiChain(c)
			if err != nil {
				return fmt.Errorf("chain %q: %w", cc.Name, err)
			}
			tree.MaxIterations = s.MaxIterations
			tree.Tolerance = s.Tolerance
			r.Trees = append(r.Trees, tree)
			r.chains[cc.Name] = chainRef{tree: len(r.Trees) - 1, node: 0}
			continue
		}

		parent, ok := r.chains[cc.Parent]
		if !ok {
			return fmt.Errorf("chain %q: parent %q: %w", cc.Name, cc.Parent, ErrUnknownChain)
		}
		node, err := r.Trees[parent.tree].Attach(parent.node, c)
		if err != nil {
			return fmt.Errorf("chain %q: %w", cc.Name, err)
		}
		r.chains[cc.Name] = chainRef{tree: parent.tree, node: node}
	}
	return nil
}

// Config returns the config the rig was built from.
func (r *Rig) Config() *config.Config {
	return r.cfg
}

// Chain returns a chain by name.
func (r *Rig) Chain(name string) (*ik.Chain, bool) {
	ref, ok := r.chains[name]
	if !ok {
		return nil, false
	}
	return r.Trees[ref.tree].Node(ref.node), true
}

// ChainNames returns every chain name in config order.
func (r *Rig) ChainNames() []string {
	names := make([]string, 0, len(r.cfg.Chains))
	for _, cc := range r.cfg.Chains {
		names = append(names, cc.Name)
	}
	return names
}

// SetTarget aims a leaf chain at p. The chain's target is created on first
// use; until then the chain is carried along by its parent.
func (r *Rig) SetTarget(chain string, p math.Vec3) error {
	ref, ok := r.chains[chain]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChain, chain)
	}
	tree := r.Trees[ref.tree]
	if !tree.IsLeaf(ref.node) {
		return fmt.Errorf("%w: %q", ErrNotLeaf, chain)
	}
	c := tree.Node(ref.node)
	if t := c.Target(); t != nil {
		t.Position = p
		return nil
	}
	c.SetTarget(&ik.Target{Position: p})
	return nil
}

// ClearTarget releases a chain's target.
func (r *Rig) ClearTarget(chain string) error {
	c, ok := r.Chain(chain)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChain, chain)
	}
	c.SetTarget(nil)
	return nil
}

// Solve runs every tree once and logs the outcome.
func (r *Rig) Solve() []ik.TreeResult {
	results := make([]ik.TreeResult, len(r.Trees))
	for i, tree := range r.Trees {
		res := tree.Solve()
		results[i] = res
		root := tree.Node(0).Name
		r.log.Debug("tree solved",
			zap.String("root", root),
			zap.Int("iterations", res.Iterations),
			zap.Bool("reached", res.Reached))
		for _, leaf := range res.Leaves {
			if !leaf.Reached {
				r.log.Debug("leaf short of target",
					zap.String("chain", tree.Node(leaf.Node).Name),
					zap.Float32("distance", leaf.Distance))
			}
		}
	}
	return results
}

// Clip returns a loaded clip by name.
func (r *Rig) Clip(name string) (*anim.Clip, bool) {
	c, ok := r.clips[name]
	return c, ok
}

// AddClip registers a clip, replacing one with the same name.
func (r *Rig) AddClip(c *anim.Clip) {
	r.clips[c.Name] = c
}

// ClipNames returns the loaded clip names, sorted.
func (r *Rig) ClipNames() []string {
	names := make([]string, 0, len(r.clips))
	for n := range r.clips {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewAnimator returns an animator for the rig's skeleton using the
// configured cross-fade length.
func (r *Rig) NewAnimator() *anim.Animator {
	a := anim.NewAnimator(r.Skeleton)
	a.Transition = r.cfg.Animation.TransitionSeconds
	return a
}

// Play starts the named clip on a. A clip that is already playing, or is
// the target of the running cross-fade, is left alone.
func (r *Rig) Play(a *anim.Animator, clip string) error {
	c, ok := r.clips[clip]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownClip, clip)
	}
	if playsClip(a, c) {
		return nil
	}
	r.log.Debug("play", zap.String("clip", clip), zap.Stringer("state", a.State()))
	a.PlayAnimation(anim.NewKeyframe(c))
	return nil
}

func playsClip(a *anim.Animator, c *anim.Clip) bool {
	lead := a.Current()
	if a.State() == anim.StateTransitioning {
		lead = a.Next()
		if q := a.Queued(); q != nil {
			lead = q
		}
	}
	return lead != nil && lead.Kind == anim.KindKeyframe && lead.Clip == c
}

// CCD returns a CCD animation pulling effector toward target with the
// configured iteration budget and tolerance. It fails with
// anim.ErrUnknownEffector or anim.ErrNoTarget before anything is played.
func (r *Rig) CCD(effector string, target *ik.Target, chainLength int) (*anim.Animation, error) {
	g := &anim.CCDGoal{
		Effector:    effector,
		Target:      target,
		ChainLength: chainLength,
		Iterations:  r.cfg.Solver.CCDIterations,
		Tolerance:   r.cfg.Solver.CCDTolerance,
	}
	if err := g.Validate(r.Skeleton); err != nil {
		return nil, err
	}
	return anim.NewCCD(g), nil
}

// BoneMapFromConfig converts a joint-name to bone-name map. An empty map
// yields the default Mixamo mapping.
func BoneMapFromConfig(m map[string]string) (pose.BoneMap, error) {
	if len(m) == 0 {
		return pose.DefaultBoneMap(), nil
	}
	out := make(pose.BoneMap, len(m))
	for joint, bone := range m {
		i, ok := pose.Index(joint)
		if !ok {
			return nil, fmt.Errorf("bone map: unknown joint %q", joint)
		}
		out[i] = bone
	}
	return out, nil
}
