package main

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-pose/internal/logger"
	"github.com/Faultbox/midgard-pose/internal/rig"
	"github.com/Faultbox/midgard-pose/pkg/anim"
	"github.com/Faultbox/midgard-pose/pkg/ik"
	"github.com/Faultbox/midgard-pose/pkg/skeleton"
)

func cmdAnimate(r *rig.Rig, args []string) error {
	fs := newFlagSet("animate")
	clip := fs.String("clip", "", "Clip to play")
	then := fs.String("then", "", "Clip to switch to")
	at := fs.Float64("at", 1, "Seconds before switching to -then")
	total := fs.Float64("for", 2, "Seconds to simulate")
	step := fs.Float64("step", 0.1, "Seconds per update")
	bone := fs.String("bone", "", "Bone to report (default: root)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *clip == "" {
		return fmt.Errorf("animate: -clip is required (loaded: %v)", r.ClipNames())
	}
	if *step <= 0 {
		return errors.New("animate: -step must be positive")
	}

	id, err := reportBone(r.Skeleton, *bone)
	if err != nil {
		return err
	}

	a := r.NewAnimator()
	if err := r.Play(a, *clip); err != nil {
		return err
	}

	switched := *then == ""
	dt := float32(*step)
	for t := float32(0); t < float32(*total); t += dt {
		if !switched && t >= float32(*at) {
			if err := r.Play(a, *then); err != nil {
				return err
			}
			switched = true
		}
		a.UpdateAnimation(dt)
		printFrame(t+dt, a, r.Skeleton, id)
	}
	return nil
}

func cmdCCD(r *rig.Rig, args []string) error {
	fs := newFlagSet("ccd")
	effector := fs.String("effector", "", "Bone to move")
	var target vecFlag
	fs.Var(&target, "target", "Point to reach as x,y,z")
	chain := fs.Int("chain", 0, "Ancestors to rotate (0 = all)")
	steps := fs.Int("steps", 1, "Animator updates to run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *effector == "" || !target.set {
		return errors.New("usage: rigtool ccd -effector <bone> -target <x,y,z>")
	}

	ccd, err := r.CCD(*effector, &ik.Target{Position: target.v}, *chain)
	if err != nil {
		return err
	}
	id, _ := r.Skeleton.Find(*effector)

	a := r.NewAnimator()
	a.PlayAnimation(ccd)
	for i := 0; i < *steps; i++ {
		a.UpdateAnimation(1.0 / anim.DefaultTicksPerSecond)
		if err := a.Err(); err != nil {
			return err
		}
		printFrame(float32(i+1)/anim.DefaultTicksPerSecond, a, r.Skeleton, id)
	}

	d := r.Skeleton.GlobalPosition(id).Distance(target.v)
	logger.Info("ccd finished",
		zap.String("effector", *effector),
		zap.Float32("distance", d),
		zap.Bool("reached", d <= r.Config().Solver.CCDTolerance))
	fmt.Printf("Distance to target: %.4f\n", d)
	return nil
}

func reportBone(sk *skeleton.Skeleton, name string) (skeleton.BoneID, error) {
	if name == "" {
		if sk.Root() == skeleton.NoBone {
			return skeleton.NoBone, errors.New("skeleton has no bones")
		}
		return sk.Root(), nil
	}
	id, ok := sk.Find(name)
	if !ok {
		return skeleton.NoBone, fmt.Errorf("unknown bone %q", name)
	}
	return id, nil
}

func printFrame(t float32, a *anim.Animator, sk *skeleton.Skeleton, id skeleton.BoneID) {
	name := "-"
	if c := a.Current(); c != nil {
		name = c.Name()
	}
	fmt.Printf("t=%5.2fs %-13s %-10s tick=%6.2f blend=%.2f %s=(%s)\n",
		t, a.State(), name, a.CurrentTime(), a.Blend(), sk.Bone(id).Name, formatVec(sk.GlobalPosition(id)))
}
