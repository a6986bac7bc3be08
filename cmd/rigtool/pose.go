package main

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-pose/internal/assets"
	"github.com/Faultbox/midgard-pose/internal/logger"
	"github.com/Faultbox/midgard-pose/internal/rig"
	"github.com/Faultbox/midgard-pose/pkg/math"
	"github.com/Faultbox/midgard-pose/pkg/pose"
)

func cmdPose(r *rig.Rig, am *assets.Manager, args []string) error {
	fs := newFlagSet("pose")
	bake := fs.String("bake", "", "Write the recording as a keyframe clip to this file")
	name := fs.String("name", "pose", "Name of the baked clip")
	quiet := fs.Bool("q", false, "Do not print per-frame rotations")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("usage: rigtool pose [options] <recording.yaml>")
	}

	rec, err := rig.LoadRecording(am, fs.Arg(0))
	if err != nil {
		return err
	}

	joints := make([]int, 0, len(r.BoneMap))
	for j := range r.BoneMap {
		joints = append(joints, j)
	}
	sort.Ints(joints)

	a := r.NewAnimator()
	d := r.NewPoseDriver()
	a.PlayAnimation(d.Animation())
	dt := 1 / rec.FPS

	for i := 0; i < rec.Len(); i++ {
		f, err := d.Feed(rec.Landmarks(i))
		if err != nil {
			return err
		}
		a.UpdateAnimation(dt)
		if *quiet {
			continue
		}

		fmt.Printf("Frame %d\n", i)
		for _, j := range joints {
			e := f.Local[j].ToEuler()
			fmt.Printf("  %-16s %-24s %8.2f %8.2f %8.2f\n",
				pose.Name(j), r.BoneMap[j], math.Degrees(e.X), math.Degrees(e.Y), math.Degrees(e.Z))
		}
	}
	logger.Info("recording processed", zap.Int("frames", d.Frames()), zap.Float32("fps", rec.FPS))

	if *bake == "" {
		return nil
	}
	c, err := r.Bake(*name, rec)
	if err != nil {
		return err
	}
	data, err := rig.MarshalClip(c)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*bake, data, 0644); err != nil {
		return err
	}
	logger.Info("clip written", zap.String("path", *bake), zap.String("clip", c.Name))
	return nil
}
