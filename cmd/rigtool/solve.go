package main

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-pose/internal/rig"
)

func cmdSolve(r *rig.Rig, args []string) error {
	fs := newFlagSet("solve")
	var targets targetsFlag
	fs.Var(&targets, "target", "Chain target as <chain>=<x,y,z> (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(targets.names) == 0 {
		return errors.New("solve: at least one -target is required")
	}

	if err := applyTargets(r, targets); err != nil {
		return err
	}
	printSolve(r)
	return nil
}

func applyTargets(r *rig.Rig, targets targetsFlag) error {
	for i, name := range targets.names {
		if err := r.SetTarget(name, targets.pos[i]); err != nil {
			return err
		}
	}
	return nil
}

func printSolve(r *rig.Rig) {
	for i, res := range r.Solve() {
		tree := r.Trees[i]
		fmt.Printf("Tree %s: %d iterations, reached: %v\n", tree.Node(0).Name, res.Iterations, res.Reached)
		for n := 0; n < tree.Len(); n++ {
			c := tree.Node(n)
			fmt.Printf("  %-12s", c.Name)
			for _, j := range c.Joints() {
				fmt.Printf(" (%s)", formatVec(j))
			}
			fmt.Println()
		}
		for _, leaf := range res.Leaves {
			fmt.Printf("  %-12s distance %.4f\n", tree.Node(leaf.Node).Name+":", leaf.Distance)
		}
	}
}
