package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/Faultbox/midgard-pose/pkg/math"
)

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

// vecFlag parses "x,y,z".
type vecFlag struct {
	v   math.Vec3
	set bool
}

func (f *vecFlag) String() string {
	if !f.set {
		return ""
	}
	return formatVec(f.v)
}

func (f *vecFlag) Set(s string) error {
	v, err := parseVec(s)
	if err != nil {
		return err
	}
	f.v, f.set = v, true
	return nil
}

// targetsFlag collects repeated "name=x,y,z" values in order.
type targetsFlag struct {
	names []string
	pos   []math.Vec3
}

func (f *targetsFlag) String() string {
	parts := make([]string, len(f.names))
	for i := range f.names {
		parts[i] = f.names[i] + "=" + formatVec(f.pos[i])
	}
	return strings.Join(parts, " ")
}

func (f *targetsFlag) Set(s string) error {
	name, vec, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("want <chain>=<x,y,z>, got %q", s)
	}
	v, err := parseVec(vec)
	if err != nil {
		return err
	}
	f.names = append(f.names, name)
	f.pos = append(f.pos, v)
	return nil
}

func parseVec(s string) (math.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return math.Vec3{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var c [3]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return math.Vec3{}, fmt.Errorf("bad coordinate %q: %w", p, err)
		}
		c[i] = float32(f)
	}
	return math.Vec3FromArray(c), nil
}

func formatVec(v math.Vec3) string {
	return fmt.Sprintf("%.4f,%.4f,%.4f", v.X, v.Y, v.Z)
}
