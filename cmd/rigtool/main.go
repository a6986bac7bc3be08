// rigtool is a headless CLI for the pose-solving core: it solves IK chains,
// converts landmark recordings to bone rotations, plays clips through the
// animator and re-solves on config edits.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-pose/internal/assets"
	"github.com/Faultbox/midgard-pose/internal/config"
	"github.com/Faultbox/midgard-pose/internal/logger"
	"github.com/Faultbox/midgard-pose/internal/rig"
)

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "help", "-h", "--help":
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: init logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, command, args); err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run(cfg *config.Config, command string, args []string) error {
	switch command {
	case "config":
		return cmdConfig(cfg, args)
	case "watch":
		return cmdWatch(cfg, args)
	}

	am, err := newAssets()
	if err != nil {
		return err
	}
	defer am.Close()

	r, err := rig.Build(cfg, am)
	if err != nil {
		return err
	}

	switch command {
	case "solve":
		return cmdSolve(r, args)
	case "pose":
		return cmdPose(r, am, args)
	case "animate", "play":
		return cmdAnimate(r, args)
	case "ccd":
		return cmdCCD(r, args)
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

// newAssets searches the config file's directory and then the working
// directory, which wins on conflicts.
func newAssets() (*assets.Manager, error) {
	am := assets.NewManager()
	p, err := config.FilePath()
	if err != nil {
		return nil, err
	}
	if p != "" {
		if err := am.AddDir(filepath.Dir(p)); err != nil {
			return nil, err
		}
	}
	if err := am.AddDir("."); err != nil {
		return nil, err
	}
	return am, nil
}

func printUsage() {
	fmt.Println(`rigtool - skeletal pose-solving utility

Usage:
  rigtool [global options] <command> [options]

Global options:
  -config <file>       Rig config (default ./rig.yaml, then the user config dir)
  -debug               Debug logging
  -log <file>          Also log to a rotating file
  -iterations <n>      FABRIK iteration limit
  -tolerance <d>       FABRIK reach tolerance
  -constraints on|off  Enforce cone constraints
  -transition <s>      Cross-fade length in seconds

Commands:
  solve -target <chain>=<x,y,z> ...    Solve the chain trees toward targets
  pose <recording.yaml>                Estimate bone rotations from landmarks
  animate -clip <name> [-then <name>]  Play clips and report the skeleton
  ccd -effector <bone> -target <x,y,z> Pull a bone toward a point with CCD
  watch -target <chain>=<x,y,z> ...    Re-solve whenever the config file changes
  config [-o <file>]                   Print or save the effective config

Examples:
  rigtool solve -target left_arm=0.6,0.6,0
  rigtool -debug pose -bake wave.yaml takes/wave.yaml
  rigtool animate -clip walk -then run -at 1.5 -for 3
  rigtool -constraints off config -o rig.yaml`)
}

func cmdConfig(cfg *config.Config, args []string) error {
	fs := newFlagSet("config")
	out := fs.String("o", "", "Write to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *out != "" {
		if err := cfg.SaveTo(*out); err != nil {
			return err
		}
		logger.Info("config saved", zap.String("path", *out))
		return nil
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
