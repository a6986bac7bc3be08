package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-pose/internal/config"
	"github.com/Faultbox/midgard-pose/internal/logger"
	"github.com/Faultbox/midgard-pose/internal/rig"
)

// cmdWatch solves once, then rebuilds the rig and solves again every time
// the config file is saved, until interrupted.
func cmdWatch(cfg *config.Config, args []string) error {
	fs := newFlagSet("watch")
	var targets targetsFlag
	fs.Var(&targets, "target", "Chain target as <chain>=<x,y,z> (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(targets.names) == 0 {
		return errors.New("watch: at least one -target is required")
	}

	path, err := config.FilePath()
	if err != nil {
		return err
	}
	if path == "" {
		return errors.New("watch: no config file found; pass -config")
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Editors often save by replacing the file, which drops a watch on the
	// file itself.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	solve := func(cfg *config.Config) error {
		am, err := newAssets()
		if err != nil {
			return err
		}
		defer am.Close()

		r, err := rig.Build(cfg, am)
		if err != nil {
			return err
		}
		if err := applyTargets(r, targets); err != nil {
			return err
		}
		printSolve(r)
		return nil
	}
	if err := solve(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log := logger.Named("watch")
	log.Info("watching config", zap.String("path", path))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := config.Load()
			if err != nil {
				log.Warn("config rejected", zap.Error(err))
				continue
			}
			fmt.Println()
			if err := solve(cfg); err != nil {
				log.Warn("solve failed", zap.Error(err))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", zap.Error(err))
		}
	}
}
