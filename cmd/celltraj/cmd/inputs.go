package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/MeKo-Tech/celltraj/internal/config"
	"github.com/MeKo-Tech/celltraj/internal/contour"
	"github.com/MeKo-Tech/celltraj/internal/features"
	"github.com/MeKo-Tech/celltraj/internal/output"
	"github.com/MeKo-Tech/celltraj/internal/source"
	"github.com/MeKo-Tech/celltraj/internal/trajectory"
)

func (a *app) masks() source.DirMasks {
	return source.DirMasks{Dir: a.cfg.Input.MasksDir}
}

func (a *app) frames() source.DirFrames {
	return source.DirFrames{Dir: a.cfg.Input.FramesDir}
}

func (a *app) contourStore() *contour.Store {
	return contour.NewStore(a.masks(), a.logger)
}

// trajectories loads the configured trajectory file. When it is missing and a
// tracker is installed, the tracker builds and persists it using the tracking
// parameters.
func (a *app) trajectories(ctx context.Context) (*trajectory.Set, error) {
	path := a.cfg.Input.TrajectoriesFile
	n := 0
	if _, err := os.Stat(path); err != nil && a.tracker != nil {
		if n, err = a.frames().Count(); err != nil {
			return nil, fmt.Errorf("count frames for tracking: %w", err)
		}
	}
	set, err := trajectory.CachedProvider{
		Path:             path,
		Tracker:          a.tracker,
		Masks:            a.masks(),
		Frames:           n,
		ExpectedDiameter: a.cfg.Tracking.ExpectedDiameter,
		Scale:            a.cfg.Tracking.SearchScale,
		Logger:           a.logger,
	}.Trajectories(ctx)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("trajectories loaded", "path", path, "cells", set.Len())
	return set, nil
}

func (a *app) outputStore(ctx context.Context, enc features.Encoding) (output.Store, error) {
	if a.cfg.Output.Backend != config.BackendMinio {
		return output.NewFileStore(a.cfg.Output.Dir, enc)
	}
	s := a.cfg.Storage
	store, err := output.NewObjectStore(output.ObjectStoreConfig{
		Endpoint:  s.Endpoint,
		AccessKey: s.AccessKey,
		SecretKey: s.SecretKey,
		UseSSL:    s.UseSSL,
		Bucket:    s.Bucket,
		Prefix:    s.Prefix,
	}, enc)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func checkCell(set *trajectory.Set, cell int) error {
	if cell < 0 || cell >= set.Len() {
		return fmt.Errorf("cell %d out of range: trajectory set has %d cells", cell, set.Len())
	}
	return nil
}
