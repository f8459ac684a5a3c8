package trajectory

import (
	"context"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/MeKo-Tech/celltraj/internal/source"
)

// Provider yields the trajectory set of a video.
type Provider interface {
	Trajectories(ctx context.Context) (*Set, error)
}

// Tracker is an external tracking algorithm that links per-frame mask objects
// into trajectories. maxSearchRadius bounds the distance a cell may travel
// between consecutive frames.
type Tracker interface {
	Track(ctx context.Context, masks source.MaskProvider, frames int, maxSearchRadius float64) ([]*Trajectory, error)
}

// MaxSearchRadius is the inter-frame travel bound handed to a Tracker.
func MaxSearchRadius(expectedDiameter, scale float64) float64 {
	return scale * expectedDiameter
}

// FileProvider loads a persisted trajectory file.
type FileProvider struct {
	Path string
}

// Trajectories loads and validates the file.
func (p FileProvider) Trajectories(_ context.Context) (*Set, error) {
	return Load(p.Path)
}

// CachedProvider returns the trajectories persisted at Path when present and
// otherwise runs Tracker over the masks, persisting the result to Path.
type CachedProvider struct {
	Path             string
	Tracker          Tracker
	Masks            source.MaskProvider
	Frames           int
	ExpectedDiameter float64
	Scale            float64
	Logger           *slog.Logger
}

// Trajectories implements Provider.
func (p CachedProvider) Trajectories(ctx context.Context) (*Set, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := os.Stat(p.Path); err == nil {
		logger.Info("loading persisted trajectories", "path", p.Path)
		return Load(p.Path)
	}
	if p.Tracker == nil {
		return nil, errors.Errorf("no trajectory file at %s and no tracker configured", p.Path)
	}

	radius := MaxSearchRadius(p.ExpectedDiameter, p.Scale)
	logger.Info("tracking cells", "frames", p.Frames, "max_search_radius", radius)
	trajs, err := p.Tracker.Track(ctx, p.Masks, p.Frames, radius)
	if err != nil {
		return nil, errors.Wrap(err, "track cells")
	}
	set := NewSet(trajs)
	if err := Save(p.Path, set); err != nil {
		return nil, err
	}
	logger.Info("persisted trajectories", "path", p.Path, "cells", set.Len())
	return set, nil
}
