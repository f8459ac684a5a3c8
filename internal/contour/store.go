package contour

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/celltraj/internal/metrics"
	"github.com/MeKo-Tech/celltraj/internal/source"
)

// Store caches the contours of exactly one frame. Requesting another frame
// evicts the cached one. A Store is owned by one caller and is not safe for
// concurrent use; give each worker its own.
type Store struct {
	masks  source.MaskProvider
	logger *slog.Logger

	t        int
	valid    bool
	mask     *source.Mask
	contours *Contours
}

// NewStore creates a Store reading masks from p.
func NewStore(p source.MaskProvider, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{masks: p, logger: logger}
}

// Contours returns the polygons of frame t, tracing them on a cache miss.
// A missing mask is returned as the provider's error.
func (s *Store) Contours(t int) (*Contours, error) {
	if err := s.load(t); err != nil {
		return nil, err
	}
	return s.contours, nil
}

// Mask returns the label mask of frame t through the same single-frame cache.
func (s *Store) Mask(t int) (*source.Mask, error) {
	if err := s.load(t); err != nil {
		return nil, err
	}
	return s.mask, nil
}

// Cached reports which frame is cached, if any.
func (s *Store) Cached() (int, bool) {
	return s.t, s.valid
}

// Invalidate drops the cached frame.
func (s *Store) Invalidate() {
	s.valid = false
	s.mask = nil
	s.contours = nil
}

func (s *Store) load(t int) error {
	if s.valid && s.t == t {
		metrics.ObserveContourCache(true)
		return nil
	}
	metrics.ObserveContourCache(false)
	s.Invalidate()

	mask, err := s.masks.Mask(t)
	if err != nil {
		return fmt.Errorf("contours for frame %d: %w", t, err)
	}
	c := Trace(mask)
	c.T = t

	s.t, s.valid = t, true
	s.mask, s.contours = mask, c
	s.logger.Debug("traced contours", "t", t, "polygons", c.Len())
	return nil
}
