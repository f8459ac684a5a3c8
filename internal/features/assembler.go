package features

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/MeKo-Tech/celltraj/internal/contour"
	"github.com/MeKo-Tech/celltraj/internal/metrics"
	"github.com/MeKo-Tech/celltraj/internal/neighbor"
	"github.com/MeKo-Tech/celltraj/internal/source"
	"github.com/MeKo-Tech/celltraj/internal/trajectory"
	"github.com/MeKo-Tech/celltraj/internal/utils"
)

// Config controls record assembly.
type Config struct {
	MaxNeighbors int `json:"max_neighbors" yaml:"max_neighbors"`
}

// DefaultConfig returns the default assembly configuration.
func DefaultConfig() Config {
	return Config{MaxNeighbors: DefaultMaxNeighbors}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxNeighbors < 1 {
		return fmt.Errorf("max neighbors must be at least 1, got %d", c.MaxNeighbors)
	}
	return nil
}

// Assembler builds feature records for one cell at a time. It owns a contour
// store and a frame cache, so it must not be shared between goroutines.
type Assembler struct {
	cfg     Config
	set     *trajectory.Set
	store   *contour.Store
	locator *contour.Locator
	filter  *neighbor.Filter
	frames  source.FrameProvider
	logger  *slog.Logger

	frameT   int
	frameImg *image.NRGBA
}

// NewAssembler wires an assembler. filter may be shared between assemblers;
// nil builds a private one over set.
func NewAssembler(cfg Config, set *trajectory.Set, store *contour.Store, filter *neighbor.Filter,
	frames source.FrameProvider, logger *slog.Logger,
) (*Assembler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if set == nil || store == nil || frames == nil {
		return nil, errors.New("assembler needs a trajectory set, contour store and frame provider")
	}
	if filter == nil {
		filter = neighbor.NewFilter(set)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		cfg:     cfg,
		set:     set,
		store:   store,
		locator: contour.NewLocator(store),
		filter:  filter,
		frames:  frames,
		logger:  logger,
		frameT:  -1,
	}, nil
}

// Assemble returns one record per timestep of cell ii, in ascending t. Any
// hard failure fails the whole cell.
func (a *Assembler) Assemble(ctx context.Context, ii int) ([]Record, error) {
	tr, err := a.set.Get(ii)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, tr.Len())
	for _, t := range tr.T {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := a.record(tr, ii, t)
		if err != nil {
			return nil, fmt.Errorf("cell %d at t=%d: %w", ii, t, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// AssembleAt returns the record of cell ii at frame t.
func (a *Assembler) AssembleAt(ii, t int) (Record, error) {
	tr, err := a.set.Get(ii)
	if err != nil {
		return Record{}, err
	}
	return a.record(tr, ii, t)
}

func (a *Assembler) record(tr *trajectory.Trajectory, ii, t int) (Record, error) {
	x, y, err := tr.Position(t)
	if err != nil {
		return Record{}, err
	}
	theta, err := tr.Property(trajectory.Orientation, t)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		Cell:        ii,
		T:           t,
		X:           int(x),
		Y:           int(y),
		Area:        intOrSentinel(tr, trajectory.Area, t),
		MajorAxis:   intOrSentinel(tr, trajectory.MajorAxisLength, t),
		MinorAxis:   intOrSentinel(tr, trajectory.MinorAxisLength, t),
		Orientation: theta,
		Perimeter:   Sentinel,
	}

	rec.Color, err = a.meanColor(t, rec.X, rec.Y)
	if err != nil {
		return Record{}, err
	}

	poly, err := a.locator.Locate(t, rec.X, rec.Y)
	if err != nil {
		return Record{}, err
	}
	if poly != nil {
		rec.Perimeter = poly.Len()
	}

	rec.Neighbors, err = a.neighbors(t, ii, poly)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// neighbors fills the fixed slots with adjacent candidates in candidate order.
func (a *Assembler) neighbors(t, ii int, own *contour.Polygon) ([]Neighbor, error) {
	candidates, err := a.filter.Candidates(t, ii)
	if err != nil {
		return nil, err
	}

	slots := make([]Neighbor, 0, a.cfg.MaxNeighbors)
	if own != nil {
		for _, jj := range candidates {
			other, err := a.locateCell(t, jj)
			if err != nil {
				return nil, err
			}
			if !neighbor.AreAdjacent(own, other) {
				continue
			}
			if len(slots) == a.cfg.MaxNeighbors {
				metrics.ObserveNeighborTruncation()
				a.logger.Debug("neighbor slots exhausted", "cell", ii, "t", t, "max_neighbors", a.cfg.MaxNeighbors)
				break
			}
			slots = append(slots, Neighbor{ID: jj, ContactPoints: len(neighbor.SharedEdge(own, other))})
		}
	}
	for len(slots) < a.cfg.MaxNeighbors {
		slots = append(slots, NoNeighbor)
	}
	return slots, nil
}

func (a *Assembler) locateCell(t, jj int) (*contour.Polygon, error) {
	tr, err := a.set.Get(jj)
	if err != nil {
		return nil, err
	}
	x, y, err := tr.Position(t)
	if err != nil {
		return nil, err
	}
	return a.locator.Locate(t, int(x), int(y))
}

// meanColor averages each channel over the pixels whose mask label equals the
// label under (x, y). Background or out-of-frame points yield sentinels.
func (a *Assembler) meanColor(t, x, y int) ([3]int, error) {
	none := [3]int{Sentinel, Sentinel, Sentinel}

	mask, err := a.store.Mask(t)
	if err != nil {
		return none, err
	}
	frame, err := a.frame(t)
	if err != nil {
		return none, err
	}
	label := mask.At(x, y)
	if label == 0 {
		return none, nil
	}

	var sum [3]uint64
	var n uint64
	w := min(mask.Width, frame.Rect.Dx())
	h := min(mask.Height, frame.Rect.Dy())
	for py := range h {
		row := mask.Labels[py*mask.Width : py*mask.Width+w]
		for px, l := range row {
			if l != label {
				continue
			}
			off := py*frame.Stride + px*4
			sum[0] += uint64(frame.Pix[off])
			sum[1] += uint64(frame.Pix[off+1])
			sum[2] += uint64(frame.Pix[off+2])
			n++
		}
	}
	if n == 0 {
		return none, nil
	}
	return [3]int{int(sum[0] / n), int(sum[1] / n), int(sum[2] / n)}, nil
}

// frame returns frame t as NRGBA anchored at the origin, caching one frame.
func (a *Assembler) frame(t int) (*image.NRGBA, error) {
	if a.frameImg != nil && a.frameT == t {
		return a.frameImg, nil
	}
	img, err := a.frames.Frame(t)
	if err != nil {
		return nil, err
	}
	a.frameT, a.frameImg = t, utils.ToNRGBA(img)
	return a.frameImg, nil
}

// intOrSentinel truncates a property value, substituting the sentinel for a
// failed lookup or a NaN.
func intOrSentinel(tr *trajectory.Trajectory, p trajectory.Property, t int) int {
	v, err := tr.Property(p, t)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Sentinel
	}
	return int(v)
}
