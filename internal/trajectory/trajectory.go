// Package trajectory holds typed per-cell trajectories produced by an external
// tracker, the set they form, and the providers that load or compute them.
package trajectory

import (
	"math"

	"github.com/pkg/errors"
)

var (
	// ErrTimestepNotFound is returned for a lookup at a frame where the cell does not exist.
	ErrTimestepNotFound = errors.New("timestep not in trajectory")
	// ErrPropertyNotRecorded is returned when the tracker did not record a property series.
	ErrPropertyNotRecorded = errors.New("property not recorded")
	// ErrInvalidTrajectory is returned by New when the series are inconsistent.
	ErrInvalidTrajectory = errors.New("invalid trajectory")
)

// Trajectory is the identity-linked track of one cell: the frames at which it
// exists and, in lock-step, its centroid and shape property series.
type Trajectory struct {
	ID int
	T  []int
	X  []float64
	Y  []float64

	props map[Property][]float64
	index map[int]int
}

// New validates the series and builds a trajectory. T must be non-negative and
// strictly increasing, X and Y finite, and every series as long as T. Property
// values may be NaN.
func New(id int, t []int, x, y []float64, props map[Property][]float64) (*Trajectory, error) {
	n := len(t)
	if len(x) != n || len(y) != n {
		return nil, errors.Wrapf(ErrInvalidTrajectory, "trajectory %d: %d timesteps but %d x and %d y values", id, n, len(x), len(y))
	}
	index := make(map[int]int, n)
	for i, ti := range t {
		if ti < 0 {
			return nil, errors.Wrapf(ErrInvalidTrajectory, "trajectory %d: negative timestep %d", id, ti)
		}
		if i > 0 && ti <= t[i-1] {
			return nil, errors.Wrapf(ErrInvalidTrajectory, "trajectory %d: timesteps not strictly increasing at %d", id, ti)
		}
		if !finite(x[i]) || !finite(y[i]) {
			return nil, errors.Wrapf(ErrInvalidTrajectory, "trajectory %d: non-finite centroid at t=%d", id, ti)
		}
		index[ti] = i
	}
	copied := make(map[Property][]float64, len(props))
	for p, series := range props {
		if !p.Valid() {
			return nil, errors.Wrapf(ErrInvalidTrajectory, "trajectory %d: unknown property %q", id, p)
		}
		if len(series) != n {
			return nil, errors.Wrapf(ErrInvalidTrajectory, "trajectory %d: property %s has %d values, want %d", id, p, len(series), n)
		}
		copied[p] = append([]float64(nil), series...)
	}
	return &Trajectory{
		ID:    id,
		T:     append([]int(nil), t...),
		X:     append([]float64(nil), x...),
		Y:     append([]float64(nil), y...),
		props: copied,
		index: index,
	}, nil
}

// Len returns the number of timesteps.
func (tr *Trajectory) Len() int { return len(tr.T) }

// Index returns the series position of frame t.
func (tr *Trajectory) Index(t int) (int, bool) {
	i, ok := tr.index[t]
	return i, ok
}

// Exists reports whether the cell is tracked at frame t.
func (tr *Trajectory) Exists(t int) bool {
	_, ok := tr.index[t]
	return ok
}

// Position returns the centroid at frame t.
func (tr *Trajectory) Position(t int) (float64, float64, error) {
	i, ok := tr.index[t]
	if !ok {
		return 0, 0, errors.Wrapf(ErrTimestepNotFound, "trajectory %d at t=%d", tr.ID, t)
	}
	return tr.X[i], tr.Y[i], nil
}

// Property returns the value of p at frame t. No sentinel is substituted.
func (tr *Trajectory) Property(p Property, t int) (float64, error) {
	series, ok := tr.props[p]
	if !ok {
		return 0, errors.Wrapf(ErrPropertyNotRecorded, "trajectory %d: %s", tr.ID, p)
	}
	i, ok := tr.index[t]
	if !ok {
		return 0, errors.Wrapf(ErrTimestepNotFound, "trajectory %d: %s at t=%d", tr.ID, p, t)
	}
	return series[i], nil
}

// Series returns a copy of the recorded series of p, or nil.
func (tr *Trajectory) Series(p Property) []float64 {
	s, ok := tr.props[p]
	if !ok {
		return nil
	}
	return append([]float64(nil), s...)
}

// Recorded lists the recorded properties in canonical order.
func (tr *Trajectory) Recorded() []Property {
	out := make([]Property, 0, len(tr.props))
	for _, p := range Properties {
		if _, ok := tr.props[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
