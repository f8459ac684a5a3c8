// Package neighbor finds the cells around a tracked cell: a metric pre-filter
// on centroid distance, followed by a boundary contact test on contours.
package neighbor

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/MeKo-Tech/celltraj/internal/trajectory"
)

// SearchRadiusFactor scales the characteristic length to the candidate search radius.
const SearchRadiusFactor = 3.0

// ErrUndefinedLengthScale is returned when no cell at a frame has a valid area.
var ErrUndefinedLengthScale = errors.New("length scale undefined: no cell with a valid area")

// LengthScale returns sqrt(mean area) over the cells at t whose area is recorded
// and finite.
func LengthScale(set *trajectory.Set, t int) (float64, error) {
	cells := set.At(t)
	areas := make([]float64, 0, len(cells))
	for _, ii := range cells {
		tr, err := set.Get(ii)
		if err != nil {
			continue
		}
		a, err := tr.Property(trajectory.Area, t)
		if err != nil || math.IsNaN(a) || math.IsInf(a, 0) {
			continue
		}
		areas = append(areas, a)
	}
	if len(areas) == 0 {
		return 0, fmt.Errorf("frame %d: %w", t, ErrUndefinedLengthScale)
	}
	return math.Sqrt(stat.Mean(areas, nil)), nil
}

// Filter returns, for a cell, the co-existing cells whose centroids lie within
// SearchRadiusFactor characteristic lengths. Length scales are memoized per
// frame; a Filter is safe for concurrent use.
type Filter struct {
	set *trajectory.Set

	mu     sync.Mutex
	scales map[int]float64
}

// NewFilter builds a Filter over set.
func NewFilter(set *trajectory.Set) *Filter {
	return &Filter{set: set, scales: make(map[int]float64)}
}

// Set returns the trajectory set the filter searches.
func (f *Filter) Set() *trajectory.Set { return f.set }

// Radius returns the candidate search radius at frame t.
func (f *Filter) Radius(t int) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.scales[t]; ok {
		return SearchRadiusFactor * l, nil
	}
	l, err := LengthScale(f.set, t)
	if err != nil {
		return 0, err
	}
	f.scales[t] = l
	return SearchRadiusFactor * l, nil
}

// Candidates returns, in set order, every cell jj != ii existing at t whose
// centroid distance from ii is at most the search radius.
func (f *Filter) Candidates(t, ii int) ([]int, error) {
	tr, err := f.set.Get(ii)
	if err != nil {
		return nil, err
	}
	x0, y0, err := tr.Position(t)
	if err != nil {
		return nil, err
	}
	radius, err := f.Radius(t)
	if err != nil {
		return nil, err
	}

	var out []int
	for _, jj := range f.set.At(t) {
		if jj == ii {
			continue
		}
		other, err := f.set.Get(jj)
		if err != nil {
			return nil, err
		}
		x, y, err := other.Position(t)
		if err != nil {
			return nil, err
		}
		if math.Hypot(x-x0, y-y0) <= radius {
			out = append(out, jj)
		}
	}
	return out, nil
}
