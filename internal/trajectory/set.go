package trajectory

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrCellNotFound is returned for a cell index outside the set.
var ErrCellNotFound = errors.New("cell not found")

// Set is the ordered collection of trajectories of one video. A cell's
// identity is its position in the set. A Set is read-only after NewSet and
// may be shared between goroutines.
type Set struct {
	trajs  []*Trajectory
	byTime map[int][]int
	frames []int
}

// NewSet indexes trajs by frame.
func NewSet(trajs []*Trajectory) *Set {
	s := &Set{trajs: trajs, byTime: make(map[int][]int)}
	for ii, tr := range trajs {
		for _, t := range tr.T {
			s.byTime[t] = append(s.byTime[t], ii)
		}
	}
	s.frames = make([]int, 0, len(s.byTime))
	for t := range s.byTime {
		s.frames = append(s.frames, t)
	}
	sort.Ints(s.frames)
	return s
}

// Len returns the number of cells.
func (s *Set) Len() int { return len(s.trajs) }

// Trajectories returns the underlying slice in set order.
func (s *Set) Trajectories() []*Trajectory { return s.trajs }

// Get returns the trajectory of cell ii.
func (s *Set) Get(ii int) (*Trajectory, error) {
	if ii < 0 || ii >= len(s.trajs) {
		return nil, errors.Wrapf(ErrCellNotFound, "cell %d (set has %d)", ii, len(s.trajs))
	}
	return s.trajs[ii], nil
}

// At returns, in set order, the cells that exist at frame t.
func (s *Set) At(t int) []int {
	return s.byTime[t]
}

// Frames returns every frame at which at least one cell exists, ascending.
func (s *Set) Frames() []int { return s.frames }

// Window is a rectangular sub-region given as row range [Y0, Y1] and column
// range [X0, X1].
type Window struct {
	Y0, Y1, X0, X1 float64
}

// Contains reports whether (x, y) lies strictly inside the window.
func (w Window) Contains(x, y float64) bool {
	return w.Y0 < y && y < w.Y1 && w.X0 < x && x < w.X1
}

// ParseWindow parses "y0,y1,x0,x1".
func ParseWindow(s string) (Window, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Window{}, errors.Errorf("window %q: want y0,y1,x0,x1", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Window{}, errors.Wrapf(err, "window %q", s)
		}
		v[i] = f
	}
	w := Window{Y0: v[0], Y1: v[1], X0: v[2], X1: v[3]}
	if w.Y1 <= w.Y0 || w.X1 <= w.X0 {
		return Window{}, errors.Errorf("window %q is empty", s)
	}
	return w, nil
}

// Within returns, in set order, the cells existing at t whose centroid lies
// strictly inside w.
func (s *Set) Within(t int, w Window) []int {
	var out []int
	for _, ii := range s.byTime[t] {
		x, y, err := s.trajs[ii].Position(t)
		if err == nil && w.Contains(x, y) {
			out = append(out, ii)
		}
	}
	return out
}
