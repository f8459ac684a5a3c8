package testutil

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/celltraj/internal/source"
	"github.com/MeKo-Tech/celltraj/internal/trajectory"
)

// Background is the frame color outside every cell.
var Background = color.NRGBA{A: 255}

// Cell describes one synthetic cell: a filled rectangle per frame.
type Cell struct {
	ID    int
	Color color.NRGBA
	Rects map[int]image.Rectangle
}

// Scene is a synthetic video: per-frame masks and frames built from
// rectangular cells, plus the matching trajectory set. Cell ii is painted
// with mask label ii+1.
type Scene struct {
	Width  int
	Height int

	cells []Cell
	extra []*trajectory.Trajectory
}

// NewScene creates an empty scene.
func NewScene(width, height int) *Scene {
	return &Scene{Width: width, Height: height}
}

// AddCell appends a cell and returns its index.
func (s *Scene) AddCell(c Cell) int {
	s.cells = append(s.cells, c)
	return len(s.cells) - 1
}

// AddTrajectory appends a trajectory with no painted pixels, after all cells.
func (s *Scene) AddTrajectory(tr *trajectory.Trajectory) {
	s.extra = append(s.extra, tr)
}

// FramesUsed returns every frame any cell is painted in, ascending.
func (s *Scene) FramesUsed() []int {
	seen := map[int]struct{}{}
	for _, c := range s.cells {
		for t := range c.Rects {
			seen[t] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Ints(out)
	return out
}

// Masks renders the label mask of every used frame.
func (s *Scene) Masks() source.MemoryMasks {
	out := source.MemoryMasks{}
	for _, t := range s.FramesUsed() {
		m := source.NewMask(s.Width, s.Height)
		for ii, c := range s.cells {
			if r, ok := c.Rects[t]; ok {
				m.FillRect(r, ii+1)
			}
		}
		out[t] = m
	}
	return out
}

// Frames renders the color frame of every used frame.
func (s *Scene) Frames() source.MemoryFrames {
	out := source.MemoryFrames{}
	for _, t := range s.FramesUsed() {
		img := SolidFrame(s.Width, s.Height, Background)
		for _, c := range s.cells {
			r, ok := c.Rects[t]
			if !ok {
				continue
			}
			r = r.Intersect(img.Bounds())
			for y := r.Min.Y; y < r.Max.Y; y++ {
				for x := r.Min.X; x < r.Max.X; x++ {
					img.SetNRGBA(x, y, c.Color)
				}
			}
		}
		out[t] = img
	}
	return out
}

// Trajectories derives one trajectory per cell: rectangle center as centroid,
// pixel count as area, side lengths as axes. Extra trajectories follow.
func (s *Scene) Trajectories() (*trajectory.Set, error) {
	trajs := make([]*trajectory.Trajectory, 0, len(s.cells)+len(s.extra))
	for _, c := range s.cells {
		ts := make([]int, 0, len(c.Rects))
		for t := range c.Rects {
			ts = append(ts, t)
		}
		sort.Ints(ts)

		n := len(ts)
		xs, ys := make([]float64, n), make([]float64, n)
		props := map[trajectory.Property][]float64{
			trajectory.Area:            make([]float64, n),
			trajectory.MajorAxisLength: make([]float64, n),
			trajectory.MinorAxisLength: make([]float64, n),
			trajectory.Orientation:     make([]float64, n),
			trajectory.Solidity:        make([]float64, n),
		}
		for i, t := range ts {
			r := c.Rects[t]
			xs[i] = float64(r.Min.X+r.Max.X-1) / 2
			ys[i] = float64(r.Min.Y+r.Max.Y-1) / 2
			w, h := float64(r.Dx()), float64(r.Dy())
			props[trajectory.Area][i] = w * h
			props[trajectory.MajorAxisLength][i] = max(w, h)
			props[trajectory.MinorAxisLength][i] = min(w, h)
			props[trajectory.Solidity][i] = 1
		}
		tr, err := trajectory.New(c.ID, ts, xs, ys, props)
		if err != nil {
			return nil, err
		}
		trajs = append(trajs, tr)
	}
	trajs = append(trajs, s.extra...)
	return trajectory.NewSet(trajs), nil
}

// MustTrajectories is Trajectories for tests.
func (s *Scene) MustTrajectories(t *testing.T) *trajectory.Set {
	t.Helper()
	set, err := s.Trajectories()
	require.NoError(t, err)
	return set
}

// WriteDir persists the scene under root as frames/, masks/ and
// trajectories.json, the layout the CLI reads.
func (s *Scene) WriteDir(root string) error {
	framesDir := filepath.Join(root, "frames")
	masksDir := filepath.Join(root, "masks")
	for _, dir := range []string{framesDir, masksDir} {
		if err := EnsureDir(dir); err != nil {
			return err
		}
	}
	for t, img := range s.Frames() {
		if err := WritePNG(img, filepath.Join(framesDir, source.FileName(t, ".png"))); err != nil {
			return err
		}
	}
	for t, m := range s.Masks() {
		f, err := os.Create(filepath.Join(masksDir, source.FileName(t, ".png"))) //nolint:gosec // G304: test path
		if err != nil {
			return err
		}
		if err := source.EncodeMask(f, m); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	set, err := s.Trajectories()
	if err != nil {
		return err
	}
	return trajectory.Save(filepath.Join(root, "trajectories.json"), set)
}

// TwoTouchingSquares is a single-frame scene with two 5x5 squares sharing a
// vertical edge: cell 0 covers x 10..14 and cell 1 covers x 15..19, y 10..14.
func TwoTouchingSquares() *Scene {
	s := NewScene(40, 30)
	s.AddCell(Cell{ID: 1, Color: color.NRGBA{R: 200, G: 100, B: 50, A: 255},
		Rects: map[int]image.Rectangle{0: image.Rect(10, 10, 15, 15)}})
	s.AddCell(Cell{ID: 2, Color: color.NRGBA{R: 10, G: 20, B: 30, A: 255},
		Rects: map[int]image.Rectangle{0: image.Rect(15, 10, 20, 15)}})
	return s
}
