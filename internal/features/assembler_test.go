package features

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/celltraj/internal/contour"
	"github.com/MeKo-Tech/celltraj/internal/source"
	"github.com/MeKo-Tech/celltraj/internal/testutil"
	"github.com/MeKo-Tech/celltraj/internal/trajectory"
)

func newAssembler(t *testing.T, scene *testutil.Scene, cfg Config) *Assembler {
	t.Helper()
	a, err := NewAssembler(cfg, scene.MustTrajectories(t), contour.NewStore(scene.Masks(), nil), nil, scene.Frames(), nil)
	require.NoError(t, err)
	return a
}

func assertAllSentinel(t *testing.T, slots []Neighbor) {
	t.Helper()
	require.Len(t, slots, DefaultMaxNeighbors)
	for i, nb := range slots {
		assert.Equal(t, NoNeighbor, nb, "slot %d", i)
	}
}

func TestAssemble_TouchingSquares(t *testing.T) {
	a := newAssembler(t, testutil.TwoTouchingSquares(), DefaultConfig())

	recs, err := a.Assemble(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	r := recs[0]
	assert.Equal(t, 0, r.T)
	assert.Equal(t, 12, r.X)
	assert.Equal(t, 12, r.Y)
	assert.Equal(t, 25, r.Area)
	assert.Equal(t, 5, r.MajorAxis)
	assert.Equal(t, 5, r.MinorAxis)
	assert.InDelta(t, 0.0, r.Orientation, 1e-9)
	assert.Equal(t, 16, r.Perimeter)
	assert.Equal(t, [3]int{200, 100, 50}, r.Color)

	require.Len(t, r.Neighbors, DefaultMaxNeighbors)
	assert.Equal(t, Neighbor{ID: 1, ContactPoints: 10}, r.Neighbors[0])
	for _, nb := range r.Neighbors[1:] {
		assert.Equal(t, NoNeighbor, nb)
	}
	assert.Equal(t, 1, r.NeighborCount())
}

func TestAssemble_GapInTrajectory(t *testing.T) {
	scene := testutil.NewScene(30, 30)
	rect := image.Rect(5, 5, 12, 12)
	scene.AddCell(testutil.Cell{ID: 3, Color: color.NRGBA{R: 90, G: 90, B: 90, A: 255},
		Rects: map[int]image.Rectangle{3: rect, 4: rect, 5: rect, 7: rect}})
	a := newAssembler(t, scene, DefaultConfig())

	recs, err := a.Assemble(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 4)

	ts := make([]int, len(recs))
	for i, r := range recs {
		ts[i] = r.T
		assert.Equal(t, 0, r.Cell)
		assertAllSentinel(t, r.Neighbors)
	}
	assert.Equal(t, []int{3, 4, 5, 7}, ts)
}

func TestAssemble_CentroidOnBackground(t *testing.T) {
	scene := testutil.TwoTouchingSquares()
	stray, err := trajectory.New(99, []int{0}, []float64{35}, []float64{25},
		map[trajectory.Property][]float64{
			trajectory.Area:        {25},
			trajectory.Orientation: {1.5},
		})
	require.NoError(t, err)
	scene.AddTrajectory(stray)
	a := newAssembler(t, scene, DefaultConfig())

	recs, err := a.Assemble(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	r := recs[0]
	assert.Equal(t, Sentinel, r.Perimeter)
	assert.Equal(t, [3]int{Sentinel, Sentinel, Sentinel}, r.Color)
	assert.Equal(t, Sentinel, r.MajorAxis, "unrecorded axis uses the sentinel")
	assert.Equal(t, Sentinel, r.MinorAxis)
	assertAllSentinel(t, r.Neighbors)
}

func TestAssemble_TruncatesAtMaxNeighbors(t *testing.T) {
	scene := testutil.NewScene(40, 20)
	for i, x := range []int{10, 15, 20} {
		scene.AddCell(testutil.Cell{ID: i, Color: color.NRGBA{A: 255},
			Rects: map[int]image.Rectangle{0: image.Rect(x, 5, x+5, 10)}})
	}
	a := newAssembler(t, scene, Config{MaxNeighbors: 1})

	r, err := a.AssembleAt(1, 0)
	require.NoError(t, err)
	require.Len(t, r.Neighbors, 1)
	assert.Equal(t, Neighbor{ID: 0, ContactPoints: 10}, r.Neighbors[0])

	a = newAssembler(t, scene, DefaultConfig())
	r, err = a.AssembleAt(1, 0)
	require.NoError(t, err)
	assert.Equal(t, Neighbor{ID: 0, ContactPoints: 10}, r.Neighbors[0])
	assert.Equal(t, Neighbor{ID: 2, ContactPoints: 10}, r.Neighbors[1])
	assert.Equal(t, 2, r.NeighborCount())
}

func TestAssemble_PropertySentinels(t *testing.T) {
	scene := testutil.NewScene(30, 30)
	scene.AddCell(testutil.Cell{ID: 1, Color: color.NRGBA{R: 10, G: 20, B: 30, A: 255},
		Rects: map[int]image.Rectangle{0: image.Rect(5, 5, 10, 10)}})
	helper, err := trajectory.New(2, []int{0}, []float64{7}, []float64{7},
		map[trajectory.Property][]float64{
			trajectory.Area:            {math.NaN()},
			trajectory.MajorAxisLength: {7.9},
			trajectory.MinorAxisLength: {math.NaN()},
			trajectory.Orientation:     {math.NaN()},
		})
	require.NoError(t, err)
	scene.AddTrajectory(helper)
	a := newAssembler(t, scene, DefaultConfig())

	r, err := a.AssembleAt(1, 0)
	require.NoError(t, err)
	assert.Equal(t, Sentinel, r.Area)
	assert.Equal(t, 7, r.MajorAxis, "values are truncated")
	assert.Equal(t, Sentinel, r.MinorAxis)
	assert.True(t, math.IsNaN(r.Orientation), "NaN orientation passes through")
	assert.Equal(t, [3]int{10, 20, 30}, r.Color, "color comes from the label under the centroid")
}

func TestAssemble_OrientationMissingFailsCell(t *testing.T) {
	scene := testutil.NewScene(30, 30)
	tr, err := trajectory.New(1, []int{0}, []float64{5}, []float64{5},
		map[trajectory.Property][]float64{trajectory.Area: {25}})
	require.NoError(t, err)
	scene.AddTrajectory(tr)

	set := scene.MustTrajectories(t)
	a, err := NewAssembler(DefaultConfig(), set,
		contour.NewStore(source.MemoryMasks{0: source.NewMask(30, 30)}, nil), nil,
		source.MemoryFrames{0: testutil.SolidFrame(30, 30, testutil.Background)}, nil)
	require.NoError(t, err)

	_, err = a.Assemble(context.Background(), 0)
	assert.ErrorIs(t, err, trajectory.ErrPropertyNotRecorded)
}

func TestAssemble_StrayPixelKeepsCellAndContact(t *testing.T) {
	m := source.NewMask(40, 30)
	m.Set(2, 2, 1)
	m.FillRect(image.Rect(10, 10, 20, 20), 1)
	m.FillRect(image.Rect(20, 10, 30, 20), 2)

	frame := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	var trajs []*trajectory.Trajectory
	for id, x := range []float64{14.5, 24.5} {
		tr, err := trajectory.New(id, []int{0}, []float64{x}, []float64{14.5},
			map[trajectory.Property][]float64{trajectory.Area: {100}})
		require.NoError(t, err)
		trajs = append(trajs, tr)
	}
	a, err := NewAssembler(DefaultConfig(), trajectory.NewSet(trajs),
		contour.NewStore(source.MemoryMasks{0: m}, nil), nil, source.MemoryFrames{0: frame}, nil)
	require.NoError(t, err)

	for ii, other := range []int{1, 0} {
		r, err := a.AssembleAt(ii, 0)
		require.NoError(t, err)
		assert.Equal(t, 36, r.Perimeter, "cell %d", ii)
		assert.Equal(t, Neighbor{ID: other, ContactPoints: 20}, r.Neighbors[0], "cell %d", ii)
		assert.Equal(t, 1, r.NeighborCount())
	}
}

func TestAssemble_MissingArtifacts(t *testing.T) {
	scene := testutil.TwoTouchingSquares()
	set := scene.MustTrajectories(t)

	a, err := NewAssembler(DefaultConfig(), set, contour.NewStore(source.MemoryMasks{}, nil), nil, scene.Frames(), nil)
	require.NoError(t, err)
	_, err = a.Assemble(context.Background(), 0)
	assert.ErrorIs(t, err, source.ErrMaskNotFound)

	a, err = NewAssembler(DefaultConfig(), set, contour.NewStore(scene.Masks(), nil), nil, source.MemoryFrames{}, nil)
	require.NoError(t, err)
	_, err = a.Assemble(context.Background(), 0)
	assert.ErrorIs(t, err, source.ErrFrameNotFound)
}

func TestAssemble_UnknownCellAndCancel(t *testing.T) {
	a := newAssembler(t, testutil.TwoTouchingSquares(), DefaultConfig())

	_, err := a.Assemble(context.Background(), 10)
	assert.ErrorIs(t, err, trajectory.ErrCellNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Assemble(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewAssembler_Validation(t *testing.T) {
	scene := testutil.TwoTouchingSquares()
	_, err := NewAssembler(Config{MaxNeighbors: 0}, scene.MustTrajectories(t),
		contour.NewStore(scene.Masks(), nil), nil, scene.Frames(), nil)
	assert.Error(t, err)

	_, err = NewAssembler(DefaultConfig(), nil, nil, nil, nil, nil)
	assert.Error(t, err)
}
