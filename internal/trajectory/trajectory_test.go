package trajectory

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTrajectory(t *testing.T) *Trajectory {
	t.Helper()
	tr, err := New(7,
		[]int{3, 4, 5, 7},
		[]float64{10, 11, 12, 14},
		[]float64{20, 21, 22, 24},
		map[Property][]float64{
			Area:        {100, 101, math.NaN(), 103},
			Orientation: {0.1, 0.2, 0.3, 0.4},
		})
	require.NoError(t, err)
	return tr
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name  string
		t     []int
		x, y  []float64
		props map[Property][]float64
	}{
		{"length mismatch", []int{0, 1}, []float64{1}, []float64{1, 2}, nil},
		{"not increasing", []int{1, 1}, []float64{1, 2}, []float64{1, 2}, nil},
		{"decreasing", []int{2, 1}, []float64{1, 2}, []float64{1, 2}, nil},
		{"negative", []int{-1, 1}, []float64{1, 2}, []float64{1, 2}, nil},
		{"nan centroid", []int{0}, []float64{math.NaN()}, []float64{1}, nil},
		{"unknown property", []int{0}, []float64{1}, []float64{1}, map[Property][]float64{"speed": {1}}},
		{"short property", []int{0, 1}, []float64{1, 2}, []float64{1, 2}, map[Property][]float64{Area: {1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(1, tt.t, tt.x, tt.y, tt.props)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTrajectory))
		})
	}
}

func TestTrajectory_Lookups(t *testing.T) {
	tr := newTestTrajectory(t)

	assert.Equal(t, 4, tr.Len())
	assert.True(t, tr.Exists(5))
	assert.False(t, tr.Exists(6))

	i, ok := tr.Index(7)
	assert.True(t, ok)
	assert.Equal(t, 3, i)

	x, y, err := tr.Position(4)
	require.NoError(t, err)
	assert.InDelta(t, 11.0, x, 1e-9)
	assert.InDelta(t, 21.0, y, 1e-9)

	_, _, err = tr.Position(6)
	assert.ErrorIs(t, err, ErrTimestepNotFound)

	a, err := tr.Property(Area, 3)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, a, 1e-9)

	a, err = tr.Property(Area, 5)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(a), "NaN values are returned as recorded")

	_, err = tr.Property(Area, 6)
	assert.ErrorIs(t, err, ErrTimestepNotFound)

	_, err = tr.Property(MajorAxisLength, 3)
	assert.ErrorIs(t, err, ErrPropertyNotRecorded)

	assert.Equal(t, []Property{Area, Orientation}, tr.Recorded())
}

func TestNew_CopiesInput(t *testing.T) {
	ts := []int{0, 1}
	xs := []float64{1, 2}
	tr, err := New(0, ts, xs, []float64{1, 2}, nil)
	require.NoError(t, err)

	xs[0] = 99
	ts[1] = 50
	assert.InDelta(t, 1.0, tr.X[0], 1e-9)
	assert.Equal(t, 1, tr.T[1])
}

func TestParseProperty(t *testing.T) {
	p, err := ParseProperty(" Area ")
	require.NoError(t, err)
	assert.Equal(t, Area, p)

	_, err = ParseProperty("eccentricity")
	assert.Error(t, err)
}
