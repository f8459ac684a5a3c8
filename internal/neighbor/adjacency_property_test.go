package neighbor

import (
	"image"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/MeKo-Tech/celltraj/internal/contour"
	"github.com/MeKo-Tech/celltraj/internal/source"
)

func randomPair(x1, y1, w1, h1, x2, y2, w2, h2 int) (*contour.Polygon, *contour.Polygon) {
	m := source.NewMask(60, 60)
	m.FillRect(image.Rect(x1, y1, x1+w1, y1+h1), 1)
	// the second region is painted last and may overlap; it stays label 2
	m.FillRect(image.Rect(x2, y2, x2+w2, y2+h2), 2)
	c := contour.Trace(m)
	return c.Get(1), c.Get(2)
}

// TestAdjacency_SymmetryProperty verifies adjacency does not depend on argument order.
func TestAdjacency_SymmetryProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("are_adjacent(a, b) == are_adjacent(b, a)", prop.ForAll(
		func(x1, y1, x2, y2, w1, w2 int) bool {
			a, b := randomPair(x1, y1, w1, w1, x2, y2, w2, w2)
			return AreAdjacent(a, b) == AreAdjacent(b, a)
		},
		gen.IntRange(0, 40), gen.IntRange(0, 40),
		gen.IntRange(0, 40), gen.IntRange(0, 40),
		gen.IntRange(2, 15), gen.IntRange(2, 15),
	))

	properties.TestingRun(t)
}

// TestSharedEdge_Property verifies shared edges are even and match the cross product.
func TestSharedEdge_Property(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("shared edge length is even and equals brute force", prop.ForAll(
		func(x1, y1, x2, y2, w1, w2 int) bool {
			a, b := randomPair(x1, y1, w1, w1, x2, y2, w2, w2)
			if a == nil || b == nil {
				return true
			}
			edge := SharedEdge(a, b)
			if len(edge)%2 != 0 {
				return false
			}
			want := bruteSharedEdge(a, b)
			if len(want) == 0 {
				return len(edge) == 0
			}
			if !reflect.DeepEqual(edge, want) {
				return false
			}
			// contact implies adjacency
			return AreAdjacent(a, b)
		},
		gen.IntRange(0, 40), gen.IntRange(0, 40),
		gen.IntRange(0, 40), gen.IntRange(0, 40),
		gen.IntRange(2, 15), gen.IntRange(2, 15),
	))

	properties.TestingRun(t)
}
