package neighbor

import (
	"image"
	"sort"

	"github.com/MeKo-Tech/celltraj/internal/contour"
)

// Distance thresholds, in pixels, squared for integer comparison.
const (
	// AdjacencyTolerance decides whether two cells touch.
	AdjacencyTolerance = 2.0
	// ContactTolerance selects the point pairs that make up a shared edge.
	ContactTolerance = 1.0

	adjacencyTol2 = 4 // AdjacencyTolerance²
	contactTol2   = 1 // ContactTolerance²
)

// AreAdjacent reports whether some boundary point of a lies within
// AdjacencyTolerance of some boundary point of b. A nil polygon is never
// adjacent.
func AreAdjacent(a, b *contour.Polygon) bool {
	if !mayTouch(a, b, 2) {
		return false
	}
	g := newPointGrid(b.Points, 2)
	for _, p := range a.Points {
		if g.any(p, adjacencyTol2) {
			return true
		}
	}
	return false
}

// SharedEdge returns the boundary points of a and b that lie within
// ContactTolerance of each other, as consecutive (point of a, point of b)
// pairs. Pairs follow the order of a brute-force scan over a, then b. The
// length of the result is the contact-point count.
func SharedEdge(a, b *contour.Polygon) []image.Point {
	if !mayTouch(a, b, 1) {
		return nil
	}
	g := newPointGrid(b.Points, 1)
	var out []image.Point
	var buf []int
	for _, p := range a.Points {
		buf = g.near(p, contactTol2, buf[:0])
		for _, j := range buf {
			out = append(out, p, b.Points[j])
		}
	}
	return out
}

// mayTouch rejects pairs whose bounding boxes are farther apart than tol.
func mayTouch(a, b *contour.Polygon, tol int) bool {
	if a == nil || b == nil || len(a.Points) == 0 || len(b.Points) == 0 {
		return false
	}
	return a.Bounds.Inset(-tol).Overlaps(b.Bounds)
}

// pointGrid buckets points into square cells for neighborhood queries.
type pointGrid struct {
	cell    int
	pts     []image.Point
	buckets map[image.Point][]int
}

func newPointGrid(pts []image.Point, cell int) *pointGrid {
	g := &pointGrid{cell: cell, pts: pts, buckets: make(map[image.Point][]int, len(pts))}
	for i, p := range pts {
		k := g.key(p)
		g.buckets[k] = append(g.buckets[k], i)
	}
	return g
}

func (g *pointGrid) key(p image.Point) image.Point {
	return image.Pt(floorDiv(p.X, g.cell), floorDiv(p.Y, g.cell))
}

// near appends to buf the indices of points within squared distance tol2 of
// p, ascending. tol2 must not exceed cell².
func (g *pointGrid) near(p image.Point, tol2 int, buf []int) []int {
	k := g.key(p)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			for _, i := range g.buckets[k.Add(image.Pt(dx, dy))] {
				if dist2(p, g.pts[i]) <= tol2 {
					buf = append(buf, i)
				}
			}
		}
	}
	sort.Ints(buf)
	return buf
}

func (g *pointGrid) any(p image.Point, tol2 int) bool {
	k := g.key(p)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			for _, i := range g.buckets[k.Add(image.Pt(dx, dy))] {
				if dist2(p, g.pts[i]) <= tol2 {
					return true
				}
			}
		}
	}
	return false
}

func dist2(a, b image.Point) int {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
