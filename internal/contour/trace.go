// Package contour extracts per-label boundary polygons from segmentation masks
// and locates the polygon containing a point.
package contour

import (
	"image"
	"sort"

	"github.com/MeKo-Tech/celltraj/internal/source"
)

// 8-neighborhood in clockwise order: E, SE, S, SW, W, NW, N, NE.
var (
	ndx = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	ndy = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

const dirWest = 4

// minPolygonPoints is the smallest trace kept as a polygon.
const minPolygonPoints = 3

// Contours maps the labels of one frame to their boundary polygons.
type Contours struct {
	T       int
	Labels  []int // ascending
	ByLabel map[int]*Polygon
}

// Len returns the number of polygons.
func (c *Contours) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Labels)
}

// Get returns the polygon of label, or nil.
func (c *Contours) Get(label int) *Polygon {
	if c == nil {
		return nil
	}
	return c.ByLabel[label]
}

// labelStats is the bounding box and pixel count of one label.
type labelStats struct {
	count                  int
	minX, minY, maxX, maxY int
}

// collectStats computes a bounding box per positive label in a single pass.
func collectStats(m *source.Mask) map[int]*labelStats {
	stats := make(map[int]*labelStats)
	for y := range m.Height {
		row := m.Labels[y*m.Width : (y+1)*m.Width]
		for x, l := range row {
			if l <= 0 {
				continue
			}
			st, ok := stats[l]
			if !ok {
				stats[l] = &labelStats{count: 1, minX: x, minY: y, maxX: x, maxY: y}
				continue
			}
			st.count++
			if x < st.minX {
				st.minX = x
			}
			if x > st.maxX {
				st.maxX = x
			}
			if y > st.maxY {
				st.maxY = y
			}
		}
	}
	return stats
}

// Trace extracts one boundary polygon per label of m. A label split into
// several pieces is represented by the piece with the longest boundary; ties
// go to the piece that comes first in raster order. Labels whose longest
// trace has fewer than three points are omitted.
func Trace(m *source.Mask) *Contours {
	c := &Contours{ByLabel: make(map[int]*Polygon)}
	if m == nil || len(m.Labels) != m.Width*m.Height {
		return c
	}
	for label, st := range collectStats(m) {
		var best []image.Point
		for _, pc := range pieces(m, label, st) {
			if pts := traceMoore(m, label, pc); len(pts) > len(best) {
				best = pts
			}
		}
		if len(best) < minPolygonPoints {
			continue
		}
		c.ByLabel[label] = newPolygon(label, best)
		c.Labels = append(c.Labels, label)
	}
	sort.Ints(c.Labels)
	return c
}

// piece is one 8-connected component of a label: its raster-first pixel and
// pixel count.
type piece struct {
	start image.Point
	count int
}

// pieces finds the 8-connected components of label inside its bounding box,
// in raster order of their first pixel.
func pieces(m *source.Mask, label int, st *labelStats) []piece {
	bw, bh := st.maxX-st.minX+1, st.maxY-st.minY+1
	visited := make([]bool, bw*bh)
	var out []piece
	var stack []image.Point
	seen := 0

	for y := st.minY; y <= st.maxY; y++ {
		for x := st.minX; x <= st.maxX; x++ {
			i := (y-st.minY)*bw + (x - st.minX)
			if visited[i] || m.Labels[y*m.Width+x] != label {
				continue
			}
			visited[i] = true
			pc := piece{start: image.Pt(x, y)}
			stack = append(stack[:0], pc.start)
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				pc.count++
				for d := range 8 {
					q := p.Add(image.Pt(ndx[d], ndy[d]))
					if q.X < st.minX || q.X > st.maxX || q.Y < st.minY || q.Y > st.maxY {
						continue
					}
					j := (q.Y-st.minY)*bw + (q.X - st.minX)
					if !visited[j] && m.Labels[q.Y*m.Width+q.X] == label {
						visited[j] = true
						stack = append(stack, q)
					}
				}
			}
			out = append(out, pc)
			if seen += pc.count; seen == st.count {
				return out
			}
		}
	}
	return out
}

// traceMoore follows the outer boundary of one piece using Moore-neighbor
// tracing from its raster-first pixel. Every visited boundary pixel is kept;
// pixels on one-pixel-wide parts appear once per pass.
func traceMoore(m *source.Mask, label int, pc piece) []image.Point {
	start := pc.start
	pts := make([]image.Point, 0, 64)
	pts = append(pts, start)

	cur := start
	back := dirWest // raster-first pixel: everything west and north is outside
	maxSteps := 4*pc.count + 8

	for range maxSteps {
		next, nextBack, found := nextBoundaryPixel(m, label, cur, back)
		if !found {
			// isolated pixel
			return pts
		}
		if cur == start && len(pts) > 1 && next == pts[1] {
			break
		}
		cur, back = next, nextBack
		pts = append(pts, cur)
	}

	if n := len(pts); n > 1 && pts[n-1] == start {
		pts = pts[:n-1]
	}
	return pts
}

// nextBoundaryPixel scans the neighbors of cur clockwise, starting after the
// backtrack direction, and returns the first pixel of label together with the
// direction from it back to the last outside pixel scanned.
func nextBoundaryPixel(m *source.Mask, label int, cur image.Point, back int) (image.Point, int, bool) {
	prev := cur.Add(image.Pt(ndx[back], ndy[back]))
	for k := 1; k <= 8; k++ {
		d := (back + k) % 8
		p := cur.Add(image.Pt(ndx[d], ndy[d]))
		if m.At(p.X, p.Y) == label {
			return p, dirIndex(prev.X-p.X, prev.Y-p.Y), true
		}
		prev = p
	}
	return image.Point{}, 0, false
}

func dirIndex(dx, dy int) int {
	for i := range 8 {
		if ndx[i] == dx && ndy[i] == dy {
			return i
		}
	}
	return 0
}
