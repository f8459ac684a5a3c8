package contour

import "image"

// Polygon is the ordered boundary of one labeled region, in pixel coordinates.
// It is closed implicitly: the last point connects back to the first.
type Polygon struct {
	Label  int
	Points []image.Point
	Bounds image.Rectangle
}

func newPolygon(label int, pts []image.Point) *Polygon {
	b := image.Rectangle{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b.Min.X = min(b.Min.X, p.X)
		b.Min.Y = min(b.Min.Y, p.Y)
		b.Max.X = max(b.Max.X, p.X)
		b.Max.Y = max(b.Max.Y, p.Y)
	}
	b.Max = b.Max.Add(image.Pt(1, 1))
	return &Polygon{Label: label, Points: pts, Bounds: b}
}

// Len returns the number of boundary points, used as the perimeter.
func (p *Polygon) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Points)
}

// Contains reports whether q lies inside the polygon or on its boundary.
func (p *Polygon) Contains(q image.Point) bool {
	if p == nil || len(p.Points) == 0 || !q.In(p.Bounds) {
		return false
	}

	inside := false
	n := len(p.Points)
	for i := range n {
		a := p.Points[i]
		b := p.Points[(i+1)%n]
		if onSegment(a, b, q) {
			return true
		}
		if (a.Y > q.Y) != (b.Y > q.Y) {
			// x of the edge at height q.Y, compared without division
			lhs := (q.X - a.X) * (b.Y - a.Y)
			rhs := (q.Y - a.Y) * (b.X - a.X)
			if (b.Y > a.Y && lhs < rhs) || (b.Y < a.Y && lhs > rhs) {
				inside = !inside
			}
		}
	}
	return inside
}

func onSegment(a, b, q image.Point) bool {
	cross := (b.X-a.X)*(q.Y-a.Y) - (b.Y-a.Y)*(q.X-a.X)
	if cross != 0 {
		return false
	}
	return q.X >= min(a.X, b.X) && q.X <= max(a.X, b.X) &&
		q.Y >= min(a.Y, b.Y) && q.Y <= max(a.Y, b.Y)
}
