package contour

import "image"

// Locator finds the polygon containing a point, using a Store's current frame.
type Locator struct {
	store *Store
}

// NewLocator returns a Locator over s.
func NewLocator(s *Store) *Locator {
	return &Locator{store: s}
}

// Store returns the underlying contour store.
func (l *Locator) Store() *Store {
	return l.store
}

// Locate returns the first polygon, by ascending label, that contains (x, y)
// at frame t. It returns nil without error when no polygon contains the point.
func (l *Locator) Locate(t, x, y int) (*Polygon, error) {
	c, err := l.store.Contours(t)
	if err != nil {
		return nil, err
	}
	return c.Locate(image.Pt(x, y)), nil
}

// Locate returns the first polygon, by ascending label, that contains p.
func (c *Contours) Locate(p image.Point) *Polygon {
	if c == nil {
		return nil
	}
	for _, label := range c.Labels {
		if poly := c.ByLabel[label]; poly.Contains(p) {
			return poly
		}
	}
	return nil
}
