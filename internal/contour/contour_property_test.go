package contour

import (
	"image"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/MeKo-Tech/celltraj/internal/source"
)

// disk paints a filled disk of radius r at (cx, cy).
func disk(m *source.Mask, cx, cy, r, label int) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				m.Set(x, y, label)
			}
		}
	}
}

// TestTrace_SoundnessProperty verifies every labeled pixel lies on or inside its polygon.
func TestTrace_SoundnessProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("rectangles: polygon has >= 3 points and covers every pixel", prop.ForAll(
		func(x0, y0, w, h int) bool {
			m := source.NewMask(40, 40)
			m.FillRect(image.Rect(x0, y0, x0+w, y0+h), 1)

			poly := Trace(m).Get(1)
			if w*h < 3 {
				return poly == nil
			}
			if poly == nil || poly.Len() < 3 {
				return false
			}
			for y := y0; y < y0+h; y++ {
				for x := x0; x < x0+w; x++ {
					if !poly.Contains(image.Pt(x, y)) {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(0, 20),
		gen.IntRange(0, 20),
		gen.IntRange(1, 20),
		gen.IntRange(1, 20),
	))

	properties.Property("disks: polygon covers every pixel of its label", prop.ForAll(
		func(cx, cy, r int) bool {
			m := source.NewMask(32, 32)
			disk(m, cx, cy, r, 4)

			poly := Trace(m).Get(4)
			if poly == nil || poly.Len() < 3 {
				return false
			}
			for y := range m.Height {
				for x := range m.Width {
					if m.At(x, y) == 4 && !poly.Contains(image.Pt(x, y)) {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(4, 27),
		gen.IntRange(4, 27),
		gen.IntRange(1, 4),
	))

	properties.TestingRun(t)
}

// TestLocate_RoundTripProperty verifies the center of a painted region locates its polygon.
func TestLocate_RoundTripProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("center of a region locates that region", prop.ForAll(
		func(w1, w2, h int) bool {
			m := source.NewMask(60, 30)
			m.FillRect(image.Rect(2, 2, 2+w1, 2+h), 1)
			m.FillRect(image.Rect(2+w1, 2, 2+w1+w2, 2+h), 2)
			loc := NewLocator(NewStore(source.MemoryMasks{0: m}, nil))

			for label, r := range map[int]image.Rectangle{
				1: image.Rect(2, 2, 2+w1, 2+h),
				2: image.Rect(2+w1, 2, 2+w1+w2, 2+h),
			} {
				cx, cy := (r.Min.X+r.Max.X-1)/2, (r.Min.Y+r.Max.Y-1)/2
				poly, err := loc.Locate(0, cx, cy)
				if err != nil || poly == nil || poly.Label != label {
					return false
				}
			}
			return true
		},
		gen.IntRange(2, 25),
		gen.IntRange(2, 25),
		gen.IntRange(2, 20),
	))

	properties.TestingRun(t)
}

// strayPoints are pairwise non-adjacent pixels away from any body placed
// at x, y >= 12.
var strayPoints = []image.Point{
	{0, 2}, {2, 2}, {4, 2}, {6, 2}, {8, 2},
	{0, 6}, {2, 6}, {4, 6}, {6, 6}, {8, 6},
}

// TestTrace_SplitLabelProperty verifies labels with holes or stray pieces are
// still represented by their main body.
func TestTrace_SplitLabelProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("stray pixels: polygon is the body and its center locates the label", prop.ForAll(
		func(x0, y0, w, h, strays int) bool {
			m := source.NewMask(48, 48)
			body := image.Rect(x0, y0, x0+w, y0+h)
			m.FillRect(body, 7)
			for i, p := range strayPoints {
				if strays&(1<<i) != 0 {
					m.Set(p.X, p.Y, 7)
				}
			}

			c := Trace(m)
			poly := c.Get(7)
			if poly == nil || poly.Len() < 3 || poly.Bounds != body {
				return false
			}
			for y := body.Min.Y; y < body.Max.Y; y++ {
				for x := body.Min.X; x < body.Max.X; x++ {
					if !poly.Contains(image.Pt(x, y)) {
						return false
					}
				}
			}
			center := image.Pt((body.Min.X+body.Max.X-1)/2, (body.Min.Y+body.Max.Y-1)/2)
			return c.Locate(center) == poly
		},
		gen.IntRange(12, 30),
		gen.IntRange(12, 30),
		gen.IntRange(3, 15),
		gen.IntRange(3, 15),
		gen.IntRange(0, 1<<len(strayPoints)-1),
	))

	properties.Property("holes: outer boundary covers the hole and every labeled pixel", prop.ForAll(
		func(x0, y0, w, h, inset int) bool {
			m := source.NewMask(40, 40)
			outer := image.Rect(x0, y0, x0+w, y0+h)
			m.FillRect(outer, 2)
			m.FillRect(outer.Inset(inset), 0)

			poly := Trace(m).Get(2)
			if poly == nil || poly.Bounds != outer || poly.Len() != 2*(w+h)-4 {
				return false
			}
			for y := outer.Min.Y; y < outer.Max.Y; y++ {
				for x := outer.Min.X; x < outer.Max.X; x++ {
					if !poly.Contains(image.Pt(x, y)) {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(0, 15),
		gen.IntRange(0, 15),
		gen.IntRange(7, 20),
		gen.IntRange(7, 20),
		gen.IntRange(1, 3),
	))

	properties.TestingRun(t)
}
