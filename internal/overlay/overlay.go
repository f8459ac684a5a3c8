// Package overlay draws contours and cell contact points over a frame.
package overlay

import (
	"image"
	"image/color"

	"github.com/MeKo-Tech/celltraj/internal/contour"
	"github.com/MeKo-Tech/celltraj/internal/neighbor"
	"github.com/MeKo-Tech/celltraj/internal/trajectory"
	"github.com/MeKo-Tech/celltraj/internal/utils"
)

var (
	// ContourColor is used for every traced boundary.
	ContourColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	// EdgeColor marks shared-edge contact points.
	EdgeColor = color.RGBA{G: 255, A: 255}
)

// Edge is the contact between two cells at one frame.
type Edge struct {
	A, B   int
	Points []image.Point
}

// Render copies frame and draws every contour and edge onto it. A non-empty
// crop restricts the result to that rectangle.
func Render(frame image.Image, contours *contour.Contours, edges []Edge, crop image.Rectangle) image.Image {
	dst := utils.CopyToRGBA(frame)
	if contours != nil {
		for _, label := range contours.Labels {
			utils.DrawPolygon(dst, contours.ByLabel[label].Points, ContourColor, 1)
		}
	}
	for _, e := range edges {
		utils.DrawPoints(dst, e.Points, EdgeColor)
	}
	if crop.Empty() {
		return dst
	}
	return utils.CropImageRect(dst, crop)
}

// WindowRect converts a row/column window into pixel bounds.
func WindowRect(w trajectory.Window) image.Rectangle {
	return image.Rect(int(w.X0), int(w.Y0), int(w.X1)+1, int(w.Y1)+1)
}

// SharedEdges collects the contact points of every adjacent pair among the
// cells inside w at t. Each unordered pair is reported once, ordered by the
// first cell's set position.
func SharedEdges(set *trajectory.Set, locator *contour.Locator, filter *neighbor.Filter, t int, w trajectory.Window) ([]Edge, error) {
	cells := set.Within(t, w)
	polys := make(map[int]*contour.Polygon, len(cells))
	locate := func(ii int) (*contour.Polygon, error) {
		if p, ok := polys[ii]; ok {
			return p, nil
		}
		tr, err := set.Get(ii)
		if err != nil {
			return nil, err
		}
		x, y, err := tr.Position(t)
		if err != nil {
			return nil, err
		}
		p, err := locator.Locate(t, int(x), int(y))
		if err != nil {
			return nil, err
		}
		polys[ii] = p
		return p, nil
	}

	seen := make(map[[2]int]bool)
	var edges []Edge
	for _, ii := range cells {
		own, err := locate(ii)
		if err != nil {
			return nil, err
		}
		if own == nil {
			continue
		}
		candidates, err := filter.Candidates(t, ii)
		if err != nil {
			return nil, err
		}
		for _, jj := range candidates {
			key := [2]int{min(ii, jj), max(ii, jj)}
			if seen[key] {
				continue
			}
			other, err := locate(jj)
			if err != nil {
				return nil, err
			}
			if other == nil || other == own || !neighbor.AreAdjacent(own, other) {
				continue
			}
			seen[key] = true
			edges = append(edges, Edge{A: ii, B: jj, Points: neighbor.SharedEdge(own, other)})
		}
	}
	return edges, nil
}
