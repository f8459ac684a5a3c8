// Package features assembles the per-cell, per-timestep feature records and
// encodes them as fixed-width tables.
package features

import "fmt"

// DefaultMaxNeighbors is the default number of neighbor slots per record.
const DefaultMaxNeighbors = 12

// Sentinel marks a missing integer value: a failed property lookup, an absent
// contour, a background color, or an unused neighbor slot.
const Sentinel = -1

// Neighbor is one neighbor slot: a cell in contact and its contact-point count.
type Neighbor struct {
	ID            int `json:"id"`
	ContactPoints int `json:"contact_points"`
}

// NoNeighbor fills unused slots.
var NoNeighbor = Neighbor{ID: Sentinel, ContactPoints: Sentinel}

// Record is the feature row of one cell at one timestep.
type Record struct {
	Cell        int
	T           int
	X           int
	Y           int
	Area        int
	MajorAxis   int
	MinorAxis   int
	Orientation float64
	Perimeter   int
	Color       [3]int
	Neighbors   []Neighbor
}

// Columns returns the table header for n neighbor slots, optionally led by
// the cell identity column.
func Columns(n int, includeID bool) []string {
	cols := make([]string, 0, 12+2*n)
	if includeID {
		cols = append(cols, "id")
	}
	cols = append(cols, "t", "x", "y", "A", "l1", "l2", "theta", "P", "c1", "c2", "c3")
	for i := range n {
		cols = append(cols, fmt.Sprintf("neigh_%d", i))
	}
	for i := range n {
		cols = append(cols, fmt.Sprintf("num_contact_pnts_%d", i))
	}
	return cols
}

// NeighborCount returns the number of filled slots.
func (r Record) NeighborCount() int {
	n := 0
	for _, nb := range r.Neighbors {
		if nb != NoNeighbor {
			n++
		}
	}
	return n
}
