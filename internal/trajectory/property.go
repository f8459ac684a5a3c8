package trajectory

import (
	"strings"

	"github.com/pkg/errors"
)

// Property names one scalar shape series recorded by the tracker.
type Property string

// The closed set of shape properties a trajectory may carry.
const (
	Area            Property = "area"
	MajorAxisLength Property = "major_axis_length"
	MinorAxisLength Property = "minor_axis_length"
	Orientation     Property = "orientation"
	Solidity        Property = "solidity"
)

// Properties lists every known property in a stable order.
var Properties = []Property{Area, MajorAxisLength, MinorAxisLength, Orientation, Solidity}

// ParseProperty validates a property name.
func ParseProperty(s string) (Property, error) {
	p := Property(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", errors.Errorf("unknown property %q", s)
	}
	return p, nil
}

// Valid reports whether p belongs to the known set.
func (p Property) Valid() bool {
	for _, k := range Properties {
		if p == k {
			return true
		}
	}
	return false
}
