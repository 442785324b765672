// Package descriptor computes and compares compact geometric attribute
// bundles for topological elements.
//
// Descriptors are used only for approximate similarity matching, never as
// identity: two congruent faces produce near-identical descriptors and are
// told apart by their centers.
package descriptor

import (
	"errors"
	"fmt"

	"github.com/brepkit/topogo/brep"
)

// ErrInvalidElement is returned when extraction is attempted on a nil or
// degenerate kernel element (no computable center).
var ErrInvalidElement = errors.New("kernel element invalid")

// Descriptor is the geometry-only attribute bundle of one element.
//
// Center is always populated. All other fields are optional; absent fields
// simply do not contribute to similarity scoring. Extent <= 0 and an empty
// PrimaryType mean "not computed".
type Descriptor struct {
	Center      brep.Vec3
	Direction   *brep.Vec3
	Extent      float64
	PrimaryType string
}

// HasDirection reports whether a direction was computed.
func (d Descriptor) HasDirection() bool { return d.Direction != nil }

// HasExtent reports whether an extent was computed.
func (d Descriptor) HasExtent() bool { return d.Extent > 0 }

// HasType reports whether a primary type classification was computed.
func (d Descriptor) HasType() bool { return d.PrimaryType != "" }

// Clone returns a deep copy of d.
func (d Descriptor) Clone() Descriptor {
	out := d
	if d.Direction != nil {
		dir := *d.Direction
		out.Direction = &dir
	}
	return out
}

// Extract computes the descriptor of a kernel element.
//
// The center is mandatory: a nil element or one without a computable center
// fails with ErrInvalidElement. Every other attribute degrades gracefully;
// if the kernel cannot derive it, the field is left absent and extraction
// still succeeds. Extract has no side effects.
func Extract(el brep.Element) (Descriptor, error) {
	if el == nil {
		return Descriptor{}, ErrInvalidElement
	}

	center, err := el.Center()
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: %w", ErrInvalidElement, err)
	}

	d := Descriptor{Center: center}

	if dir, err := el.Direction(); err == nil {
		// Store unit directions so scoring can use a plain dot product.
		if unit, ok := dir.Normalized(); ok {
			d.Direction = &unit
		}
	}

	if ext, err := el.Extent(); err == nil && ext > 0 {
		d.Extent = ext
	}

	if typ, err := el.PrimaryType(); err == nil {
		d.PrimaryType = typ
	}

	return d, nil
}
