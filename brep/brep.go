package brep

import (
	"errors"
	"iter"
)

// ErrNotDerivable is returned by Element attribute accessors when the kernel
// cannot compute the requested quantity for this element (e.g. a normal on a
// degenerate face). Callers treat it as "attribute absent", not as failure.
var ErrNotDerivable = errors.New("attribute not derivable for element")

// Element is a single topological element handed out by the kernel.
//
// StructuralHash is stable within one kernel session but not across
// sessions or serialization.
type Element interface {
	// Kind returns the topological class of the element.
	Kind() Kind

	// StructuralHash returns the kernel's session-stable hash.
	StructuralHash() uint64

	// Center returns the center of mass.
	Center() (Vec3, error)

	// Direction returns the surface normal for faces, the midpoint tangent
	// or axis for edges. Returns ErrNotDerivable when the kernel cannot
	// compute one.
	Direction() (Vec3, error)

	// Extent returns the area for faces and the length for edges.
	// Returns ErrNotDerivable when the kernel cannot compute one.
	Extent() (float64, error)

	// PrimaryType returns the kernel's classification of the underlying
	// geometry: plane/cylinder/cone/sphere/torus/other for faces,
	// line/circle/ellipse/bspline/other for edges. Empty when unknown.
	PrimaryType() (string, error)
}

// ResultSet is the complete, frozen element enumeration produced by one
// rebuild. Resolution never runs against a partially rebuilt kernel state.
//
// Enumeration order is kernel-defined; topogo takes the first match on hash
// ties and does not attempt to disambiguate further.
type ResultSet interface {
	// Elements iterates over all elements of the given kind.
	Elements(kind Kind) iter.Seq[Element]

	// Count returns the number of elements of the given kind.
	Count(kind Kind) int
}

// Provenance is the kernel-native history record of a single modeling
// operation. All queries are keyed by the structural hash an element had
// before the operation ran.
//
// Not every operation kind yields provenance; ledger.Kind documents the
// expected coverage.
type Provenance interface {
	// GeneratedFrom returns the hashes of elements the operation generated
	// from the element that previously had hash h.
	GeneratedFrom(h uint64) []uint64

	// ModifiedFrom returns the hashes of elements the operation produced by
	// modifying the element that previously had hash h.
	ModifiedFrom(h uint64) []uint64

	// Removed reports whether the operation removed the element that
	// previously had hash h.
	Removed(h uint64) bool
}
