// Package breptest provides an in-memory fake kernel for tests: elements
// with configurable hashes and geometry, frozen result sets and scripted
// provenance objects.
package breptest

import (
	"errors"
	"iter"

	"github.com/brepkit/topogo/brep"
)

// ErrNoGeometry is the error injected for properties marked unavailable.
var ErrNoGeometry = errors.New("geometry not computable")

// Element is a scriptable brep.Element.
//
// The zero value is not usable; construct via NewFace/NewEdge/NewVertex or
// fill the fields directly. Optional properties report brep.ErrNotDerivable
// when their Has flag is false.
type Element struct {
	ElementKind brep.Kind
	Hash        uint64

	CenterVal    brep.Vec3
	HasCenter    bool
	DirectionVal brep.Vec3
	HasDirection bool
	ExtentVal    float64
	HasExtent    bool
	TypeVal      string
	HasType      bool

	// FailCenter forces Center to fail with ErrNoGeometry, modeling a
	// degenerate element the kernel cannot evaluate.
	FailCenter bool
}

var _ brep.Element = (*Element)(nil)

// NewFace returns a planar face element with the given hash, center and
// normal direction.
func NewFace(hash uint64, center, normal brep.Vec3, area float64) *Element {
	return &Element{
		ElementKind:  brep.KindFace,
		Hash:         hash,
		CenterVal:    center,
		HasCenter:    true,
		DirectionVal: normal,
		HasDirection: true,
		ExtentVal:    area,
		HasExtent:    true,
		TypeVal:      "plane",
		HasType:      true,
	}
}

// NewCylFace returns a cylindrical face element, axis as direction.
func NewCylFace(hash uint64, center, axis brep.Vec3, area float64) *Element {
	el := NewFace(hash, center, axis, area)
	el.TypeVal = "cylinder"
	return el
}

// NewEdge returns a line edge element with the given hash, midpoint,
// tangent direction and length.
func NewEdge(hash uint64, mid, tangent brep.Vec3, length float64) *Element {
	return &Element{
		ElementKind:  brep.KindEdge,
		Hash:         hash,
		CenterVal:    mid,
		HasCenter:    true,
		DirectionVal: tangent,
		HasDirection: true,
		ExtentVal:    length,
		HasExtent:    true,
		TypeVal:      "line",
		HasType:      true,
	}
}

// NewVertex returns a vertex element. Vertices carry only a position.
func NewVertex(hash uint64, pos brep.Vec3) *Element {
	return &Element{
		ElementKind: brep.KindVertex,
		Hash:        hash,
		CenterVal:   pos,
		HasCenter:   true,
	}
}

func (e *Element) Kind() brep.Kind        { return e.ElementKind }
func (e *Element) StructuralHash() uint64 { return e.Hash }

func (e *Element) Center() (brep.Vec3, error) {
	if e.FailCenter {
		return brep.Vec3{}, ErrNoGeometry
	}
	if !e.HasCenter {
		return brep.Vec3{}, brep.ErrNotDerivable
	}
	return e.CenterVal, nil
}

func (e *Element) Direction() (brep.Vec3, error) {
	if !e.HasDirection {
		return brep.Vec3{}, brep.ErrNotDerivable
	}
	return e.DirectionVal, nil
}

func (e *Element) Extent() (float64, error) {
	if !e.HasExtent {
		return 0, brep.ErrNotDerivable
	}
	return e.ExtentVal, nil
}

func (e *Element) PrimaryType() (string, error) {
	if !e.HasType {
		return "", brep.ErrNotDerivable
	}
	return e.TypeVal, nil
}

// ResultSet is a frozen snapshot of elements, grouped by kind in insertion
// order.
type ResultSet struct {
	byKind map[brep.Kind][]brep.Element
}

var _ brep.ResultSet = (*ResultSet)(nil)

// NewResultSet builds a result set from the given elements.
func NewResultSet(els ...brep.Element) *ResultSet {
	rs := &ResultSet{byKind: make(map[brep.Kind][]brep.Element)}
	for _, el := range els {
		rs.byKind[el.Kind()] = append(rs.byKind[el.Kind()], el)
	}
	return rs
}

// Elements yields the elements of one kind in insertion order.
func (rs *ResultSet) Elements(kind brep.Kind) iter.Seq[brep.Element] {
	return func(yield func(brep.Element) bool) {
		for _, el := range rs.byKind[kind] {
			if !yield(el) {
				return
			}
		}
	}
}

// Count returns the number of elements of one kind.
func (rs *ResultSet) Count(kind brep.Kind) int {
	return len(rs.byKind[kind])
}

// Provenance is a scripted brep.Provenance built from explicit hash maps.
type Provenance struct {
	Generated map[uint64][]uint64
	Modified  map[uint64][]uint64
	Deleted   map[uint64]bool
}

var _ brep.Provenance = (*Provenance)(nil)

// NewProvenance returns an empty provenance record.
func NewProvenance() *Provenance {
	return &Provenance{
		Generated: make(map[uint64][]uint64),
		Modified:  make(map[uint64][]uint64),
		Deleted:   make(map[uint64]bool),
	}
}

// Gen records that from spawned the given hashes.
func (p *Provenance) Gen(from uint64, to ...uint64) *Provenance {
	p.Generated[from] = append(p.Generated[from], to...)
	return p
}

// Mod records that from was modified into the given hashes.
func (p *Provenance) Mod(from uint64, to ...uint64) *Provenance {
	p.Modified[from] = append(p.Modified[from], to...)
	return p
}

// Del records that the hash was consumed by the operation.
func (p *Provenance) Del(hashes ...uint64) *Provenance {
	for _, h := range hashes {
		p.Deleted[h] = true
	}
	return p
}

func (p *Provenance) GeneratedFrom(h uint64) []uint64 { return p.Generated[h] }
func (p *Provenance) ModifiedFrom(h uint64) []uint64  { return p.Modified[h] }
func (p *Provenance) Removed(h uint64) bool           { return p.Deleted[h] }
