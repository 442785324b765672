package descriptor

import (
	"math"

	"github.com/brepkit/topogo/brep"
)

// Weights is the configurable weight table for similarity scoring.
//
// The source system this design descends from carried several divergent
// hard-coded splits; topogo exposes a single table instead. Weights need not
// sum to 1: the final score is renormalized by the weights actually applied,
// so absent attributes never penalize a candidate.
type Weights struct {
	Center    float64 `yaml:"center"`
	Direction float64 `yaml:"direction"`
	Extent    float64 `yaml:"extent"`
	TypeBonus float64 `yaml:"type_bonus"`
}

// DefaultWeights returns the per-kind default weight split.
func DefaultWeights(kind brep.Kind) Weights {
	switch kind {
	case brep.KindEdge:
		return Weights{Center: 0.40, Direction: 0.20, Extent: 0.25, TypeBonus: 0.15}
	default:
		return Weights{Center: 0.35, Direction: 0.25, Extent: 0.25, TypeBonus: 0.15}
	}
}

// DefaultMinScore is the default per-kind minimum similarity a geometry
// match must reach; below it the candidate is rejected outright.
func DefaultMinScore(kind brep.Kind) float64 {
	_ = kind
	return 0.65
}

// Similarity computes the weighted similarity of two descriptors in [0, 1].
//
// Sub-scores:
//   - center:    max(0, 1 - distance/tolerance)
//   - direction: |dot(a, b)| (sign-agnostic; inward and outward orientations
//     of the same surface are both valid matches)
//   - extent:    min/max ratio
//   - type:      1 if the classifications are equal, else 0
//
// Only sub-scores whose inputs are present on both sides contribute; the
// total is renormalized by the sum of applied weights.
func Similarity(a, b Descriptor, tolerance float64, w Weights) float64 {
	var total, applied float64

	if w.Center > 0 {
		total += w.Center * centerScore(a.Center, b.Center, tolerance)
		applied += w.Center
	}

	if w.Direction > 0 && a.HasDirection() && b.HasDirection() {
		da, okA := a.Direction.Normalized()
		db, okB := b.Direction.Normalized()
		if okA && okB {
			total += w.Direction * math.Abs(da.Dot(db))
			applied += w.Direction
		}
	}

	if w.Extent > 0 && a.HasExtent() && b.HasExtent() {
		lo, hi := a.Extent, b.Extent
		if lo > hi {
			lo, hi = hi, lo
		}
		total += w.Extent * (lo / hi)
		applied += w.Extent
	}

	if w.TypeBonus > 0 && a.HasType() && b.HasType() {
		if a.PrimaryType == b.PrimaryType {
			total += w.TypeBonus
		}
		applied += w.TypeBonus
	}

	if applied == 0 {
		return 0
	}
	return clamp01(total / applied)
}

func centerScore(a, b brep.Vec3, tolerance float64) float64 {
	dist := a.Distance(b)
	if tolerance <= 0 {
		if dist == 0 {
			return 1
		}
		return 0
	}
	return math.Max(0, 1-dist/tolerance)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
