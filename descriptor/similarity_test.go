package descriptor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brepkit/topogo/brep"
	"github.com/brepkit/topogo/descriptor"
)

func vecp(x, y, z float64) *brep.Vec3 {
	v := brep.Vec3{x, y, z}
	return &v
}

func TestSimilarity(t *testing.T) {
	weights := descriptor.DefaultWeights(brep.KindFace)

	tests := []struct {
		name      string
		a, b      descriptor.Descriptor
		tolerance float64
		want      float64
		delta     float64
	}{
		{
			name: "identical descriptors score 1",
			a: descriptor.Descriptor{
				Center: brep.Vec3{25, 25, 0}, Direction: vecp(0, 0, 1),
				Extent: 314.16, PrimaryType: "cylinder",
			},
			b: descriptor.Descriptor{
				Center: brep.Vec3{25, 25, 0}, Direction: vecp(0, 0, 1),
				Extent: 314.16, PrimaryType: "cylinder",
			},
			tolerance: 10,
			want:      1.0,
			delta:     1e-12,
		},
		{
			name: "flipped direction scores like aligned",
			a: descriptor.Descriptor{
				Center: brep.Vec3{0, 0, 0}, Direction: vecp(0, 0, 1),
			},
			b: descriptor.Descriptor{
				Center: brep.Vec3{0, 0, 0}, Direction: vecp(0, 0, -1),
			},
			tolerance: 10,
			want:      1.0,
			delta:     1e-12,
		},
		{
			name: "center beyond tolerance contributes zero",
			a: descriptor.Descriptor{
				Center: brep.Vec3{0, 0, 0}, Direction: vecp(0, 0, 1),
			},
			b: descriptor.Descriptor{
				Center: brep.Vec3{100, 0, 0}, Direction: vecp(0, 0, 1),
			},
			tolerance: 10,
			// Only the direction sub-score survives renormalization:
			// (0.35*0 + 0.25*1) / (0.35 + 0.25).
			want:  0.25 / 0.60,
			delta: 1e-12,
		},
		{
			name: "extent uses min/max ratio",
			a: descriptor.Descriptor{
				Center: brep.Vec3{0, 0, 0}, Extent: 50,
			},
			b: descriptor.Descriptor{
				Center: brep.Vec3{0, 0, 0}, Extent: 100,
			},
			tolerance: 10,
			// (0.35*1 + 0.25*0.5) / (0.35 + 0.25)
			want:  (0.35 + 0.125) / 0.60,
			delta: 1e-12,
		},
		{
			name: "absent attributes do not penalize",
			a: descriptor.Descriptor{
				Center: brep.Vec3{0, 0, 0},
			},
			b: descriptor.Descriptor{
				Center: brep.Vec3{0, 0, 0}, Direction: vecp(1, 0, 0),
				Extent: 5, PrimaryType: "plane",
			},
			tolerance: 10,
			want:      1.0,
			delta:     1e-12,
		},
		{
			name: "type mismatch applies the bonus weight as zero",
			a: descriptor.Descriptor{
				Center: brep.Vec3{0, 0, 0}, PrimaryType: "plane",
			},
			b: descriptor.Descriptor{
				Center: brep.Vec3{0, 0, 0}, PrimaryType: "cylinder",
			},
			tolerance: 10,
			// (0.35*1 + 0.15*0) / (0.35 + 0.15)
			want:  0.35 / 0.50,
			delta: 1e-12,
		},
		{
			name: "zero tolerance matches only exact centers",
			a: descriptor.Descriptor{
				Center: brep.Vec3{0, 0, 0},
			},
			b: descriptor.Descriptor{
				Center: brep.Vec3{0, 0, 0},
			},
			tolerance: 0,
			want:      1.0,
			delta:     1e-12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := descriptor.Similarity(tt.a, tt.b, tt.tolerance, weights)
			assert.InDelta(t, tt.want, got, tt.delta)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestSimilaritySymmetry(t *testing.T) {
	a := descriptor.Descriptor{
		Center: brep.Vec3{1, 2, 3}, Direction: vecp(1, 1, 0),
		Extent: 12, PrimaryType: "plane",
	}
	b := descriptor.Descriptor{
		Center: brep.Vec3{2, 2, 3}, Direction: vecp(1, 0, 0),
		Extent: 20, PrimaryType: "plane",
	}

	w := descriptor.DefaultWeights(brep.KindFace)
	assert.InDelta(t, descriptor.Similarity(a, b, 5, w), descriptor.Similarity(b, a, 5, w), 1e-12)
}

func TestSimilarityAllWeightsZero(t *testing.T) {
	a := descriptor.Descriptor{Center: brep.Vec3{0, 0, 0}}
	assert.Equal(t, 0.0, descriptor.Similarity(a, a, 10, descriptor.Weights{}))
}

func TestDefaultWeights(t *testing.T) {
	for _, kind := range brep.Kinds() {
		w := descriptor.DefaultWeights(kind)
		assert.InDelta(t, 1.0, w.Center+w.Direction+w.Extent+w.TypeBonus, 1e-12, kind.String())
	}
}
