package resolve

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/brepkit/topogo/brep"
)

// grid is a uniform spatial hash over descriptor centers, used to prune
// geometry-strategy candidates before the full similarity scoring loop.
// Each cell holds a bitmap of candidate indices.
type grid struct {
	cell  float64
	cells map[cellKey]*roaring.Bitmap
}

type cellKey struct {
	x, y, z int32
}

func newGrid(cellSize float64) *grid {
	return &grid{
		cell:  cellSize,
		cells: make(map[cellKey]*roaring.Bitmap),
	}
}

func (g *grid) keyFor(c brep.Vec3) cellKey {
	return cellKey{
		x: int32(math.Floor(c[0] / g.cell)),
		y: int32(math.Floor(c[1] / g.cell)),
		z: int32(math.Floor(c[2] / g.cell)),
	}
}

func (g *grid) insert(i uint32, c brep.Vec3) {
	k := g.keyFor(c)
	bm, ok := g.cells[k]
	if !ok {
		bm = roaring.New()
		g.cells[k] = bm
	}
	bm.Add(i)
}

// query returns the union of all candidate bitmaps whose cells overlap the
// axis-aligned box of radius around center.
func (g *grid) query(center brep.Vec3, radius float64) *roaring.Bitmap {
	lo := g.keyFor(center.Sub(brep.Vec3{radius, radius, radius}))
	hi := g.keyFor(center.Add(brep.Vec3{radius, radius, radius}))

	out := roaring.New()
	for x := lo.x; x <= hi.x; x++ {
		for y := lo.y; y <= hi.y; y++ {
			for z := lo.z; z <= hi.z; z++ {
				if bm, ok := g.cells[cellKey{x, y, z}]; ok {
					out.Or(bm)
				}
			}
		}
	}
	return out
}
