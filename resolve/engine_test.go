package resolve_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brepkit/topogo/brep"
	"github.com/brepkit/topogo/breptest"
	"github.com/brepkit/topogo/ledger"
	"github.com/brepkit/topogo/registry"
	"github.com/brepkit/topogo/resolve"
)

// trackHole sets up a registry/ledger pair with one tracked reference: the
// lateral face of a hole at (25, 25, 0), as created by "Pocket001".
func trackHole(t *testing.T) (*registry.Registry, *ledger.Ledger, registry.ID) {
	t.Helper()

	reg := registry.New()
	led := ledger.New(reg)

	face := breptest.NewCylFace(101, brep.Vec3{25, 25, 0}, brep.Vec3{0, 0, 1}, 314.16)
	id, err := reg.Create(face, "Pocket001")
	require.NoError(t, err)
	return reg, led, id
}

func TestResolveHashMatch(t *testing.T) {
	reg, led, id := trackHole(t)
	eng := resolve.NewEngine(reg, led)

	// Same session, same hash, new handle object.
	rebuilt := breptest.NewCylFace(101, brep.Vec3{25, 25, 0}, brep.Vec3{0, 0, 1}, 314.16)
	rs := breptest.NewResultSet(
		breptest.NewFace(50, brep.Vec3{0, 0, 5}, brep.Vec3{0, 0, 1}, 2500),
		rebuilt,
	)

	out, err := eng.Resolve(context.Background(), id, rs, 10)
	require.NoError(t, err)
	assert.True(t, out.Resolved())
	assert.Equal(t, resolve.StrategyHash, out.Strategy)
	assert.Equal(t, 1.0, out.Score)
	assert.Same(t, rebuilt, out.Matched)
}

func TestResolveGeometryDrift(t *testing.T) {
	// The hole edit renumbered every hash but barely moved the face: the
	// geometry strategy must find it with high confidence.
	reg, led, id := trackHole(t)
	eng := resolve.NewEngine(reg, led)

	drifted := breptest.NewCylFace(999, brep.Vec3{25.05, 25, 0}, brep.Vec3{0, 0, 1}, 314.16)
	rs := breptest.NewResultSet(
		breptest.NewFace(998, brep.Vec3{0, 0, 5}, brep.Vec3{0, 0, 1}, 2500),
		drifted,
	)

	out, err := eng.Resolve(context.Background(), id, rs, 10)
	require.NoError(t, err)
	assert.Equal(t, resolve.StrategyGeometry, out.Strategy)
	assert.Same(t, drifted, out.Matched)
	assert.Greater(t, out.Score, 0.9)

	// The match commits: the stored hash and descriptor follow the element.
	ref, err := reg.Get(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(999), *ref.CurrentHash)
	assert.Equal(t, brep.Vec3{25.05, 25, 0}, ref.Descriptor.Center)
	assert.True(t, ref.LastResolved)
}

func TestResolveLegitimateDisappearance(t *testing.T) {
	// The hole was deleted; nothing in the result set resembles it. The
	// cascade must report no match rather than attach to the big plate face.
	reg, led, id := trackHole(t)
	eng := resolve.NewEngine(reg, led)

	rs := breptest.NewResultSet(
		breptest.NewFace(998, brep.Vec3{0, 0, 5}, brep.Vec3{0, 0, 1}, 2500),
		breptest.NewFace(997, brep.Vec3{0, 0, -5}, brep.Vec3{0, 0, 1}, 2500),
	)

	out, err := eng.Resolve(context.Background(), id, rs, 10)
	require.NoError(t, err)
	assert.False(t, out.Resolved())
	assert.Equal(t, resolve.StrategyNone, out.Strategy)
	assert.Zero(t, out.Score)
	assert.Nil(t, out.Matched)

	ref, err := reg.Get(id)
	require.NoError(t, err)
	assert.False(t, ref.LastResolved)
	assert.Equal(t, uint64(101), *ref.CurrentHash, "failed resolution keeps the last committed hash")
}

func TestResolveDisambiguation(t *testing.T) {
	// Two congruent holes; only the center separates them. The tracked one
	// sits at (25, 25, 0) and reappears near it; the twin at (40, 10, 0)
	// must lose on center distance.
	reg, led, id := trackHole(t)
	eng := resolve.NewEngine(reg, led)

	near := breptest.NewCylFace(801, brep.Vec3{25.5, 25, 0}, brep.Vec3{0, 0, 1}, 314.16)
	twin := breptest.NewCylFace(802, brep.Vec3{40, 10, 0}, brep.Vec3{0, 0, 1}, 314.16)
	rs := breptest.NewResultSet(twin, near)

	out, err := eng.Resolve(context.Background(), id, rs, 10)
	require.NoError(t, err)
	assert.Equal(t, resolve.StrategyGeometry, out.Strategy)
	assert.Same(t, near, out.Matched)
}

func TestResolveHistoryBeatsGeometry(t *testing.T) {
	// Provenance says the tracked face was modified into hash 202. A
	// geometrically closer impostor exists; history must win anyway.
	reg, led, id := trackHole(t)
	eng := resolve.NewEngine(reg, led)

	led.Record("Fillet002", ledger.KindFillet,
		breptest.NewProvenance().Mod(101, 202), id)

	descendant := breptest.NewCylFace(202, brep.Vec3{30, 30, 0}, brep.Vec3{0, 0, 1}, 290)
	impostor := breptest.NewCylFace(303, brep.Vec3{25, 25, 0}, brep.Vec3{0, 0, 1}, 314.16)
	rs := breptest.NewResultSet(impostor, descendant)

	out, err := eng.Resolve(context.Background(), id, rs, 10)
	require.NoError(t, err)
	assert.Equal(t, resolve.StrategyHistory, out.Strategy)
	assert.Equal(t, 1.0, out.Score)
	assert.Same(t, descendant, out.Matched)
}

func TestResolveHistoryMultiStep(t *testing.T) {
	// Two provenance-bearing operations chain: 101 -> 202 (fillet splits it)
	// -> 404 (pattern regenerates). Untouched hashes survive each step.
	reg, led, id := trackHole(t)
	eng := resolve.NewEngine(reg, led)

	led.Record("Fillet002", ledger.KindFillet,
		breptest.NewProvenance().Gen(101, 202, 203), id)
	led.Record("Pattern003", ledger.KindPattern,
		breptest.NewProvenance().Mod(202, 404).Del(203), id)

	survivor := breptest.NewCylFace(404, brep.Vec3{26, 25, 0}, brep.Vec3{0, 0, 1}, 300)
	rs := breptest.NewResultSet(survivor)

	out, err := eng.Resolve(context.Background(), id, rs, 10)
	require.NoError(t, err)
	assert.Equal(t, resolve.StrategyHistory, out.Strategy)
	assert.Same(t, survivor, out.Matched)
}

func TestResolveHistoryAbstainsWithoutProvenance(t *testing.T) {
	// Operations recorded without provenance objects leave the history
	// strategy nothing to replay; the hash strategy must take the match so
	// confidence is not overstated.
	reg, led, id := trackHole(t)
	eng := resolve.NewEngine(reg, led)

	led.Record("Transform002", ledger.KindTransform, nil, id)

	rebuilt := breptest.NewCylFace(101, brep.Vec3{25, 25, 0}, brep.Vec3{0, 0, 1}, 314.16)
	rs := breptest.NewResultSet(rebuilt)

	out, err := eng.Resolve(context.Background(), id, rs, 10)
	require.NoError(t, err)
	assert.Equal(t, resolve.StrategyHash, out.Strategy)
}

func TestResolveHistoryRemovedHash(t *testing.T) {
	// The only candidate hash was consumed by a boolean. The history set
	// empties; an unrelated element with the stale hash must not match via
	// history, and geometry decides on its own merits.
	reg, led, id := trackHole(t)
	eng := resolve.NewEngine(reg, led)

	led.Record("Cut002", ledger.KindBoolean,
		breptest.NewProvenance().Del(101), id)

	rs := breptest.NewResultSet(
		breptest.NewFace(998, brep.Vec3{0, 0, 5}, brep.Vec3{0, 0, 1}, 2500),
	)

	out, err := eng.Resolve(context.Background(), id, rs, 10)
	require.NoError(t, err)
	assert.False(t, out.Resolved())
}

func TestResolveFailSafeFloor(t *testing.T) {
	// A below-threshold best candidate is never returned.
	reg, led, id := trackHole(t)
	eng := resolve.NewEngine(reg, led, func(o *resolve.Options) {
		o.MinScore = map[brep.Kind]float64{brep.KindFace: 0.95}
	})

	almost := breptest.NewCylFace(777, brep.Vec3{28, 25, 0}, brep.Vec3{0, 0, 1}, 200)
	rs := breptest.NewResultSet(almost)

	out, err := eng.Resolve(context.Background(), id, rs, 10)
	require.NoError(t, err)
	assert.False(t, out.Resolved())
	assert.Positive(t, out.CandidatesConsidered)
}

func TestResolveHashCollisionFirstWins(t *testing.T) {
	reg, led, id := trackHole(t)
	eng := resolve.NewEngine(reg, led)

	first := breptest.NewCylFace(101, brep.Vec3{25, 25, 0}, brep.Vec3{0, 0, 1}, 314.16)
	second := breptest.NewCylFace(101, brep.Vec3{40, 10, 0}, brep.Vec3{0, 0, 1}, 314.16)
	rs := breptest.NewResultSet(first, second)

	out, err := eng.Resolve(context.Background(), id, rs, 10)
	require.NoError(t, err)
	assert.Equal(t, resolve.StrategyHash, out.Strategy)
	assert.Same(t, first, out.Matched)
	assert.Equal(t, uint64(1), eng.Stats().HashCollisions)
}

func TestResolveOriginalHashFallback(t *testing.T) {
	// A previous geometry commit moved CurrentHash to 999; a later rebuild
	// restores the creation-time numbering. The original hash still matches.
	reg, led, id := trackHole(t)
	eng := resolve.NewEngine(reg, led)

	require.NoError(t, reg.CommitResolution(id, 999, mustGet(t, reg, id).Descriptor))

	restored := breptest.NewCylFace(101, brep.Vec3{25, 25, 0}, brep.Vec3{0, 0, 1}, 314.16)
	rs := breptest.NewResultSet(restored)

	out, err := eng.Resolve(context.Background(), id, rs, 10)
	require.NoError(t, err)
	assert.Equal(t, resolve.StrategyHash, out.Strategy)
}

func TestResolveKindFilter(t *testing.T) {
	// An edge carrying the tracked face's hash is never a candidate.
	reg, led, id := trackHole(t)
	eng := resolve.NewEngine(reg, led)

	rs := breptest.NewResultSet(
		breptest.NewEdge(101, brep.Vec3{25, 25, 0}, brep.Vec3{0, 0, 1}, 31.4),
	)

	out, err := eng.Resolve(context.Background(), id, rs, 10)
	require.NoError(t, err)
	assert.False(t, out.Resolved())
	assert.Zero(t, out.CandidatesConsidered)
}

func TestResolveErrors(t *testing.T) {
	reg, led, id := trackHole(t)
	eng := resolve.NewEngine(reg, led)

	t.Run("nil result set", func(t *testing.T) {
		_, err := eng.Resolve(context.Background(), id, nil, 10)
		assert.ErrorIs(t, err, resolve.ErrNilResultSet)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := eng.Resolve(context.Background(), "nope", breptest.NewResultSet(), 10)
		assert.ErrorIs(t, err, registry.ErrNotFound)
	})
}

func TestResolveCancellation(t *testing.T) {
	reg, led, id := trackHole(t)
	eng := resolve.NewEngine(reg, led)

	// Enough candidates to guarantee a cancellation check fires mid-scan.
	els := make([]brep.Element, 0, 256)
	for i := 0; i < 256; i++ {
		els = append(els, breptest.NewFace(uint64(1000+i), brep.Vec3{float64(i), 0, 0}, brep.Vec3{0, 0, 1}, 1))
	}
	rs := breptest.NewResultSet(els...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Resolve(ctx, id, rs, 10)
	require.ErrorIs(t, err, context.Canceled)

	// Cancellation must leave the reference's committed state untouched.
	ref, err := reg.Get(id)
	require.NoError(t, err)
	assert.True(t, ref.LastResolved)
	assert.Equal(t, uint64(101), *ref.CurrentHash)
}

func TestResolvePrefilterMatchesExactScan(t *testing.T) {
	mkEngine := func(prefilter bool) (*resolve.Engine, *registry.Registry, registry.ID) {
		reg := registry.New()
		led := ledger.New(reg)
		face := breptest.NewCylFace(42, brep.Vec3{50, 50, 0}, brep.Vec3{0, 0, 1}, 100)
		id, err := reg.Create(face, "Hole001")
		require.NoError(t, err)
		eng := resolve.NewEngine(reg, led, func(o *resolve.Options) {
			o.Prefilter = prefilter
		})
		return eng, reg, id
	}

	// A field of faces well past the prefilter threshold, with the true
	// match drifted slightly off the tracked center.
	els := make([]brep.Element, 0, 200)
	for i := 0; i < 199; i++ {
		els = append(els, breptest.NewFace(uint64(5000+i),
			brep.Vec3{float64(i%20) * 100, float64(i/20) * 100, 50},
			brep.Vec3{0, 0, 1}, 100))
	}
	target := breptest.NewCylFace(9999, brep.Vec3{50.5, 50, 0}, brep.Vec3{0, 0, 1}, 100)
	els = append(els, target)
	rs := breptest.NewResultSet(els...)

	exact, _, exactID := mkEngine(false)
	outExact, err := exact.Resolve(context.Background(), exactID, rs, 10)
	require.NoError(t, err)

	pre, _, preID := mkEngine(true)
	outPre, err := pre.Resolve(context.Background(), preID, rs, 10)
	require.NoError(t, err)

	assert.Same(t, target, outExact.Matched)
	assert.Same(t, target, outPre.Matched)
	assert.InDelta(t, outExact.Score, outPre.Score, 1e-12)
	assert.Less(t, outPre.CandidatesConsidered, outExact.CandidatesConsidered,
		"the grid must prune far-away candidates")
}

func TestResolveFailureLeavesStatsConsistent(t *testing.T) {
	reg, led, id := trackHole(t)
	eng := resolve.NewEngine(reg, led)

	// One hash success, one failure.
	hit := breptest.NewResultSet(breptest.NewCylFace(101, brep.Vec3{25, 25, 0}, brep.Vec3{0, 0, 1}, 314.16))
	_, err := eng.Resolve(context.Background(), id, hit, 10)
	require.NoError(t, err)

	miss := breptest.NewResultSet()
	_, err = eng.Resolve(context.Background(), id, miss, 10)
	require.NoError(t, err)

	stats := eng.Stats()
	assert.Equal(t, uint64(2), stats.Total)
	assert.Equal(t, uint64(1), stats.HashSuccess)
	assert.Equal(t, uint64(1), stats.Failed)
	assert.InDelta(t, 0.5, stats.SuccessRate, 1e-12)
}

func mustGet(t *testing.T, reg *registry.Registry, id registry.ID) registry.TrackedReference {
	t.Helper()
	ref, err := reg.Get(id)
	require.NoError(t, err)
	return ref
}
