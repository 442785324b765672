package resolve

import (
	"context"
	"errors"
	"log/slog"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/brepkit/topogo/brep"
	"github.com/brepkit/topogo/descriptor"
	"github.com/brepkit/topogo/ledger"
	"github.com/brepkit/topogo/registry"
)

// ErrNilResultSet is returned when Resolve is called without a result set.
var ErrNilResultSet = errors.New("nil result set")

// ctxCheckInterval bounds how many candidates are examined between context
// cancellation checks inside scan loops.
const ctxCheckInterval = 64

// prefilterThreshold is the candidate count below which the spatial grid is
// not worth building.
const prefilterThreshold = 64

// Options configures the resolution engine.
type Options struct {
	// Weights is the per-kind similarity weight table. Kinds absent from
	// the map use descriptor.DefaultWeights.
	Weights map[brep.Kind]descriptor.Weights

	// MinScore is the per-kind minimum similarity a geometry match must
	// reach. Kinds absent from the map use descriptor.DefaultMinScore.
	MinScore map[brep.Kind]float64

	// Prefilter enables the spatial grid pre-filter for the geometry scan.
	// Off by default: the exact full scan is the reference behavior, the
	// grid is a scaling optimization for large result sets.
	Prefilter bool

	// Logger receives strategy-level diagnostics. Nil disables logging.
	Logger *slog.Logger
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		Weights:  map[brep.Kind]descriptor.Weights{},
		MinScore: map[brep.Kind]float64{},
	}
}

// Engine runs the resolution cascade against one registry and ledger.
// Safe for concurrent use; results for a reference are committed only after
// its full candidate scan finishes.
type Engine struct {
	reg   *registry.Registry
	led   *ledger.Ledger
	opts  Options
	stats statsCounters
}

// NewEngine creates a resolution engine bound to the given registry and
// ledger.
func NewEngine(reg *registry.Registry, led *ledger.Ledger, optFns ...func(*Options)) *Engine {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{reg: reg, led: led, opts: opts}
}

// Resolve runs the cascade for one tracked reference against a frozen
// result set.
//
// A cascade that finds no legitimate candidate is not an error: the outcome
// carries StrategyNone and score 0, and the reference is marked unresolved.
// Errors are reserved for unknown ids, a nil result set and context
// cancellation; on cancellation the reference keeps its last committed
// state.
func (e *Engine) Resolve(ctx context.Context, id registry.ID, rs brep.ResultSet, tolerance float64) (Outcome, error) {
	if rs == nil {
		return Outcome{}, ErrNilResultSet
	}

	ref, err := e.reg.Get(id)
	if err != nil {
		return Outcome{}, err
	}

	considered := 0

	out, ok, err := e.resolveHistory(ctx, ref, rs, &considered)
	if err != nil {
		return Outcome{}, err
	}
	if ok {
		return e.commit(ref, out, &e.stats.historySuccess)
	}

	out, ok, err = e.resolveHash(ctx, ref, rs, &considered)
	if err != nil {
		return Outcome{}, err
	}
	if ok {
		return e.commit(ref, out, &e.stats.hashSuccess)
	}

	out, ok, err = e.resolveGeometry(ctx, ref, rs, tolerance, &considered)
	if err != nil {
		return Outcome{}, err
	}
	if ok {
		return e.commit(ref, out, &e.stats.geometrySuccess)
	}

	// Cascade exhausted. The selection no longer exists as far as we can
	// tell; never attach to an unrelated element.
	if err := e.reg.MarkUnresolved(ref.ID); err != nil {
		return Outcome{}, err
	}
	e.stats.failed.Add(1)
	if e.opts.Logger != nil {
		e.opts.Logger.Debug("resolution failed",
			"id", string(ref.ID),
			"kind", ref.Kind.String(),
			"candidates", considered,
		)
	}
	return Outcome{Strategy: StrategyNone, Score: 0, CandidatesConsidered: considered}, nil
}

// commit writes the winning element's hash and fresh descriptor back into
// the tracked reference, amortizing future geometry searches.
func (e *Engine) commit(ref registry.TrackedReference, out Outcome, counter *counterField) (Outcome, error) {
	desc, err := descriptor.Extract(out.Matched)
	if err != nil {
		// The element matched but its descriptor is no longer computable.
		// Keep the cached descriptor; the hash update alone is still worth
		// committing.
		desc = ref.Descriptor
		if e.opts.Logger != nil {
			e.opts.Logger.Warn("descriptor refresh failed on match",
				"id", string(ref.ID),
				"error", err,
			)
		}
	}

	if err := e.reg.CommitResolution(ref.ID, out.Matched.StructuralHash(), desc); err != nil {
		return Outcome{}, err
	}
	counter.Add(1)
	if e.opts.Logger != nil {
		e.opts.Logger.Debug("resolution succeeded",
			"id", string(ref.ID),
			"strategy", out.Strategy.String(),
			"score", out.Score,
			"candidates", out.CandidatesConsidered,
		)
	}
	return out, nil
}

// resolveHistory replays kernel provenance recorded after the reference's
// creation, propagating a candidate hash set forward, then scans the result
// set for an element carrying one of the surviving hashes.
//
// The strategy abstains when no ledger entry carried provenance: a trivial
// walk would only duplicate the hash strategy under a stronger label.
func (e *Engine) resolveHistory(ctx context.Context, ref registry.TrackedReference, rs brep.ResultSet, considered *int) (Outcome, bool, error) {
	if e.led == nil {
		return Outcome{}, false, nil
	}

	candidates := roaring64.New()
	candidates.Add(ref.TrackedHash())

	walked := false
	for _, rec := range e.led.After(ref.OwnerOperation) {
		if rec.Provenance == nil {
			continue
		}
		walked = true

		next := roaring64.New()
		it := candidates.Iterator()
		for it.HasNext() {
			h := it.Next()
			gen := rec.Provenance.GeneratedFrom(h)
			mod := rec.Provenance.ModifiedFrom(h)
			for _, g := range gen {
				next.Add(g)
			}
			for _, m := range mod {
				next.Add(m)
			}
			// An element the operation neither touched nor removed keeps
			// its hash across the step.
			if len(gen) == 0 && len(mod) == 0 && !rec.Provenance.Removed(h) {
				next.Add(h)
			}
		}
		candidates = next
		if candidates.IsEmpty() {
			return Outcome{}, false, nil
		}
	}

	if !walked {
		return Outcome{}, false, nil
	}

	n := 0
	for el := range rs.Elements(ref.Kind) {
		*considered++
		n++
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Outcome{}, false, err
			}
		}
		if candidates.Contains(el.StructuralHash()) {
			return Outcome{
				Matched:              el,
				Strategy:             StrategyHistory,
				Score:                1.0,
				CandidatesConsidered: *considered,
			}, true, nil
		}
	}
	return Outcome{}, false, nil
}

// resolveHash scans for an element of the correct kind whose structural
// hash equals the tracked current or original hash.
//
// If the kernel ever yields more than one element with an equal hash, the
// first in enumeration order wins; the collision is logged and counted but
// not disambiguated further.
func (e *Engine) resolveHash(ctx context.Context, ref registry.TrackedReference, rs brep.ResultSet, considered *int) (Outcome, bool, error) {
	tracked := ref.TrackedHash()
	original := ref.OriginalHash

	var first brep.Element
	matches := 0
	n := 0
	for el := range rs.Elements(ref.Kind) {
		*considered++
		n++
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Outcome{}, false, err
			}
		}
		h := el.StructuralHash()
		if h == tracked || h == original {
			matches++
			if first == nil {
				first = el
			}
		}
	}

	if first == nil {
		return Outcome{}, false, nil
	}
	if matches > 1 {
		e.stats.hashCollisions.Add(1)
		if e.opts.Logger != nil {
			e.opts.Logger.Warn("ambiguous hash collision, first enumerated wins",
				"id", string(ref.ID),
				"hash", first.StructuralHash(),
				"matches", matches,
			)
		}
	}
	return Outcome{
		Matched:              first,
		Strategy:             StrategyHash,
		Score:                1.0,
		CandidatesConsidered: *considered,
	}, true, nil
}

// resolveGeometry scores every kind-matched candidate against the cached
// descriptor and selects the best one, but only if it reaches the per-kind
// minimum score. The fail-safe floor is deliberate.
func (e *Engine) resolveGeometry(ctx context.Context, ref registry.TrackedReference, rs brep.ResultSet, tolerance float64, considered *int) (Outcome, bool, error) {
	weights, ok := e.opts.Weights[ref.Kind]
	if !ok {
		weights = descriptor.DefaultWeights(ref.Kind)
	}
	minScore, ok := e.opts.MinScore[ref.Kind]
	if !ok {
		minScore = descriptor.DefaultMinScore(ref.Kind)
	}

	var (
		els   []brep.Element
		descs []descriptor.Descriptor
	)
	for el := range rs.Elements(ref.Kind) {
		d, err := descriptor.Extract(el)
		if err != nil {
			// Degenerate candidate; it cannot be scored.
			continue
		}
		els = append(els, el)
		descs = append(descs, d)
	}

	bestIdx := -1
	bestScore := 0.0
	n := 0
	score := func(i int) error {
		*considered++
		n++
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		s := descriptor.Similarity(ref.Descriptor, descs[i], tolerance, weights)
		if s > bestScore {
			bestScore = s
			bestIdx = i
		}
		return nil
	}

	if e.opts.Prefilter && len(els) >= prefilterThreshold && tolerance > 0 {
		g := newGrid(tolerance)
		for i, d := range descs {
			g.insert(uint32(i), d.Center)
		}
		it := g.query(ref.Descriptor.Center, tolerance).Iterator()
		for it.HasNext() {
			if err := score(int(it.Next())); err != nil {
				return Outcome{}, false, err
			}
		}
	} else {
		for i := range els {
			if err := score(i); err != nil {
				return Outcome{}, false, err
			}
		}
	}

	if bestIdx < 0 || bestScore < minScore {
		return Outcome{}, false, nil
	}
	return Outcome{
		Matched:              els[bestIdx],
		Strategy:             StrategyGeometry,
		Score:                bestScore,
		CandidatesConsidered: *considered,
	}, true, nil
}
