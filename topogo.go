package topogo

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brepkit/topogo/brep"
	"github.com/brepkit/topogo/ledger"
	"github.com/brepkit/topogo/persistence"
	"github.com/brepkit/topogo/registry"
	"github.com/brepkit/topogo/resolve"
)

// Session ties one registry, ledger and resolution engine together for the
// lifetime of an open document. Construct it on document open, pass it to
// consumers explicitly, close it on document close.
//
// Safe for concurrent use.
type Session struct {
	opts   Options
	reg    *registry.Registry
	led    *ledger.Ledger
	engine *resolve.Engine
	pm     *persistence.Manager

	mu     sync.RWMutex
	closed bool
}

// New creates a session with the given options.
func New(optFns ...Option) (*Session, error) {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	reg := registry.New()
	led := ledger.New(reg)
	engine := resolve.NewEngine(reg, led, func(o *resolve.Options) {
		o.Weights = opts.Weights
		o.MinScore = opts.MinScore
		o.Prefilter = opts.Prefilter
		o.Logger = opts.Logger.Logger
	})

	s := &Session{
		opts:   opts,
		reg:    reg,
		led:    led,
		engine: engine,
	}

	if opts.Store != nil {
		pm, err := persistence.NewManager(persistence.ManagerOptions{
			Store:        opts.Store,
			SnapshotName: opts.SnapshotName,
			Codec:        opts.Codec,
			Compression:  opts.Compression,
			Controller:   opts.Controller,
		})
		if err != nil {
			return nil, err
		}
		s.pm = pm
	}
	return s, nil
}

// Track mints a persistent id for a kernel element the user just selected.
// ownerOperation is the feature-tree name of the operation that created the
// element ("Pocket001").
func (s *Session) Track(ctx context.Context, el brep.Element, ownerOperation string) (registry.ID, error) {
	if err := s.guard(); err != nil {
		return "", err
	}

	start := time.Now()
	id, err := s.reg.Create(el, ownerOperation)
	err = translateError(err)

	s.opts.Metrics.RecordTrack(time.Since(start), err)
	kind := ""
	if el != nil {
		kind = el.Kind().String()
	}
	s.opts.Logger.LogTrack(ctx, id, kind, ownerOperation, err)
	return id, err
}

// RecordOperation appends one modeling operation to the ledger and extends
// the provenance path of the affected references. prov may be nil when the
// kernel exposes no history object for this operation kind.
func (s *Session) RecordOperation(name string, kind ledger.Kind, prov brep.Provenance, affected ...registry.ID) error {
	if err := s.guard(); err != nil {
		return err
	}
	s.led.Record(name, kind, prov, affected...)
	s.opts.Logger.LogOperation(context.Background(), name, string(kind), len(affected))
	return nil
}

// Resolve re-binds one tracked reference against a frozen post-rebuild
// result set, using the session's default tolerance.
//
// A cascade that finds no legitimate candidate is not an error: the outcome
// carries resolve.StrategyNone and the reference is marked unresolved.
func (s *Session) Resolve(ctx context.Context, id registry.ID, rs brep.ResultSet) (resolve.Outcome, error) {
	return s.ResolveWithTolerance(ctx, id, rs, s.opts.Tolerance)
}

// ResolveWithTolerance is Resolve with an explicit tolerance, for callers
// that scale it to the local model size.
func (s *Session) ResolveWithTolerance(ctx context.Context, id registry.ID, rs brep.ResultSet, tolerance float64) (resolve.Outcome, error) {
	if err := s.guard(); err != nil {
		return resolve.Outcome{}, err
	}

	start := time.Now()
	out, err := s.engine.Resolve(ctx, id, rs, tolerance)
	err = translateError(err)

	s.opts.Metrics.RecordResolve(out.Strategy, time.Since(start), err)
	s.opts.Logger.LogResolve(ctx, id, out, err)
	return out, err
}

// ResolveAll re-binds every tracked reference against the result set,
// fanning out up to MaxParallelResolve workers. Each reference commits or
// marks-unresolved independently; the first hard error cancels the rest and
// is returned, alongside the outcomes gathered so far.
func (s *Session) ResolveAll(ctx context.Context, rs brep.ResultSet) (map[registry.ID]resolve.Outcome, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	ids := s.reg.IDs()
	outcomes := make(map[registry.ID]resolve.Outcome, len(ids))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxParallelResolve)

	for _, id := range ids {
		g.Go(func() error {
			out, err := s.ResolveWithTolerance(gctx, id, rs, s.opts.Tolerance)
			if err != nil {
				return err
			}
			mu.Lock()
			outcomes[id] = out
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	return outcomes, err
}

// Save writes the current registry as one snapshot blob.
// Fails with ErrNoSnapshotStore when the session has no store configured.
func (s *Session) Save(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}
	if s.pm == nil {
		return ErrNoSnapshotStore
	}

	start := time.Now()
	records := s.reg.Export()
	err := s.pm.Save(ctx, records)

	s.opts.Metrics.RecordSnapshotSave(time.Since(start), err)
	s.opts.Logger.LogSnapshotSave(ctx, s.pm.SnapshotName(), len(records), err)
	return err
}

// Load replaces the registry contents with the latest snapshot.
// The import is all-or-nothing: on any decode or validation error the
// in-memory registry is left untouched.
func (s *Session) Load(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}
	if s.pm == nil {
		return ErrNoSnapshotStore
	}

	start := time.Now()
	records, err := s.pm.Load(ctx)
	if err == nil {
		err = s.reg.Import(records)
	}

	s.opts.Metrics.RecordSnapshotLoad(time.Since(start), err)
	s.opts.Logger.LogSnapshotLoad(ctx, s.pm.SnapshotName(), len(records), err)
	return err
}

// Stats returns the engine's resolution counters.
func (s *Session) Stats() resolve.Stats {
	return s.engine.Stats()
}

// Registry exposes the session's identity registry.
func (s *Session) Registry() *registry.Registry { return s.reg }

// Ledger exposes the session's operation log.
func (s *Session) Ledger() *ledger.Ledger { return s.led }

// Clear drops all tracked references and ledger entries, keeping the
// session usable. Equivalent to starting over with an empty document.
func (s *Session) Clear() error {
	if err := s.guard(); err != nil {
		return err
	}
	s.reg.Clear()
	s.led.Clear()
	return nil
}

// Close releases the session. Tracked state is discarded with the document;
// call Save first to persist it. Further calls fail with ErrSessionClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.reg.Clear()
	s.led.Clear()
	if s.pm != nil {
		return s.pm.Close()
	}
	return nil
}

func (s *Session) guard() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}
