package topogo

import (
	"github.com/brepkit/topogo/blobstore"
	"github.com/brepkit/topogo/brep"
	"github.com/brepkit/topogo/codec"
	"github.com/brepkit/topogo/descriptor"
	"github.com/brepkit/topogo/persistence"
	"github.com/brepkit/topogo/resource"
)

// SessionBuilder provides a fluent interface for constructing a Session.
// Each method returns a new builder value, so partially configured builders
// can be shared and branched safely.
type SessionBuilder struct {
	optFns []Option
	err    error
}

// NewSession starts building a session with default options.
func NewSession() SessionBuilder {
	return SessionBuilder{}
}

func (b SessionBuilder) with(fn Option) SessionBuilder {
	out := b
	out.optFns = append(append([]Option(nil), b.optFns...), fn)
	return out
}

// Tolerance sets the default matching tolerance in model units.
func (b SessionBuilder) Tolerance(tolerance float64) SessionBuilder {
	return b.with(WithTolerance(tolerance))
}

// Weights overrides the similarity weights for one element kind.
func (b SessionBuilder) Weights(kind brep.Kind, w descriptor.Weights) SessionBuilder {
	return b.with(WithWeights(kind, w))
}

// MinScore overrides the minimum similarity score for one element kind.
func (b SessionBuilder) MinScore(kind brep.Kind, score float64) SessionBuilder {
	return b.with(WithMinScore(kind, score))
}

// Prefilter enables the spatial grid pre-filter for geometry scans.
func (b SessionBuilder) Prefilter() SessionBuilder {
	return b.with(WithSpatialPrefilter())
}

// MaxParallelResolve bounds ResolveAll's concurrency.
func (b SessionBuilder) MaxParallelResolve(n int) SessionBuilder {
	return b.with(WithMaxParallelResolve(n))
}

// Logger sets the session logger.
func (b SessionBuilder) Logger(logger *Logger) SessionBuilder {
	return b.with(WithLogger(logger))
}

// Metrics sets the metrics collector.
func (b SessionBuilder) Metrics(metrics MetricsCollector) SessionBuilder {
	return b.with(WithMetricsCollector(metrics))
}

// Codec sets the snapshot payload codec.
func (b SessionBuilder) Codec(c codec.Codec) SessionBuilder {
	return b.with(WithCodec(c))
}

// Compression sets the snapshot payload compression.
func (b SessionBuilder) Compression(c persistence.Compression) SessionBuilder {
	return b.with(WithCompression(c))
}

// SnapshotStore enables snapshot persistence on the given store.
func (b SessionBuilder) SnapshotStore(store blobstore.Store) SessionBuilder {
	return b.with(WithSnapshotStore(store))
}

// SnapshotName sets the blob name for registry snapshots.
func (b SessionBuilder) SnapshotName(name string) SessionBuilder {
	return b.with(WithSnapshotName(name))
}

// MemorySnapshots enables snapshot persistence on an in-memory store,
// useful for tests and ephemeral documents.
func (b SessionBuilder) MemorySnapshots() SessionBuilder {
	return b.with(WithSnapshotStore(blobstore.NewMemoryStore()))
}

// LocalSnapshots enables snapshot persistence under the given directory.
func (b SessionBuilder) LocalSnapshots(dir string) SessionBuilder {
	store, err := blobstore.NewLocalStore(dir)
	if err != nil {
		out := b
		out.err = err
		return out
	}
	return b.with(WithSnapshotStore(store))
}

// ResourceLimits bounds snapshot concurrency and IO throughput.
func (b SessionBuilder) ResourceLimits(cfg resource.Config) SessionBuilder {
	return b.with(WithResourceController(resource.NewController(cfg)))
}

// Config applies a parsed Config.
func (b SessionBuilder) Config(cfg Config) SessionBuilder {
	return b.with(WithConfig(cfg))
}

// ConfigFile loads and applies a YAML config file.
func (b SessionBuilder) ConfigFile(path string) SessionBuilder {
	cfg, err := LoadConfig(path)
	if err != nil {
		out := b
		out.err = err
		return out
	}
	return b.with(WithConfig(cfg))
}

// Build constructs the session.
func (b SessionBuilder) Build() (*Session, error) {
	if b.err != nil {
		return nil, b.err
	}
	return New(b.optFns...)
}
