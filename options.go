package topogo

import (
	"github.com/brepkit/topogo/blobstore"
	"github.com/brepkit/topogo/brep"
	"github.com/brepkit/topogo/codec"
	"github.com/brepkit/topogo/descriptor"
	"github.com/brepkit/topogo/persistence"
	"github.com/brepkit/topogo/resource"
)

// Options holds the configurable parameters of a Session.
type Options struct {
	// Logger for session diagnostics. Defaults to a no-op logger.
	Logger *Logger

	// Metrics receives operational metrics. Defaults to NoopMetricsCollector.
	Metrics MetricsCollector

	// Tolerance is the default center-distance scale for similarity scoring,
	// in model units. Resolve uses it unless ResolveWithTolerance overrides.
	Tolerance float64

	// Weights is the per-kind similarity weight table. Kinds absent from the
	// map use descriptor.DefaultWeights.
	Weights map[brep.Kind]descriptor.Weights

	// MinScore is the per-kind minimum similarity a geometry match must
	// reach. Kinds absent from the map use descriptor.DefaultMinScore.
	MinScore map[brep.Kind]float64

	// Prefilter enables the spatial grid pre-filter for geometry scans.
	Prefilter bool

	// MaxParallelResolve bounds the goroutines ResolveAll fans out to.
	// Defaults to 1 (sequential).
	MaxParallelResolve int

	// Store, when set, enables Save/Load of registry snapshots.
	Store blobstore.Store

	// SnapshotName is the blob name for registry snapshots.
	// Defaults to persistence.DefaultSnapshotName.
	SnapshotName string

	// Codec encodes snapshot payloads. Defaults to codec.Default.
	Codec codec.Codec

	// Compression selects the snapshot payload compression.
	Compression persistence.Compression

	// Controller optionally bounds snapshot concurrency and throughput.
	Controller *resource.Controller
}

// DefaultOptions returns the session defaults.
func DefaultOptions() Options {
	return Options{
		Logger:             NoopLogger(),
		Metrics:            NoopMetricsCollector{},
		Tolerance:          1.0,
		Weights:            map[brep.Kind]descriptor.Weights{},
		MinScore:           map[brep.Kind]float64{},
		MaxParallelResolve: 1,
	}
}

// Option configures a Session.
type Option func(*Options)

// WithLogger sets the session logger.
func WithLogger(logger *Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithMetricsCollector sets the metrics collector.
func WithMetricsCollector(metrics MetricsCollector) Option {
	return func(o *Options) {
		if metrics != nil {
			o.Metrics = metrics
		}
	}
}

// WithTolerance sets the default matching tolerance in model units.
func WithTolerance(tolerance float64) Option {
	return func(o *Options) {
		o.Tolerance = tolerance
	}
}

// WithWeights overrides the similarity weights for one element kind.
func WithWeights(kind brep.Kind, w descriptor.Weights) Option {
	return func(o *Options) {
		o.Weights[kind] = w
	}
}

// WithMinScore overrides the minimum similarity score for one element kind.
func WithMinScore(kind brep.Kind, score float64) Option {
	return func(o *Options) {
		o.MinScore[kind] = score
	}
}

// WithSpatialPrefilter enables the grid pre-filter for geometry scans.
// The exact full scan stays the default; the grid is a scaling optimization
// for large result sets.
func WithSpatialPrefilter() Option {
	return func(o *Options) {
		o.Prefilter = true
	}
}

// WithMaxParallelResolve bounds ResolveAll's concurrency. Values below 1
// are treated as 1.
func WithMaxParallelResolve(n int) Option {
	return func(o *Options) {
		if n < 1 {
			n = 1
		}
		o.MaxParallelResolve = n
	}
}

// WithSnapshotStore enables snapshot persistence on the given store.
func WithSnapshotStore(store blobstore.Store) Option {
	return func(o *Options) {
		o.Store = store
	}
}

// WithSnapshotName sets the blob name for registry snapshots.
func WithSnapshotName(name string) Option {
	return func(o *Options) {
		o.SnapshotName = name
	}
}

// WithCodec sets the snapshot payload codec.
func WithCodec(c codec.Codec) Option {
	return func(o *Options) {
		o.Codec = c
	}
}

// WithCompression sets the snapshot payload compression.
func WithCompression(c persistence.Compression) Option {
	return func(o *Options) {
		o.Compression = c
	}
}

// WithResourceController bounds snapshot concurrency and IO throughput.
func WithResourceController(c *resource.Controller) Option {
	return func(o *Options) {
		o.Controller = c
	}
}

// WithConfig applies a parsed Config: tolerance, prefilter flag and the
// per-kind weight and score tables.
func WithConfig(cfg Config) Option {
	return func(o *Options) {
		o.Tolerance = cfg.Tolerance
		o.Prefilter = cfg.Prefilter
		for kind, score := range cfg.minScoreByKind() {
			o.MinScore[kind] = score
		}
		for kind, w := range cfg.weightsByKind() {
			o.Weights[kind] = w
		}
	}
}
