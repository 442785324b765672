// Package ledger keeps the append-only sequence of rebuild-time operation
// records. The ledger is the audit trail the history resolution strategy
// replays; entries are never edited or removed once appended.
package ledger

import (
	"sync"

	"github.com/brepkit/topogo/brep"
	"github.com/brepkit/topogo/registry"
)

// Kind classifies a modeling operation.
type Kind string

const (
	KindExtrude    Kind = "extrude"
	KindBoolean    Kind = "boolean"
	KindFillet     Kind = "fillet"
	KindChamfer    Kind = "chamfer"
	KindPattern    Kind = "pattern"
	KindTransform  Kind = "transform"
	KindSketchEdit Kind = "sketch-edit"
	KindOther      Kind = "other"
)

// KindSupportsProvenance documents, per operation kind, whether the kernel
// is expected to expose generated/modified/removed queries for it. Kinds
// absent from the table are treated as unsupported.
//
// Transform and sketch edits renumber elements wholesale without a
// generated-from map; the history strategy cannot follow them and falls
// through to the hash and geometry strategies.
var KindSupportsProvenance = map[Kind]bool{
	KindExtrude: true,
	KindBoolean: true,
	KindFillet:  true,
	KindChamfer: true,
	KindPattern: true,
}

// SupportsProvenance reports whether history-strategy support is expected
// for this operation kind.
func (k Kind) SupportsProvenance() bool {
	return KindSupportsProvenance[k]
}

// Record is one rebuild-time operation entry. Immutable after creation.
type Record struct {
	// Name is the feature-tree name of the operation ("Pocket001").
	Name string

	// Kind classifies the operation.
	Kind Kind

	// Provenance is the kernel-native history object for this operation,
	// or nil when the kernel did not expose one.
	Provenance brep.Provenance

	// Affected lists the tracked references the operation touched.
	Affected []registry.ID
}

// ProvenanceAppender is the single registry capability the ledger needs.
// It is injected at construction rather than discovered at call time.
type ProvenanceAppender interface {
	AppendProvenance(operation string, ids ...registry.ID)
}

// Ledger is the append-only operation log. Safe for concurrent use.
type Ledger struct {
	refs ProvenanceAppender

	mu      sync.RWMutex
	records []Record
}

// New creates an empty ledger that appends operation names to the
// provenance paths of affected references in refs.
func New(refs ProvenanceAppender) *Ledger {
	return &Ledger{refs: refs}
}

// Record appends one operation entry and extends the provenance path of
// every affected reference that is still tracked.
func (l *Ledger) Record(name string, kind Kind, prov brep.Provenance, affected ...registry.ID) {
	rec := Record{
		Name:       name,
		Kind:       kind,
		Provenance: prov,
		Affected:   append([]registry.ID(nil), affected...),
	}

	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()

	if l.refs != nil && len(affected) > 0 {
		l.refs.AppendProvenance(name, affected...)
	}
}

// Len returns the number of recorded operations.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Records returns a copy of all entries in append order.
func (l *Ledger) Records() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Record(nil), l.records...)
}

// After returns the entries recorded after the first occurrence of the
// named operation. When the name is not present (e.g. the registry was
// imported into a fresh session without its ledger) the whole log is
// returned, so a history walk starts from the beginning.
func (l *Ledger) After(name string) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i, rec := range l.records {
		if rec.Name == name {
			return append([]Record(nil), l.records[i+1:]...)
		}
	}
	return append([]Record(nil), l.records...)
}

// Clear drops all entries. Used only on document close/reset together with
// Registry.Clear.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
}
