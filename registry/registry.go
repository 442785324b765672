// Package registry owns the mapping from persistent reference ids to their
// last-known kernel hash and geometric descriptor. It is the single source
// of truth for "does this reference exist".
//
// A Registry is scoped to one open document/session: constructed on open,
// discarded on close, and handed to consumers by explicit reference. It is
// never reached through package-level state.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/brepkit/topogo/brep"
	"github.com/brepkit/topogo/descriptor"
)

var (
	// ErrNotFound is returned when an unknown id is passed to Get or a
	// mutation method.
	ErrNotFound = errors.New("reference not found")

	// ErrInvalidElement is returned by Create when the kernel element is
	// nil or degenerate. Creation is all-or-nothing: no half-populated
	// reference is ever stored.
	ErrInvalidElement = descriptor.ErrInvalidElement
)

// ID is an opaque, globally unique token minted once per tracked element.
// It is never reused and never derived from kernel-internal handles.
type ID string

// NewID mints a fresh reference id.
func NewID() ID {
	return ID(uuid.NewString())
}

// TrackedReference is the persisted unit of identity tracking.
//
// Descriptor is populated at creation time and overwritten on every
// successful resolution; it acts as a cache for future geometry matches and
// tracks geometric drift. CurrentHash starts equal to OriginalHash.
type TrackedReference struct {
	ID             ID
	Kind           brep.Kind
	OriginalHash   uint64
	CurrentHash    *uint64
	ProvenancePath []string
	Descriptor     descriptor.Descriptor
	OwnerOperation string
	LastResolved   bool
}

// Clone returns a deep copy of r.
func (r TrackedReference) Clone() TrackedReference {
	out := r
	if r.CurrentHash != nil {
		h := *r.CurrentHash
		out.CurrentHash = &h
	}
	out.ProvenancePath = append([]string(nil), r.ProvenancePath...)
	out.Descriptor = r.Descriptor.Clone()
	return out
}

// TrackedHash returns the hash resolution should start from: the current
// hash when known, the creation-time hash otherwise.
func (r TrackedReference) TrackedHash() uint64 {
	if r.CurrentHash != nil {
		return *r.CurrentHash
	}
	return r.OriginalHash
}

// Registry is the identity registry. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	refs  map[ID]*TrackedReference
	order []ID
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		refs: make(map[ID]*TrackedReference),
	}
}

// Create mints a fresh id and stores a new tracked reference for el.
//
// The element's descriptor is extracted eagerly and its structural hash is
// recorded as both original and current hash. Fails with ErrInvalidElement
// if el is nil or has no computable center.
func (r *Registry) Create(el brep.Element, ownerOperation string) (ID, error) {
	desc, err := descriptor.Extract(el)
	if err != nil {
		return "", err
	}

	hash := el.StructuralHash()
	current := hash
	ref := &TrackedReference{
		ID:             NewID(),
		Kind:           el.Kind(),
		OriginalHash:   hash,
		CurrentHash:    &current,
		ProvenancePath: []string{},
		Descriptor:     desc,
		OwnerOperation: ownerOperation,
		LastResolved:   true,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs[ref.ID] = ref
	r.order = append(r.order, ref.ID)
	return ref.ID, nil
}

// Get returns a copy of the tracked reference for id.
func (r *Registry) Get(id ID) (TrackedReference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, ok := r.refs[id]
	if !ok {
		return TrackedReference{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return ref.Clone(), nil
}

// Remove deletes the reference for id. Returns false if id is unknown.
func (r *Registry) Remove(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.refs[id]; !ok {
		return false
	}
	delete(r.refs, id)
	for i, other := range r.order {
		if other == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear drops all references. Used on document close/reset.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs = make(map[ID]*TrackedReference)
	r.order = nil
}

// Len returns the number of tracked references.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.refs)
}

// IDs returns all tracked ids in creation order.
func (r *Registry) IDs() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ID(nil), r.order...)
}

// AppendProvenance appends an operation name to the provenance path of each
// given reference. Unknown ids are skipped: an operation may legitimately
// affect references that were removed earlier in the session.
func (r *Registry) AppendProvenance(operation string, ids ...ID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		if ref, ok := r.refs[id]; ok {
			ref.ProvenancePath = append(ref.ProvenancePath, operation)
		}
	}
}

// CommitResolution records a successful resolution: the new current hash and
// the freshly extracted descriptor, with LastResolved set.
func (r *Registry) CommitResolution(id ID, hash uint64, desc descriptor.Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, ok := r.refs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	h := hash
	ref.CurrentHash = &h
	ref.Descriptor = desc.Clone()
	ref.LastResolved = true
	return nil
}

// MarkUnresolved records a failed resolution. The descriptor and hash keep
// their last committed values so a later rebuild can still match.
func (r *Registry) MarkUnresolved(id ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, ok := r.refs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	ref.LastResolved = false
	return nil
}
