package registry

import (
	"fmt"

	"github.com/brepkit/topogo/brep"
	"github.com/brepkit/topogo/descriptor"
)

// Record is the flat, self-describing wire form of a TrackedReference.
//
// Absent optional fields serialize as explicit nulls, not omitted keys, so
// import can distinguish "never computed" from "computed and empty".
type Record struct {
	ID             string           `json:"id"`
	Kind           string           `json:"kind"`
	OriginalHash   uint64           `json:"original_hash"`
	CurrentHash    *uint64          `json:"current_hash"`
	ProvenancePath []string         `json:"provenance_path"`
	Descriptor     DescriptorRecord `json:"descriptor"`
	OwnerOperation string           `json:"owner_operation"`
	LastResolved   bool             `json:"last_resolved"`
}

// DescriptorRecord inlines the descriptor sub-fields of a Record.
type DescriptorRecord struct {
	Center      [3]float64  `json:"center"`
	Direction   *[3]float64 `json:"direction"`
	Extent      float64     `json:"extent"`
	PrimaryType string      `json:"primary_type"`
}

// Export snapshots all tracked references in creation order.
func (r *Registry) Export() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.order))
	for _, id := range r.order {
		ref := r.refs[id]
		out = append(out, toRecord(ref))
	}
	return out
}

// Import replaces the registry contents with the given records.
//
// Partially missing optional descriptor fields are accepted and rebuilt as
// defaults (direction null, extent 0) rather than rejected. A record with
// an empty id or an unknown kind fails the whole import; nothing is
// replaced on error.
func (r *Registry) Import(records []Record) error {
	refs := make(map[ID]*TrackedReference, len(records))
	order := make([]ID, 0, len(records))

	for i, rec := range records {
		ref, err := fromRecord(rec)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if _, dup := refs[ref.ID]; dup {
			return fmt.Errorf("record %d: duplicate id %s", i, ref.ID)
		}
		refs[ref.ID] = ref
		order = append(order, ref.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs = refs
	r.order = order
	return nil
}

func toRecord(ref *TrackedReference) Record {
	rec := Record{
		ID:             string(ref.ID),
		Kind:           ref.Kind.String(),
		OriginalHash:   ref.OriginalHash,
		ProvenancePath: append([]string{}, ref.ProvenancePath...),
		OwnerOperation: ref.OwnerOperation,
		LastResolved:   ref.LastResolved,
		Descriptor: DescriptorRecord{
			Center:      ref.Descriptor.Center,
			Extent:      ref.Descriptor.Extent,
			PrimaryType: ref.Descriptor.PrimaryType,
		},
	}
	if ref.CurrentHash != nil {
		h := *ref.CurrentHash
		rec.CurrentHash = &h
	}
	if ref.Descriptor.Direction != nil {
		dir := [3]float64(*ref.Descriptor.Direction)
		rec.Descriptor.Direction = &dir
	}
	return rec
}

func fromRecord(rec Record) (*TrackedReference, error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("empty id")
	}
	kind, ok := brep.KindFromString(rec.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", rec.Kind)
	}

	ref := &TrackedReference{
		ID:             ID(rec.ID),
		Kind:           kind,
		OriginalHash:   rec.OriginalHash,
		ProvenancePath: append([]string{}, rec.ProvenancePath...),
		OwnerOperation: rec.OwnerOperation,
		LastResolved:   rec.LastResolved,
		Descriptor: descriptor.Descriptor{
			Center:      brep.Vec3(rec.Descriptor.Center),
			Extent:      rec.Descriptor.Extent,
			PrimaryType: rec.Descriptor.PrimaryType,
		},
	}
	if rec.CurrentHash != nil {
		h := *rec.CurrentHash
		ref.CurrentHash = &h
	}
	if rec.Descriptor.Direction != nil {
		dir := brep.Vec3(*rec.Descriptor.Direction)
		ref.Descriptor.Direction = &dir
	}
	return ref, nil
}
