// Package topogo keeps stable references to topological elements of a
// boundary representation model across parametric rebuilds.
//
// A solid-modeling kernel regenerates its face/edge/vertex handles every
// time the feature history is re-evaluated. Downstream consumers such as a
// fillet or a selection highlight still need to refer to "the same" face.
// Topogo reconstructs that identity with a cascade of
// increasingly approximate strategies and refuses to guess wrong: an
// unmatched reference is always preferable to a silently wrong one.
//
// # Architecture
//
//   - registry.Registry tracks persistent reference ids with their
//     last-known structural hash and geometric descriptor.
//   - ledger.Ledger records every modeling operation, optionally with
//     kernel-native provenance.
//   - resolve.Engine runs the cascade against each rebuild's frozen result
//     set: history replay, then structural-hash lookup, then
//     geometric-similarity search.
//   - persistence.Manager round-trips the registry through self-describing,
//     checksummed snapshots on any blobstore.Store backend.
//
// # Quick start
//
//	sess, err := topogo.NewSession().
//	    Tolerance(10).
//	    MemorySnapshots().
//	    Build()
//	if err != nil {
//	    panic(err)
//	}
//	defer sess.Close()
//
//	// The user picks the hole's lateral face; keep naming it stably.
//	id, err := sess.Track(ctx, holeFace, "Pocket001")
//
//	// A dimension edit triggers a rebuild; the kernel hands out new handles.
//	sess.RecordOperation("Pocket001", ledger.KindExtrude, prov, id)
//	outcome, err := sess.Resolve(ctx, id, rebuiltResultSet)
//	if outcome.Resolved() {
//	    highlight(outcome.Matched)
//	} else {
//	    markBroken(id) // the selection no longer exists; surface it, don't crash
//	}
//
// A Session is scoped to one open document: construct it on open, close it
// on document close, and pass it to consumers explicitly.
package topogo
