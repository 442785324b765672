// Package brep defines the contract between topogo and a boundary
// representation kernel.
//
// Topogo never performs solid modeling itself. The kernel is consumed
// through three narrow interfaces:
//
//   - Element: a single topological element (face, edge, ...) exposing a
//     session-stable structural hash and derivable geometric attributes.
//   - ResultSet: the frozen element enumeration produced by one rebuild.
//   - Provenance: per-operation generated/modified/removed queries keyed by
//     prior structural hash, consumed by the history resolution strategy.
//
// Structural hashes are only stable within one kernel session. They must
// never be persisted as identity; that is what tracked references exist for.
package brep
