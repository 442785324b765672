// Package resolve implements the multi-strategy resolution engine that
// re-finds tracked topological elements in a freshly rebuilt kernel result
// set.
//
// The cascade runs history replay, then structural-hash lookup, then
// geometric-similarity search. The first strategy that produces a result
// above its confidence floor wins; later strategies are not attempted. An
// exhausted cascade is a normal outcome, not an error: an unmatched
// reference is always preferable to a silently wrong one.
package resolve

import (
	"fmt"

	"github.com/brepkit/topogo/brep"
)

// Strategy identifies which cascade stage produced a match.
type Strategy uint8

const (
	// StrategyNone means the cascade was exhausted without a match.
	StrategyNone Strategy = iota
	// StrategyHistory replayed kernel provenance through the ledger.
	StrategyHistory
	// StrategyHash matched on the session-stable structural hash.
	StrategyHash
	// StrategyGeometry matched on descriptor similarity.
	StrategyGeometry
)

func (s Strategy) String() string {
	switch s {
	case StrategyNone:
		return "none"
	case StrategyHistory:
		return "history"
	case StrategyHash:
		return "hash"
	case StrategyGeometry:
		return "geometry"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Outcome is the result of one resolution attempt.
type Outcome struct {
	// Matched is the winning kernel element, nil when none.
	Matched brep.Element

	// Strategy is the cascade stage that produced the match.
	Strategy Strategy

	// Score is the confidence in [0, 1]: 1.0 for history and hash matches,
	// the best similarity score for geometry matches, 0 for none.
	Score float64

	// CandidatesConsidered counts the elements examined across all
	// attempted strategies.
	CandidatesConsidered int
}

// Resolved reports whether the cascade produced a match.
func (o Outcome) Resolved() bool {
	return o.Strategy != StrategyNone && o.Matched != nil
}
