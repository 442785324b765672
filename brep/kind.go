package brep

import "fmt"

// Kind identifies the topological element class.
type Kind uint8

const (
	// KindFace is a bounded surface region.
	KindFace Kind = iota
	// KindEdge is a bounded curve segment.
	KindEdge
	// KindVertex is a point element.
	KindVertex
	// KindWire is a connected sequence of edges.
	KindWire
	// KindShell is a connected set of faces.
	KindShell
	// KindSolid is a closed volume.
	KindSolid
)

// kindNames is indexed by Kind and doubles as the persisted enum spelling.
var kindNames = [...]string{"Face", "Edge", "Vertex", "Wire", "Shell", "Solid"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Unknown(%d)", uint8(k))
}

// Valid reports whether k is one of the six defined kinds.
func (k Kind) Valid() bool {
	return int(k) < len(kindNames)
}

// KindFromString parses the persisted enum spelling produced by Kind.String.
func KindFromString(s string) (Kind, bool) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), true
		}
	}
	return 0, false
}

// Kinds returns all defined kinds in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}
