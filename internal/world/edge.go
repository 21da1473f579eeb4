package world

// TensionState tracks whether an Exploitation edge can still accumulate
// tension. Once resolved, by rupture or synthesis, the edge is frozen.
type TensionState uint8

const (
	TensionActive TensionState = iota
	TensionResolved
)

func (s TensionState) String() string {
	if s == TensionResolved {
		return "resolved"
	}
	return "active"
}

// EdgeKey uniquely identifies an edge. Multiple edges between the same pair
// are legal as long as their types differ.
type EdgeKey struct {
	Source string
	Target string
	Type   EdgeType
}

// Edge is a directed relationship in the world graph. ValueFlow records what
// moved along the edge this tick and is overwritten, never accumulated.
type Edge struct {
	Source string
	Target string
	Type   EdgeType

	ValueFlow float64

	// Exploitation only.
	Tension      float64
	TensionState TensionState

	// Solidarity only.
	SolidarityStrength float64

	// ClientState only; nil means the configured default cap applies.
	SubsidyCap *float64
}

// Key returns the edge's identity triple.
func (e *Edge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target, Type: e.Type}
}

// Resolved reports whether the edge's tension has been frozen.
func (e *Edge) Resolved() bool {
	return e.TensionState == TensionResolved
}
