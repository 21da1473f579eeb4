package world

// Ideology carries the three scalar axes of a class entity's political
// disposition. Consciousness and identity stay in [0,1]; agitation only
// accumulates and has no upper bound.
type Ideology struct {
	ClassConsciousness float64
	NationalIdentity   float64
	Agitation          float64
}

// Entity is a class-position node in the world graph. Optional attributes
// are pointers; a nil value means "use the configured default" and is
// preserved as absent through snapshot round-trips.
type Entity struct {
	ID         string
	Role       Role
	Wealth     float64 // may go transiently negative within a tick
	Population int
	Active     bool // false = permanently dead, skipped by every system

	// Consumption-need components. Needs act as a survival floor, not a
	// per-tick debit.
	SBio   float64
	SClass float64

	Organization         *float64
	RepressionFaced      *float64
	SubsistenceThreshold *float64

	Ideology Ideology

	// Derived each tick by the survival pass.
	PAcquiescence float64
	PRevolution   float64
}

// ConsumptionNeeds returns the wealth floor below which the entity dies.
func (e *Entity) ConsumptionNeeds() float64 {
	return e.SBio + e.SClass
}

// OrDefault resolves an optional attribute against its configured default.
func OrDefault[T any](p *T, def T) T {
	if p != nil {
		return *p
	}
	return def
}

// Ptr wraps a value for optional attribute fields.
func Ptr[T any](v T) *T {
	return &v
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 bounds v to the unit interval.
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}
