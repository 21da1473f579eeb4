package world

// Economy is the global side-channel: the finite imperial rent pool and the
// two policy-adjusted rates. It is not a node in the graph.
type Economy struct {
	RentPool        float64 // clamps at 0, never negative
	InitialRentPool float64 // fixed at scenario build; denominator for PoolRatio
	SuperWageRate   float64 // annualized, bounded by the wage config
	RepressionLevel float64 // bounded by the policy config
}

// PoolRatio returns the pool's remaining share of its initial size.
func (e *Economy) PoolRatio() float64 {
	if e.InitialRentPool <= 0 {
		return 0
	}
	return e.RentPool / e.InitialRentPool
}
