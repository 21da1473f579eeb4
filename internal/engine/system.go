package engine

import (
	"math"

	"github.com/percy-raskova/babylon-sub002/internal/events"
	"github.com/percy-raskova/babylon-sub002/internal/world"
)

// System is one stateless stage of the tick pipeline. Step mutates the
// world in place and returns the events it raised; an error aborts the
// tick and surfaces a scenario-construction bug, never a runtime
// condition to tolerate.
type System interface {
	Name() string
	Step(s *world.State, svc *Services, run *RunState) ([]events.Event, error)
}

// perTick converts an annualized rate to its per-tick share. Every
// annual constant in the configuration goes through this ratio.
func perTick(annual, weeksPerYear float64) float64 {
	if weeksPerYear <= 0 {
		return 0
	}
	return annual / weeksPerYear
}

// sigmoid is the logistic curve used for acquiescence probabilities.
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// revoltProbability is min(organization/repression, 1). Zero repression
// with any organization at all means nothing holds the lid down.
func revoltProbability(organization, repression float64) float64 {
	if repression <= 0 {
		if organization > 0 {
			return 1
		}
		return 0
	}
	return math.Min(organization/repression, 1)
}
