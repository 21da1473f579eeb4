package engine

import (
	"fmt"
	"math"

	"github.com/percy-raskova/babylon-sub002/internal/events"
	"github.com/percy-raskova/babylon-sub002/internal/world"
)

// ContradictionSystem accumulates tension on every unresolved
// Exploitation edge from the normalized wealth gap between exploited and
// exploiter. Tension is bounded to [0,1]: saturating at 1.0 is a
// rupture, draining to 0.0 from a positive value is a synthesis. Either
// way the edge resolves and never updates again.
type ContradictionSystem struct{}

// Name implements System.
func (ContradictionSystem) Name() string { return "contradiction" }

// Step implements System.
func (ContradictionSystem) Step(s *world.State, svc *Services, run *RunState) ([]events.Event, error) {
	rate := svc.Config.Contradiction.AccumulationRate

	var evs []events.Event
	for _, edge := range s.EdgesOfType(world.EdgeExploitation) {
		if edge.Resolved() {
			continue
		}
		src := s.Entity(edge.Source)
		dst := s.Entity(edge.Target)
		if !src.Active || !dst.Active {
			continue
		}

		prev := edge.Tension
		edge.Tension = world.Clamp01(prev + rate*normalizedWealthGap(src.Wealth, dst.Wealth))

		switch {
		case edge.Tension >= 1:
			edge.TensionState = world.TensionResolved
			evs = append(evs, events.Event{
				Tick: s.Tick,
				Kind: events.KindRupture,
				Message: fmt.Sprintf("rupture: the contradiction between %s and %s explodes",
					edge.Source, edge.Target),
				Payload: events.RupturePayload{
					SourceID:      edge.Source,
					TargetID:      edge.Target,
					NarrativeHint: "tension breaks into open conflict",
				},
			})
		case edge.Tension <= 0 && prev > 0:
			edge.TensionState = world.TensionResolved
			evs = append(evs, events.Event{
				Tick: s.Tick,
				Kind: events.KindSynthesis,
				Message: fmt.Sprintf("synthesis: the contradiction between %s and %s dissolves",
					edge.Source, edge.Target),
				Payload: events.SynthesisPayload{
					SourceID:      edge.Source,
					TargetID:      edge.Target,
					NarrativeHint: "the antagonism resolves without rupture",
				},
			})
		}
	}
	return evs, nil
}

// normalizedWealthGap is (exploiter − exploited) / (|exploiter| + |exploited|),
// signed, in [−1,1]. Tension rises while the exploiter stays ahead and falls
// if the exploited pull ahead. Zero when neither side holds anything.
func normalizedWealthGap(exploited, exploiter float64) float64 {
	denom := math.Abs(exploited) + math.Abs(exploiter)
	if denom == 0 {
		return 0
	}
	return (exploiter - exploited) / denom
}
