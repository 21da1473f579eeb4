package engine

import (
	"fmt"

	"github.com/percy-raskova/babylon-sub002/internal/events"
	"github.com/percy-raskova/babylon-sub002/internal/world"
)

// Pipeline is the fixed, ordered system sequence one tick runs to
// completion. The order is semantic: each stage reads what the previous
// stages wrote this tick.
type Pipeline struct {
	systems []System
}

// NewPipeline returns the canonical pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{systems: []System{
		VitalitySystem{},
		ProductionSystem{},
		ImperialRentSystem{},
		SurvivalSystem{},
		ContradictionSystem{},
		StruggleSystem{},
		DecompositionSystem{},
		ControlRatioSystem{},
	}}
}

// TickSummary condenses one tick for metrics, persistence, and the
// narrative layer.
type TickSummary struct {
	Tick             uint64         `json:"tick"`
	PoolRatio        float64        `json:"pool_ratio"`
	AggregateTension float64        `json:"aggregate_tension"`
	WageDelta        float64        `json:"wage_delta"`
	TotalWealth      float64        `json:"total_wealth"`
	ActiveEntities   int            `json:"active_entities"`
	Decision         string         `json:"decision,omitempty"`
	Events           []events.Event `json:"events,omitempty"`
}

// Tick advances the world one step. The tick counter increments first so
// every event of the step carries the new tick; each system's events are
// appended to the world event log and published on the bus before the
// next system runs. An error from any system aborts the tick.
func (p *Pipeline) Tick(s *world.State, svc *Services, run *RunState) (TickSummary, error) {
	s.Tick++
	wageBefore := s.Economy.SuperWageRate

	var all []events.Event
	for _, sys := range p.systems {
		evs, err := sys.Step(s, svc, run)
		if err != nil {
			return TickSummary{}, fmt.Errorf("system %s at tick %d: %w", sys.Name(), s.Tick, err)
		}
		for _, ev := range evs {
			s.LogEvent(fmt.Sprintf("[T%d] %s", ev.Tick, ev.Message))
			svc.Bus.Publish(ev)
			svc.Log.Debug("event", "tick", ev.Tick, "kind", ev.Kind, "message", ev.Message)
		}
		all = append(all, evs...)
	}

	return TickSummary{
		Tick:             s.Tick,
		PoolRatio:        s.Economy.PoolRatio(),
		AggregateTension: AggregateTension(s),
		WageDelta:        s.Economy.SuperWageRate - wageBefore,
		TotalWealth:      s.TotalWealth(),
		ActiveEntities:   s.ActiveCount(),
		Decision:         run.TerminalOutcome,
		Events:           all,
	}, nil
}

// AggregateTension is the arithmetic mean tension across all
// Exploitation edges, resolved ones included. An edgeless world reads 0.
func AggregateTension(s *world.State) float64 {
	edges := s.EdgesOfType(world.EdgeExploitation)
	if len(edges) == 0 {
		return 0
	}
	var sum float64
	for _, e := range edges {
		sum += e.Tension
	}
	return sum / float64(len(edges))
}
