package engine

import (
	"fmt"

	"github.com/percy-raskova/babylon-sub002/internal/events"
	"github.com/percy-raskova/babylon-sub002/internal/world"
)

// VitalitySystem culls entities whose wealth cannot cover consumption
// needs. Needs are a floor, not a debit: nothing is subtracted, the
// entity simply goes inactive, permanently, and every later system
// skips it.
type VitalitySystem struct{}

// Name implements System.
func (VitalitySystem) Name() string { return "vitality" }

// Step implements System.
func (VitalitySystem) Step(s *world.State, svc *Services, run *RunState) ([]events.Event, error) {
	var evs []events.Event
	for _, e := range s.Entities() {
		if !e.Active {
			continue
		}
		needs := e.ConsumptionNeeds()
		if e.Wealth >= needs {
			continue
		}
		e.Active = false
		evs = append(evs, events.Event{
			Tick: s.Tick,
			Kind: events.KindEntityDied,
			Message: fmt.Sprintf("%s (%s) has died: wealth %.2f cannot cover needs %.2f",
				e.ID, e.Role, e.Wealth, needs),
			Payload: events.DeathPayload{
				EntityID:      e.ID,
				Role:          e.Role.String(),
				Wealth:        e.Wealth,
				Needs:         needs,
				Population:    e.Population,
				NarrativeHint: "a class starves out of the circuit",
			},
		})
	}
	return evs, nil
}
