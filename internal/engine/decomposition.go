package engine

import (
	"fmt"
	"math"

	"github.com/percy-raskova/babylon-sub002/internal/events"
	"github.com/percy-raskova/babylon-sub002/internal/world"
)

// DecompositionSystem performs the one-shot class split. Once a
// superwage crisis is armed, the split fires after the configured delay,
// or immediately if the labor aristocracy has already fallen below
// subsistence. The source deactivates; its population and wealth divide
// between two pre-existing dormant shells, the enforcer corps and the
// internal proletariat. The persisted run flag makes a second firing
// structurally impossible.
type DecompositionSystem struct{}

// Name implements System.
func (DecompositionSystem) Name() string { return "decomposition" }

// Step implements System.
func (sys DecompositionSystem) Step(s *world.State, svc *Services, run *RunState) ([]events.Event, error) {
	if run.DecompositionDone || run.SuperwageCrisisSince == nil {
		return nil, nil
	}
	cfg := svc.Config

	source := firstActive(s.ByRole(world.RoleLaborAristocracy))
	if source == nil {
		return nil, nil
	}

	subsistence := world.OrDefault(source.SubsistenceThreshold, cfg.Defaults.SubsistenceThreshold)
	delayMet := s.Tick-*run.SuperwageCrisisSince >= cfg.Decomposition.CrisisDelayTicks
	insolvent := source.Wealth < subsistence
	if !delayMet && !insolvent {
		return nil, nil
	}
	trigger := "crisis_delay"
	if !delayMet {
		trigger = "insolvency"
	}

	enforcer := firstDormant(s.ByRole(world.RoleCarceralEnforcer))
	internal := firstDormant(s.ByRole(world.RoleInternalProletariat))
	if enforcer == nil || internal == nil {
		return nil, fmt.Errorf("decomposition of %s: scenario provides no dormant enforcer/internal-proletariat shells", source.ID)
	}

	enforcerPop := int(math.Round(float64(source.Population) * cfg.Decomposition.EnforcerFraction))
	internalPop := source.Population - enforcerPop
	enforcerWealth := source.Wealth * cfg.Decomposition.EnforcerFraction
	internalWealth := source.Wealth - enforcerWealth

	enforcer.Population, enforcer.Wealth, enforcer.Active = enforcerPop, enforcerWealth, true
	internal.Population, internal.Wealth, internal.Active = internalPop, internalWealth, true
	source.Population, source.Wealth, source.Active = 0, 0, false

	run.DecompositionDone = true
	svc.Log.Info("class decomposition",
		"tick", s.Tick,
		"source", source.ID,
		"trigger", trigger,
		"enforcers", enforcerPop,
		"internal", internalPop)

	return []events.Event{{
		Tick: s.Tick,
		Kind: events.KindClassDecomposition,
		Message: fmt.Sprintf("%s decomposes: %d become %s, %d become %s (%s)",
			source.ID, enforcerPop, enforcer.ID, internalPop, internal.ID, trigger),
		Payload: events.DecompositionPayload{
			AristocracyID:      source.ID,
			EnforcerID:         enforcer.ID,
			InternalID:         internal.ID,
			EnforcerPopulation: enforcerPop,
			InternalPopulation: internalPop,
			EnforcerWealth:     enforcerWealth,
			InternalWealth:     internalWealth,
			TriggeredBy:        trigger,
			NarrativeHint:      "the aristocracy of labor splits into jailer and jailed",
		},
	}}, nil
}

func firstActive(list []*world.Entity) *world.Entity {
	for _, e := range list {
		if e.Active {
			return e
		}
	}
	return nil
}

func firstDormant(list []*world.Entity) *world.Entity {
	for _, e := range list {
		if !e.Active {
			return e
		}
	}
	return nil
}
