package engine

import (
	"fmt"

	"github.com/percy-raskova/babylon-sub002/internal/config"
	"github.com/percy-raskova/babylon-sub002/internal/events"
	"github.com/percy-raskova/babylon-sub002/internal/world"
)

// ControlRatioSystem watches the carceral balance once decomposition has
// occurred, then hands down the run's terminal decision. Two transitions
// per run, each firing once: the first over-capacity tick raises
// CONTROL_RATIO_CRISIS and records its timestamp; a configured delay
// later the verdict follows from the population-weighted organization of
// the prisoner classes.
type ControlRatioSystem struct{}

// Name implements System.
func (ControlRatioSystem) Name() string { return "control_ratio" }

// Step implements System.
func (sys ControlRatioSystem) Step(s *world.State, svc *Services, run *RunState) ([]events.Event, error) {
	if !run.DecompositionDone || run.TerminalDecided {
		return nil, nil
	}
	cfg := svc.Config

	if run.ControlCrisisAt == nil {
		return sys.checkCrisis(s, cfg, run), nil
	}
	if s.Tick-*run.ControlCrisisAt < cfg.Control.DecisionDelayTicks {
		return nil, nil
	}
	return sys.decide(s, svc, run), nil
}

func (ControlRatioSystem) checkCrisis(s *world.State, cfg *config.Config, run *RunState) []events.Event {
	enforcers := activePopulation(s, world.RoleCarceralEnforcer)
	prisoners := prisonerPopulation(s)
	maxControllable := int(float64(enforcers) * cfg.Control.CapacityPerEnforcer)

	if prisoners <= maxControllable && !(enforcers == 0 && prisoners > 0) {
		return nil
	}

	tick := s.Tick
	run.ControlCrisisAt = &tick

	// Ratio is reported as 0 with zero enforcers: the message carries the
	// real condition and the payload stays JSON-representable.
	var ratio float64
	msg := fmt.Sprintf("control ratio crisis: no enforcers remain for %d prisoners", prisoners)
	if enforcers > 0 {
		ratio = float64(prisoners) / float64(enforcers)
		msg = fmt.Sprintf("control ratio crisis: %d prisoners against capacity %d (ratio %.1f)",
			prisoners, maxControllable, ratio)
	}

	return []events.Event{{
		Tick:    s.Tick,
		Kind:    events.KindControlRatioCrisis,
		Message: msg,
		Payload: events.ControlCrisisPayload{
			Prisoners:       prisoners,
			Enforcers:       enforcers,
			MaxControllable: maxControllable,
			OverCapacity:    prisoners - maxControllable,
			Ratio:           ratio,
			NarrativeHint:   "the prisons outgrow their jailers",
		},
	}}
}

func (ControlRatioSystem) decide(s *world.State, svc *Services, run *RunState) []events.Event {
	cfg := svc.Config
	weightedOrg := prisonerWeightedOrganization(s, cfg)

	outcome, hint := "genocide", "the unorganized surplus is consumed"
	if weightedOrg >= cfg.Control.RevolutionThreshold {
		outcome, hint = "revolution", "the prisoners hold together and break out"
	}

	run.TerminalDecided = true
	run.TerminalOutcome = outcome
	svc.Log.Info("terminal decision",
		"tick", s.Tick,
		"outcome", outcome,
		"weighted_organization", weightedOrg)

	return []events.Event{{
		Tick: s.Tick,
		Kind: events.KindTerminalDecision,
		Message: fmt.Sprintf("terminal decision: %s (weighted organization %.2f, threshold %.2f)",
			outcome, weightedOrg, cfg.Control.RevolutionThreshold),
		Payload: events.TerminalPayload{
			Outcome:              outcome,
			WeightedOrganization: weightedOrg,
			Threshold:            cfg.Control.RevolutionThreshold,
			NarrativeHint:        hint,
		},
	}}
}

// activePopulation sums the population of active entities with the role.
func activePopulation(s *world.State, r world.Role) int {
	var total int
	for _, e := range s.ByRole(r) {
		if e.Active {
			total += e.Population
		}
	}
	return total
}

// prisonerPopulation counts the confined classes: the internal
// proletariat and the lumpenproletariat.
func prisonerPopulation(s *world.State) int {
	return activePopulation(s, world.RoleInternalProletariat) +
		activePopulation(s, world.RoleLumpenproletariat)
}

// prisonerWeightedOrganization is the population-weighted mean
// organization across the prisoner classes.
func prisonerWeightedOrganization(s *world.State, cfg *config.Config) float64 {
	var weighted, pop float64
	for _, r := range []world.Role{world.RoleInternalProletariat, world.RoleLumpenproletariat} {
		for _, e := range s.ByRole(r) {
			if !e.Active || e.Population <= 0 {
				continue
			}
			org := world.OrDefault(e.Organization, cfg.Defaults.Organization)
			weighted += org * float64(e.Population)
			pop += float64(e.Population)
		}
	}
	if pop == 0 {
		return 0
	}
	return weighted / pop
}
