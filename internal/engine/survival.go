package engine

import (
	"github.com/percy-raskova/babylon-sub002/internal/config"
	"github.com/percy-raskova/babylon-sub002/internal/events"
	"github.com/percy-raskova/babylon-sub002/internal/world"
)

// SurvivalSystem recomputes each active entity's survival calculus: the
// probability of surviving by acquiescence and the probability of
// surviving by revolt. A pure write-back of derived values for the
// downstream systems; no other side effects.
type SurvivalSystem struct{}

// Name implements System.
func (SurvivalSystem) Name() string { return "survival" }

// Step implements System.
func (SurvivalSystem) Step(s *world.State, svc *Services, run *RunState) ([]events.Event, error) {
	for _, e := range s.Entities() {
		if !e.Active {
			continue
		}
		e.PAcquiescence, e.PRevolution = survivalProbabilities(e, svc.Config)
	}
	return nil, nil
}

// survivalProbabilities computes P(S|A) and P(S|R) from current wealth,
// organization, and repression, falling back to configured defaults for
// unset attributes.
func survivalProbabilities(e *world.Entity, cfg *config.Config) (pAcq, pRev float64) {
	subsistence := world.OrDefault(e.SubsistenceThreshold, cfg.Defaults.SubsistenceThreshold)
	org := world.OrDefault(e.Organization, cfg.Defaults.Organization)
	rep := world.OrDefault(e.RepressionFaced, cfg.Defaults.RepressionFaced)

	pAcq = sigmoid(cfg.Survival.SigmoidSteepness * (e.Wealth - subsistence))
	pRev = revoltProbability(org, rep)
	return pAcq, pRev
}
