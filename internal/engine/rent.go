package engine

import (
	"fmt"
	"math"

	"github.com/percy-raskova/babylon-sub002/internal/config"
	"github.com/percy-raskova/babylon-sub002/internal/events"
	"github.com/percy-raskova/babylon-sub002/internal/world"
)

// ImperialRentSystem runs the four-stage economic circuit: extraction up
// from the periphery, tribute up to the core, super-wages back down to
// the labor aristocracy, and a conditional stabilization subsidy to
// client states, all settled against the finite rent pool. A policy
// switch then adjusts the wage and repression posture from the pool
// ratio and the aggregate exploitation tension.
type ImperialRentSystem struct{}

// Name implements System.
func (ImperialRentSystem) Name() string { return "imperial_rent" }

// Step implements System.
func (sys ImperialRentSystem) Step(s *world.State, svc *Services, run *RunState) ([]events.Event, error) {
	cfg := svc.Config

	sys.extractPhase(s, cfg)
	tribute := sys.tributePhase(s, cfg)
	wages := sys.wagesPhase(s, cfg, tribute)
	subsidy, evs := sys.subsidyPhase(s, cfg, tribute)

	// Settle the pool. Tribute flows in, wages and subsidies flow out;
	// the pool never goes negative.
	s.Economy.RentPool = math.Max(0, s.Economy.RentPool+tribute-wages-subsidy)

	evs = append(evs, sys.policyPhase(s, cfg, run)...)
	return evs, nil
}

// extractPhase moves rent from each exploited source to its exploiter.
// Class consciousness shields a matching share of the flow.
func (ImperialRentSystem) extractPhase(s *world.State, cfg *config.Config) {
	rate := perTick(cfg.Extraction.AnnualEfficiency, cfg.Simulation.WeeksPerYear)
	for _, edge := range s.EdgesOfType(world.EdgeExploitation) {
		src := s.Entity(edge.Source)
		dst := s.Entity(edge.Target)
		if !src.Active || !dst.Active {
			edge.ValueFlow = 0
			continue
		}

		rent := rate * src.Wealth * (1 - src.Ideology.ClassConsciousness)
		if rent < 0 {
			// Wealth may transiently be negative; extraction never refunds.
			rent = 0
		}
		src.Wealth -= rent
		dst.Wealth += rent
		edge.ValueFlow = rent
	}
}

// tributePhase forwards each comprador's post-extraction wealth minus its
// cut. The tribute lands in the rent pool at settlement, not in the
// target's standing wealth.
func (ImperialRentSystem) tributePhase(s *world.State, cfg *config.Config) float64 {
	var total float64
	for _, edge := range s.EdgesOfType(world.EdgeTribute) {
		src := s.Entity(edge.Source)
		dst := s.Entity(edge.Target)
		if !src.Active || !dst.Active || src.Wealth <= 0 {
			edge.ValueFlow = 0
			continue
		}

		tribute := src.Wealth * (1 - cfg.Tribute.CompradorCut)
		src.Wealth -= tribute
		edge.ValueFlow = tribute
		total += tribute
	}
	return total
}

// wagesPhase pays each Wages edge a share of this tick's tribute inflow
// at the current super-wage rate. Wages are financed from the tribute
// flow, not debited from the paying entity's standing wealth.
func (ImperialRentSystem) wagesPhase(s *world.State, cfg *config.Config, tributeInflow float64) float64 {
	rate := perTick(s.Economy.SuperWageRate, cfg.Simulation.WeeksPerYear)
	var total float64
	for _, edge := range s.EdgesOfType(world.EdgeWages) {
		src := s.Entity(edge.Source)
		dst := s.Entity(edge.Target)
		if !src.Active || !dst.Active {
			edge.ValueFlow = 0
			continue
		}

		wage := tributeInflow * rate
		dst.Wealth += wage
		edge.ValueFlow = wage
		total += wage
	}
	return total
}

// subsidyPhase transfers stabilization funds to client states whose
// revolt probability outruns their acquiescence. The subsidy converts
// entirely into the client's repression_faced, never into wealth.
func (ImperialRentSystem) subsidyPhase(s *world.State, cfg *config.Config, tributeInflow float64) (float64, []events.Event) {
	if !cfg.Subsidy.Enabled {
		return 0, nil
	}

	var evs []events.Event
	var granted float64
	for _, edge := range s.EdgesOfType(world.EdgeClientState) {
		src := s.Entity(edge.Source)
		client := s.Entity(edge.Target)
		if !src.Active || !client.Active {
			edge.ValueFlow = 0
			continue
		}

		pAcq, pRev := survivalProbabilities(client, cfg)
		if pRev < cfg.Subsidy.TriggerThreshold*pAcq {
			edge.ValueFlow = 0
			continue
		}

		cap := world.OrDefault(edge.SubsidyCap, cfg.Subsidy.DefaultCap)
		available := s.Economy.RentPool - granted
		amount := math.Min(cfg.Subsidy.ConversionRate*tributeInflow, math.Min(cap, available))
		if amount <= 0 {
			edge.ValueFlow = 0
			continue
		}

		granted += amount
		rep := world.OrDefault(client.RepressionFaced, cfg.Defaults.RepressionFaced)
		after := world.Clamp01(rep + amount*cfg.Subsidy.RepressionPerUnit)
		client.RepressionFaced = world.Ptr(after)
		edge.ValueFlow = amount

		evs = append(evs, events.Event{
			Tick: s.Tick,
			Kind: events.KindImperialSubsidy,
			Message: fmt.Sprintf("imperial subsidy of %.2f shores up %s, repression now %.2f",
				amount, client.ID, after),
			Payload: events.SubsidyPayload{
				ClientID:        client.ID,
				Amount:          amount,
				RepressionAfter: after,
				NarrativeHint:   "the empire props up its client",
			},
		})
	}
	return granted, evs
}

// policyPhase adjusts wage and repression posture from the pool ratio
// and aggregate tension. A POLICY_SHIFT is emitted only when the posture
// actually moves, so saturated rates stop producing events.
func (ImperialRentSystem) policyPhase(s *world.State, cfg *config.Config, run *RunState) []events.Event {
	eco := &s.Economy
	ratio := eco.PoolRatio()
	tension := AggregateTension(s)

	oldWage := eco.SuperWageRate
	oldRep := eco.RepressionLevel

	var evs []events.Event
	var stance, hint string
	switch {
	case ratio < cfg.Pool.CriticalRatio:
		stance = "crisis"
		hint = "the granary of empire runs dry"
		eco.SuperWageRate = cfg.Wages.MinRate
		eco.RepressionLevel = cfg.Policy.RepressionMax
		evs = append(evs, events.Event{
			Tick: s.Tick,
			Kind: events.KindEconomicCrisis,
			Message: fmt.Sprintf("economic crisis: rent pool at %.1f%% of initial, below the %.0f%% floor",
				ratio*100, cfg.Pool.CriticalRatio*100),
			Payload: events.CrisisPayload{
				PoolRatio:     ratio,
				Threshold:     cfg.Pool.CriticalRatio,
				NarrativeHint: hint,
			},
		})
		if run.RaiseSuperwageCrisis(s.Tick, "economic_crisis") {
			evs = append(evs, events.Event{
				Tick:    s.Tick,
				Kind:    events.KindSuperwageCrisis,
				Message: "superwage crisis: the pool can no longer finance the wage flow",
				Payload: events.SuperwageCrisisPayload{
					Reason:        "economic_crisis",
					NarrativeHint: "the bribe that bought the peace runs out",
				},
			})
		}
	case ratio < cfg.Pool.LowRatio && tension > cfg.Policy.IronFistTension:
		stance = "iron_fist"
		hint = "scarcity answered with the truncheon"
		eco.RepressionLevel = world.Clamp(eco.RepressionLevel+cfg.Policy.RepressionStep,
			cfg.Policy.RepressionMin, cfg.Policy.RepressionMax)
	case ratio < cfg.Pool.LowRatio:
		stance = "austerity"
		hint = "the wage packet thins"
		eco.SuperWageRate = world.Clamp(eco.SuperWageRate-cfg.Policy.WageStep,
			cfg.Wages.MinRate, cfg.Wages.MaxRate)
	case ratio >= cfg.Pool.HighRatio && tension < cfg.Policy.BriberyTension:
		stance = "bribery"
		hint = "abundance buys loyalty"
		eco.SuperWageRate = world.Clamp(eco.SuperWageRate+cfg.Policy.WageStep,
			cfg.Wages.MinRate, cfg.Wages.MaxRate)
	default:
		return evs
	}

	wageDelta := eco.SuperWageRate - oldWage
	repDelta := eco.RepressionLevel - oldRep
	if repDelta != 0 {
		propagateRepression(s, eco.RepressionLevel)
	}
	if wageDelta == 0 && repDelta == 0 {
		return evs
	}

	evs = append(evs, events.Event{
		Tick: s.Tick,
		Kind: events.KindPolicyShift,
		Message: fmt.Sprintf("policy shift (%s): wage rate %.2f -> %.2f, repression %.2f -> %.2f",
			stance, oldWage, eco.SuperWageRate, oldRep, eco.RepressionLevel),
		Payload: events.PolicyShiftPayload{
			Stance:           stance,
			WageDelta:        wageDelta,
			RepressionDelta:  repDelta,
			PoolRatio:        ratio,
			AggregateTension: tension,
			NarrativeHint:    hint,
		},
	})
	return evs
}

// propagateRepression writes the ambient repression posture onto every
// active exploited source, once per entity no matter how many edges
// drain it.
func propagateRepression(s *world.State, level float64) {
	seen := make(map[string]bool)
	for _, edge := range s.EdgesOfType(world.EdgeExploitation) {
		if seen[edge.Source] {
			continue
		}
		seen[edge.Source] = true
		src := s.Entity(edge.Source)
		if !src.Active {
			continue
		}
		src.RepressionFaced = world.Ptr(world.Clamp01(level))
	}
}
