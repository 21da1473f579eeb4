package engine

import (
	"fmt"
	"math"

	"github.com/percy-raskova/babylon-sub002/internal/config"
	"github.com/percy-raskova/babylon-sub002/internal/events"
	"github.com/percy-raskova/babylon-sub002/internal/world"
)

// StruggleSystem carries the two bifurcation mechanics. A tick-over-tick
// drop in an entity's incoming wage flow generates agitation, routed
// between class consciousness and national identity by inbound
// solidarity. A comprador falling below subsistence opens a power
// vacuum, resolved toward revolutionary offensive or fascist revanchism
// by the exploited class's organized capacity.
type StruggleSystem struct{}

// Name implements System.
func (StruggleSystem) Name() string { return "struggle" }

// Step implements System.
func (sys StruggleSystem) Step(s *world.State, svc *Services, run *RunState) ([]events.Event, error) {
	cfg := svc.Config
	sys.routeWageCuts(s, cfg, run)
	return sys.resolvePowerVacuums(s, cfg), nil
}

// routeWageCuts compares each wage earner's inflow against the previous
// tick and converts any drop into ideological movement. Strong inbound
// solidarity biases the routing toward class consciousness; weak or
// absent solidarity biases it toward national identity.
func (StruggleSystem) routeWageCuts(s *world.State, cfg *config.Config, run *RunState) {
	current := make(map[string]float64)
	for _, edge := range s.EdgesOfType(world.EdgeWages) {
		if !s.Entity(edge.Target).Active {
			continue
		}
		current[edge.Target] += edge.ValueFlow
	}

	for _, e := range s.Entities() {
		if !e.Active {
			continue
		}
		now, earns := current[e.ID]
		prev, had := run.PrevWages[e.ID]
		if !earns && !had {
			continue
		}

		if drop := prev - now; drop > 0 {
			gain := drop * cfg.Struggle.AgitationPerUnit
			w := routingWeight(s, e.ID, cfg.Struggle.RoutingCurve)
			e.Ideology.ClassConsciousness = world.Clamp01(e.Ideology.ClassConsciousness + w*gain)
			e.Ideology.NationalIdentity = world.Clamp01(e.Ideology.NationalIdentity + (1-w)*gain)
		}

		if earns {
			run.PrevWages[e.ID] = now
		} else {
			delete(run.PrevWages, e.ID)
		}
	}
}

// routingWeight is the strongest active inbound solidarity raised to the
// configured curve, in [0,1]. 1 routes everything to class
// consciousness, 0 routes everything to national identity.
func routingWeight(s *world.State, id string, curve float64) float64 {
	var strongest float64
	for _, edge := range s.InEdges(id, world.EdgeSolidarity) {
		if !s.Entity(edge.Source).Active {
			continue
		}
		if edge.SolidarityStrength > strongest {
			strongest = edge.SolidarityStrength
		}
	}
	return math.Pow(world.Clamp01(strongest), curve)
}

// resolvePowerVacuums fires once per insolvent comprador per tick.
func (sys StruggleSystem) resolvePowerVacuums(s *world.State, cfg *config.Config) []events.Event {
	var evs []events.Event
	for _, comprador := range s.ByRole(world.RoleCompradorBourgeoisie) {
		if !comprador.Active {
			continue
		}
		subsistence := world.OrDefault(comprador.SubsistenceThreshold, cfg.Defaults.SubsistenceThreshold)
		if comprador.Wealth >= subsistence {
			continue
		}

		evs = append(evs, events.Event{
			Tick: s.Tick,
			Kind: events.KindPowerVacuum,
			Message: fmt.Sprintf("power vacuum: %s can no longer afford to govern (wealth %.2f, subsistence %.2f)",
				comprador.ID, comprador.Wealth, subsistence),
			Payload: events.PowerVacuumPayload{
				CompradorID:   comprador.ID,
				Wealth:        comprador.Wealth,
				NarrativeHint: "the client state hollows out",
			},
		})

		periphery := sys.exploitedBy(s, comprador.ID)
		if periphery == nil {
			continue
		}

		org := world.OrDefault(periphery.Organization, cfg.Defaults.Organization)
		capacity := org * periphery.Ideology.ClassConsciousness
		if capacity >= cfg.Struggle.JacksonThreshold {
			periphery.PRevolution = 1.0
			periphery.Ideology.Agitation += cfg.Struggle.OffensiveBoost
			evs = append(evs, events.Event{
				Tick: s.Tick,
				Kind: events.KindRevolutionaryOffensive,
				Message: fmt.Sprintf("revolutionary offensive: %s seizes the opening with capacity %.2f",
					periphery.ID, capacity),
				Payload: events.OffensivePayload{
					EntityID:      periphery.ID,
					Capacity:      capacity,
					Threshold:     cfg.Struggle.JacksonThreshold,
					NarrativeHint: "organization meets its moment",
				},
			})
			continue
		}

		var aristoID *string
		if aristocracy := sys.pairedAristocracy(s, comprador.ID); aristocracy != nil {
			aristocracy.Ideology.NationalIdentity = world.Clamp01(
				aristocracy.Ideology.NationalIdentity + cfg.Struggle.RevanchismBoost)
			aristocracy.PAcquiescence = world.Clamp01(
				aristocracy.PAcquiescence + cfg.Struggle.RevanchismBoost)
			id := aristocracy.ID
			aristoID = &id
		}
		evs = append(evs, events.Event{
			Tick: s.Tick,
			Kind: events.KindFascistRevanchism,
			Message: fmt.Sprintf("fascist revanchism: the vacuum left by %s is filled from the right (capacity %.2f)",
				comprador.ID, capacity),
			Payload: events.RevanchismPayload{
				EntityID:      periphery.ID,
				Capacity:      capacity,
				Threshold:     cfg.Struggle.JacksonThreshold,
				AristocracyID: aristoID,
				NarrativeHint: "disorganization curdles into reaction",
			},
		})
	}
	return evs
}

// exploitedBy returns the first active source exploited by the given
// entity, in stable edge order.
func (StruggleSystem) exploitedBy(s *world.State, id string) *world.Entity {
	for _, edge := range s.InEdges(id, world.EdgeExploitation) {
		if src := s.Entity(edge.Source); src.Active {
			return src
		}
	}
	return nil
}

// pairedAristocracy walks the comprador's tribute chain to the wage
// earners it ultimately finances, falling back to any active labor
// aristocracy when the chain is broken.
func (StruggleSystem) pairedAristocracy(s *world.State, compradorID string) *world.Entity {
	for _, tribute := range s.OutEdges(compradorID, world.EdgeTribute) {
		for _, wages := range s.OutEdges(tribute.Target, world.EdgeWages) {
			if dst := s.Entity(wages.Target); dst.Active && dst.Role == world.RoleLaborAristocracy {
				return dst
			}
		}
	}
	for _, e := range s.ByRole(world.RoleLaborAristocracy) {
		if e.Active {
			return e
		}
	}
	return nil
}
