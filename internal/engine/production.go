package engine

import (
	"github.com/percy-raskova/babylon-sub002/internal/events"
	"github.com/percy-raskova/babylon-sub002/internal/world"
)

// ProductionSystem draws new value out of worked land. Each Tenancy edge
// ties a working entity to a territory; yield scales with the worker
// population and with how much biocapacity the territory retains. Worked
// land depletes per unit yielded, and all land regenerates toward the
// configured ceiling. Without Tenancy edges the system is a no-op.
type ProductionSystem struct{}

// Name implements System.
func (ProductionSystem) Name() string { return "production" }

// Step implements System.
func (ProductionSystem) Step(s *world.State, svc *Services, run *RunState) ([]events.Event, error) {
	cfg := svc.Config
	rate := perTick(cfg.Production.AnnualYieldPerCapita, cfg.Simulation.WeeksPerYear)

	for _, edge := range s.EdgesOfType(world.EdgeTenancy) {
		src := s.Entity(edge.Source)
		if !src.Active {
			edge.ValueFlow = 0
			continue
		}
		t := s.Territory(edge.Target)

		share := t.Biocapacity / cfg.Production.MaxBiocapacity
		yield := rate * float64(src.Population) * share
		edge.ValueFlow = yield
		if yield <= 0 {
			continue
		}

		src.Wealth += yield
		t.Biocapacity = world.Clamp(t.Biocapacity-yield*cfg.Production.DepletionRate,
			0, cfg.Production.MaxBiocapacity)
	}

	// Land recovers whether worked or not.
	for _, t := range s.Territories() {
		t.Biocapacity = world.Clamp(
			t.Biocapacity+cfg.Production.RegenRate*(cfg.Production.MaxBiocapacity-t.Biocapacity),
			0, cfg.Production.MaxBiocapacity)
	}

	return nil, nil
}
