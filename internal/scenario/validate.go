package scenario

import (
	"errors"
	"fmt"

	"github.com/percy-raskova/babylon-sub002/internal/world"
)

// Validation sentinels. Construction bugs, not runtime conditions.
var (
	ErrNoActiveEntities  = errors.New("no active entities")
	ErrPoolMisconfigured = errors.New("rent pool misconfigured")
)

// Validate checks a built state for structural soundness: a live world, a
// usable rent pool denominator, sane node values, and every edge endpoint
// resolving to the right node kind. Each error names its offender.
func Validate(s *world.State) error {
	if s.ActiveCount() == 0 {
		return ErrNoActiveEntities
	}
	if s.Economy.InitialRentPool <= 0 {
		return fmt.Errorf("initial_rent_pool must be positive, got %g: %w",
			s.Economy.InitialRentPool, ErrPoolMisconfigured)
	}
	if s.Economy.RentPool < 0 {
		return fmt.Errorf("rent_pool must be non-negative, got %g: %w",
			s.Economy.RentPool, ErrPoolMisconfigured)
	}

	for _, e := range s.Entities() {
		if e.Population < 0 {
			return fmt.Errorf("entity %q: population must be non-negative, got %d", e.ID, e.Population)
		}
		if e.SBio < 0 || e.SClass < 0 {
			return fmt.Errorf("entity %q: consumption needs must be non-negative", e.ID)
		}
	}
	for _, t := range s.Territories() {
		if t.Biocapacity < 0 {
			return fmt.Errorf("territory %q: biocapacity must be non-negative, got %g", t.ID, t.Biocapacity)
		}
	}

	for _, e := range s.Edges() {
		if s.Entity(e.Source) == nil {
			return fmt.Errorf("edge %s->%s (%s): source: %w", e.Source, e.Target, e.Type, world.ErrUnknownNode)
		}
		if e.Type == world.EdgeTenancy {
			if s.Territory(e.Target) == nil {
				return fmt.Errorf("edge %s->%s (%s): %w", e.Source, e.Target, e.Type, world.ErrNotATerritory)
			}
		} else if s.Entity(e.Target) == nil {
			return fmt.Errorf("edge %s->%s (%s): target: %w", e.Source, e.Target, e.Type, world.ErrUnknownNode)
		}
		if e.Tension < 0 || e.Tension > 1 {
			return fmt.Errorf("edge %s->%s (%s): tension %g outside [0, 1]", e.Source, e.Target, e.Type, e.Tension)
		}
		if e.SolidarityStrength < 0 || e.SolidarityStrength > 1 {
			return fmt.Errorf("edge %s->%s (%s): solidarity_strength %g outside [0, 1]", e.Source, e.Target, e.Type, e.SolidarityStrength)
		}
	}
	return nil
}
