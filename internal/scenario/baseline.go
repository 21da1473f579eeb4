// Package scenario builds initial world states: the built-in baseline
// circuit, YAML scenario files, and seeded variants for parameter sweeps.
// Construction fails fast; a state that leaves this package is structurally
// sound and ready for tick 1.
package scenario

import (
	"github.com/percy-raskova/babylon-sub002/internal/config"
	"github.com/percy-raskova/babylon-sub002/internal/world"
)

// initialRepression is the empire's posture at scenario build when a file
// does not say otherwise.
const initialRepression = 0.3

// Baseline returns the built-in Babylon scenario: a full extraction circuit
// from periphery workers through the comprador state to core capital and its
// labor aristocracy, with the two dormant classes the decomposition will
// eventually fill, a lumpen surplus, and petty traders on the side.
func Baseline(cfg *config.Config) (*world.State, error) {
	s := world.NewState()
	s.Economy = world.Economy{
		RentPool:        cfg.Pool.Initial,
		InitialRentPool: cfg.Pool.Initial,
		SuperWageRate:   cfg.Wages.InitialRate,
		RepressionLevel: initialRepression,
	}

	entities := []world.Entity{
		{
			ID: "periphery-workers", Role: world.RolePeripheryProletariat,
			Wealth: 100, Population: 10000, Active: true,
			SBio: 0.2, SClass: 0.1,
			Organization:    world.Ptr(0.3),
			RepressionFaced: world.Ptr(0.6),
			Ideology:        world.Ideology{ClassConsciousness: 0.4, NationalIdentity: 0.1},
		},
		{
			// The comprador passes most of what it takes; it lives on the
			// margin between its cut and its thin subsistence line.
			ID: "comprador-state", Role: world.RoleCompradorBourgeoisie,
			Wealth: 50, Population: 50, Active: true,
			SBio: 0.1, SClass: 0.05,
			SubsistenceThreshold: world.Ptr(0.2),
		},
		{
			ID: "core-capital", Role: world.RoleCoreBourgeoisie,
			Wealth: 1000, Population: 200, Active: true,
			SBio: 1.0, SClass: 2.0,
		},
		{
			ID: "labor-aristocracy", Role: world.RoleLaborAristocracy,
			Wealth: 60, Population: 3000, Active: true,
			SBio: 0.3, SClass: 0.4,
			Organization: world.Ptr(0.2),
			Ideology:     world.Ideology{ClassConsciousness: 0.1, NationalIdentity: 0.4},
		},
		{
			// Dormant until decomposition splits the aristocracy.
			ID: "carceral-enforcers", Role: world.RoleCarceralEnforcer,
			Active:       false,
			Organization: world.Ptr(0.1),
		},
		{
			ID: "internal-proletariat", Role: world.RoleInternalProletariat,
			Active:       false,
			Organization: world.Ptr(0.6),
		},
		{
			ID: "lumpen", Role: world.RoleLumpenproletariat,
			Wealth: 10, Population: 400, Active: true,
			SBio: 0.1, SClass: 0.05,
			Organization: world.Ptr(0.2),
		},
		{
			ID: "petty-bourgeoisie", Role: world.RolePettyBourgeoisie,
			Wealth: 120, Population: 800, Active: true,
			SBio: 0.3, SClass: 0.3,
		},
	}
	for _, e := range entities {
		if err := s.AddEntity(e); err != nil {
			return nil, err
		}
	}

	territories := []world.Territory{
		{ID: "agrarian-hinterland", Sector: world.SectorAgrarian, Biocapacity: 80},
		{ID: "extractive-belt", Sector: world.SectorExtractive, Biocapacity: 60},
	}
	for _, t := range territories {
		if err := s.AddTerritory(t); err != nil {
			return nil, err
		}
	}

	edges := []world.Edge{
		{Source: "periphery-workers", Target: "agrarian-hinterland", Type: world.EdgeTenancy},
		{Source: "periphery-workers", Target: "extractive-belt", Type: world.EdgeTenancy},
		{Source: "periphery-workers", Target: "comprador-state", Type: world.EdgeExploitation, Tension: 0.25},
		{Source: "comprador-state", Target: "core-capital", Type: world.EdgeTribute},
		{Source: "core-capital", Target: "labor-aristocracy", Type: world.EdgeWages},
		{Source: "core-capital", Target: "comprador-state", Type: world.EdgeClientState, SubsidyCap: world.Ptr(cfg.Subsidy.DefaultCap)},
		{Source: "periphery-workers", Target: "labor-aristocracy", Type: world.EdgeSolidarity, SolidarityStrength: 0.15},
	}
	for _, e := range edges {
		if err := s.AddEdge(e); err != nil {
			return nil, err
		}
	}

	if err := Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}
