package scenario

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/percy-raskova/babylon-sub002/internal/config"
	"github.com/percy-raskova/babylon-sub002/internal/world"
)

// Generate returns a seeded variant of the baseline for parameter sweeps.
// Three independent noise layers perturb the starting conditions: territory
// biocapacity, entity wealth, and the social axes that steer the run's
// terminal outcome (periphery organization, dormant-proletariat organization,
// starting pool ratio). The same (seed, variant) pair always yields the same
// state, and nearby variants differ smoothly.
func Generate(cfg *config.Config, seed int64, variant int) (*world.State, error) {
	s, err := Baseline(cfg)
	if err != nil {
		return nil, err
	}

	bioNoise := opensimplex.NewNormalized(seed)
	wealthNoise := opensimplex.NewNormalized(seed + 1)
	socialNoise := opensimplex.NewNormalized(seed + 2)
	x := float64(variant)

	for i, t := range s.Territories() {
		n := octaveNoise(bioNoise, x, float64(i)*2, 3, 0.11, 0.5)
		t.Biocapacity = world.Clamp(cfg.Production.MaxBiocapacity*(0.35+0.6*n), 0, cfg.Production.MaxBiocapacity)
	}

	for i, e := range s.Entities() {
		n := octaveNoise(wealthNoise, x, float64(i)*2, 3, 0.11, 0.5)
		e.Wealth *= 0.6 + 0.8*n
	}

	if w := s.Entity("periphery-workers"); w != nil {
		n := octaveNoise(socialNoise, x, 0, 3, 0.11, 0.5)
		w.Organization = world.Ptr(world.Clamp01(0.3 + (n-0.5)*0.4))
	}
	if p := s.Entity("internal-proletariat"); p != nil {
		n := octaveNoise(socialNoise, x, 2, 3, 0.11, 0.5)
		p.Organization = world.Ptr(world.Clamp01(0.6 + (n-0.5)*0.5))
	}

	// Spread starting pool ratios across every policy band so a sweep
	// reaches crisis, austerity, and bribery eras from tick 1.
	n := octaveNoise(socialNoise, x, 4, 3, 0.11, 0.5)
	s.Economy.RentPool = s.Economy.InitialRentPool * (0.05 + 0.95*n)

	if err := Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// octaveNoise layers multiple frequencies of normalized simplex noise; the
// result stays in [0, 1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}
