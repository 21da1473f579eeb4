// Package config defines the immutable tuning bundle for the Babylon
// simulation. A Config is constructed once, validated before the first tick,
// and shared by reference. Nothing in the engine mutates it.
package config

import (
	"fmt"
	"strings"
)

// Config is the full set of tunable constants. Every rate expressed as
// "annual" is converted per-tick by dividing through Simulation.WeeksPerYear;
// one tick is one week.
type Config struct {
	Simulation    Simulation    `yaml:"simulation"`
	Extraction    Extraction    `yaml:"extraction"`
	Tribute       Tribute       `yaml:"tribute"`
	Wages         Wages         `yaml:"wages"`
	Subsidy       Subsidy       `yaml:"subsidy"`
	Pool          Pool          `yaml:"pool"`
	Policy        Policy        `yaml:"policy"`
	Production    Production    `yaml:"production"`
	Survival      Survival      `yaml:"survival"`
	Contradiction Contradiction `yaml:"contradiction"`
	Struggle      Struggle      `yaml:"struggle"`
	Decomposition Decomposition `yaml:"decomposition"`
	Control       Control       `yaml:"control"`
	Defaults      Defaults      `yaml:"defaults"`
}

// Simulation holds calendar constants.
type Simulation struct {
	WeeksPerYear float64 `yaml:"weeks_per_year"`
}

// Extraction tunes the rent taken along Exploitation edges.
type Extraction struct {
	// AnnualEfficiency is the fraction of a worker's wealth extracted per
	// year at zero class consciousness.
	AnnualEfficiency float64 `yaml:"annual_efficiency"`
}

// Tribute tunes the comprador's share of extracted value.
type Tribute struct {
	// CompradorCut is the fraction of post-extraction wealth the comprador
	// retains; the remainder flows along the Tribute edge.
	CompradorCut float64 `yaml:"comprador_cut"`
}

// Wages bounds the annualized super-wage rate paid to the labor aristocracy.
type Wages struct {
	InitialRate float64 `yaml:"initial_rate"`
	MinRate     float64 `yaml:"min_rate"`
	MaxRate     float64 `yaml:"max_rate"`
}

// Subsidy tunes the counter-flow that props up client states. The subsidy is
// never credited as wealth; it converts into the client's repression_faced.
type Subsidy struct {
	Enabled           bool    `yaml:"enabled"`
	TriggerThreshold  float64 `yaml:"trigger_threshold"`   // fires when p_revolution >= threshold * p_acquiescence
	ConversionRate    float64 `yaml:"conversion_rate"`     // fraction of this tick's tribute inflow available
	DefaultCap        float64 `yaml:"default_cap"`         // per-edge ceiling when the edge carries none
	RepressionPerUnit float64 `yaml:"repression_per_unit"` // repression_faced gained per unit of subsidy
}

// Pool sizes the imperial rent pool and the ratio bands the policy switch
// reacts to.
type Pool struct {
	Initial       float64 `yaml:"initial"`
	CriticalRatio float64 `yaml:"critical_ratio"`
	LowRatio      float64 `yaml:"low_ratio"`
	HighRatio     float64 `yaml:"high_ratio"`
}

// Policy tunes the empire's reaction to pool scarcity and tension.
type Policy struct {
	WageStep        float64 `yaml:"wage_step"`       // annualized-rate change per adjustment
	RepressionStep  float64 `yaml:"repression_step"`
	RepressionMin   float64 `yaml:"repression_min"`
	RepressionMax   float64 `yaml:"repression_max"`
	IronFistTension float64 `yaml:"iron_fist_tension"` // above this, scarcity answers with repression
	BriberyTension  float64 `yaml:"bribery_tension"`   // below this, abundance buys loyalty
}

// Production tunes territory yield along Tenancy edges.
type Production struct {
	AnnualYieldPerCapita float64 `yaml:"annual_yield_per_capita"`
	MaxBiocapacity       float64 `yaml:"max_biocapacity"`
	DepletionRate        float64 `yaml:"depletion_rate"` // biocapacity lost per unit yielded
	RegenRate            float64 `yaml:"regen_rate"`     // biocapacity recovered per tick
}

// Survival shapes the acquiescence sigmoid.
type Survival struct {
	SigmoidSteepness float64 `yaml:"sigmoid_steepness"`
}

// Contradiction tunes tension accumulation on Exploitation edges.
type Contradiction struct {
	AccumulationRate float64 `yaml:"accumulation_rate"`
}

// Struggle tunes both bifurcation mechanics.
type Struggle struct {
	JacksonThreshold float64 `yaml:"jackson_threshold"`  // organization * consciousness needed for offensive
	AgitationPerUnit float64 `yaml:"agitation_per_unit"` // agitation per unit of weekly wage lost
	RoutingCurve     float64 `yaml:"routing_curve"`      // solidarity routing exponent, 1 = linear
	OffensiveBoost   float64 `yaml:"offensive_boost"`
	RevanchismBoost  float64 `yaml:"revanchism_boost"`
}

// Decomposition tunes the one-shot class split.
type Decomposition struct {
	CrisisDelayTicks    uint64  `yaml:"crisis_delay_ticks"`
	EnforcerFraction    float64 `yaml:"enforcer_fraction"`
	ProletariatFraction float64 `yaml:"proletariat_fraction"`
}

// Control tunes the carceral control ratio and the terminal decision.
type Control struct {
	CapacityPerEnforcer float64 `yaml:"capacity_per_enforcer"`
	DecisionDelayTicks  uint64  `yaml:"decision_delay_ticks"`
	RevolutionThreshold float64 `yaml:"revolution_threshold"`
}

// Defaults fill entity attributes that a scenario leaves unset.
type Defaults struct {
	Organization         float64 `yaml:"organization"`
	RepressionFaced      float64 `yaml:"repression_faced"`
	SubsistenceThreshold float64 `yaml:"subsistence_threshold"`
}

// Default returns the tuned baseline configuration.
func Default() *Config {
	return &Config{
		Simulation: Simulation{WeeksPerYear: 52},
		Extraction: Extraction{AnnualEfficiency: 0.8},
		Tribute:    Tribute{CompradorCut: 0.2},
		Wages: Wages{
			InitialRate: 0.6,
			MinRate:     0.05,
			MaxRate:     1.2,
		},
		Subsidy: Subsidy{
			Enabled:           true,
			TriggerThreshold:  1.5,
			ConversionRate:    0.25,
			DefaultCap:        50,
			RepressionPerUnit: 0.01,
		},
		Pool: Pool{
			Initial:       10000,
			CriticalRatio: 0.10,
			LowRatio:      0.33,
			HighRatio:     0.75,
		},
		Policy: Policy{
			WageStep:        0.05,
			RepressionStep:  0.05,
			RepressionMin:   0.05,
			RepressionMax:   1.0,
			IronFistTension: 0.5,
			BriberyTension:  0.3,
		},
		Production: Production{
			AnnualYieldPerCapita: 0.05,
			MaxBiocapacity:       100,
			DepletionRate:        0.01,
			RegenRate:            0.05,
		},
		Survival:      Survival{SigmoidSteepness: 0.5},
		Contradiction: Contradiction{AccumulationRate: 0.01},
		Struggle: Struggle{
			JacksonThreshold: 0.4,
			AgitationPerUnit: 0.5,
			RoutingCurve:     1.0,
			OffensiveBoost:   1.0,
			RevanchismBoost:  0.2,
		},
		Decomposition: Decomposition{
			CrisisDelayTicks:    4,
			EnforcerFraction:    0.15,
			ProletariatFraction: 0.85,
		},
		Control: Control{
			CapacityPerEnforcer: 4,
			DecisionDelayTicks:  6,
			RevolutionThreshold: 0.5,
		},
		Defaults: Defaults{
			Organization:         0.1,
			RepressionFaced:      0.5,
			SubsistenceThreshold: 5.0,
		},
	}
}

// Validate checks every constant against its legal range. It returns a single
// error listing all violations so a bad bundle is rejected in one pass,
// before any tick runs.
func (c *Config) Validate() error {
	var problems []string
	bad := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}
	inUnit := func(name string, v float64) {
		if v < 0 || v > 1 {
			bad("%s must be in [0,1], got %g", name, v)
		}
	}

	if c.Simulation.WeeksPerYear <= 0 {
		bad("simulation.weeks_per_year must be positive, got %g", c.Simulation.WeeksPerYear)
	}
	inUnit("extraction.annual_efficiency", c.Extraction.AnnualEfficiency)
	inUnit("tribute.comprador_cut", c.Tribute.CompradorCut)

	if c.Wages.MinRate < 0 {
		bad("wages.min_rate must be non-negative, got %g", c.Wages.MinRate)
	}
	if c.Wages.MinRate > c.Wages.MaxRate {
		bad("wages.min_rate %g exceeds wages.max_rate %g", c.Wages.MinRate, c.Wages.MaxRate)
	}
	if c.Wages.InitialRate < c.Wages.MinRate || c.Wages.InitialRate > c.Wages.MaxRate {
		bad("wages.initial_rate %g outside [%g, %g]", c.Wages.InitialRate, c.Wages.MinRate, c.Wages.MaxRate)
	}

	if c.Subsidy.TriggerThreshold <= 0 {
		bad("subsidy.trigger_threshold must be positive, got %g", c.Subsidy.TriggerThreshold)
	}
	inUnit("subsidy.conversion_rate", c.Subsidy.ConversionRate)
	if c.Subsidy.DefaultCap < 0 {
		bad("subsidy.default_cap must be non-negative, got %g", c.Subsidy.DefaultCap)
	}
	if c.Subsidy.RepressionPerUnit < 0 {
		bad("subsidy.repression_per_unit must be non-negative, got %g", c.Subsidy.RepressionPerUnit)
	}

	if c.Pool.Initial <= 0 {
		bad("pool.initial must be positive, got %g", c.Pool.Initial)
	}
	if !(c.Pool.CriticalRatio > 0 && c.Pool.CriticalRatio < c.Pool.LowRatio && c.Pool.LowRatio < c.Pool.HighRatio && c.Pool.HighRatio <= 1) {
		bad("pool ratios must satisfy 0 < critical < low < high <= 1, got %g/%g/%g",
			c.Pool.CriticalRatio, c.Pool.LowRatio, c.Pool.HighRatio)
	}

	if c.Policy.WageStep <= 0 {
		bad("policy.wage_step must be positive, got %g", c.Policy.WageStep)
	}
	if c.Policy.RepressionStep <= 0 {
		bad("policy.repression_step must be positive, got %g", c.Policy.RepressionStep)
	}
	inUnit("policy.repression_min", c.Policy.RepressionMin)
	inUnit("policy.repression_max", c.Policy.RepressionMax)
	if c.Policy.RepressionMin > c.Policy.RepressionMax {
		bad("policy.repression_min %g exceeds policy.repression_max %g", c.Policy.RepressionMin, c.Policy.RepressionMax)
	}
	inUnit("policy.iron_fist_tension", c.Policy.IronFistTension)
	inUnit("policy.bribery_tension", c.Policy.BriberyTension)

	if c.Production.AnnualYieldPerCapita < 0 {
		bad("production.annual_yield_per_capita must be non-negative, got %g", c.Production.AnnualYieldPerCapita)
	}
	if c.Production.MaxBiocapacity <= 0 {
		bad("production.max_biocapacity must be positive, got %g", c.Production.MaxBiocapacity)
	}
	if c.Production.DepletionRate < 0 {
		bad("production.depletion_rate must be non-negative, got %g", c.Production.DepletionRate)
	}
	if c.Production.RegenRate < 0 {
		bad("production.regen_rate must be non-negative, got %g", c.Production.RegenRate)
	}

	if c.Survival.SigmoidSteepness <= 0 {
		bad("survival.sigmoid_steepness must be positive, got %g", c.Survival.SigmoidSteepness)
	}
	if c.Contradiction.AccumulationRate <= 0 || c.Contradiction.AccumulationRate > 1 {
		bad("contradiction.accumulation_rate must be in (0,1], got %g", c.Contradiction.AccumulationRate)
	}

	inUnit("struggle.jackson_threshold", c.Struggle.JacksonThreshold)
	if c.Struggle.AgitationPerUnit < 0 {
		bad("struggle.agitation_per_unit must be non-negative, got %g", c.Struggle.AgitationPerUnit)
	}
	if c.Struggle.RoutingCurve <= 0 {
		bad("struggle.routing_curve must be positive, got %g", c.Struggle.RoutingCurve)
	}
	if c.Struggle.OffensiveBoost < 0 {
		bad("struggle.offensive_boost must be non-negative, got %g", c.Struggle.OffensiveBoost)
	}
	if c.Struggle.RevanchismBoost < 0 {
		bad("struggle.revanchism_boost must be non-negative, got %g", c.Struggle.RevanchismBoost)
	}

	inUnit("decomposition.enforcer_fraction", c.Decomposition.EnforcerFraction)
	inUnit("decomposition.proletariat_fraction", c.Decomposition.ProletariatFraction)
	if sum := c.Decomposition.EnforcerFraction + c.Decomposition.ProletariatFraction; sum < 0.999999 || sum > 1.000001 {
		bad("decomposition fractions must sum to 1, got %g", sum)
	}

	if c.Control.CapacityPerEnforcer <= 0 {
		bad("control.capacity_per_enforcer must be positive, got %g", c.Control.CapacityPerEnforcer)
	}
	inUnit("control.revolution_threshold", c.Control.RevolutionThreshold)

	inUnit("defaults.organization", c.Defaults.Organization)
	inUnit("defaults.repression_faced", c.Defaults.RepressionFaced)
	if c.Defaults.RepressionFaced <= 0 {
		bad("defaults.repression_faced must be positive, got %g", c.Defaults.RepressionFaced)
	}
	if c.Defaults.SubsistenceThreshold < 0 {
		bad("defaults.subsistence_threshold must be non-negative, got %g", c.Defaults.SubsistenceThreshold)
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
