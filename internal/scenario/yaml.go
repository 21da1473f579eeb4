package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/percy-raskova/babylon-sub002/internal/config"
	"github.com/percy-raskova/babylon-sub002/internal/world"
)

// Document is the YAML scenario file shape. Optional attributes left unset
// stay nil in the built state, so the configured defaults apply at runtime
// rather than being baked in at load time.
type Document struct {
	Name        string         `yaml:"name"`
	Economy     *EconomyDoc    `yaml:"economy"`
	Entities    []EntityDoc    `yaml:"entities"`
	Territories []TerritoryDoc `yaml:"territories"`
	Edges       []EdgeDoc      `yaml:"edges"`
}

// EconomyDoc overrides parts of the starting economy. A distressed scenario
// sets rent_pool below the configured initial to start inside a policy band.
type EconomyDoc struct {
	RentPool        *float64 `yaml:"rent_pool"`
	InitialRentPool *float64 `yaml:"initial_rent_pool"`
	SuperWageRate   *float64 `yaml:"super_wage_rate"`
	RepressionLevel *float64 `yaml:"repression_level"`
}

// EntityDoc is one class node. Role names match world.Role strings.
type EntityDoc struct {
	ID         string `yaml:"id"`
	Role       string `yaml:"role"`
	Wealth     float64 `yaml:"wealth"`
	Population int     `yaml:"population"`
	Active     *bool   `yaml:"active"`
	SBio       float64 `yaml:"s_bio"`
	SClass     float64 `yaml:"s_class"`

	Organization         *float64 `yaml:"organization"`
	RepressionFaced      *float64 `yaml:"repression_faced"`
	SubsistenceThreshold *float64 `yaml:"subsistence_threshold"`

	ClassConsciousness float64 `yaml:"class_consciousness"`
	NationalIdentity   float64 `yaml:"national_identity"`
	Agitation          float64 `yaml:"agitation"`
}

// TerritoryDoc is one land node.
type TerritoryDoc struct {
	ID          string  `yaml:"id"`
	Sector      string  `yaml:"sector"`
	Biocapacity float64 `yaml:"biocapacity"`
}

// EdgeDoc is one relationship. Tension is meaningful on Exploitation,
// solidarity_strength on Solidarity, subsidy_cap on ClientState.
type EdgeDoc struct {
	Source             string   `yaml:"source"`
	Target             string   `yaml:"target"`
	Type               string   `yaml:"type"`
	Tension            float64  `yaml:"tension"`
	SolidarityStrength float64  `yaml:"solidarity_strength"`
	SubsidyCap         *float64 `yaml:"subsidy_cap"`
}

// FromFile reads a YAML scenario and builds its world state. Unknown roles,
// sectors, edge types, and endpoint ids are construction errors.
func FromFile(cfg *config.Config, path string) (*world.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	s, err := FromDocument(cfg, &doc)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// FromDocument builds a world state from an already-parsed scenario.
func FromDocument(cfg *config.Config, doc *Document) (*world.State, error) {
	s := world.NewState()

	initial := cfg.Pool.Initial
	pool := initial
	wageRate := cfg.Wages.InitialRate
	repression := initialRepression
	if e := doc.Economy; e != nil {
		if e.InitialRentPool != nil {
			initial = *e.InitialRentPool
		}
		pool = initial
		if e.RentPool != nil {
			pool = *e.RentPool
		}
		if e.SuperWageRate != nil {
			wageRate = *e.SuperWageRate
		}
		if e.RepressionLevel != nil {
			repression = *e.RepressionLevel
		}
	}
	if wageRate < cfg.Wages.MinRate || wageRate > cfg.Wages.MaxRate {
		return nil, fmt.Errorf("economy: super_wage_rate %g outside [%g, %g]",
			wageRate, cfg.Wages.MinRate, cfg.Wages.MaxRate)
	}
	if repression < 0 || repression > 1 {
		return nil, fmt.Errorf("economy: repression_level %g outside [0, 1]", repression)
	}
	s.Economy = world.Economy{
		RentPool:        pool,
		InitialRentPool: initial,
		SuperWageRate:   wageRate,
		RepressionLevel: repression,
	}

	for _, d := range doc.Entities {
		role, err := world.ParseRole(d.Role)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", d.ID, err)
		}
		active := true
		if d.Active != nil {
			active = *d.Active
		}
		e := world.Entity{
			ID:         d.ID,
			Role:       role,
			Wealth:     d.Wealth,
			Population: d.Population,
			Active:     active,
			SBio:       d.SBio,
			SClass:     d.SClass,

			Organization:         d.Organization,
			RepressionFaced:      d.RepressionFaced,
			SubsistenceThreshold: d.SubsistenceThreshold,

			Ideology: world.Ideology{
				ClassConsciousness: d.ClassConsciousness,
				NationalIdentity:   d.NationalIdentity,
				Agitation:          d.Agitation,
			},
		}
		if err := s.AddEntity(e); err != nil {
			return nil, err
		}
	}

	for _, d := range doc.Territories {
		sector, err := world.ParseSectorType(d.Sector)
		if err != nil {
			return nil, fmt.Errorf("territory %q: %w", d.ID, err)
		}
		t := world.Territory{ID: d.ID, Sector: sector, Biocapacity: d.Biocapacity}
		if err := s.AddTerritory(t); err != nil {
			return nil, err
		}
	}

	for _, d := range doc.Edges {
		kind, err := world.ParseEdgeType(d.Type)
		if err != nil {
			return nil, fmt.Errorf("edge %s->%s: %w", d.Source, d.Target, err)
		}
		e := world.Edge{
			Source:             d.Source,
			Target:             d.Target,
			Type:               kind,
			Tension:            d.Tension,
			SolidarityStrength: d.SolidarityStrength,
			SubsidyCap:         d.SubsidyCap,
		}
		if err := s.AddEdge(e); err != nil {
			return nil, err
		}
	}

	if err := Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}
