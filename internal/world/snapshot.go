package world

import (
	"encoding/json"
	"fmt"
	"math"
)

// Snapshot is the generic attributed-graph form a State round-trips through
// for persistence. Node and edge attributes are typed maps holding only
// JSON-stable values; unset optional attributes are omitted on encode and
// come back as absent on decode. The economy travels as a side channel.
type Snapshot struct {
	Tick     uint64             `json:"tick"`
	Nodes    []NodeRecord       `json:"nodes"`
	Edges    []EdgeRecord       `json:"edges"`
	Economy  map[string]float64 `json:"economy"`
	EventLog []string           `json:"event_log"`
}

// NodeRecord is one node in attributed-graph form.
type NodeRecord struct {
	ID    string         `json:"id"`
	Kind  string         `json:"kind"` // "entity" or "territory"
	Attrs map[string]any `json:"attrs"`
}

// EdgeRecord is one edge in attributed-graph form.
type EdgeRecord struct {
	Source string         `json:"source"`
	Target string         `json:"target"`
	Type   string         `json:"type"`
	Attrs  map[string]any `json:"attrs"`
}

// Encode converts the state to its attributed-graph form.
func (s *State) Encode() Snapshot {
	snap := Snapshot{
		Tick:  s.Tick,
		Nodes: make([]NodeRecord, 0, len(s.entities)+len(s.territories)),
		Edges: make([]EdgeRecord, 0, len(s.edges)),
		Economy: map[string]float64{
			"rent_pool":         s.Economy.RentPool,
			"initial_rent_pool": s.Economy.InitialRentPool,
			"super_wage_rate":   s.Economy.SuperWageRate,
			"repression_level":  s.Economy.RepressionLevel,
		},
		EventLog: append([]string(nil), s.EventLog...),
	}

	for i := range s.entities {
		e := &s.entities[i]
		attrs := map[string]any{
			"role":                e.Role.String(),
			"wealth":              e.Wealth,
			"population":          e.Population,
			"active":              e.Active,
			"s_bio":               e.SBio,
			"s_class":             e.SClass,
			"class_consciousness": e.Ideology.ClassConsciousness,
			"national_identity":   e.Ideology.NationalIdentity,
			"agitation":           e.Ideology.Agitation,
			"p_acquiescence":      e.PAcquiescence,
			"p_revolution":        e.PRevolution,
		}
		if e.Organization != nil {
			attrs["organization"] = *e.Organization
		}
		if e.RepressionFaced != nil {
			attrs["repression_faced"] = *e.RepressionFaced
		}
		if e.SubsistenceThreshold != nil {
			attrs["subsistence_threshold"] = *e.SubsistenceThreshold
		}
		snap.Nodes = append(snap.Nodes, NodeRecord{ID: e.ID, Kind: "entity", Attrs: attrs})
	}

	for i := range s.territories {
		t := &s.territories[i]
		snap.Nodes = append(snap.Nodes, NodeRecord{
			ID:   t.ID,
			Kind: "territory",
			Attrs: map[string]any{
				"sector":      t.Sector.String(),
				"biocapacity": t.Biocapacity,
			},
		})
	}

	for i := range s.edges {
		e := &s.edges[i]
		attrs := map[string]any{
			"value_flow": e.ValueFlow,
		}
		switch e.Type {
		case EdgeExploitation:
			attrs["tension"] = e.Tension
			attrs["tension_state"] = e.TensionState.String()
		case EdgeSolidarity:
			attrs["solidarity_strength"] = e.SolidarityStrength
		case EdgeClientState:
			if e.SubsidyCap != nil {
				attrs["subsidy_cap"] = *e.SubsidyCap
			}
		}
		snap.Edges = append(snap.Edges, EdgeRecord{
			Source: e.Source,
			Target: e.Target,
			Type:   e.Type.String(),
			Attrs:  attrs,
		})
	}

	return snap
}

// Decode rebuilds a State from its attributed-graph form. Structural
// problems (unknown roles, dangling edge endpoints, missing attributes)
// are construction errors.
func Decode(snap Snapshot) (*State, error) {
	s := NewState()
	s.Tick = snap.Tick
	s.EventLog = append([]string(nil), snap.EventLog...)

	s.Economy = Economy{
		RentPool:        snap.Economy["rent_pool"],
		InitialRentPool: snap.Economy["initial_rent_pool"],
		SuperWageRate:   snap.Economy["super_wage_rate"],
		RepressionLevel: snap.Economy["repression_level"],
	}

	for _, n := range snap.Nodes {
		switch n.Kind {
		case "entity":
			e, err := decodeEntity(n)
			if err != nil {
				return nil, fmt.Errorf("node %q: %w", n.ID, err)
			}
			if err := s.AddEntity(e); err != nil {
				return nil, err
			}
		case "territory":
			t, err := decodeTerritory(n)
			if err != nil {
				return nil, fmt.Errorf("node %q: %w", n.ID, err)
			}
			if err := s.AddTerritory(t); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("node %q: unknown kind %q", n.ID, n.Kind)
		}
	}

	for _, r := range snap.Edges {
		e, err := decodeEdge(r)
		if err != nil {
			return nil, fmt.Errorf("edge %s->%s: %w", r.Source, r.Target, err)
		}
		if err := s.AddEdge(e); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func decodeEntity(n NodeRecord) (Entity, error) {
	roleName, err := reqString(n.Attrs, "role")
	if err != nil {
		return Entity{}, err
	}
	role, err := ParseRole(roleName)
	if err != nil {
		return Entity{}, err
	}

	e := Entity{ID: n.ID, Role: role}
	if e.Wealth, err = reqFloat(n.Attrs, "wealth"); err != nil {
		return Entity{}, err
	}
	pop, err := reqFloat(n.Attrs, "population")
	if err != nil {
		return Entity{}, err
	}
	e.Population = int(math.Round(pop))
	if e.Active, err = reqBool(n.Attrs, "active"); err != nil {
		return Entity{}, err
	}
	e.SBio = optFloat(n.Attrs, "s_bio", 0)
	e.SClass = optFloat(n.Attrs, "s_class", 0)
	e.Ideology.ClassConsciousness = optFloat(n.Attrs, "class_consciousness", 0)
	e.Ideology.NationalIdentity = optFloat(n.Attrs, "national_identity", 0)
	e.Ideology.Agitation = optFloat(n.Attrs, "agitation", 0)
	e.PAcquiescence = optFloat(n.Attrs, "p_acquiescence", 0)
	e.PRevolution = optFloat(n.Attrs, "p_revolution", 0)

	if v, ok := lookupFloat(n.Attrs, "organization"); ok {
		e.Organization = &v
	}
	if v, ok := lookupFloat(n.Attrs, "repression_faced"); ok {
		e.RepressionFaced = &v
	}
	if v, ok := lookupFloat(n.Attrs, "subsistence_threshold"); ok {
		e.SubsistenceThreshold = &v
	}
	return e, nil
}

func decodeTerritory(n NodeRecord) (Territory, error) {
	sectorName, err := reqString(n.Attrs, "sector")
	if err != nil {
		return Territory{}, err
	}
	sector, err := ParseSectorType(sectorName)
	if err != nil {
		return Territory{}, err
	}
	bio, err := reqFloat(n.Attrs, "biocapacity")
	if err != nil {
		return Territory{}, err
	}
	return Territory{ID: n.ID, Sector: sector, Biocapacity: bio}, nil
}

func decodeEdge(r EdgeRecord) (Edge, error) {
	t, err := ParseEdgeType(r.Type)
	if err != nil {
		return Edge{}, err
	}
	e := Edge{
		Source:    r.Source,
		Target:    r.Target,
		Type:      t,
		ValueFlow: optFloat(r.Attrs, "value_flow", 0),
	}
	switch t {
	case EdgeExploitation:
		e.Tension = optFloat(r.Attrs, "tension", 0)
		if state, ok := r.Attrs["tension_state"].(string); ok && state == "resolved" {
			e.TensionState = TensionResolved
		}
	case EdgeSolidarity:
		e.SolidarityStrength = optFloat(r.Attrs, "solidarity_strength", 0)
	case EdgeClientState:
		if v, ok := lookupFloat(r.Attrs, "subsidy_cap"); ok {
			e.SubsidyCap = &v
		}
	}
	return e, nil
}

// lookupFloat reads a numeric attribute, coercing the types JSON decoding
// can produce.
func lookupFloat(attrs map[string]any, key string) (float64, bool) {
	switch v := attrs[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func reqFloat(attrs map[string]any, key string) (float64, error) {
	v, ok := lookupFloat(attrs, key)
	if !ok {
		return 0, fmt.Errorf("missing or non-numeric attribute %q", key)
	}
	return v, nil
}

func optFloat(attrs map[string]any, key string, def float64) float64 {
	if v, ok := lookupFloat(attrs, key); ok {
		return v
	}
	return def
}

func reqBool(attrs map[string]any, key string) (bool, error) {
	v, ok := attrs[key].(bool)
	if !ok {
		return false, fmt.Errorf("missing or non-boolean attribute %q", key)
	}
	return v, nil
}

func reqString(attrs map[string]any, key string) (string, error) {
	v, ok := attrs[key].(string)
	if !ok {
		return "", fmt.Errorf("missing or non-string attribute %q", key)
	}
	return v, nil
}
