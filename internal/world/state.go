package world

import (
	"errors"
	"fmt"
)

// Sentinel errors for scenario-construction failures. These indicate a bug
// in the scenario, not a runtime condition; callers fail fast on them.
var (
	ErrDuplicateID   = errors.New("duplicate id")
	ErrUnknownNode   = errors.New("unknown node id")
	ErrNotATerritory = errors.New("target is not a territory")
	ErrEmptyID       = errors.New("empty id")
)

// Handles are stable arena indices. They never change once assigned, so
// systems may hold them across a tick without aliasing hazards.
type (
	EntityHandle    int
	TerritoryHandle int
	EdgeHandle      int
)

// State is the complete mutable world: every node, edge, the economy, the
// tick counter, and the human-readable event log. Exactly one tick driver
// owns a State while it advances; nothing else mutates it concurrently.
type State struct {
	Tick uint64

	entities     []Entity
	entityIdx    map[string]EntityHandle
	territories  []Territory
	territoryIdx map[string]TerritoryHandle
	edges        []Edge
	edgeIdx      map[EdgeKey]EdgeHandle

	Economy  Economy
	EventLog []string
}

// NewState returns an empty world.
func NewState() *State {
	return &State{
		entityIdx:    make(map[string]EntityHandle),
		territoryIdx: make(map[string]TerritoryHandle),
		edgeIdx:      make(map[EdgeKey]EdgeHandle),
	}
}

// AddEntity inserts a node. IDs are unique across entities and territories.
func (s *State) AddEntity(e Entity) error {
	if e.ID == "" {
		return ErrEmptyID
	}
	if s.hasNode(e.ID) {
		return fmt.Errorf("entity %q: %w", e.ID, ErrDuplicateID)
	}
	s.entityIdx[e.ID] = EntityHandle(len(s.entities))
	s.entities = append(s.entities, e)
	return nil
}

// AddTerritory inserts a land node. IDs are unique across entities and
// territories.
func (s *State) AddTerritory(t Territory) error {
	if t.ID == "" {
		return ErrEmptyID
	}
	if s.hasNode(t.ID) {
		return fmt.Errorf("territory %q: %w", t.ID, ErrDuplicateID)
	}
	s.territoryIdx[t.ID] = TerritoryHandle(len(s.territories))
	s.territories = append(s.territories, t)
	return nil
}

// AddEdge inserts a relationship. Both endpoints must already exist; a
// Tenancy target must be a territory and every other target an entity.
func (s *State) AddEdge(e Edge) error {
	if _, ok := s.entityIdx[e.Source]; !ok {
		return fmt.Errorf("edge %s->%s (%s): source: %w", e.Source, e.Target, e.Type, ErrUnknownNode)
	}
	if e.Type == EdgeTenancy {
		if _, ok := s.territoryIdx[e.Target]; !ok {
			if s.hasNode(e.Target) {
				return fmt.Errorf("edge %s->%s (%s): %w", e.Source, e.Target, e.Type, ErrNotATerritory)
			}
			return fmt.Errorf("edge %s->%s (%s): target: %w", e.Source, e.Target, e.Type, ErrUnknownNode)
		}
	} else if _, ok := s.entityIdx[e.Target]; !ok {
		return fmt.Errorf("edge %s->%s (%s): target: %w", e.Source, e.Target, e.Type, ErrUnknownNode)
	}
	key := e.Key()
	if _, ok := s.edgeIdx[key]; ok {
		return fmt.Errorf("edge %s->%s (%s): %w", e.Source, e.Target, e.Type, ErrDuplicateID)
	}
	s.edgeIdx[key] = EdgeHandle(len(s.edges))
	s.edges = append(s.edges, e)
	return nil
}

func (s *State) hasNode(id string) bool {
	if _, ok := s.entityIdx[id]; ok {
		return true
	}
	_, ok := s.territoryIdx[id]
	return ok
}

// Entity returns the node with the given id, or nil if absent. Edge
// endpoints are validated at construction, so systems dereference the
// result directly.
func (s *State) Entity(id string) *Entity {
	h, ok := s.entityIdx[id]
	if !ok {
		return nil
	}
	return &s.entities[h]
}

// Territory returns the land node with the given id, or nil if absent.
func (s *State) Territory(id string) *Territory {
	h, ok := s.territoryIdx[id]
	if !ok {
		return nil
	}
	return &s.territories[h]
}

// Entities returns every entity in stable insertion order.
func (s *State) Entities() []*Entity {
	out := make([]*Entity, len(s.entities))
	for i := range s.entities {
		out[i] = &s.entities[i]
	}
	return out
}

// Territories returns every land node in stable insertion order.
func (s *State) Territories() []*Territory {
	out := make([]*Territory, len(s.territories))
	for i := range s.territories {
		out[i] = &s.territories[i]
	}
	return out
}

// Edges returns every relationship in stable insertion order.
func (s *State) Edges() []*Edge {
	out := make([]*Edge, len(s.edges))
	for i := range s.edges {
		out[i] = &s.edges[i]
	}
	return out
}

// EdgesOfType returns relationships of one kind in stable insertion order.
func (s *State) EdgesOfType(t EdgeType) []*Edge {
	var out []*Edge
	for i := range s.edges {
		if s.edges[i].Type == t {
			out = append(out, &s.edges[i])
		}
	}
	return out
}

// InEdges returns edges of the given type pointing at the node.
func (s *State) InEdges(id string, t EdgeType) []*Edge {
	var out []*Edge
	for i := range s.edges {
		if s.edges[i].Type == t && s.edges[i].Target == id {
			out = append(out, &s.edges[i])
		}
	}
	return out
}

// OutEdges returns edges of the given type leaving the node.
func (s *State) OutEdges(id string, t EdgeType) []*Edge {
	var out []*Edge
	for i := range s.edges {
		if s.edges[i].Type == t && s.edges[i].Source == id {
			out = append(out, &s.edges[i])
		}
	}
	return out
}

// ByRole returns entities holding the given class position, in stable
// insertion order.
func (s *State) ByRole(r Role) []*Entity {
	var out []*Entity
	for i := range s.entities {
		if s.entities[i].Role == r {
			out = append(out, &s.entities[i])
		}
	}
	return out
}

// TotalWealth sums wealth across active entities.
func (s *State) TotalWealth() float64 {
	total := 0.0
	for i := range s.entities {
		if s.entities[i].Active {
			total += s.entities[i].Wealth
		}
	}
	return total
}

// ActiveCount returns the number of living entities.
func (s *State) ActiveCount() int {
	n := 0
	for i := range s.entities {
		if s.entities[i].Active {
			n++
		}
	}
	return n
}

// LogEvent appends a line to the human-readable event log.
func (s *State) LogEvent(line string) {
	s.EventLog = append(s.EventLog, line)
}
