package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testState(t *testing.T) *State {
	t.Helper()
	s := NewState()
	require.NoError(t, s.AddEntity(Entity{
		ID:     "workers",
		Role:   RolePeripheryProletariat,
		Wealth: 100,
		Active: true,
	}))
	require.NoError(t, s.AddEntity(Entity{
		ID:     "comprador",
		Role:   RoleCompradorBourgeoisie,
		Wealth: 8,
		Active: true,
	}))
	require.NoError(t, s.AddTerritory(Territory{
		ID:          "hinterland",
		Sector:      SectorAgrarian,
		Biocapacity: 80,
	}))
	return s
}

func TestAddEntity(t *testing.T) {
	s := testState(t)

	err := s.AddEntity(Entity{Role: RoleLumpenproletariat})
	assert.ErrorIs(t, err, ErrEmptyID)

	err = s.AddEntity(Entity{ID: "workers", Role: RolePeripheryProletariat})
	assert.ErrorIs(t, err, ErrDuplicateID)

	// IDs are unique across both node sets.
	err = s.AddEntity(Entity{ID: "hinterland", Role: RolePeripheryProletariat})
	assert.ErrorIs(t, err, ErrDuplicateID)

	err = s.AddTerritory(Territory{ID: "workers", Sector: SectorUrban})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestAddEdgeValidation(t *testing.T) {
	tests := []struct {
		name    string
		edge    Edge
		wantErr error
	}{
		{
			name: "exploitation between entities",
			edge: Edge{Source: "workers", Target: "comprador", Type: EdgeExploitation},
		},
		{
			name: "tenancy onto territory",
			edge: Edge{Source: "workers", Target: "hinterland", Type: EdgeTenancy},
		},
		{
			name:    "unknown source",
			edge:    Edge{Source: "ghost", Target: "comprador", Type: EdgeTribute},
			wantErr: ErrUnknownNode,
		},
		{
			name:    "unknown target",
			edge:    Edge{Source: "workers", Target: "ghost", Type: EdgeTribute},
			wantErr: ErrUnknownNode,
		},
		{
			name:    "tenancy onto entity",
			edge:    Edge{Source: "workers", Target: "comprador", Type: EdgeTenancy},
			wantErr: ErrNotATerritory,
		},
		{
			name:    "non-tenancy onto territory",
			edge:    Edge{Source: "workers", Target: "hinterland", Type: EdgeSolidarity},
			wantErr: ErrUnknownNode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testState(t)
			err := s.AddEdge(tt.edge)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAddEdgeRejectsDuplicateKey(t *testing.T) {
	s := testState(t)
	edge := Edge{Source: "workers", Target: "comprador", Type: EdgeExploitation}
	require.NoError(t, s.AddEdge(edge))
	assert.ErrorIs(t, s.AddEdge(edge), ErrDuplicateID)
}

func TestLookupReturnsNilForMissing(t *testing.T) {
	s := testState(t)
	assert.Nil(t, s.Entity("ghost"))
	assert.Nil(t, s.Territory("ghost"))
	assert.Nil(t, s.Entity("hinterland"), "territory id is not an entity")
	assert.NotNil(t, s.Entity("workers"))
	assert.NotNil(t, s.Territory("hinterland"))
}

func TestStableIterationOrder(t *testing.T) {
	s := testState(t)
	require.NoError(t, s.AddEntity(Entity{ID: "core", Role: RoleCoreBourgeoisie, Active: true}))
	require.NoError(t, s.AddEdge(Edge{Source: "workers", Target: "comprador", Type: EdgeExploitation}))
	require.NoError(t, s.AddEdge(Edge{Source: "comprador", Target: "core", Type: EdgeTribute}))
	require.NoError(t, s.AddEdge(Edge{Source: "workers", Target: "hinterland", Type: EdgeTenancy}))

	var entityIDs []string
	for _, e := range s.Entities() {
		entityIDs = append(entityIDs, e.ID)
	}
	assert.Equal(t, []string{"workers", "comprador", "core"}, entityIDs)

	var edgeTypes []EdgeType
	for _, e := range s.Edges() {
		edgeTypes = append(edgeTypes, e.Type)
	}
	assert.Equal(t, []EdgeType{EdgeExploitation, EdgeTribute, EdgeTenancy}, edgeTypes)
}

func TestEdgeFilters(t *testing.T) {
	s := testState(t)
	require.NoError(t, s.AddEntity(Entity{ID: "core", Role: RoleCoreBourgeoisie, Active: true}))
	require.NoError(t, s.AddEdge(Edge{Source: "workers", Target: "comprador", Type: EdgeExploitation}))
	require.NoError(t, s.AddEdge(Edge{Source: "comprador", Target: "core", Type: EdgeTribute}))
	require.NoError(t, s.AddEdge(Edge{Source: "core", Target: "comprador", Type: EdgeClientState}))

	assert.Len(t, s.EdgesOfType(EdgeExploitation), 1)
	assert.Len(t, s.EdgesOfType(EdgeWages), 0)

	in := s.InEdges("comprador", EdgeExploitation)
	require.Len(t, in, 1)
	assert.Equal(t, "workers", in[0].Source)

	out := s.OutEdges("comprador", EdgeTribute)
	require.Len(t, out, 1)
	assert.Equal(t, "core", out[0].Target)

	assert.Empty(t, s.OutEdges("comprador", EdgeClientState))
}

func TestByRole(t *testing.T) {
	s := testState(t)
	require.NoError(t, s.AddEntity(Entity{ID: "more-workers", Role: RolePeripheryProletariat, Active: true}))

	workers := s.ByRole(RolePeripheryProletariat)
	require.Len(t, workers, 2)
	assert.Equal(t, "workers", workers[0].ID)
	assert.Equal(t, "more-workers", workers[1].ID)
	assert.Empty(t, s.ByRole(RoleCarceralEnforcer))
}

func TestTotalWealthCountsActiveOnly(t *testing.T) {
	s := testState(t)
	require.NoError(t, s.AddEntity(Entity{ID: "shell", Role: RoleInternalProletariat, Wealth: 999, Active: false}))

	assert.InDelta(t, 108.0, s.TotalWealth(), 1e-9)
	assert.Equal(t, 2, s.ActiveCount())
}

func TestEntityPointersMutateState(t *testing.T) {
	s := testState(t)
	s.Entity("workers").Wealth = 42
	assert.InDelta(t, 42.0, s.Entity("workers").Wealth, 1e-9)
}

func TestConsumptionNeeds(t *testing.T) {
	e := Entity{SBio: 0.3, SClass: 0.2}
	assert.InDelta(t, 0.5, e.ConsumptionNeeds(), 1e-9)
}

func TestClamp(t *testing.T) {
	assert.InDelta(t, 0.5, Clamp(0.5, 0, 1), 1e-9)
	assert.InDelta(t, 0.0, Clamp(-2, 0, 1), 1e-9)
	assert.InDelta(t, 1.0, Clamp(7, 0, 1), 1e-9)
	assert.InDelta(t, 1.0, Clamp01(1.5), 1e-9)
}

func TestOrDefault(t *testing.T) {
	assert.InDelta(t, 5.0, OrDefault(nil, 5.0), 1e-9)
	assert.InDelta(t, 2.0, OrDefault(Ptr(2.0), 5.0), 1e-9)
}
