package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/percy-raskova/babylon-sub002/internal/config"
	"github.com/percy-raskova/babylon-sub002/internal/events"
	"github.com/percy-raskova/babylon-sub002/internal/world"
)

func TestSurvivalProbabilities(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		name     string
		entity   world.Entity
		wantAcq  float64
		wantRev  float64
		acqDelta float64
	}{
		{
			name: "at subsistence the sigmoid sits at one half",
			entity: world.Entity{
				Wealth:               5.0,
				SubsistenceThreshold: world.Ptr(5.0),
				Organization:         world.Ptr(0.2),
				RepressionFaced:      world.Ptr(0.5),
			},
			wantAcq: 0.5, wantRev: 0.4, acqDelta: 1e-9,
		},
		{
			name: "organization outrunning repression caps at one",
			entity: world.Entity{
				Wealth:               20,
				SubsistenceThreshold: world.Ptr(5.0),
				Organization:         world.Ptr(0.8),
				RepressionFaced:      world.Ptr(0.4),
			},
			wantAcq: 0.999, wantRev: 1.0, acqDelta: 1e-3,
		},
		{
			name: "zero repression with any organization means certain revolt",
			entity: world.Entity{
				Wealth:               1,
				SubsistenceThreshold: world.Ptr(5.0),
				Organization:         world.Ptr(0.1),
				RepressionFaced:      world.Ptr(0.0),
			},
			wantAcq: 0.119, wantRev: 1.0, acqDelta: 1e-3,
		},
		{
			name:   "unset attributes fall back to configured defaults",
			entity: world.Entity{Wealth: 5.0},
			// defaults: org 0.1, repression 0.5, subsistence 5.0
			wantAcq: 0.5, wantRev: 0.2, acqDelta: 1e-9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pAcq, pRev := survivalProbabilities(&tt.entity, cfg)
			assert.InDelta(t, tt.wantAcq, pAcq, tt.acqDelta)
			assert.InDelta(t, tt.wantRev, pRev, 1e-9)
		})
	}
}

func TestNormalizedWealthGap(t *testing.T) {
	assert.InDelta(t, 0.5, normalizedWealthGap(25, 75), 1e-9)
	assert.InDelta(t, -0.5, normalizedWealthGap(75, 25), 1e-9)
	assert.InDelta(t, 0.0, normalizedWealthGap(50, 50), 1e-9)
	assert.InDelta(t, 0.0, normalizedWealthGap(0, 0), 1e-9)
	assert.InDelta(t, 1.0, normalizedWealthGap(0, 10), 1e-9)
	assert.InDelta(t, -1.0, normalizedWealthGap(10, 0), 1e-9)
}

func tensionPair(t *testing.T, srcWealth, dstWealth, tension float64) *world.State {
	t.Helper()
	s := world.NewState()
	s.Tick = 1
	require.NoError(t, s.AddEntity(world.Entity{
		ID: "exploited", Role: world.RolePeripheryProletariat, Wealth: srcWealth, Active: true,
	}))
	require.NoError(t, s.AddEntity(world.Entity{
		ID: "exploiter", Role: world.RoleCompradorBourgeoisie, Wealth: dstWealth, Active: true,
	}))
	require.NoError(t, s.AddEdge(world.Edge{
		Source: "exploited", Target: "exploiter", Type: world.EdgeExploitation, Tension: tension,
	}))
	return s
}

func TestContradictionRupture(t *testing.T) {
	cfg := config.Default()
	cfg.Contradiction.AccumulationRate = 1.0
	svc := testServices(cfg)
	run := NewRunState()

	// Maximal positive gap pushes tension straight to saturation.
	s := tensionPair(t, 0, 100, 0.5)
	evs, err := ContradictionSystem{}.Step(s, svc, run)
	require.NoError(t, err)

	edge := s.EdgesOfType(world.EdgeExploitation)[0]
	assert.InDelta(t, 1.0, edge.Tension, 1e-9)
	assert.Equal(t, world.TensionResolved, edge.TensionState)
	require.Len(t, evs, 1)
	assert.Equal(t, events.KindRupture, evs[0].Kind)

	// Resolved edges are frozen: no further movement, no further events.
	evs, err = ContradictionSystem{}.Step(s, svc, run)
	require.NoError(t, err)
	assert.Empty(t, evs)
	assert.InDelta(t, 1.0, edge.Tension, 1e-9)
}

func TestContradictionSynthesis(t *testing.T) {
	cfg := config.Default()
	cfg.Contradiction.AccumulationRate = 1.0
	svc := testServices(cfg)
	run := NewRunState()

	// The exploited pulling ahead drains tension to zero.
	s := tensionPair(t, 100, 0, 0.4)
	evs, err := ContradictionSystem{}.Step(s, svc, run)
	require.NoError(t, err)

	edge := s.EdgesOfType(world.EdgeExploitation)[0]
	assert.InDelta(t, 0.0, edge.Tension, 1e-9)
	assert.Equal(t, world.TensionResolved, edge.TensionState)
	require.Len(t, evs, 1)
	assert.Equal(t, events.KindSynthesis, evs[0].Kind)
}

func TestContradictionAtZeroNeverSynthesizes(t *testing.T) {
	cfg := config.Default()
	svc := testServices(cfg)
	run := NewRunState()

	// Tension resting at zero with a negative gap stays active: synthesis
	// requires draining from a positive value.
	s := tensionPair(t, 100, 0, 0.0)
	evs, err := ContradictionSystem{}.Step(s, svc, run)
	require.NoError(t, err)
	assert.Empty(t, evs)

	edge := s.EdgesOfType(world.EdgeExploitation)[0]
	assert.InDelta(t, 0.0, edge.Tension, 1e-9)
	assert.Equal(t, world.TensionActive, edge.TensionState)
}

func wageCutState(t *testing.T, solidarity float64) *world.State {
	t.Helper()
	s := world.NewState()
	s.Tick = 5
	require.NoError(t, s.AddEntity(world.Entity{
		ID: "payer", Role: world.RoleCoreBourgeoisie, Wealth: 1000, Active: true,
	}))
	require.NoError(t, s.AddEntity(world.Entity{
		ID: "earner", Role: world.RoleLaborAristocracy, Wealth: 50, Active: true,
		Ideology: world.Ideology{ClassConsciousness: 0.2, NationalIdentity: 0.2},
	}))
	require.NoError(t, s.AddEntity(world.Entity{
		ID: "comrades", Role: world.RolePeripheryProletariat, Wealth: 50, Active: true,
	}))
	require.NoError(t, s.AddEdge(world.Edge{
		Source: "payer", Target: "earner", Type: world.EdgeWages, ValueFlow: 1.0,
	}))
	if solidarity > 0 {
		require.NoError(t, s.AddEdge(world.Edge{
			Source: "comrades", Target: "earner", Type: world.EdgeSolidarity,
			SolidarityStrength: solidarity,
		}))
	}
	return s
}

func TestWageCutRoutesBySolidarity(t *testing.T) {
	cfg := config.Default()
	svc := testServices(cfg)

	t.Run("full solidarity routes to class consciousness", func(t *testing.T) {
		s := wageCutState(t, 1.0)
		run := NewRunState()
		run.PrevWages["earner"] = 3.0 // a drop of 2.0 against the current 1.0

		_, err := StruggleSystem{}.Step(s, svc, run)
		require.NoError(t, err)

		e := s.Entity("earner")
		// gain = 2.0 * agitation_per_unit(0.5) = 1.0, all routed left.
		assert.InDelta(t, 1.0, e.Ideology.ClassConsciousness, 1e-9)
		assert.InDelta(t, 0.2, e.Ideology.NationalIdentity, 1e-9)
	})

	t.Run("no solidarity routes to national identity", func(t *testing.T) {
		s := wageCutState(t, 0)
		run := NewRunState()
		run.PrevWages["earner"] = 3.0

		_, err := StruggleSystem{}.Step(s, svc, run)
		require.NoError(t, err)

		e := s.Entity("earner")
		assert.InDelta(t, 0.2, e.Ideology.ClassConsciousness, 1e-9)
		assert.InDelta(t, 1.0, e.Ideology.NationalIdentity, 1e-9)
	})

	t.Run("half solidarity splits the routing", func(t *testing.T) {
		s := wageCutState(t, 0.5)
		run := NewRunState()
		run.PrevWages["earner"] = 3.0

		_, err := StruggleSystem{}.Step(s, svc, run)
		require.NoError(t, err)

		e := s.Entity("earner")
		assert.InDelta(t, 0.7, e.Ideology.ClassConsciousness, 1e-9)
		assert.InDelta(t, 0.7, e.Ideology.NationalIdentity, 1e-9)
	})

	t.Run("rising wages move nothing", func(t *testing.T) {
		s := wageCutState(t, 1.0)
		run := NewRunState()
		run.PrevWages["earner"] = 0.5

		_, err := StruggleSystem{}.Step(s, svc, run)
		require.NoError(t, err)

		e := s.Entity("earner")
		assert.InDelta(t, 0.2, e.Ideology.ClassConsciousness, 1e-9)
		assert.InDelta(t, 0.2, e.Ideology.NationalIdentity, 1e-9)
		assert.InDelta(t, 1.0, run.PrevWages["earner"], 1e-9)
	})
}

func vacuumState(t *testing.T, org, consciousness float64, withAristocracy bool) *world.State {
	t.Helper()
	s := world.NewState()
	s.Tick = 3
	require.NoError(t, s.AddEntity(world.Entity{
		ID: "periphery", Role: world.RolePeripheryProletariat, Wealth: 50, Active: true,
		Organization: world.Ptr(org),
		Ideology:     world.Ideology{ClassConsciousness: consciousness},
	}))
	require.NoError(t, s.AddEntity(world.Entity{
		ID: "client", Role: world.RoleCompradorBourgeoisie,
		Wealth: 2.0, Active: true,
		SubsistenceThreshold: world.Ptr(5.0),
	}))
	require.NoError(t, s.AddEdge(world.Edge{
		Source: "periphery", Target: "client", Type: world.EdgeExploitation,
	}))
	if withAristocracy {
		require.NoError(t, s.AddEntity(world.Entity{
			ID: "aristocracy", Role: world.RoleLaborAristocracy, Wealth: 60, Active: true,
			Ideology: world.Ideology{NationalIdentity: 0.3},
		}))
	}
	return s
}

func TestPowerVacuumRevolutionaryOffensive(t *testing.T) {
	cfg := config.Default()
	svc := testServices(cfg)
	s := vacuumState(t, 0.8, 0.6, true) // capacity 0.48 >= 0.4

	evs, err := StruggleSystem{}.Step(s, svc, NewRunState())
	require.NoError(t, err)

	assert.Equal(t, 1, countKind(evs, events.KindPowerVacuum))
	require.Equal(t, 1, countKind(evs, events.KindRevolutionaryOffensive))
	assert.Zero(t, countKind(evs, events.KindFascistRevanchism))

	p := s.Entity("periphery")
	assert.InDelta(t, 1.0, p.PRevolution, 1e-9)
	assert.InDelta(t, cfg.Struggle.OffensiveBoost, p.Ideology.Agitation, 1e-9)

	for _, ev := range evs {
		if ev.Kind == events.KindRevolutionaryOffensive {
			payload := ev.Payload.(events.OffensivePayload)
			assert.InDelta(t, 0.48, payload.Capacity, 1e-9)
			assert.NotEmpty(t, payload.NarrativeHint)
		}
	}
}

func TestPowerVacuumFascistRevanchism(t *testing.T) {
	cfg := config.Default()
	svc := testServices(cfg)
	s := vacuumState(t, 0.2, 0.3, true) // capacity 0.06 < 0.4

	evs, err := StruggleSystem{}.Step(s, svc, NewRunState())
	require.NoError(t, err)

	assert.Equal(t, 1, countKind(evs, events.KindPowerVacuum))
	require.Equal(t, 1, countKind(evs, events.KindFascistRevanchism))

	a := s.Entity("aristocracy")
	assert.InDelta(t, 0.3+cfg.Struggle.RevanchismBoost, a.Ideology.NationalIdentity, 1e-9)
	assert.InDelta(t, cfg.Struggle.RevanchismBoost, a.PAcquiescence, 1e-9)

	for _, ev := range evs {
		if ev.Kind == events.KindFascistRevanchism {
			payload := ev.Payload.(events.RevanchismPayload)
			require.NotNil(t, payload.AristocracyID)
			assert.Equal(t, "aristocracy", *payload.AristocracyID)
		}
	}
}

func TestPowerVacuumRevanchismWithoutAristocracy(t *testing.T) {
	cfg := config.Default()
	svc := testServices(cfg)
	s := vacuumState(t, 0.2, 0.3, false)

	evs, err := StruggleSystem{}.Step(s, svc, NewRunState())
	require.NoError(t, err)

	require.Equal(t, 1, countKind(evs, events.KindFascistRevanchism))
	for _, ev := range evs {
		if ev.Kind == events.KindFascistRevanchism {
			assert.Nil(t, ev.Payload.(events.RevanchismPayload).AristocracyID)
		}
	}
}

func decompositionState(t *testing.T, withShells bool) *world.State {
	t.Helper()
	s := world.NewState()
	s.Tick = 10
	require.NoError(t, s.AddEntity(world.Entity{
		ID: "aristocracy", Role: world.RoleLaborAristocracy,
		Wealth: 40, Population: 1000, Active: true,
	}))
	if withShells {
		require.NoError(t, s.AddEntity(world.Entity{
			ID: "enforcers", Role: world.RoleCarceralEnforcer, Active: false,
		}))
		require.NoError(t, s.AddEntity(world.Entity{
			ID: "internal", Role: world.RoleInternalProletariat, Active: false,
		}))
	}
	return s
}

func TestDecompositionRequiresArming(t *testing.T) {
	cfg := config.Default()
	svc := testServices(cfg)
	s := decompositionState(t, true)
	s.Entity("aristocracy").Wealth = 0.1 // insolvent, but the crisis is not armed

	evs, err := DecompositionSystem{}.Step(s, svc, NewRunState())
	require.NoError(t, err)
	assert.Empty(t, evs)
	assert.True(t, s.Entity("aristocracy").Active)
}

func TestDecompositionDelayPath(t *testing.T) {
	cfg := config.Default()
	svc := testServices(cfg)
	s := decompositionState(t, true)
	run := NewRunState()
	run.RaiseSuperwageCrisis(8, "manual")

	// Tick 10, armed at 8, delay 4: not yet.
	evs, err := DecompositionSystem{}.Step(s, svc, run)
	require.NoError(t, err)
	assert.Empty(t, evs)

	s.Tick = 12
	evs, err = DecompositionSystem{}.Step(s, svc, run)
	require.NoError(t, err)
	require.Len(t, evs, 1)

	payload := evs[0].Payload.(events.DecompositionPayload)
	assert.Equal(t, "crisis_delay", payload.TriggeredBy)
	assert.Equal(t, 150, payload.EnforcerPopulation)
	assert.Equal(t, 850, payload.InternalPopulation)
	assert.InDelta(t, 6.0, payload.EnforcerWealth, 1e-9)
	assert.InDelta(t, 34.0, payload.InternalWealth, 1e-9)

	assert.False(t, s.Entity("aristocracy").Active)
	assert.True(t, s.Entity("enforcers").Active)
	assert.True(t, s.Entity("internal").Active)
	assert.Equal(t, 150, s.Entity("enforcers").Population)
	assert.Equal(t, 850, s.Entity("internal").Population)
	assert.True(t, run.DecompositionDone)

	// Armed or not, done is done.
	evs, err = DecompositionSystem{}.Step(s, svc, run)
	require.NoError(t, err)
	assert.Empty(t, evs)
}

func TestDecompositionInsolvencyFallback(t *testing.T) {
	cfg := config.Default()
	svc := testServices(cfg)
	s := decompositionState(t, true)
	s.Entity("aristocracy").Wealth = 1.0 // below the default subsistence of 5
	run := NewRunState()
	run.RaiseSuperwageCrisis(10, "manual") // armed this very tick, delay not met

	evs, err := DecompositionSystem{}.Step(s, svc, run)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, "insolvency", evs[0].Payload.(events.DecompositionPayload).TriggeredBy)
}

func TestDecompositionWithoutShellsIsAnError(t *testing.T) {
	cfg := config.Default()
	svc := testServices(cfg)
	s := decompositionState(t, false)
	run := NewRunState()
	run.RaiseSuperwageCrisis(1, "manual")

	_, err := DecompositionSystem{}.Step(s, svc, run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dormant")
}

func carceralState(t *testing.T, enforcers, internal, lumpen int, org float64) *world.State {
	t.Helper()
	s := world.NewState()
	s.Tick = 20
	if enforcers > 0 {
		require.NoError(t, s.AddEntity(world.Entity{
			ID: "enforcers", Role: world.RoleCarceralEnforcer,
			Wealth: 10, Population: enforcers, Active: true,
		}))
	}
	require.NoError(t, s.AddEntity(world.Entity{
		ID: "internal", Role: world.RoleInternalProletariat,
		Wealth: 10, Population: internal, Active: true,
		Organization: world.Ptr(org),
	}))
	if lumpen > 0 {
		require.NoError(t, s.AddEntity(world.Entity{
			ID: "lumpen", Role: world.RoleLumpenproletariat,
			Wealth: 10, Population: lumpen, Active: true,
			Organization: world.Ptr(0.1),
		}))
	}
	return s
}

func TestControlRatioCrisis(t *testing.T) {
	cfg := config.Default()
	svc := testServices(cfg)
	s := carceralState(t, 100, 500, 0, 0.6)
	run := NewRunState()
	run.DecompositionDone = true

	evs, err := ControlRatioSystem{}.Step(s, svc, run)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	require.Equal(t, events.KindControlRatioCrisis, evs[0].Kind)

	payload := evs[0].Payload.(events.ControlCrisisPayload)
	assert.Equal(t, 500, payload.Prisoners)
	assert.Equal(t, 100, payload.Enforcers)
	assert.Equal(t, 400, payload.MaxControllable)
	assert.Equal(t, 100, payload.OverCapacity)
	assert.InDelta(t, 5.0, payload.Ratio, 1e-9)
	require.NotNil(t, run.ControlCrisisAt)
	assert.Equal(t, uint64(20), *run.ControlCrisisAt)

	// The crisis phase fires once.
	evs, err = ControlRatioSystem{}.Step(s, svc, run)
	require.NoError(t, err)
	assert.Empty(t, evs)
}

func TestControlRatioBeforeDecompositionIsInert(t *testing.T) {
	cfg := config.Default()
	svc := testServices(cfg)
	s := carceralState(t, 1, 500, 0, 0.6)

	evs, err := ControlRatioSystem{}.Step(s, svc, NewRunState())
	require.NoError(t, err)
	assert.Empty(t, evs)
}

func TestControlRatioZeroEnforcers(t *testing.T) {
	cfg := config.Default()
	svc := testServices(cfg)
	s := carceralState(t, 0, 50, 0, 0.6)
	run := NewRunState()
	run.DecompositionDone = true

	evs, err := ControlRatioSystem{}.Step(s, svc, run)
	require.NoError(t, err)
	require.Len(t, evs, 1)

	payload := evs[0].Payload.(events.ControlCrisisPayload)
	assert.Equal(t, 0, payload.Enforcers)
	assert.InDelta(t, 0.0, payload.Ratio, 1e-9, "zero enforcers must not report an infinite ratio")
	assert.Contains(t, evs[0].Message, "no enforcers")
}

func TestTerminalDecision(t *testing.T) {
	tests := []struct {
		name        string
		internalOrg float64
		lumpen      int
		wantOutcome string
	}{
		{"organized prisoners revolt", 0.6, 0, "revolution"},
		{"disorganized prisoners are consumed", 0.2, 0, "genocide"},
		// 500 at 0.8 and 500 at 0.1 average to 0.45, below the 0.5 bar.
		{"lumpen weight drags the average down", 0.8, 500, "genocide"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			svc := testServices(cfg)
			s := carceralState(t, 10, 500, tt.lumpen, tt.internalOrg)
			run := NewRunState()
			run.DecompositionDone = true

			// First step records the crisis.
			evs, err := ControlRatioSystem{}.Step(s, svc, run)
			require.NoError(t, err)
			require.Equal(t, 1, countKind(evs, events.KindControlRatioCrisis))

			// The verdict lands only after the configured delay.
			for s.Tick < 20+cfg.Control.DecisionDelayTicks {
				s.Tick++
				evs, err = ControlRatioSystem{}.Step(s, svc, run)
				require.NoError(t, err)
				if s.Tick < 20+cfg.Control.DecisionDelayTicks {
					assert.Empty(t, evs)
				}
			}

			require.Equal(t, 1, countKind(evs, events.KindTerminalDecision))
			payload := evs[0].Payload.(events.TerminalPayload)
			assert.Equal(t, tt.wantOutcome, payload.Outcome)
			assert.True(t, run.TerminalDecided)
			assert.Equal(t, tt.wantOutcome, run.TerminalOutcome)

			// Decided is decided.
			s.Tick++
			evs, err = ControlRatioSystem{}.Step(s, svc, run)
			require.NoError(t, err)
			assert.Empty(t, evs)
		})
	}
}

func TestSimDate(t *testing.T) {
	assert.Equal(t, "Year 1, Week 0", SimDate(0, 52))
	assert.Equal(t, "Year 1, Week 1", SimDate(1, 52))
	assert.Equal(t, "Year 1, Week 52", SimDate(52, 52))
	assert.Equal(t, "Year 2, Week 1", SimDate(53, 52))
	assert.Equal(t, "Year 3, Week 2", SimDate(106, 52))
}
