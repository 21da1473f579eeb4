package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/percy-raskova/babylon-sub002/internal/config"
	"github.com/percy-raskova/babylon-sub002/internal/events"
	"github.com/percy-raskova/babylon-sub002/internal/world"
)

// memStore records persistence calls so tests can assert cadence.
type memStore struct {
	mu        sync.Mutex
	stats     []TickSummary
	snapshots []world.Snapshot
	batches   [][]events.Event
	fail      bool
}

func (m *memStore) SaveSnapshot(runID string, snap world.Snapshot, run *RunState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("store down")
	}
	m.snapshots = append(m.snapshots, snap)
	return nil
}

func (m *memStore) SaveEvents(runID string, evs []events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("store down")
	}
	batch := make([]events.Event, len(evs))
	copy(batch, evs)
	m.batches = append(m.batches, batch)
	return nil
}

func (m *memStore) SaveStats(runID string, summary TickSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("store down")
	}
	m.stats = append(m.stats, summary)
	return nil
}

func (m *memStore) counts() (stats, snapshots, batches int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stats), len(m.snapshots), len(m.batches)
}

// quietState builds a world that emits no events: one solvent entity,
// no edges, and a rent pool parked between the policy bands.
func quietState(t *testing.T, cfg *config.Config) *world.State {
	t.Helper()
	s := world.NewState()
	s.Economy = world.Economy{
		RentPool:        cfg.Pool.Initial * 0.5,
		InitialRentPool: cfg.Pool.Initial,
		SuperWageRate:   cfg.Wages.InitialRate,
		RepressionLevel: 0.3,
	}
	require.NoError(t, s.AddEntity(world.Entity{
		ID: "citizens", Role: world.RolePettyBourgeoisie,
		Wealth: 500, Population: 100, Active: true,
		SBio: 0.2, SClass: 0.1,
	}))
	return s
}

func TestEnginePersistCadence(t *testing.T) {
	cfg := config.Default()
	svc := testServices(cfg)
	store := &memStore{}
	svc.Store = store

	eng := New(svc, quietState(t, cfg), NewRunState())
	eng.SetSaveEvery(3)

	for i := 0; i < 6; i++ {
		_, err := eng.StepOnce()
		require.NoError(t, err)
	}

	stats, snapshots, batches := store.counts()
	assert.Equal(t, 6, stats, "stats are written every tick")
	assert.Equal(t, 2, snapshots, "snapshots land on the save-every cadence")
	assert.Zero(t, batches, "a quiet world writes no event batches")
	assert.Equal(t, uint64(3), store.snapshots[0].Tick)
	assert.Equal(t, uint64(6), store.snapshots[1].Tick)
	assert.Equal(t, uint64(6), eng.Tick())
}

func TestEnginePersistsEventBatches(t *testing.T) {
	cfg := config.Default()
	svc := testServices(cfg)
	store := &memStore{}
	svc.Store = store

	s := quietState(t, cfg)
	require.NoError(t, s.AddEntity(world.Entity{
		ID: "doomed", Role: world.RoleLumpenproletariat,
		Wealth: 0, Active: true, SBio: 0.2, SClass: 0.1,
	}))

	eng := New(svc, s, NewRunState())
	_, err := eng.StepOnce()
	require.NoError(t, err)

	_, _, batches := store.counts()
	require.Equal(t, 1, batches)
	require.Len(t, store.batches[0], 1)
	assert.Equal(t, events.KindEntityDied, store.batches[0][0].Kind)
}

func TestEngineToleratesStoreFailures(t *testing.T) {
	cfg := config.Default()
	svc := testServices(cfg)
	svc.Store = &memStore{fail: true}

	eng := New(svc, quietState(t, cfg), NewRunState())
	eng.SetSaveEvery(1)

	_, err := eng.StepOnce()
	require.NoError(t, err, "storage trouble must not halt the simulation")
	assert.Equal(t, uint64(1), eng.Tick())
}

func TestEnginePlayPause(t *testing.T) {
	cfg := config.Default()
	eng := New(testServices(cfg), quietState(t, cfg), NewRunState())

	assert.False(t, eng.Playing())
	eng.Play()
	assert.True(t, eng.Playing())
	eng.Pause()
	assert.False(t, eng.Playing())
}

func TestEngineResetRequiresRebuild(t *testing.T) {
	cfg := config.Default()
	eng := New(testServices(cfg), quietState(t, cfg), NewRunState())

	err := eng.Reset()
	require.ErrorIs(t, err, ErrNoRebuild)
}

func TestEngineReset(t *testing.T) {
	cfg := config.Default()
	eng := New(testServices(cfg), quietState(t, cfg), NewRunState())
	eng.SetRebuild(func() (*world.State, *RunState, error) {
		return quietState(t, cfg), NewRunState(), nil
	})

	for i := 0; i < 3; i++ {
		_, err := eng.StepOnce()
		require.NoError(t, err)
	}
	require.Equal(t, uint64(3), eng.Tick())
	oldID := eng.RunID()

	require.NoError(t, eng.Reset())
	assert.Equal(t, uint64(0), eng.Tick())
	assert.NotEmpty(t, eng.RunID())
	assert.NotEqual(t, oldID, eng.RunID(), "a reset starts a fresh run")
}

func TestEngineResetSurfacesRebuildErrors(t *testing.T) {
	cfg := config.Default()
	eng := New(testServices(cfg), quietState(t, cfg), NewRunState())
	eng.SetRebuild(func() (*world.State, *RunState, error) {
		return nil, nil, errors.New("bad scenario file")
	})

	err := eng.Reset()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rebuild scenario")
}

func TestEngineOnTick(t *testing.T) {
	cfg := config.Default()
	eng := New(testServices(cfg), quietState(t, cfg), NewRunState())

	var seen []uint64
	eng.OnTick(func(summary TickSummary) {
		seen = append(seen, summary.Tick)
	})

	for i := 0; i < 2; i++ {
		_, err := eng.StepOnce()
		require.NoError(t, err)
	}
	assert.Equal(t, []uint64{1, 2}, seen)
}

func TestEngineWithStateAndSnapshot(t *testing.T) {
	cfg := config.Default()
	eng := New(testServices(cfg), quietState(t, cfg), NewRunState())

	eng.WithState(func(s *world.State, _ *RunState) {
		s.Entity("citizens").Wealth = 7777
	})

	snap, runCopy := eng.Snapshot()
	assert.Equal(t, eng.Tick(), snap.Tick)
	assert.Equal(t, eng.RunID(), runCopy.RunID)

	var found bool
	for _, n := range snap.Nodes {
		if n.ID == "citizens" {
			found = true
			assert.InDelta(t, 7777.0, n.Attrs["wealth"].(float64), 1e-9)
		}
	}
	require.True(t, found)
}

func TestEngineRaiseSuperwageCrisis(t *testing.T) {
	cfg := config.Default()
	eng := New(testServices(cfg), quietState(t, cfg), NewRunState())

	_, err := eng.StepOnce()
	require.NoError(t, err)

	assert.True(t, eng.RaiseSuperwageCrisis("manual"))
	assert.False(t, eng.RaiseSuperwageCrisis("manual"), "arming is idempotent")

	_, runCopy := eng.Snapshot()
	require.NotNil(t, runCopy.SuperwageCrisisSince)
	assert.Equal(t, uint64(1), *runCopy.SuperwageCrisisSince)
	assert.Equal(t, "manual", runCopy.SuperwageReason)
}

func TestEngineRunHonorsCancel(t *testing.T) {
	cfg := config.Default()
	eng := New(testServices(cfg), quietState(t, cfg), NewRunState())
	eng.SetInterval(time.Millisecond)
	eng.Play()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for eng.Tick() < 3 {
		select {
		case <-deadline:
			t.Fatal("engine never advanced while playing")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop after cancellation")
	}
}
