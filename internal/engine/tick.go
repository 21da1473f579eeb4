// Package engine provides the tick-based simulation core: the ordered
// system pipeline, the cross-tick run state, and the driver that
// advances a world at a configurable cadence.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/percy-raskova/babylon-sub002/internal/world"
)

// ErrNoRebuild is returned by Reset when no rebuild function is wired.
var ErrNoRebuild = errors.New("engine: no rebuild function configured")

// RebuildFunc produces a fresh initial state and run record for RESET.
type RebuildFunc func() (*world.State, *RunState, error)

// Engine owns one world and advances it. Every entry point takes the
// mutex, so the loop, the HTTP layer, and tests may call in from
// different goroutines while a state is never advanced by two ticks
// concurrently. The mutex is not reentrant: tick callbacks and bus
// subscribers must not call back into the engine.
type Engine struct {
	mu       sync.Mutex
	state    *world.State
	run      *RunState
	pipeline *Pipeline
	svc      *Services

	playing   bool
	speed     float64
	interval  time.Duration
	saveEvery uint64
	rebuild   RebuildFunc
	onTick    []func(TickSummary)
}

// New creates a driver around an initial state and run record.
func New(svc *Services, state *world.State, run *RunState) *Engine {
	return &Engine{
		state:    state,
		run:      run,
		pipeline: NewPipeline(),
		svc:      svc,
		speed:    1.0,
		interval: time.Second,
	}
}

// SetSpeed adjusts the loop's tick-rate multiplier.
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if speed > 0 {
		e.speed = speed
	}
}

// Speed returns the current tick-rate multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetInterval adjusts the base tick interval.
func (e *Engine) SetInterval(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d > 0 {
		e.interval = d
	}
}

// SetSaveEvery sets the snapshot cadence in ticks; 0 disables snapshots.
func (e *Engine) SetSaveEvery(n uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.saveEvery = n
}

// SetRebuild wires the scenario rebuild used by Reset.
func (e *Engine) SetRebuild(fn RebuildFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rebuild = fn
}

// OnTick registers a callback invoked after every completed tick, in
// registration order, while the engine lock is held.
func (e *Engine) OnTick(fn func(TickSummary)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTick = append(e.onTick, fn)
}

// Run drives the loop until the context is cancelled. While paused it
// polls briefly; while playing it paces ticks to interval/speed,
// accounting for the time the tick itself took.
func (e *Engine) Run(ctx context.Context) {
	e.svc.Log.Info("engine started", "tick", e.Tick(), "run_id", e.RunID())

	for {
		select {
		case <-ctx.Done():
			e.svc.Log.Info("engine stopped", "tick", e.Tick())
			return
		default:
		}

		if !e.Playing() {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		if _, err := e.StepOnce(); err != nil {
			e.svc.Log.Error("tick failed, pausing", "error", err)
			e.Pause()
			continue
		}

		elapsed := time.Since(start)
		if target := e.tickTarget(); elapsed < target {
			time.Sleep(target - elapsed)
		}
	}
}

func (e *Engine) tickTarget() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return time.Duration(float64(e.interval) / e.speed)
}

// StepOnce advances the world exactly one tick, regardless of the
// play/pause state, persisting through the store when one is wired.
func (e *Engine) StepOnce() (TickSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stepLocked()
}

func (e *Engine) stepLocked() (TickSummary, error) {
	summary, err := e.pipeline.Tick(e.state, e.svc, e.run)
	if err != nil {
		return TickSummary{}, err
	}

	e.persist(summary)
	for _, fn := range e.onTick {
		fn(summary)
	}
	return summary, nil
}

// persist writes the tick through the store. Storage failures are
// operational, not simulation, errors: they are logged and the run
// continues.
func (e *Engine) persist(summary TickSummary) {
	if e.svc.Store == nil {
		return
	}
	if len(summary.Events) > 0 {
		if err := e.svc.Store.SaveEvents(e.run.RunID, summary.Events); err != nil {
			e.svc.Log.Error("save events failed", "tick", summary.Tick, "error", err)
		}
	}
	if err := e.svc.Store.SaveStats(e.run.RunID, summary); err != nil {
		e.svc.Log.Error("save stats failed", "tick", summary.Tick, "error", err)
	}
	if e.saveEvery > 0 && summary.Tick%e.saveEvery == 0 {
		if err := e.svc.Store.SaveSnapshot(e.run.RunID, e.state.Encode(), e.run); err != nil {
			e.svc.Log.Error("save snapshot failed", "tick", summary.Tick, "error", err)
		}
	}
}

// Play lets the loop advance ticks.
func (e *Engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = true
}

// Pause stops the loop from advancing ticks. A step already in flight
// completes.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = false
}

// Playing reports whether the loop advances ticks.
func (e *Engine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// Reset swaps in a freshly built initial state and run record.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rebuild == nil {
		return ErrNoRebuild
	}
	state, run, err := e.rebuild()
	if err != nil {
		return fmt.Errorf("rebuild scenario: %w", err)
	}
	e.state = state
	e.run = run
	e.svc.Log.Info("engine reset", "run_id", run.RunID)
	return nil
}

// Tick returns the current tick number.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Tick
}

// RunID returns the current run's identifier.
func (e *Engine) RunID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run.RunID
}

// WithState grants fn locked access to the state and run record. The
// callback must not call back into the engine.
func (e *Engine) WithState(fn func(*world.State, *RunState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.state, e.run)
}

// Snapshot encodes the current world and copies the run record.
func (e *Engine) Snapshot() (world.Snapshot, RunState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Encode(), *e.run
}

// RaiseSuperwageCrisis arms the decomposition clock at the current tick.
func (e *Engine) RaiseSuperwageCrisis(reason string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run.RaiseSuperwageCrisis(e.state.Tick, reason)
}

// SimDate renders a tick as simulation time; one tick is one week.
func SimDate(tick uint64, weeksPerYear float64) string {
	weeks := uint64(weeksPerYear)
	if weeks == 0 {
		weeks = 52
	}
	if tick == 0 {
		return "Year 1, Week 0"
	}
	return fmt.Sprintf("Year %d, Week %d", (tick-1)/weeks+1, (tick-1)%weeks+1)
}
