package engine

import "github.com/google/uuid"

// RunStateVersion guards persisted run records against schema drift.
const RunStateVersion = 1

// RunState is the explicit cross-tick record that survives between ticks
// but does not belong in the world graph: one-shot flags, timestamps, and
// the previous tick's wage flows. It is owned by the tick driver, passed
// alongside the world state, and persisted next to snapshots.
type RunState struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id"`

	// PrevWages records each entity's total incoming Wages value flow
	// from the previous tick, keyed by entity id.
	PrevWages map[string]float64 `json:"prev_wages"`

	// SuperwageCrisisSince is the tick the superwage crisis was raised,
	// nil while unarmed. SuperwageReason records who raised it.
	SuperwageCrisisSince *uint64 `json:"superwage_crisis_since"`
	SuperwageReason      string  `json:"superwage_reason,omitempty"`

	// DecompositionDone blocks any second class split for this run.
	DecompositionDone bool `json:"decomposition_done"`

	// ControlCrisisAt is the tick of the first control-ratio crisis,
	// nil before one occurs.
	ControlCrisisAt *uint64 `json:"control_crisis_at"`

	// TerminalDecided and TerminalOutcome record the run's verdict.
	TerminalDecided bool   `json:"terminal_decided"`
	TerminalOutcome string `json:"terminal_outcome,omitempty"`
}

// NewRunState returns a fresh run record with a generated id.
func NewRunState() *RunState {
	return &RunState{
		Version:   RunStateVersion,
		RunID:     uuid.NewString(),
		PrevWages: make(map[string]float64),
	}
}

// RaiseSuperwageCrisis arms the decomposition clock at the given tick.
// Raising an already-armed crisis is a no-op; the return value reports
// whether this call armed it.
func (r *RunState) RaiseSuperwageCrisis(tick uint64, reason string) bool {
	if r.SuperwageCrisisSince != nil {
		return false
	}
	r.SuperwageCrisisSince = &tick
	r.SuperwageReason = reason
	return true
}
