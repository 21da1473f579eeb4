// Package events defines the typed event vocabulary of the simulation and
// the synchronous bus the systems publish on. Every event kind pairs with
// exactly one payload struct, so consumers can switch on Kind and assert
// the payload without reflection.
package events

// Kind identifies the type of a simulation event.
type Kind string

// Economic circuit events.
const (
	// KindEntityDied records an entity falling below subsistence.
	KindEntityDied Kind = "ENTITY_DIED"
	// KindSuperwageCrisis records the super-wage flow arming the decomposition clock.
	KindSuperwageCrisis Kind = "SUPERWAGE_CRISIS"
	// KindImperialSubsidy records a stabilization transfer to a client state.
	KindImperialSubsidy Kind = "IMPERIAL_SUBSIDY"
	// KindEconomicCrisis records the rent pool draining past its crisis floor.
	KindEconomicCrisis Kind = "ECONOMIC_CRISIS"
	// KindPolicyShift records an imperial policy stance adjustment.
	KindPolicyShift Kind = "POLICY_SHIFT"
)

// Contradiction and struggle events.
const (
	// KindRupture records an exploitation tension saturating at 1.0.
	KindRupture Kind = "RUPTURE"
	// KindSynthesis records an exploitation tension resolving to 0.0.
	KindSynthesis Kind = "SYNTHESIS"
	// KindPowerVacuum records a comprador state losing the means to govern.
	KindPowerVacuum Kind = "POWER_VACUUM"
	// KindRevolutionaryOffensive records organized capacity crossing the threshold.
	KindRevolutionaryOffensive Kind = "REVOLUTIONARY_OFFENSIVE"
	// KindFascistRevanchism records disorganized capacity falling short of it.
	KindFascistRevanchism Kind = "FASCIST_REVANCHISM"
)

// Carceral and terminal events.
const (
	// KindClassDecomposition records the labor aristocracy splitting apart.
	KindClassDecomposition Kind = "CLASS_DECOMPOSITION"
	// KindControlRatioCrisis records the prison population outrunning the enforcers.
	KindControlRatioCrisis Kind = "CONTROL_RATIO_CRISIS"
	// KindTerminalDecision records the end-state verdict of a run.
	KindTerminalDecision Kind = "TERMINAL_DECISION"
)

// Event is one fact published by a system during a tick. Message is the
// human-readable line appended to the world event log; Payload holds the
// kind's fixed payload struct.
type Event struct {
	Tick    uint64 `json:"tick"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Payload any    `json:"payload,omitempty"`
}
