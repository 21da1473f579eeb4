package events

// DeathPayload captures the payload for ENTITY_DIED events.
type DeathPayload struct {
	EntityID      string  `json:"entity_id"`
	Role          string  `json:"role"`
	Wealth        float64 `json:"wealth"`
	Needs         float64 `json:"needs"`
	Population    int     `json:"population"`
	NarrativeHint string  `json:"narrative_hint,omitempty"`
}

// SuperwageCrisisPayload captures the payload for SUPERWAGE_CRISIS events.
type SuperwageCrisisPayload struct {
	Reason        string `json:"reason"`
	NarrativeHint string `json:"narrative_hint,omitempty"`
}

// SubsidyPayload captures the payload for IMPERIAL_SUBSIDY events.
type SubsidyPayload struct {
	ClientID        string  `json:"client_id"`
	Amount          float64 `json:"amount"`
	RepressionAfter float64 `json:"repression_after"`
	NarrativeHint   string  `json:"narrative_hint,omitempty"`
}

// CrisisPayload captures the payload for ECONOMIC_CRISIS events.
type CrisisPayload struct {
	PoolRatio     float64 `json:"pool_ratio"`
	Threshold     float64 `json:"threshold"`
	NarrativeHint string  `json:"narrative_hint,omitempty"`
}

// PolicyShiftPayload captures the payload for POLICY_SHIFT events.
type PolicyShiftPayload struct {
	Stance           string  `json:"stance"`
	WageDelta        float64 `json:"wage_delta"`
	RepressionDelta  float64 `json:"repression_delta"`
	PoolRatio        float64 `json:"pool_ratio"`
	AggregateTension float64 `json:"aggregate_tension"`
	NarrativeHint    string  `json:"narrative_hint,omitempty"`
}

// RupturePayload captures the payload for RUPTURE events.
type RupturePayload struct {
	SourceID      string `json:"source_id"`
	TargetID      string `json:"target_id"`
	NarrativeHint string `json:"narrative_hint,omitempty"`
}

// SynthesisPayload captures the payload for SYNTHESIS events.
type SynthesisPayload struct {
	SourceID      string `json:"source_id"`
	TargetID      string `json:"target_id"`
	NarrativeHint string `json:"narrative_hint,omitempty"`
}

// PowerVacuumPayload captures the payload for POWER_VACUUM events.
type PowerVacuumPayload struct {
	CompradorID   string  `json:"comprador_id"`
	Wealth        float64 `json:"wealth"`
	NarrativeHint string  `json:"narrative_hint,omitempty"`
}

// OffensivePayload captures the payload for REVOLUTIONARY_OFFENSIVE events.
type OffensivePayload struct {
	EntityID      string  `json:"entity_id"`
	Capacity      float64 `json:"capacity"`
	Threshold     float64 `json:"threshold"`
	NarrativeHint string  `json:"narrative_hint,omitempty"`
}

// RevanchismPayload captures the payload for FASCIST_REVANCHISM events.
// AristocracyID names the labor aristocracy the movement aligns with, and
// is null when none remains to align with.
type RevanchismPayload struct {
	EntityID      string  `json:"entity_id"`
	Capacity      float64 `json:"capacity"`
	Threshold     float64 `json:"threshold"`
	AristocracyID *string `json:"aristocracy_id"`
	NarrativeHint string  `json:"narrative_hint,omitempty"`
}

// DecompositionPayload captures the payload for CLASS_DECOMPOSITION events.
type DecompositionPayload struct {
	AristocracyID      string  `json:"aristocracy_id"`
	EnforcerID         string  `json:"enforcer_id"`
	InternalID         string  `json:"internal_id"`
	EnforcerPopulation int     `json:"enforcer_population"`
	InternalPopulation int     `json:"internal_population"`
	EnforcerWealth     float64 `json:"enforcer_wealth"`
	InternalWealth     float64 `json:"internal_wealth"`
	TriggeredBy        string  `json:"triggered_by"`
	NarrativeHint      string  `json:"narrative_hint,omitempty"`
}

// ControlCrisisPayload captures the payload for CONTROL_RATIO_CRISIS events.
type ControlCrisisPayload struct {
	Prisoners       int     `json:"prisoners"`
	Enforcers       int     `json:"enforcers"`
	MaxControllable int     `json:"max_controllable"`
	OverCapacity    int     `json:"over_capacity"`
	Ratio           float64 `json:"ratio"`
	NarrativeHint   string  `json:"narrative_hint,omitempty"`
}

// TerminalPayload captures the payload for TERMINAL_DECISION events.
type TerminalPayload struct {
	Outcome              string  `json:"outcome"`
	WeightedOrganization float64 `json:"weighted_organization"`
	Threshold            float64 `json:"threshold"`
	NarrativeHint        string  `json:"narrative_hint,omitempty"`
}
