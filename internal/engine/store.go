package engine

import (
	"github.com/percy-raskova/babylon-sub002/internal/events"
	"github.com/percy-raskova/babylon-sub002/internal/world"
)

// Store is the persistence surface the engine writes through. The engine
// only saves; loading and queries belong to the owner of the concrete
// store. A nil Store disables persistence entirely.
type Store interface {
	SaveSnapshot(runID string, snap world.Snapshot, run *RunState) error
	SaveEvents(runID string, evs []events.Event) error
	SaveStats(runID string, summary TickSummary) error
}
