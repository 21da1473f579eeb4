// Package metrics aggregates the simulation's output for the API and the
// sweep summary: per-kind event counters and a bounded history of per-tick
// rows. A Collector subscribes to the bus and the tick callback; it never
// touches the world state itself.
package metrics

import (
	"sync"

	"github.com/percy-raskova/babylon-sub002/internal/engine"
	"github.com/percy-raskova/babylon-sub002/internal/events"
)

// defaultHistoryLimit bounds the in-memory tick history.
const defaultHistoryLimit = 1024

// Row is one tick's aggregate line, shaped for JSON consumers.
type Row struct {
	Tick             uint64  `json:"tick"`
	PoolRatio        float64 `json:"pool_ratio"`
	AggregateTension float64 `json:"aggregate_tension"`
	WageDelta        float64 `json:"wage_delta"`
	TotalWealth      float64 `json:"total_wealth"`
	ActiveEntities   int     `json:"active_entities"`
	Events           int     `json:"events"`
	Decision         string  `json:"decision,omitempty"`
}

// Collector accumulates counters and history. Safe for concurrent use; the
// tick driver writes while API handlers read.
type Collector struct {
	mu      sync.Mutex
	counts  map[events.Kind]int
	history []Row
	limit   int
}

// NewCollector returns a Collector keeping at most limit history rows;
// limit <= 0 selects the default.
func NewCollector(limit int) *Collector {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &Collector{
		counts: make(map[events.Kind]int),
		limit:  limit,
	}
}

// HandleEvent counts one published event. It satisfies events.Handler.
func (c *Collector) HandleEvent(ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[ev.Kind]++
}

// ObserveTick appends one tick's aggregates, trimming the oldest rows past
// the limit.
func (c *Collector) ObserveTick(summary engine.TickSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, Row{
		Tick:             summary.Tick,
		PoolRatio:        summary.PoolRatio,
		AggregateTension: summary.AggregateTension,
		WageDelta:        summary.WageDelta,
		TotalWealth:      summary.TotalWealth,
		ActiveEntities:   summary.ActiveEntities,
		Events:           len(summary.Events),
		Decision:         summary.Decision,
	})
	if len(c.history) > c.limit {
		c.history = c.history[len(c.history)-c.limit:]
	}
}

// Counts returns a copy of the per-kind event counters, keyed by kind string.
func (c *Collector) Counts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.counts))
	for k, n := range c.counts {
		out[string(k)] = n
	}
	return out
}

// History returns a copy of the retained tick rows, oldest first.
func (c *Collector) History() []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Row, len(c.history))
	copy(out, c.history)
	return out
}

// Latest returns the most recent row, if any tick has been observed.
func (c *Collector) Latest() (Row, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.history) == 0 {
		return Row{}, false
	}
	return c.history[len(c.history)-1], true
}

// TotalEvents returns the count of all events observed.
func (c *Collector) TotalEvents() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.counts {
		total += n
	}
	return total
}
