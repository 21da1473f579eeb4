package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/percy-raskova/babylon-sub002/internal/events"
)

const (
	queueSize    = 256
	historyLimit = 64

	// narrationCooldown is the minimum tick gap between narrations of the
	// same event kind. Storm kinds (a power vacuum firing every tick) get
	// one entry per window instead of drowning the chronicle.
	narrationCooldown = 8
)

const chroniclerSystem = `You are the chronicler of Babylon, a world-system of core and periphery. Imperial rent flows from periphery workers through a comprador state to core capital, which buys the loyalty of its own working class with superwages. The chronicle records the circuit's crises: starvation, rupture, subsidy, decomposition, and the terminal question of revolution or annihilation.

Narrate the given event in 2-3 plain, vivid sentences. Write as a contemporary observer, not an analyst. Do not break character or reference the simulation.`

// Item is one narrated event.
type Item struct {
	Tick        uint64    `json:"tick"`
	Kind        string    `json:"kind"`
	Prose       string    `json:"prose"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Narrator consumes bus events on its own buffered queue and turns the
// notable ones into prose. Publishing never blocks the tick path: a full
// queue drops the event and counts the drop.
type Narrator struct {
	client *Client
	log    *slog.Logger
	queue  chan events.Event

	mu       sync.Mutex
	items    []Item
	dropped  int
	lastSeen map[events.Kind]uint64
}

// NewNarrator returns a Narrator. client may be nil; templates then serve.
func NewNarrator(client *Client, log *slog.Logger) *Narrator {
	if log == nil {
		log = slog.Default()
	}
	return &Narrator{
		client:   client,
		log:      log,
		queue:    make(chan events.Event, queueSize),
		lastSeen: make(map[events.Kind]uint64),
	}
}

// HandleEvent enqueues a notable event for narration. It satisfies
// events.Handler and returns immediately.
func (n *Narrator) HandleEvent(ev events.Event) {
	if !notable(ev.Kind) {
		return
	}

	n.mu.Lock()
	if last, ok := n.lastSeen[ev.Kind]; ok && ev.Tick-last < narrationCooldown {
		n.mu.Unlock()
		return
	}
	n.lastSeen[ev.Kind] = ev.Tick
	n.mu.Unlock()

	select {
	case n.queue <- ev:
	default:
		n.mu.Lock()
		n.dropped++
		n.mu.Unlock()
	}
}

// notable filters out the per-tick chatter kinds; everything else gets
// narrated.
func notable(k events.Kind) bool {
	switch k {
	case events.KindEconomicCrisis, events.KindPolicyShift:
		return false
	}
	return true
}

// Run drains the queue until the context is cancelled.
func (n *Narrator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-n.queue:
			n.record(ev, n.narrate(ev))
		}
	}
}

func (n *Narrator) narrate(ev events.Event) string {
	prose := TemplateProse(ev)
	if !n.client.Enabled() {
		return prose
	}

	prompt := fmt.Sprintf("Tick %d, event %s.\nSketch: %s\nDetail: %s",
		ev.Tick, ev.Kind, prose, ev.Message)
	out, err := n.client.Complete(chroniclerSystem, prompt, 200)
	if err != nil {
		n.log.Debug("narration fell back to template", "kind", ev.Kind, "error", err)
		return prose
	}
	return out
}

func (n *Narrator) record(ev events.Event, prose string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, Item{
		Tick:        ev.Tick,
		Kind:        string(ev.Kind),
		Prose:       prose,
		GeneratedAt: time.Now(),
	})
	if len(n.items) > historyLimit {
		n.items = n.items[len(n.items)-historyLimit:]
	}
}

// Recent returns up to limit narrated items, oldest first.
func (n *Narrator) Recent(limit int) []Item {
	n.mu.Lock()
	defer n.mu.Unlock()
	start := 0
	if limit > 0 && len(n.items) > limit {
		start = len(n.items) - limit
	}
	out := make([]Item, len(n.items)-start)
	copy(out, n.items[start:])
	return out
}

// Dropped returns the number of events lost to a saturated queue.
func (n *Narrator) Dropped() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dropped
}

// TemplateProse renders an event deterministically from its payload. The
// switch covers every payload kind the systems emit; anything else falls
// back to the event's own message.
func TemplateProse(ev events.Event) string {
	switch p := ev.Payload.(type) {
	case events.DeathPayload:
		return fmt.Sprintf("%s starves out of the circuit, wealth %.2f against needs of %.2f.",
			p.EntityID, p.Wealth, p.Needs)
	case events.SuperwageCrisisPayload:
		return fmt.Sprintf("The superwage compact cracks: %s.", strings.ReplaceAll(p.Reason, "_", " "))
	case events.SubsidyPayload:
		return fmt.Sprintf("An imperial subsidy of %.2f props up %s; repression there rises to %.2f.",
			p.Amount, p.ClientID, p.RepressionAfter)
	case events.CrisisPayload:
		return fmt.Sprintf("The rent pool falls to %.0f%% of its founding stock; the crisis line sits at %.0f%%.",
			p.PoolRatio*100, p.Threshold*100)
	case events.PolicyShiftPayload:
		return fmt.Sprintf("The empire turns to %s: wages move %+.3f, repression %+.3f.",
			p.Stance, p.WageDelta, p.RepressionDelta)
	case events.RupturePayload:
		return fmt.Sprintf("The contradiction between %s and %s ruptures into open conflict.",
			p.SourceID, p.TargetID)
	case events.SynthesisPayload:
		return fmt.Sprintf("The contradiction between %s and %s resolves without rupture.",
			p.SourceID, p.TargetID)
	case events.PowerVacuumPayload:
		return fmt.Sprintf("%s can no longer pay its way; a power vacuum opens beneath it.",
			p.CompradorID)
	case events.OffensivePayload:
		return fmt.Sprintf("%s seizes the vacuum: organized capacity %.2f clears the bar of %.2f.",
			p.EntityID, p.Capacity, p.Threshold)
	case events.RevanchismPayload:
		base := fmt.Sprintf("The vacuum breaks rightward: capacity %.2f falls short of %.2f",
			p.Capacity, p.Threshold)
		if p.AristocracyID != nil {
			return fmt.Sprintf("%s; %s hardens into reaction.", base, *p.AristocracyID)
		}
		return base + "; no aristocracy stands ready to profit."
	case events.DecompositionPayload:
		return fmt.Sprintf("%s decomposes under %s: %d become enforcers and %d the internal proletariat.",
			p.AristocracyID, strings.ReplaceAll(p.TriggeredBy, "_", " "),
			p.EnforcerPopulation, p.InternalPopulation)
	case events.ControlCrisisPayload:
		if p.Enforcers == 0 {
			return fmt.Sprintf("No enforcers remain to hold %d prisoners.", p.Prisoners)
		}
		return fmt.Sprintf("%d prisoners strain against %d enforcers; control runs at %.1f times capacity.",
			p.Prisoners, p.Enforcers, p.Ratio)
	case events.TerminalPayload:
		return fmt.Sprintf("The terminal question resolves in %s, weighted organization %.2f against a threshold of %.2f.",
			p.Outcome, p.WeightedOrganization, p.Threshold)
	default:
		return ev.Message
	}
}
