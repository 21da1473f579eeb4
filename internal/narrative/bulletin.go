package narrative

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const bulletinSystem = `You are the editor of a periphery broadsheet in Babylon, a world-system of core and periphery bound by imperial rent. You write for the workers whose extraction feeds the pool. Produce a short bulletin from the figures and chronicle entries supplied: a headline, a paragraph on the state of the circuit, and a closing line. Plain language, no tables. Do not break character or reference the simulation.`

// BulletinData is the snapshot of figures a bulletin is written from.
type BulletinData struct {
	SimDate          string
	Tick             uint64
	PoolRatio        float64
	AggregateTension float64
	WageRate         float64
	RepressionLevel  float64
	TotalWealth      float64
	ActiveEntities   int
	Decision         string
	EventCounts      map[string]int
	RecentProse      []string
}

// Bulletin is a generated digest of the world's state.
type Bulletin struct {
	GeneratedAt time.Time `json:"generated_at"`
	SimDate     string    `json:"sim_date"`
	Content     string    `json:"content"`
}

// GenerateBulletin writes a bulletin from data. Without a client, or when
// the call fails, the deterministic fallback serves.
func GenerateBulletin(client *Client, data *BulletinData) (*Bulletin, error) {
	content := fallbackBulletin(data)
	if client.Enabled() {
		if out, err := client.Complete(bulletinSystem, buildBulletinPrompt(data), 900); err == nil {
			content = out
		}
	}
	return &Bulletin{
		GeneratedAt: time.Now(),
		SimDate:     data.SimDate,
		Content:     content,
	}, nil
}

func buildBulletinPrompt(data *BulletinData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s (tick %d)\n", data.SimDate, data.Tick)
	fmt.Fprintf(&b, "Rent pool at %.0f%% of founding stock. Superwage rate %.2f. Repression %.2f.\n",
		data.PoolRatio*100, data.WageRate, data.RepressionLevel)
	fmt.Fprintf(&b, "Total wealth in circuit: %s across %d active classes. Aggregate tension %.2f.\n",
		humanize.Commaf(data.TotalWealth), data.ActiveEntities, data.AggregateTension)
	if data.Decision != "" {
		fmt.Fprintf(&b, "The terminal question has resolved: %s.\n", data.Decision)
	}
	if len(data.RecentProse) > 0 {
		b.WriteString("\nRecent chronicle:\n")
		for _, line := range data.RecentProse {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	return b.String()
}

func fallbackBulletin(data *BulletinData) string {
	var b strings.Builder
	b.WriteString("THE BABYLON LEDGER\n")
	fmt.Fprintf(&b, "%s\n\n", data.SimDate)

	fmt.Fprintf(&b, "THE POOL: %.0f%% of founding stock remains. ", data.PoolRatio*100)
	switch {
	case data.PoolRatio < 0.10:
		b.WriteString("The compact is in open crisis.\n")
	case data.PoolRatio < 0.33:
		b.WriteString("The empire tightens its belt.\n")
	case data.PoolRatio >= 0.75:
		b.WriteString("The bribery flows freely.\n")
	default:
		b.WriteString("The circuit holds.\n")
	}

	fmt.Fprintf(&b, "THE CIRCUIT: %s in total wealth across %d active classes. Superwage rate %.2f, repression %.2f, aggregate tension %.2f.\n",
		humanize.Commaf(data.TotalWealth), data.ActiveEntities,
		data.WageRate, data.RepressionLevel, data.AggregateTension)

	if data.Decision != "" {
		fmt.Fprintf(&b, "THE VERDICT: %s.\n", data.Decision)
	}

	if len(data.EventCounts) > 0 {
		b.WriteString("\nTHE RECORD:\n")
		kinds := make([]string, 0, len(data.EventCounts))
		for k := range data.EventCounts {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(&b, "  %s: %d\n", k, data.EventCounts[k])
		}
	}

	if len(data.RecentProse) > 0 {
		b.WriteString("\nTHE CHRONICLE:\n")
		for _, line := range data.RecentProse {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	return b.String()
}
