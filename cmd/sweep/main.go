// Command sweep runs seeded scenario variants headless and reports one
// CSV row per run: how the circuit ended, when the aristocracy split,
// and where the rent pool landed. Useful for mapping the outcome space
// across starting conditions without a server or database.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/percy-raskova/babylon-sub002/internal/config"
	"github.com/percy-raskova/babylon-sub002/internal/engine"
	"github.com/percy-raskova/babylon-sub002/internal/events"
	"github.com/percy-raskova/babylon-sub002/internal/scenario"
)

type result struct {
	Variant           int
	Outcome           string
	DecidedTick       uint64
	DecompositionTick uint64
	TicksRun          uint64
	FinalPoolRatio    float64
	FinalWealth       float64
	ActiveEntities    int
}

func main() {
	runs := flag.Int("runs", 32, "number of scenario variants to run")
	seed := flag.Int64("seed", 42, "noise seed shared by all variants")
	ticks := flag.Int("ticks", 520, "tick budget per run (520 is ten years)")
	workers := flag.Int("workers", 4, "concurrent runs")
	flag.Parse()

	if *runs <= 0 || *ticks <= 0 || *workers <= 0 {
		fmt.Fprintln(os.Stderr, "runs, ticks, and workers must be positive")
		os.Exit(1)
	}

	cfg := config.Default()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	jobs := make(chan int)
	results := make(chan result)

	var wg sync.WaitGroup
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for variant := range jobs {
				res, err := sweepOne(cfg, quiet, *seed, variant, *ticks)
				if err != nil {
					fmt.Fprintf(os.Stderr, "variant %d: %v\n", variant, err)
					continue
				}
				results <- res
			}
		}()
	}

	go func() {
		for v := 0; v < *runs; v++ {
			jobs <- v
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	rows := make([]result, 0, *runs)
	for res := range results {
		rows = append(rows, res)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Variant < rows[j].Variant })

	out := csv.NewWriter(os.Stdout)
	out.Write([]string{
		"variant", "outcome", "decided_tick", "decomposition_tick",
		"ticks_run", "final_pool_ratio", "final_wealth", "active_entities",
	})
	for _, r := range rows {
		out.Write([]string{
			strconv.Itoa(r.Variant),
			r.Outcome,
			strconv.FormatUint(r.DecidedTick, 10),
			strconv.FormatUint(r.DecompositionTick, 10),
			strconv.FormatUint(r.TicksRun, 10),
			strconv.FormatFloat(r.FinalPoolRatio, 'f', 4, 64),
			strconv.FormatFloat(r.FinalWealth, 'f', 2, 64),
			strconv.Itoa(r.ActiveEntities),
		})
	}
	out.Flush()
	if err := out.Error(); err != nil {
		fmt.Fprintln(os.Stderr, "write csv:", err)
		os.Exit(1)
	}
}

// sweepOne drives a single variant to its verdict or the tick budget.
func sweepOne(cfg *config.Config, log *slog.Logger, seed int64, variant, budget int) (result, error) {
	state, err := scenario.Generate(cfg, seed, variant)
	if err != nil {
		return result{}, fmt.Errorf("generate: %w", err)
	}

	svc := engine.NewServices(cfg, nil, nil, log)
	eng := engine.New(svc, state, engine.NewRunState())

	res := result{Variant: variant, Outcome: "none"}
	for i := 0; i < budget; i++ {
		summary, err := eng.StepOnce()
		if err != nil {
			return result{}, fmt.Errorf("tick %d: %w", eng.Tick(), err)
		}
		res.TicksRun = summary.Tick
		res.FinalPoolRatio = summary.PoolRatio
		res.FinalWealth = summary.TotalWealth
		res.ActiveEntities = summary.ActiveEntities

		if res.DecompositionTick == 0 {
			for _, ev := range summary.Events {
				if ev.Kind == events.KindClassDecomposition {
					res.DecompositionTick = ev.Tick
				}
			}
		}
		if summary.Decision != "" {
			res.Outcome = summary.Decision
			res.DecidedTick = summary.Tick
			break
		}
	}
	return res, nil
}
