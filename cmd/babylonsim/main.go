// Command babylonsim runs the Babylon imperial-circuit simulation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/percy-raskova/babylon-sub002/internal/api"
	"github.com/percy-raskova/babylon-sub002/internal/config"
	"github.com/percy-raskova/babylon-sub002/internal/engine"
	"github.com/percy-raskova/babylon-sub002/internal/events"
	"github.com/percy-raskova/babylon-sub002/internal/metrics"
	"github.com/percy-raskova/babylon-sub002/internal/narrative"
	"github.com/percy-raskova/babylon-sub002/internal/persistence"
	"github.com/percy-raskova/babylon-sub002/internal/scenario"
	"github.com/percy-raskova/babylon-sub002/internal/world"
)

func main() {
	rt, err := config.ParseRuntime()
	if err != nil {
		fmt.Fprintln(os.Stderr, "runtime config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(rt.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("Babylon, a political economy of the imperial circuit")

	cfg := config.Default()
	if rt.ConfigPath != "" {
		cfg, err = config.Load(rt.ConfigPath)
		if err != nil {
			slog.Error("failed to load config", "path", rt.ConfigPath, "error", err)
			os.Exit(1)
		}
		slog.Info("config loaded", "path", rt.ConfigPath)
	}
	slog.Info("economic anchors",
		"rent_pool", cfg.Pool.Initial,
		"super_wage_rate", cfg.Wages.InitialRate,
		"weeks_per_year", cfg.Simulation.WeeksPerYear,
	)

	// ── Database ──────────────────────────────────────────────────────
	store, err := persistence.Open(rt)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("database opened", "dialect", rt.DBDialect, "path", rt.DBPath)

	// ── Scenario: resume a saved run or build a fresh circuit ─────────
	build := func() (*world.State, error) {
		if rt.ScenarioPath != "" {
			return scenario.FromFile(cfg, rt.ScenarioPath)
		}
		return scenario.Baseline(cfg)
	}
	scenarioName := "baseline"
	if rt.ScenarioPath != "" {
		scenarioName = filepath.Base(rt.ScenarioPath)
	}

	var state *world.State
	var run *engine.RunState

	if rt.ResumeRun != "" {
		runID := rt.ResumeRun
		if runID == "latest" {
			runID, err = store.LatestRunID()
			if err != nil {
				slog.Error("no run to resume", "error", err)
				os.Exit(1)
			}
		}
		snap, restored, err := store.LatestSnapshot(runID)
		if err != nil {
			slog.Error("failed to load snapshot", "run_id", runID, "error", err)
			os.Exit(1)
		}
		state, err = world.Decode(snap)
		if err != nil {
			slog.Error("failed to decode snapshot", "run_id", runID, "error", err)
			os.Exit(1)
		}
		run = restored
		slog.Info("run resumed",
			"run_id", runID,
			"tick", state.Tick,
			"sim_date", engine.SimDate(state.Tick, cfg.Simulation.WeeksPerYear),
			"active_entities", state.ActiveCount(),
		)
	} else {
		state, err = build()
		if err != nil {
			slog.Error("failed to build scenario", "scenario", scenarioName, "error", err)
			os.Exit(1)
		}
		run = engine.NewRunState()
		if err := store.CreateRun(run.RunID, scenarioName, cfg); err != nil {
			slog.Error("failed to create run", "error", err)
			os.Exit(1)
		}
		if err := store.SaveSnapshot(run.RunID, state.Encode(), run); err != nil {
			slog.Error("initial save failed", "error", err)
		}
		slog.Info("scenario built",
			"scenario", scenarioName,
			"run_id", run.RunID,
			"entities", len(state.Entities()),
			"territories", len(state.Territories()),
			"edges", len(state.Edges()),
		)
	}

	// ── Event plumbing ────────────────────────────────────────────────
	bus := events.NewBus()
	collector := metrics.NewCollector(0)
	bus.Subscribe(collector.HandleEvent)

	llmClient := narrative.NewClient(rt.AnthropicKey)
	if llmClient.Enabled() {
		slog.Info("LLM narration enabled (Haiku)")
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set, narration will use templates")
	}
	narrator := narrative.NewNarrator(llmClient, logger)
	bus.Subscribe(narrator.HandleEvent)

	// ── Engine ────────────────────────────────────────────────────────
	svc := engine.NewServices(cfg, bus, store, logger)
	eng := engine.New(svc, state, run)
	eng.SetInterval(time.Duration(rt.TickMillis) * time.Millisecond)
	eng.SetSpeed(rt.Speed)
	eng.SetSaveEvery(rt.SaveEvery)
	eng.SetRebuild(func() (*world.State, *engine.RunState, error) {
		fresh, err := build()
		if err != nil {
			return nil, nil, err
		}
		next := engine.NewRunState()
		if err := store.CreateRun(next.RunID, scenarioName, cfg); err != nil {
			return nil, nil, err
		}
		return fresh, next, nil
	})
	eng.OnTick(collector.ObserveTick)

	// ── HTTP API ──────────────────────────────────────────────────────
	if rt.AdminKey == "" {
		slog.Warn("BABYLON_ADMIN_KEY not set, admin POST endpoints are disabled")
	}
	apiServer := &api.Server{
		Eng:       eng,
		Cfg:       cfg,
		Store:     store,
		Collector: collector,
		Narrator:  narrator,
		LLM:       llmClient,
		Port:      rt.Port,
		AdminKey:  rt.AdminKey,
		Log:       logger,
	}
	eng.OnTick(apiServer.BroadcastTick)
	apiServer.Start()

	// ── Run until signal ──────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()
	go narrator.Run(ctx)

	fmt.Printf("\nBabylon is live: %d classes across %d territories, %d value edges.\n",
		len(state.Entities()), len(state.Territories()), len(state.Edges()))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", rt.Port)
	if state.Tick > 0 {
		fmt.Printf("Resuming from tick %d (%s)\n",
			state.Tick, engine.SimDate(state.Tick, cfg.Simulation.WeeksPerYear))
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run(ctx)

	// Final save on shutdown.
	slog.Info("final save")
	snap, runCopy := eng.Snapshot()
	if err := store.SaveSnapshot(eng.RunID(), snap, &runCopy); err != nil {
		slog.Error("final save failed", "error", err)
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown failed", "error", err)
	}
	fmt.Println("Simulation stopped. World state saved.")
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
