package engine

import (
	"log/slog"

	"github.com/percy-raskova/babylon-sub002/internal/config"
	"github.com/percy-raskova/babylon-sub002/internal/events"
)

// Services bundles the shared collaborators every system call receives.
// It is the sole injection point: systems take the container as a
// parameter and nothing reads ambient globals.
type Services struct {
	Config *config.Config
	Bus    *events.Bus
	Store  Store // nil for headless or pure runs
	Log    *slog.Logger
}

// NewServices assembles a service container. A nil logger falls back to
// slog.Default; a nil bus gets a fresh one so systems can always publish.
func NewServices(cfg *config.Config, bus *events.Bus, store Store, log *slog.Logger) *Services {
	if bus == nil {
		bus = events.NewBus()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Services{Config: cfg, Bus: bus, Store: store, Log: log}
}
