package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Runtime holds deployment settings read from the environment. These are
// driver concerns (ports, storage, cadence); simulation tunables live in
// Config and never come from env vars.
type Runtime struct {
	Port     int    `env:"BABYLON_PORT" envDefault:"8080"`
	AdminKey string `env:"BABYLON_ADMIN_KEY"`

	DBDialect string `env:"BABYLON_DB_DIALECT" envDefault:"sqlite"`
	DBPath    string `env:"BABYLON_DB_PATH" envDefault:"babylon.db"`
	DBDSN     string `env:"BABYLON_DB_DSN"`

	TickMillis int     `env:"BABYLON_TICK_MS" envDefault:"1000"`
	Speed      float64 `env:"BABYLON_SPEED" envDefault:"1"`
	SaveEvery  uint64  `env:"BABYLON_SAVE_EVERY" envDefault:"10"`

	ConfigPath   string `env:"BABYLON_CONFIG"`
	ScenarioPath string `env:"BABYLON_SCENARIO"`
	ResumeRun    string `env:"BABYLON_RESUME_RUN"`

	AnthropicKey string `env:"ANTHROPIC_API_KEY"`
	LogLevel     string `env:"BABYLON_LOG_LEVEL" envDefault:"info"`
}

// ParseRuntime loads Runtime from environment variables.
func ParseRuntime() (Runtime, error) {
	var rt Runtime
	if err := env.Parse(&rt); err != nil {
		return rt, fmt.Errorf("parse env: %w", err)
	}
	if rt.TickMillis <= 0 {
		return rt, fmt.Errorf("BABYLON_TICK_MS must be positive, got %d", rt.TickMillis)
	}
	if rt.Speed < 0 {
		return rt, fmt.Errorf("BABYLON_SPEED must be non-negative, got %g", rt.Speed)
	}
	return rt, nil
}
