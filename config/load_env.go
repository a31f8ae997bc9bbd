package config

import (
	"log/slog"

	"github.com/subosito/gotenv"
)

const DEFAULT_ENV = "dev"

// LoadEnv reads config/envs/.env.<env> if present. Variables already set in
// the process environment win.
func LoadEnv(env string) {
	if env == "" {
		env = DEFAULT_ENV
	}
	envFile := "config/envs/.env." + env
	if err := gotenv.Load(envFile); err != nil {
		slog.Warn("No .env file found, using OS environment", slog.String("file", envFile))
	}
}
