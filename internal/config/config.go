package config

import (
	"github.com/Skotchmaster/videohub/pkg/config"
)

type ServiceConfig struct {
	config.Config

	// AuthRate is requests per second per client IP on the open auth routes.
	AuthRate  int
	AuthBurst int
}

// Load exits the process when a required value is missing.
func Load() ServiceConfig {
	cfg := config.Load()
	config.MustCheck(requirements(cfg)...)

	return ServiceConfig{
		Config:    cfg,
		AuthRate:  config.EnvIntDefault("AUTH_RATE_LIMIT", 5),
		AuthBurst: config.EnvIntDefault("AUTH_RATE_BURST", 10),
	}
}

// Validate returns the same error Load would exit on.
func Validate(cfg config.Config) error {
	return config.Check(requirements(cfg)...)
}

func requirements(cfg config.Config) []config.Requirement {
	return []config.Requirement{
		config.NonEmpty("DATABASE_URL", cfg.DatabaseURL),
		config.NonEmptyBytes("ACCESS_TOKEN_SECRET", cfg.JWTAccessSecret),
		config.NonEmptyBytes("REFRESH_TOKEN_SECRET", cfg.JWTRefreshSecret),
	}
}
