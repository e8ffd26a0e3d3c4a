package config

import (
	"fmt"
	"os"
)

type Config struct {
	DBSource     string
	Port         string
	Env          string
	SweepOnFetch bool
}

func Load() (*Config, error) {
	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// The monthly sweep normally piggybacks on the account-list fetch.
	// Set SWEEP_ON_FETCH=false to drive it via the /cycle endpoints only.
	sweepOnFetch := os.Getenv("SWEEP_ON_FETCH") != "false"

	return &Config{
		DBSource:     dbSource,
		Port:         port,
		Env:          env,
		SweepOnFetch: sweepOnFetch,
	}, nil
}
